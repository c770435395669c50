package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/types"
)

const (
	EventJobStarted    = "JOB_STARTED"
	EventStepCompleted = "STEP_COMPLETED"
	EventJobCompleted  = "JOB_COMPLETED"
	EventJobFailed     = "JOB_FAILED"
	EventJobStopped    = "JOB_STOPPED"
)

// Envelope is the JSON payload published for every lifecycle event.
type Envelope struct {
	EventType       string `json:"eventType"`
	Timestamp       string `json:"timestamp"`
	ExecutionID     int64  `json:"executionId"`
	JobName         string `json:"jobName"`
	Status          string `json:"status"`
	ExitCode        string `json:"exitCode"`
	ExitDescription string `json:"exitDescription,omitempty"`
	TriggerID       string `json:"triggerId,omitempty"`
	StartTime       string `json:"startTime,omitempty"`
	EndTime         string `json:"endTime,omitempty"`
	StepName        string `json:"stepName,omitempty"`
	Progress        *int   `json:"progress,omitempty"`
	StepCount       int    `json:"stepCount"`
	ReadCount       int64  `json:"readCount"`
	WriteCount      int64  `json:"writeCount"`
	SkipCount       int64  `json:"skipCount"`
}

// Publisher emits lifecycle events. Publishing never fails the caller: a
// broken broker degrades to log lines, not execution errors.
type Publisher interface {
	JobStarted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution)
	StepCompleted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution, stepName string, progress int)
	JobCompleted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution)
	JobFailed(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution)
	JobStopped(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution)
	Close() error
}

type redisPublisher struct {
	log              *logger.Logger
	rdb              *goredis.Client
	startedChannel   string
	progressChannel  string
	completedChannel string
	failedChannel    string
}

func NewRedisPublisher(log *logger.Logger) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisPublisher{
		log:              log.With("service", "JobEventPublisher"),
		rdb:              rdb,
		startedChannel:   channelEnv("BATCH_EVENTS_STARTED_CHANNEL", "batch:events:job-started"),
		progressChannel:  channelEnv("BATCH_EVENTS_PROGRESS_CHANNEL", "batch:events:job-progress"),
		completedChannel: channelEnv("BATCH_EVENTS_COMPLETED_CHANNEL", "batch:events:job-completed"),
		failedChannel:    channelEnv("BATCH_EVENTS_FAILED_CHANNEL", "batch:events:job-failed"),
	}, nil
}

func channelEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// NewEnvelope assembles the shared envelope fields from an execution and its
// step rows. The trigger id comes out of the parameter snapshot.
func NewEnvelope(eventType string, exec *types.JobExecution, steps []*types.StepExecution) Envelope {
	env := Envelope{
		EventType:   eventType,
		Timestamp:   time.Now().Format(time.RFC3339),
		ExecutionID: exec.ID,
		JobName:     exec.JobName,
		Status:      string(exec.Status),
		ExitCode:    string(exec.ExitCode),
		TriggerID:   triggerIDFromSnapshot(exec.Parameters),
		StepCount:   len(steps),
	}
	if exec.StartTime != nil {
		env.StartTime = exec.StartTime.Format(time.RFC3339)
	}
	if exec.EndTime != nil {
		env.EndTime = exec.EndTime.Format(time.RFC3339)
	}
	if exec.Status == types.StatusFailed || exec.Status == types.StatusStopped {
		env.ExitDescription = exec.ExitDescription
	}
	for _, step := range steps {
		env.ReadCount += step.ReadCount
		env.WriteCount += step.WriteCount
		env.SkipCount += step.SkipCount
	}
	return env
}

func triggerIDFromSnapshot(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var snapshot map[string]struct {
		Value interface{} `json:"value"`
	}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return ""
	}
	if p, ok := snapshot["triggerId"]; ok {
		if s, ok := p.Value.(string); ok {
			return s
		}
	}
	return ""
}

func (p *redisPublisher) publish(ctx context.Context, channel string, env Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		p.log.Warn("Failed to marshal batch event", "eventType", env.EventType, "error", err)
		return
	}
	if err := p.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		p.log.Warn("Failed to publish batch event",
			"eventType", env.EventType,
			"channel", channel,
			"executionId", env.ExecutionID,
			"error", err,
		)
	}
}

func (p *redisPublisher) JobStarted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.publish(ctx, p.startedChannel, NewEnvelope(EventJobStarted, exec, steps))
}

func (p *redisPublisher) StepCompleted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution, stepName string, progress int) {
	env := NewEnvelope(EventStepCompleted, exec, steps)
	env.StepName = stepName
	env.Progress = &progress
	p.publish(ctx, p.progressChannel, env)
}

func (p *redisPublisher) JobCompleted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.publish(ctx, p.completedChannel, NewEnvelope(EventJobCompleted, exec, steps))
}

func (p *redisPublisher) JobFailed(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.publish(ctx, p.failedChannel, NewEnvelope(EventJobFailed, exec, steps))
}

// JobStopped rides the failed channel: consumers treat a stop as an
// unsuccessful completion.
func (p *redisPublisher) JobStopped(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.publish(ctx, p.failedChannel, NewEnvelope(EventJobStopped, exec, steps))
}

func (p *redisPublisher) Close() error {
	return p.rdb.Close()
}

// NoopPublisher keeps the pipeline running when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) JobStarted(context.Context, *types.JobExecution, []*types.StepExecution) {}
func (NoopPublisher) StepCompleted(context.Context, *types.JobExecution, []*types.StepExecution, string, int) {
}
func (NoopPublisher) JobCompleted(context.Context, *types.JobExecution, []*types.StepExecution) {}
func (NoopPublisher) JobFailed(context.Context, *types.JobExecution, []*types.StepExecution)    {}
func (NoopPublisher) JobStopped(context.Context, *types.JobExecution, []*types.StepExecution)   {}
func (NoopPublisher) Close() error                                                              { return nil }
