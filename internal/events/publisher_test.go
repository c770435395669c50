package events

import (
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/batchcore-backend/internal/types"
)

func sampleExecution() *types.JobExecution {
	return &types.JobExecution{
		ID:         42,
		JobName:    "paymentFileGenerationJob",
		Status:     types.StatusCompleted,
		ExitCode:   types.ExitCompleted,
		Parameters: datatypes.JSON([]byte(`{"triggerId":{"value":"trig-9","type":"STRING","identifying":true}}`)),
	}
}

func TestNewEnvelopeFields(t *testing.T) {
	exec := sampleExecution()
	steps := []*types.StepExecution{
		{StepName: "a", ReadCount: 10, WriteCount: 8, SkipCount: 2},
		{StepName: "b", ReadCount: 5, WriteCount: 5},
	}

	env := NewEnvelope(EventJobCompleted, exec, steps)
	if env.EventType != EventJobCompleted {
		t.Fatalf("eventType = %s", env.EventType)
	}
	if env.ExecutionID != 42 || env.JobName != "paymentFileGenerationJob" {
		t.Fatalf("identity fields wrong: %+v", env)
	}
	if env.Status != "COMPLETED" || env.ExitCode != "COMPLETED" {
		t.Fatalf("status fields wrong: %+v", env)
	}
	if env.TriggerID != "trig-9" {
		t.Fatalf("triggerId = %q", env.TriggerID)
	}
	if env.StepCount != 2 {
		t.Fatalf("stepCount = %d", env.StepCount)
	}
	if env.ReadCount != 15 || env.WriteCount != 13 || env.SkipCount != 2 {
		t.Fatalf("counters = %d/%d/%d", env.ReadCount, env.WriteCount, env.SkipCount)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Fatalf("timestamp %q not RFC3339: %v", env.Timestamp, err)
	}
}

func TestNewEnvelopeCarriesExecutionTimes(t *testing.T) {
	exec := sampleExecution()
	start := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	exec.StartTime = &start
	exec.EndTime = &end

	env := NewEnvelope(EventJobCompleted, exec, nil)
	if env.StartTime != "2026-08-24T09:00:00Z" {
		t.Fatalf("startTime = %q", env.StartTime)
	}
	if env.EndTime != "2026-08-24T09:01:30Z" {
		t.Fatalf("endTime = %q", env.EndTime)
	}

	exec.StartTime = nil
	exec.EndTime = nil
	env = NewEnvelope(EventJobStarted, exec, nil)
	if env.StartTime != "" || env.EndTime != "" {
		t.Fatalf("unset times must stay empty: %+v", env)
	}
}

func TestStepEventPayloadUsesProgressField(t *testing.T) {
	exec := sampleExecution()
	progress := 66
	env := NewEnvelope(EventStepCompleted, exec, nil)
	env.StepName = "transformToPaymentRecords"
	env.Progress = &progress

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	got, ok := decoded["progress"]
	if !ok {
		t.Fatalf("payload missing progress: %s", raw)
	}
	if got.(float64) != 66 {
		t.Fatalf("progress = %v", got)
	}
	if _, ok := decoded["progressPercent"]; ok {
		t.Fatalf("payload must not use progressPercent: %s", raw)
	}
	if decoded["stepName"] != "transformToPaymentRecords" {
		t.Fatalf("stepName = %v", decoded["stepName"])
	}
}

func TestNewEnvelopeExitDescriptionOnlyForUnsuccessfulRuns(t *testing.T) {
	exec := sampleExecution()
	exec.ExitDescription = "should stay private"

	env := NewEnvelope(EventJobCompleted, exec, nil)
	if env.ExitDescription != "" {
		t.Fatalf("completed run must not carry an exit description")
	}

	exec.Status = types.StatusFailed
	exec.ExitCode = types.ExitFailed
	exec.ExitDescription = "step broke"
	env = NewEnvelope(EventJobFailed, exec, nil)
	if env.ExitDescription != "step broke" {
		t.Fatalf("failed run lost its exit description: %+v", env)
	}

	exec.Status = types.StatusStopped
	exec.ExitCode = types.ExitStopped
	exec.ExitDescription = "stop requested"
	env = NewEnvelope(EventJobStopped, exec, nil)
	if env.ExitDescription != "stop requested" {
		t.Fatalf("stopped run lost its exit description: %+v", env)
	}
}

func TestNewEnvelopeToleratesMissingSnapshot(t *testing.T) {
	exec := sampleExecution()
	exec.Parameters = nil
	env := NewEnvelope(EventJobStarted, exec, nil)
	if env.TriggerID != "" {
		t.Fatalf("triggerId = %q, want empty", env.TriggerID)
	}

	exec.Parameters = datatypes.JSON([]byte(`not json`))
	env = NewEnvelope(EventJobStarted, exec, nil)
	if env.TriggerID != "" {
		t.Fatalf("corrupt snapshot must yield empty trigger id")
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	exec := sampleExecution()
	env := NewEnvelope(EventJobCompleted, exec, nil)

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"eventType", "timestamp", "executionId", "jobName", "status", "exitCode", "triggerId", "stepCount"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("payload missing %q: %s", key, raw)
		}
	}
	// optional fields stay out of successful payloads
	for _, key := range []string{"exitDescription", "stepName", "progress"} {
		if _, ok := decoded[key]; ok {
			t.Fatalf("payload should omit %q when unset: %s", key, raw)
		}
	}
}
