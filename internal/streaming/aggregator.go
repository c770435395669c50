package streaming

import (
	"context"
	"errors"
	"io"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/repos"
	"github.com/yungbote/batchcore-backend/internal/types"
)

// ErrStopRequested is returned when the caller's stop probe fires mid-stream.
// Buffered groups are flushed before returning, so the partial aggregation
// is consistent.
var ErrStopRequested = errors.New("aggregation stopped")

type Stats struct {
	RecordsProcessed int64
	ParseErrors      int64
	Flushes          int
}

type buffer struct {
	aggType     string
	groupKey    string
	count       int64
	totalSalary float64
	totalHours  float64
	totalBonus  float64
	minSalary   float64
	maxSalary   float64
}

// Aggregator folds a record stream into keyed group buffers and flushes them
// to the aggregation store every flushSize records. Memory is bounded by the
// number of live groups between flushes, never by input size.
type Aggregator struct {
	log       *logger.Logger
	store     repos.AggregationRepo
	depth     int
	flushSize int
}

func NewAggregator(store repos.AggregationRepo, baseLog *logger.Logger, depth, flushSize int) *Aggregator {
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}
	if flushSize < 1 {
		flushSize = 1000
	}
	return &Aggregator{
		log:       baseLog.With("component", "StreamingAggregator"),
		store:     store,
		depth:     depth,
		flushSize: flushSize,
	}
}

// Run consumes the source to exhaustion. Records that fail to parse count
// toward both the parse-error total and the flush cadence. The stop probe
// may be nil.
func (a *Aggregator) Run(ctx context.Context, execID int64, src Source, stop func() bool) (Stats, error) {
	stats := Stats{}
	buffers := map[string]*buffer{}
	sinceFlush := 0

	for {
		if stop != nil && stop() {
			if err := a.flush(ctx, execID, buffers, &stats); err != nil {
				return stats, err
			}
			return stats, ErrStopRequested
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrBadRecord) {
			stats.ParseErrors++
			sinceFlush++
		} else if err != nil {
			return stats, err
		} else {
			a.accumulate(buffers, rec)
			stats.RecordsProcessed++
			sinceFlush++
		}

		if sinceFlush >= a.flushSize {
			if err := a.flush(ctx, execID, buffers, &stats); err != nil {
				return stats, err
			}
			sinceFlush = 0
		}
	}

	if err := a.flush(ctx, execID, buffers, &stats); err != nil {
		return stats, err
	}
	a.log.Debug("Aggregation finished",
		"executionId", execID,
		"records", stats.RecordsProcessed,
		"parseErrors", stats.ParseErrors,
		"flushes", stats.Flushes,
	)
	return stats, nil
}

func (a *Aggregator) accumulate(buffers map[string]*buffer, rec *Record) {
	a.fold(buffers, types.AggregationByDepartment, rec.Department, rec)
	a.fold(buffers, types.AggregationByRegion, rec.Region, rec)
	a.fold(buffers, types.AggregationByStatus, rec.Status, rec)
	if a.depth >= 2 {
		a.fold(buffers, types.AggregationByDepartmentRegion, rec.Department+"_"+rec.Region, rec)
	}
	if a.depth >= 3 {
		a.fold(buffers, types.AggregationByDepartmentRegionStatus, rec.Department+"_"+rec.Region+"_"+rec.Status, rec)
	}
}

func (a *Aggregator) fold(buffers map[string]*buffer, aggType, groupKey string, rec *Record) {
	key := aggType + ":" + groupKey
	b, ok := buffers[key]
	if !ok {
		b = &buffer{
			aggType:   aggType,
			groupKey:  groupKey,
			minSalary: rec.Salary,
			maxSalary: rec.Salary,
		}
		buffers[key] = b
	}
	b.count++
	b.totalSalary += rec.Salary
	b.totalHours += rec.HoursWorked
	b.totalBonus += rec.Bonus
	if rec.Salary < b.minSalary {
		b.minSalary = rec.Salary
	}
	if rec.Salary > b.maxSalary {
		b.maxSalary = rec.Salary
	}
}

func (a *Aggregator) flush(ctx context.Context, execID int64, buffers map[string]*buffer, stats *Stats) error {
	if len(buffers) == 0 {
		return nil
	}
	rows := make([]*types.Aggregation, 0, len(buffers))
	for _, b := range buffers {
		rows = append(rows, &types.Aggregation{
			JobExecutionID:  execID,
			AggregationType: b.aggType,
			GroupKey:        b.groupKey,
			RecordCount:     b.count,
			TotalSalary:     b.totalSalary,
			TotalHours:      b.totalHours,
			TotalBonus:      b.totalBonus,
			MinSalary:       b.minSalary,
			MaxSalary:       b.maxSalary,
		})
	}
	if err := a.store.UpsertBatch(ctx, nil, rows); err != nil {
		return err
	}
	for key := range buffers {
		delete(buffers, key)
	}
	stats.Flushes++
	return nil
}
