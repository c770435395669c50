package repos

import (
	"context"
	"testing"

	"github.com/yungbote/batchcore-backend/internal/repos/testutil"
	"github.com/yungbote/batchcore-backend/internal/types"
)

func TestUpsertBatchAccumulates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewAggregationRepo(db, testutil.Logger(t))
	ctx := context.Background()

	const execID = int64(900001)

	first := []*types.Aggregation{{
		JobExecutionID:  execID,
		AggregationType: types.AggregationByDepartment,
		GroupKey:        "DEPT_1",
		RecordCount:     2,
		TotalSalary:     100000,
		TotalHours:      320,
		TotalBonus:      10000,
		MinSalary:       40000,
		MaxSalary:       60000,
	}}
	if err := repo.UpsertBatch(ctx, tx, first); err != nil {
		t.Fatalf("UpsertBatch (insert): %v", err)
	}

	second := []*types.Aggregation{{
		JobExecutionID:  execID,
		AggregationType: types.AggregationByDepartment,
		GroupKey:        "DEPT_1",
		RecordCount:     1,
		TotalSalary:     30000,
		TotalHours:      160,
		TotalBonus:      3000,
		MinSalary:       30000,
		MaxSalary:       30000,
	}}
	if err := repo.UpsertBatch(ctx, tx, second); err != nil {
		t.Fatalf("UpsertBatch (accumulate): %v", err)
	}

	row, err := repo.GetByKey(ctx, tx, execID, types.AggregationByDepartment, "DEPT_1")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if row == nil {
		t.Fatalf("expected aggregation row")
	}
	if row.RecordCount != 3 {
		t.Fatalf("expected record count 3, got %d", row.RecordCount)
	}
	if row.TotalSalary != 130000 {
		t.Fatalf("expected total salary 130000, got %f", row.TotalSalary)
	}
	if row.MinSalary != 30000 {
		t.Fatalf("expected min salary to fold to 30000, got %f", row.MinSalary)
	}
	if row.MaxSalary != 60000 {
		t.Fatalf("expected max salary to stay 60000, got %f", row.MaxSalary)
	}
}

func TestDistinctGroupsAndTotals(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewAggregationRepo(db, testutil.Logger(t))
	ctx := context.Background()

	const execID = int64(900002)

	rows := []*types.Aggregation{
		{JobExecutionID: execID, AggregationType: types.AggregationByDepartment, GroupKey: "DEPT_1", RecordCount: 4, MinSalary: 1, MaxSalary: 1},
		{JobExecutionID: execID, AggregationType: types.AggregationByDepartment, GroupKey: "DEPT_2", RecordCount: 6, MinSalary: 1, MaxSalary: 1},
		{JobExecutionID: execID, AggregationType: types.AggregationByRegion, GroupKey: "REGION_1", RecordCount: 10, MinSalary: 1, MaxSalary: 1},
	}
	if err := repo.UpsertBatch(ctx, tx, rows); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	groups, err := repo.CountDistinctGroups(ctx, tx, execID, types.AggregationByDepartment)
	if err != nil {
		t.Fatalf("CountDistinctGroups: %v", err)
	}
	if groups != 2 {
		t.Fatalf("expected 2 department groups, got %d", groups)
	}

	total, err := repo.TotalRecordCount(ctx, tx, execID)
	if err != nil {
		t.Fatalf("TotalRecordCount: %v", err)
	}
	if total != 10 {
		t.Fatalf("expected total 10 from department rows, got %d", total)
	}

	if err := repo.DeleteByExecution(ctx, tx, execID); err != nil {
		t.Fatalf("DeleteByExecution: %v", err)
	}
	groups, err = repo.CountDistinctGroups(ctx, tx, execID, types.AggregationByDepartment)
	if err != nil {
		t.Fatalf("CountDistinctGroups (after delete): %v", err)
	}
	if groups != 0 {
		t.Fatalf("expected 0 groups after delete, got %d", groups)
	}
}
