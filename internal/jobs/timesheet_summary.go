package jobs

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yungbote/batchcore-backend/internal/batch"
	"github.com/yungbote/batchcore-backend/internal/types"
)

// TimesheetSummaryReportJob rolls approved timesheets up by county for a
// report type from the YAML catalog.
func TimesheetSummaryReportJob(deps Deps) *batch.JobDefinition {
	log := deps.Log.With("job", "timesheetSummaryReportJob")

	return &batch.JobDefinition{
		Name: "timesheetSummaryReportJob",
		ParameterKeys: []batch.ParameterKey{
			{Name: "reportType", Type: batch.ParamString},
		},
		Steps: []batch.StepDefinition{
			{
				Name: "validateParameters",
				Handler: func(sc *batch.StepContext) error {
					reportType := sc.Params.StringOr("reportType", deps.Reports.DefaultType)
					if !deps.Reports.IsValid(reportType) {
						return fmt.Errorf("unknown report type %q", reportType)
					}
					sc.Context().PutString("reportType", reportType)
					if estimate, ok := deps.Reports.EstimatedDurations[reportType]; ok {
						sc.Context().PutString("estimatedDuration", estimate)
					}
					return nil
				},
			},
			{
				Name: "queryDatabase",
				Handler: func(sc *batch.StepContext) error {
					summaries, err := deps.Timesheets.SummaryByCounty(sc.Ctx, nil, types.TimesheetApproved)
					if err != nil {
						return fmt.Errorf("summarize timesheets: %w", err)
					}
					var total int64
					for _, s := range summaries {
						total += s.Timesheets
					}
					sc.IncrementRead(total)
					sc.Context().PutLong("countyCount", int64(len(summaries)))
					sc.Context().PutLong("timesheetCount", total)
					return nil
				},
			},
			{
				Name: "aggregateData",
				Handler: func(sc *batch.StepContext) error {
					summaries, err := deps.Timesheets.SummaryByCounty(sc.Ctx, nil, types.TimesheetApproved)
					if err != nil {
						return fmt.Errorf("summarize timesheets: %w", err)
					}
					var hours, amount float64
					for _, s := range summaries {
						hours += s.TotalHours
						amount += s.TotalAmount
					}
					sc.Context().PutDouble("totalHours", hours)
					sc.Context().PutDouble("totalAmount", amount)
					return nil
				},
			},
			{
				Name: "generateReport",
				Handler: func(sc *batch.StepContext) error {
					reportType, _ := sc.Context().GetString("reportType")
					summaries, err := deps.Timesheets.SummaryByCounty(sc.Ctx, nil, types.TimesheetApproved)
					if err != nil {
						return fmt.Errorf("summarize timesheets: %w", err)
					}
					path := filepath.Join(deps.WorkDir, fmt.Sprintf("timesheet_summary_%s_%d.csv", reportType, sc.Execution.ID))
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create summary report: %w", err)
					}
					w := csv.NewWriter(f)
					rows := [][]string{{"county", "timesheets", "total_hours", "total_amount"}}
					for _, s := range summaries {
						rows = append(rows, []string{
							s.County,
							strconv.FormatInt(s.Timesheets, 10),
							strconv.FormatFloat(s.TotalHours, 'f', 2, 64),
							strconv.FormatFloat(s.TotalAmount, 'f', 2, 64),
						})
					}
					if err := w.WriteAll(rows); err != nil {
						_ = f.Close()
						return fmt.Errorf("write summary rows: %w", err)
					}
					if err := f.Close(); err != nil {
						return fmt.Errorf("close summary report: %w", err)
					}
					sc.IncrementWrite(int64(len(rows) - 1))
					sc.Context().PutString("reportPath", path)
					return nil
				},
			},
			{
				Name: "notifyComplete",
				Handler: func(sc *batch.StepContext) error {
					reportType, _ := sc.Context().GetString("reportType")
					path, _ := sc.Context().GetString("reportPath")
					counties, _ := sc.Context().GetLong("countyCount")
					sc.Context().PutString("notifiedAt", time.Now().Format(time.RFC3339))
					log.Info("Timesheet summary report ready",
						"reportType", reportType,
						"counties", counties,
						"path", path,
					)
					return nil
				},
			},
		},
	}
}
