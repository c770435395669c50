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

// CountyDailyReportJob writes one county's daily activity report as CSV.
func CountyDailyReportJob(deps Deps) *batch.JobDefinition {
	log := deps.Log.With("job", "countyDailyReportJob")

	return &batch.JobDefinition{
		Name: "countyDailyReportJob",
		ParameterKeys: []batch.ParameterKey{
			{Name: "county", Type: batch.ParamString, Identifying: true},
			{Name: "reportDate", Type: batch.ParamString},
		},
		Steps: []batch.StepDefinition{
			{
				Name: "initializeReport",
				Handler: func(sc *batch.StepContext) error {
					county, ok := sc.Params.GetString("county")
					if !ok || county == "" {
						return fmt.Errorf("county parameter is required")
					}
					reportDate := sc.Params.StringOr("reportDate", time.Now().Format("2006-01-02"))
					if _, err := time.Parse("2006-01-02", reportDate); err != nil {
						return fmt.Errorf("bad reportDate %q: %w", reportDate, err)
					}
					tmpPath := filepath.Join(deps.WorkDir, fmt.Sprintf("county_report_%d.csv.tmp", sc.Execution.ID))
					finalPath := filepath.Join(deps.WorkDir, fmt.Sprintf("county_report_%s_%s.csv", county, reportDate))
					sc.Context().PutString("reportDate", reportDate)
					sc.Context().PutString("tmpPath", tmpPath)
					sc.Context().PutString("reportPath", finalPath)
					return nil
				},
			},
			{
				Name: "generateReportData",
				Handler: func(sc *batch.StepContext) error {
					county, _ := sc.Params.GetString("county")
					reportDate, _ := sc.Context().GetString("reportDate")
					since, _ := time.Parse("2006-01-02", reportDate)

					for ctxKey, status := range map[string]types.TimesheetStatus{
						"approvedTimesheets":  types.TimesheetApproved,
						"processedTimesheets": types.TimesheetProcessed,
						"paidTimesheets":      types.TimesheetPaid,
					} {
						count, err := deps.Timesheets.CountByCountyAndStatus(sc.Ctx, nil, county, status)
						if err != nil {
							return fmt.Errorf("count %s timesheets: %w", status, err)
						}
						sc.Context().PutLong(ctxKey, count)
						sc.IncrementRead(count)
					}
					warrants, err := deps.Warrants.CountByCountySince(sc.Ctx, nil, county, since)
					if err != nil {
						return fmt.Errorf("count county warrants: %w", err)
					}
					sc.Context().PutLong("warrantActivity", warrants)
					return nil
				},
			},
			{
				Name: "writeReportFile",
				Handler: func(sc *batch.StepContext) error {
					county, _ := sc.Params.GetString("county")
					reportDate, _ := sc.Context().GetString("reportDate")
					tmpPath, _ := sc.Context().GetString("tmpPath")
					finalPath, _ := sc.Context().GetString("reportPath")

					f, err := os.Create(tmpPath)
					if err != nil {
						return fmt.Errorf("create report file: %w", err)
					}
					w := csv.NewWriter(f)
					rows := [][]string{
						{"county", "report_date", "metric", "value"},
					}
					for _, metric := range []string{"approvedTimesheets", "processedTimesheets", "paidTimesheets", "warrantActivity"} {
						value, _ := sc.Context().GetLong(metric)
						rows = append(rows, []string{county, reportDate, metric, strconv.FormatInt(value, 10)})
					}
					if err := w.WriteAll(rows); err != nil {
						_ = f.Close()
						return fmt.Errorf("write report rows: %w", err)
					}
					if err := f.Close(); err != nil {
						return fmt.Errorf("close report file: %w", err)
					}
					if err := os.Rename(tmpPath, finalPath); err != nil {
						return fmt.Errorf("finalize report file: %w", err)
					}
					sc.IncrementWrite(int64(len(rows) - 1))
					log.Info("County report written", "county", county, "path", finalPath)
					return nil
				},
			},
			{
				Name: "cleanupTempFiles",
				Handler: func(sc *batch.StepContext) error {
					tmpPath, _ := sc.Context().GetString("tmpPath")
					if tmpPath != "" {
						if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
							log.Warn("Failed to remove temp report file", "path", tmpPath, "error", err)
						}
					}
					return nil
				},
			},
		},
	}
}
