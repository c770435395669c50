package jobs

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/batchcore-backend/internal/batch"
	"github.com/yungbote/batchcore-backend/internal/baw/filetypes"
	"github.com/yungbote/batchcore-backend/internal/types"
)

// PaymentFileGenerationJob turns approved timesheets into a fixed-width
// payment file, dispatches it through the file gateway and marks the
// dispatched timesheets PROCESSED.
func PaymentFileGenerationJob(deps Deps) *batch.JobDefinition {
	log := deps.Log.With("job", "paymentFileGenerationJob")

	return &batch.JobDefinition{
		Name: "paymentFileGenerationJob",
		ParameterKeys: []batch.ParameterKey{
			{Name: "payPeriod", Type: batch.ParamString},
			{Name: "batchSize", Type: batch.ParamLong},
		},
		Steps: []batch.StepDefinition{
			{
				Name: "queryApprovedTimesheets",
				Handler: func(sc *batch.StepContext) error {
					batchSize := int(sc.Params.LongOr("batchSize", 5000))
					sheets, err := deps.Timesheets.ListByStatus(sc.Ctx, nil, types.TimesheetApproved, batchSize)
					if err != nil {
						return fmt.Errorf("query approved timesheets: %w", err)
					}
					sc.IncrementRead(int64(len(sheets)))
					sc.Context().PutLong("approvedCount", int64(len(sheets)))
					if len(sheets) == 0 {
						sc.Context().PutBool("skipProcessing", true)
						sc.Context().PutString("skipReason", "no approved timesheets")
						log.Info("No approved timesheets, later steps will no-op")
					}
					return nil
				},
			},
			{
				Name: "transformToPaymentRecords",
				Handler: func(sc *batch.StepContext) error {
					if skip, _ := sc.Context().GetBool("skipProcessing"); skip {
						return nil
					}
					schema, ok := deps.Schemas.Lookup(filetypes.PaymentRecordSchema)
					if !ok {
						return fmt.Errorf("payment record schema not registered")
					}
					batchSize := int(sc.Params.LongOr("batchSize", 5000))
					sheets, err := deps.Timesheets.ListByStatus(sc.Ctx, nil, types.TimesheetApproved, batchSize)
					if err != nil {
						return fmt.Errorf("load approved timesheets: %w", err)
					}
					var lines []string
					var totalCents int64
					for _, ts := range sheets {
						cents := int64(math.Round(ts.Amount * 100))
						line, err := schema.Encode(map[string]string{
							"recordType":  "PT",
							"providerId":  ts.ProviderID,
							"recipientId": ts.RecipientID,
							"county":      ts.County,
							"payPeriod":   ts.PayPeriod,
							"hours":       fmt.Sprintf("%d", int64(math.Round(ts.HoursWorked))),
							"amountCents": fmt.Sprintf("%d", cents),
						})
						if err != nil {
							sc.IncrementSkip(1)
							log.Warn("Timesheet rejected by payment schema", "timesheetId", ts.ID, "error", err)
							continue
						}
						lines = append(lines, line)
						totalCents += cents
						sc.IncrementWrite(1)
					}
					path := filepath.Join(deps.WorkDir, fmt.Sprintf("payments_%d.dat", sc.Execution.ID))
					if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
						return fmt.Errorf("write payment scratch file: %w", err)
					}
					sc.Context().PutString("paymentFilePath", path)
					sc.Context().PutLong("recordCount", int64(len(lines)))
					sc.Context().PutLong("totalAmountCents", totalCents)
					return nil
				},
			},
			{
				Name: "sendToSco",
				Handler: func(sc *batch.StepContext) error {
					if skip, _ := sc.Context().GetBool("skipProcessing"); skip {
						return nil
					}
					path, _ := sc.Context().GetString("paymentFilePath")
					content, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read payment scratch file: %w", err)
					}
					payPeriod := sc.Params.StringOr("payPeriod", "current")
					name := fmt.Sprintf("payments_%s_%d.dat", payPeriod, sc.Execution.ID)
					ref, err := deps.Files.Send(sc.Ctx, name, content)
					if err != nil {
						return fmt.Errorf("dispatch payment file: %w", err)
					}
					sc.Context().PutString("fileReference", ref.Reference)
					sc.Context().PutString("fileName", ref.Name)
					return nil
				},
			},
			{
				Name: "markAsProcessed",
				Handler: func(sc *batch.StepContext) error {
					if skip, _ := sc.Context().GetBool("skipProcessing"); skip {
						return nil
					}
					fileRef, _ := sc.Context().GetString("fileReference")
					batchSize := int(sc.Params.LongOr("batchSize", 5000))
					sheets, err := deps.Timesheets.ListByStatus(sc.Ctx, nil, types.TimesheetApproved, batchSize)
					if err != nil {
						return fmt.Errorf("reload approved timesheets: %w", err)
					}
					ids := make([]int64, 0, len(sheets))
					for _, ts := range sheets {
						ids = append(ids, ts.ID)
					}
					marked, err := deps.Timesheets.MarkProcessed(sc.Ctx, nil, ids, fileRef)
					if err != nil {
						return fmt.Errorf("mark timesheets processed: %w", err)
					}
					sc.IncrementWrite(marked)
					sc.Context().PutLong("processedCount", marked)
					log.Info("Timesheets marked processed", "count", marked, "fileReference", fileRef)
					return nil
				},
			},
		},
	}
}
