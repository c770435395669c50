package jobs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/batchcore-backend/internal/batch"
	"github.com/yungbote/batchcore-backend/internal/baw/filetypes"
	"github.com/yungbote/batchcore-backend/internal/config"
	"github.com/yungbote/batchcore-backend/internal/types"
)

// WarrantStatusUpdateJob imports the paid-warrant feed. When no feed file
// arrived, the pipeline records the skip and completes; an absent feed is a
// normal morning, not a failure.
func WarrantStatusUpdateJob(deps Deps) *batch.JobDefinition {
	log := deps.Log.With("job", "warrantStatusUpdateJob")

	decodeFeed := func(sc *batch.StepContext) ([]*types.Warrant, int64, error) {
		schema, ok := deps.Schemas.Lookup(filetypes.WarrantPaidSchema)
		if !ok {
			return nil, 0, fmt.Errorf("warrant paid schema not registered")
		}
		feedName := sc.Params.StringOr("feedName", "warrants_paid.dat")
		content, found, err := deps.Files.Fetch(sc.Ctx, feedName)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch warrant feed: %w", err)
		}
		if !found {
			return nil, 0, fmt.Errorf("warrant feed %q disappeared after availability check", feedName)
		}
		var warrants []*types.Warrant
		var invalid int64
		for _, line := range strings.Split(string(content), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			fields, err := schema.Decode(line)
			if err != nil {
				invalid++
				continue
			}
			w, err := warrantFromFields(fields)
			if err != nil {
				invalid++
				continue
			}
			warrants = append(warrants, w)
		}
		return warrants, invalid, nil
	}

	return &batch.JobDefinition{
		Name: "warrantStatusUpdateJob",
		ParameterKeys: []batch.ParameterKey{
			{Name: "feedName", Type: batch.ParamString},
			{Name: "chunkSize", Type: batch.ParamLong},
		},
		Steps: []batch.StepDefinition{
			{
				Name: "checkFileAvailability",
				Handler: func(sc *batch.StepContext) error {
					feedName := sc.Params.StringOr("feedName", "warrants_paid.dat")
					available, err := deps.Files.Available(sc.Ctx, feedName)
					if err != nil {
						return fmt.Errorf("check warrant feed: %w", err)
					}
					if !available {
						sc.Context().PutBool("skipProcessing", true)
						sc.Context().PutString("skipReason", fmt.Sprintf("feed %s not available", feedName))
						log.Info("Warrant feed not available, skipping import", "feed", feedName)
					}
					return nil
				},
			},
			{
				Name: "fetchAndValidate",
				Handler: func(sc *batch.StepContext) error {
					if skip, _ := sc.Context().GetBool("skipProcessing"); skip {
						return nil
					}
					warrants, invalid, err := decodeFeed(sc)
					if err != nil {
						return err
					}
					sc.IncrementRead(int64(len(warrants)) + invalid)
					sc.IncrementSkip(invalid)
					sc.Context().PutLong("validCount", int64(len(warrants)))
					sc.Context().PutLong("invalidCount", invalid)
					return nil
				},
			},
			{
				Name: "updateDatabase",
				Handler: func(sc *batch.StepContext) error {
					if skip, _ := sc.Context().GetBool("skipProcessing"); skip {
						return nil
					}
					warrants, _, err := decodeFeed(sc)
					if err != nil {
						return err
					}
					chunkSize := config.NormalizeChunkSize(int(sc.Params.LongOr("chunkSize", 0)))
					var updated int64
					for start := 0; start < len(warrants); start += chunkSize {
						if sc.StopRequested() {
							return batch.ErrStopped
						}
						end := start + chunkSize
						if end > len(warrants) {
							end = len(warrants)
						}
						if err := deps.Warrants.Upsert(sc.Ctx, nil, warrants[start:end]); err != nil {
							return fmt.Errorf("upsert warrants: %w", err)
						}
						updated += int64(end - start)
						sc.IncrementWrite(int64(end - start))
					}
					sc.Context().PutLong("updatedCount", updated)
					return nil
				},
			},
			{
				Name: "generateSummary",
				Handler: func(sc *batch.StepContext) error {
					if skip, _ := sc.Context().GetBool("skipProcessing"); skip {
						reason, _ := sc.Context().GetString("skipReason")
						log.Info("Warrant import skipped", "reason", reason)
						return nil
					}
					for _, status := range []types.WarrantStatus{types.WarrantPaid, types.WarrantVoided, types.WarrantStale} {
						count, err := deps.Warrants.CountByStatus(sc.Ctx, nil, status)
						if err != nil {
							return fmt.Errorf("count warrants by status: %w", err)
						}
						sc.Context().PutLong("total"+string(status), count)
					}
					valid, _ := sc.Context().GetLong("validCount")
					invalid, _ := sc.Context().GetLong("invalidCount")
					log.Info("Warrant import summary", "valid", valid, "invalid", invalid)
					return nil
				},
			},
		},
	}
}

func warrantFromFields(fields map[string]string) (*types.Warrant, error) {
	number := strings.TrimSpace(fields["warrantNumber"])
	if number == "" {
		return nil, fmt.Errorf("missing warrant number")
	}
	var status types.WarrantStatus
	switch fields["status"] {
	case "P":
		status = types.WarrantPaid
	case "V":
		status = types.WarrantVoided
	case "S":
		status = types.WarrantStale
	default:
		return nil, fmt.Errorf("unknown warrant status %q", fields["status"])
	}
	// an all-zero numeric column decodes to the empty string
	var cents int64
	if raw := fields["amountCents"]; raw != "" {
		var err error
		cents, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad amount: %w", err)
		}
	}
	w := &types.Warrant{
		WarrantNumber: number,
		ProviderID:    strings.TrimSpace(fields["providerId"]),
		Amount:        float64(cents) / 100,
		Status:        status,
	}
	if paid, err := time.Parse("20060102", fields["paidDate"]); err == nil {
		w.PaidDate = &paid
	}
	return w, nil
}
