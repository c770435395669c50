package jobs

import (
	"github.com/yungbote/batchcore-backend/internal/batch"
	"github.com/yungbote/batchcore-backend/internal/baw"
	"github.com/yungbote/batchcore-backend/internal/baw/filetypes"
	"github.com/yungbote/batchcore-backend/internal/config"
	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/repos"
)

// Deps is everything a job pipeline may touch. Steps receive it by closure.
type Deps struct {
	Log          *logger.Logger
	Timesheets   repos.TimesheetRepo
	Warrants     repos.WarrantRepo
	Aggregations repos.AggregationRepo
	Files        baw.FileService
	Schemas      *filetypes.Registry
	Reports      *config.ReportTypes
	WorkDir      string
}

// RegisterAll wires every pipeline into the registry.
func RegisterAll(registry *batch.Registry, deps Deps) error {
	for _, def := range []*batch.JobDefinition{
		PaymentFileGenerationJob(deps),
		WarrantStatusUpdateJob(deps),
		CountyDailyReportJob(deps),
		TimesheetSummaryReportJob(deps),
		LargeFileProcessingJob(deps),
		ComputeIntensiveFileJob(deps),
	} {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}
