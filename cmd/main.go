package main

import (
  "context"
  "fmt"
  "os"
  "path/filepath"

  "github.com/yungbote/batchcore-backend/internal/batch"
  "github.com/yungbote/batchcore-backend/internal/baw"
  "github.com/yungbote/batchcore-backend/internal/baw/filetypes"
  "github.com/yungbote/batchcore-backend/internal/config"
  "github.com/yungbote/batchcore-backend/internal/db"
  "github.com/yungbote/batchcore-backend/internal/events"
  "github.com/yungbote/batchcore-backend/internal/handlers"
  "github.com/yungbote/batchcore-backend/internal/jobs"
  "github.com/yungbote/batchcore-backend/internal/logger"
  "github.com/yungbote/batchcore-backend/internal/observability"
  "github.com/yungbote/batchcore-backend/internal/repos"
  "github.com/yungbote/batchcore-backend/internal/server"
  "github.com/yungbote/batchcore-backend/internal/utils"
)

func main() {
  mode := os.Getenv("APP_ENV")
  log, err := logger.New(mode)
  if err != nil {
    fmt.Printf("Failed to initialize logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: "batchcore",
    Environment: mode,
    Version:     os.Getenv("APP_VERSION"),
  })
  if shutdownOtel != nil {
    defer func() { _ = shutdownOtel(context.Background()) }()
  }

  // Postgres
  log.Info("Setting up postgres from main...")
  thePG, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("Failed to connect to postgres", "error", err)
  }
  if err := thePG.AutoMigrateAll(); err != nil {
    log.Fatal("Failed to migrate postgres tables", "error", err)
  }

  // Repos
  log.Info("Setting up repos from main...")
  executionRepo := repos.NewExecutionRepo(thePG.DB(), log)
  aggregationRepo := repos.NewAggregationRepo(thePG.DB(), log)
  timesheetRepo := repos.NewTimesheetRepo(thePG.DB(), log)
  warrantRepo := repos.NewWarrantRepo(thePG.DB(), log)

  // Events
  log.Info("Setting up event publisher from main...")
  var publisher events.Publisher
  publisher, err = events.NewRedisPublisher(log)
  if err != nil {
    log.Warn("Event publisher unavailable, lifecycle events disabled", "error", err)
    publisher = events.NoopPublisher{}
  }
  defer publisher.Close()

  // File gateway
  fileService, err := baw.NewLocalFileService(log)
  if err != nil {
    log.Fatal("Failed to initialize file gateway", "error", err)
  }

  // Report type catalog
  reportTypes := config.DefaultReportTypes()
  if path := utils.GetEnv("REPORT_TYPES_PATH", "", log); path != "" {
    reportTypes, err = config.LoadReportTypes(path)
    if err != nil {
      log.Fatal("Failed to load report type catalog", "error", err)
    }
  }

  // Job registry
  log.Info("Registering jobs from main...")
  registry := batch.NewRegistry()
  workDir := utils.GetEnv("BATCH_WORK_DIR", filepath.Join(os.TempDir(), "batchcore"), log)
  if err := os.MkdirAll(workDir, 0o755); err != nil {
    log.Fatal("Failed to create work dir", "error", err)
  }
  err = jobs.RegisterAll(registry, jobs.Deps{
    Log:          log,
    Timesheets:   timesheetRepo,
    Warrants:     warrantRepo,
    Aggregations: aggregationRepo,
    Files:        fileService,
    Schemas:      filetypes.DefaultRegistry(),
    Reports:      reportTypes,
    WorkDir:      workDir,
  })
  if err != nil {
    log.Fatal("Failed to register jobs", "error", err)
  }

  // Coordinator
  coordinator := batch.NewCoordinator(registry, executionRepo, publisher, log)
  defer coordinator.Drain()

  // Handlers
  log.Info("Setting up handlers from main...")
  batchHandler := handlers.NewBatchHandler(log, coordinator)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    BatchHandler: batchHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
