package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cp-tickets/artifacts"
	"cp-tickets/browser"
	"cp-tickets/config"
	"cp-tickets/models"
	"cp-tickets/pages"
	"cp-tickets/scenario"
	"cp-tickets/storage"
	"cp-tickets/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetDebug(cfg.LogDebug)

	store, err := artifacts.NewStore(cfg.ArtifactsDir)
	if err != nil {
		logger.Error("Failed to create artifacts directory: %v", err)
		return 1
	}
	if runLog, err := store.OpenLog(); err != nil {
		logger.Warn("Run log unavailable: %v", err)
	} else {
		logger.TeeTo(runLog)
		defer func() {
			logger.TeeTo(nil)
			_ = runLog.Close()
		}()
	}

	logger.Info("=== CP ticket scenario starting (run %s) ===", store.RunID())
	logger.Info("Config — site: %s | headless: %v | wait: %v | artifacts: %s",
		cfg.BaseURL, cfg.Headless, cfg.WaitTimeout(), store.Dir())

	reports := openReportWriters(cfg, logger)
	defer func() {
		if err := reports.Close(); err != nil {
			logger.Warn("Closing report writers: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.Start(ctx, browser.Options{
		ChromeBin:    cfg.ChromeBin,
		Headless:     cfg.Headless,
		WindowWidth:  cfg.WindowWidth,
		WindowHeight: cfg.WindowHeight,
	}, logger)
	if err != nil {
		logger.Error("Failed to start browser: %v", err)
		return 1
	}
	defer session.Close()

	base := pages.NewBasePage(session, store, logger, pages.Options{
		Timeout:        cfg.WaitTimeout(),
		SpinnerTimeout: cfg.SpinnerTimeout(),
		PollInterval:   cfg.PollInterval(),
	})

	criteria := scenario.DefaultCriteria(time.Now())
	selection := scenario.DefaultSelection()
	logger.Info("Searching %s, then selecting %s", criteria, selection)

	runner := scenario.NewRunner(
		scenario.Pages{
			Home:    pages.NewHomePage(base, cfg.BaseURL),
			Buy:     pages.NewBuyPage(base),
			Results: pages.NewResultsPage(base),
			Auth:    pages.NewAuthPage(base),
		},
		scenario.Options{
			Criteria:    criteria,
			Selection:   selection,
			StepPause:   cfg.StepPause(),
			LoginWait:   cfg.LoginWait(),
			Diagnostics: base,
			Journey:     store,
			Logger:      logger,
			RunID:       store.RunID(),
			ArtifactDir: store.Dir(),
		},
	)

	report, runErr := runner.Run(ctx)
	if err := reports.Write(report); err != nil {
		logger.Warn("Run report not fully recorded: %v", err)
	}
	printSummary(logger, report)

	if runErr != nil {
		logger.Error("Scenario failed: %v", runErr)
		logger.Info("Diagnostics saved under %s", store.Dir())
		return 1
	}
	logger.Info("=== Done. Stopped at the login screen, nothing was purchased ===")
	return 0
}

// openReportWriters returns the configured sinks. A sink that cannot be
// opened is skipped; reporting never blocks the scenario.
func openReportWriters(cfg *config.Config, logger *utils.Logger) storage.MultiWriter {
	var writers storage.MultiWriter

	csvWriter, err := storage.NewCSVReportWriter(cfg.ReportCSVPath)
	if err != nil {
		logger.Warn("CSV report disabled: %v", err)
	} else {
		writers = append(writers, csvWriter)
	}

	if cfg.ReportPostgres {
		pgWriter, err := storage.NewPostgresReportWriter(cfg.DSN(), logger)
		if err != nil {
			logger.Warn("PostgreSQL report disabled: %v", err)
			logger.Warn("Make sure the database is running: docker compose up -d")
		} else {
			writers = append(writers, pgWriter)
		}
	}
	return writers
}

func printSummary(logger *utils.Logger, r *models.RunReport) {
	logger.Info("Run %s finished in %v with state %s", r.RunID, r.Duration().Round(time.Millisecond), r.State)
	if r.MatchedRow != nil {
		logger.Info("Selected train: %s %s → %s (row %d)",
			r.MatchedRow.Service, r.MatchedRow.Departure, r.MatchedRow.Arrival, r.MatchedRow.Index)
	}
	if r.FinalURL != "" {
		logger.Info("Final URL: %s", r.FinalURL)
	}
	for _, set := range r.Artifacts {
		logger.Info("Artifacts [%s]: %s", set.Tag, set.PNGPath)
	}
}
