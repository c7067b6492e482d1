package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"wealthtrack/internal/cli"
	"wealthtrack/internal/export/sheets"
	apphttp "wealthtrack/internal/http"
	"wealthtrack/internal/log"
	"wealthtrack/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	result, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	// The ledger service owns the store and the publisher from here on.
	ledgerSvc := services.NewLedgerService(result.Store, result.ChangePublisher())
	closeLedger := func() {
		if err := ledgerSvc.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}

	deps := apphttp.Deps{
		Ledger: ledgerSvc,
		Reports: services.NewReportService(result.Store, services.ReportConfig{
			BaseCurrency: cfg.Currency(),
			Locale:       cfg.Locale,
			RiskFreeRate: cfg.RiskFreeRate,
			TaxTable:     cfg.TaxTable(),
		}),
		Snapshots: services.NewSnapshotService(result.Store),
		Logger:    logger,
	}
	if cfg.SheetsEnabled() {
		client, err := sheets.NewFromConfig(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			closeLedger()
			os.Exit(1)
		}
		deps.Sheets = client
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Options{
		CacheSize:          cfg.ReportCacheSize,
		CacheTTL:           cfg.ReportCacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting wealthtrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldCurrency, cfg.Currency(),
		"locale", cfg.Locale)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		closeLedger()
		os.Exit(1)
	}

	<-done
	closeLedger()
	logger.Info("Server stopped gracefully")
}
