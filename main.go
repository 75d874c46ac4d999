package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/mosaic/api"
	"github.com/moyoez/mosaic/api/models"
	"github.com/moyoez/mosaic/mosaic"
	"github.com/moyoez/mosaic/tool"
)

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MosaicSource != "" {
		cols, rows, err := mosaic.ParseGrid(cfg.MosaicGrid)
		if err != nil {
			tool.DefaultLogger.Fatalf("%v", err)
		}
		out, err := mosaic.Create(ctx, mosaic.Options{
			SourcePath:  cfg.MosaicSource,
			LibraryPath: cfg.MosaicLibrary,
			Cols:        cols,
			Rows:        rows,
			OutputDir:   cfg.MosaicOut,
		})
		if err != nil {
			tool.DefaultLogger.Fatalf("Mosaic generation failed: %v", err)
		}
		tool.DefaultLogger.Infof("Output written to %s", out)
		return
	}

	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlagOverrides(&appCfg, cfg)
	tool.CurrentConfig = appCfg

	models.Setup(tool.GetCurrentConfig())
	models.StartDispatcher(ctx)

	apiServer := api.NewServer(tool.GetCurrentConfig())
	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	case <-ctx.Done():
		tool.DefaultLogger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			tool.DefaultLogger.Errorf("Server shutdown failed: %v", err)
		}
	}
}
