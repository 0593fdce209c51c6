// Command localgw is a local API-Gateway + Lambda emulator: it hosts the
// orchestration runtime's sample handler chain over plain HTTP so the
// wrapper pipeline, sequence continuation, and tracker protocol can be
// exercised end to end without a real deployment.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orchestrate/runtime/internal/app"
	"orchestrate/runtime/internal/infrastructure/config"
	server "orchestrate/runtime/internal/infrastructure/http"
	"orchestrate/runtime/internal/infrastructure/logger"
	"orchestrate/runtime/internal/infrastructure/telemetry/metrics"
	"orchestrate/runtime/internal/infrastructure/telemetry/tracer"
)

func main() {
	globalCfgPath := "config/config.yaml"
	globalCfg := config.InitGlobalConfig(globalCfgPath)

	orchestrateCfg := config.LoadDomainConfig("config/orchestrate/config.yaml")

	log := logger.New(globalCfg, nil)
	appLogger := log.WithFields(map[string]any{
		"service": globalCfg.App.Name,
		"version": globalCfg.App.Version,
		"env":     globalCfg.App.Env,
		"port":    globalCfg.Http.Port,
		"domain":  "localgw",
	})

	m, err := metrics.New(&globalCfg.Telemetry, globalCfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer m.Close()

	trc, err := tracer.New(&globalCfg.Telemetry, globalCfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer trc.Close()

	l := appLogger.WithField("component", "app")
	l.Info("Application starting")

	srv := server.NewServer(globalCfg, appLogger)
	bootstrap := app.BootstrapLocalGatewayConfig{
		App:     srv.App,
		Log:     appLogger,
		Tracer:  trc,
		Metrics: m,
		Config:  orchestrateCfg,
	}
	bootstrap.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			l.WithFields(map[string]any{"error_detail": err.Error()}).Error("Server forced to shutdown")
		}
		bootstrap.Stop()
	}()

	if err := srv.Start(); err != nil {
		l.WithFields(map[string]any{"error_detail": err.Error()}).Error("failed to start server")
	}
}
