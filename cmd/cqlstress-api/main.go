package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmrzaf/cqlstress/internal/api"
	"github.com/mmrzaf/cqlstress/internal/app"
	"github.com/mmrzaf/cqlstress/internal/config"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/profiles"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/runs"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/targets"
	"github.com/mmrzaf/cqlstress/internal/logging"
	"github.com/mmrzaf/cqlstress/internal/registry"
	"github.com/mmrzaf/cqlstress/internal/web"
)

func main() {
	cfg := config.Load()

	profilesDir := flag.String("profiles-dir", cfg.ProfilesDir, "Profiles directory")
	targetsDir := flag.String("targets-dir", cfg.TargetsDir, "Targets directory")
	runsDB := flag.String("runs-db", cfg.RunsDBPath, "Run history path (.sqlite or .bolt)")
	runsDSN := flag.String("db", cfg.RunsDBDSN, "Run history PostgreSQL DSN (overrides --runs-db)")
	bindAddr := flag.String("bind", cfg.BindAddr, "Bind address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	threads := flag.Int("threads", cfg.Threads, "Default workers per run")
	consistency := flag.String("consistency", cfg.Consistency, "Default consistency level")
	flag.Parse()

	base := logging.NewLogger(*logLevel)
	defer base.Sync()
	logger := base.WithComponent("api_main")

	runRepo, err := runs.Open(*runsDB, *runsDSN)
	if err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "init_run_repo"})
		os.Exit(1)
	}
	defer runRepo.Close()

	profileRepo := profiles.NewFileRepository(*profilesDir)
	targetRepo := targets.NewFileRepository(*targetsDir)

	runService := app.NewRunService(profileRepo, targetRepo, runRepo, registry.DefaultDistributionRegistry(), base,
		app.Defaults{Threads: *threads, Consistency: *consistency})

	mux := http.NewServeMux()
	web.Register(mux)
	api.NewHandler(profileRepo, targetRepo, runService).Register(mux)

	srv := &http.Server{
		Addr:              *bindAddr,
		Handler:           loggingMiddleware(base.WithComponent("http"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := runService.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("shutdown.runs_pending", map[string]any{"error": err.Error()})
		}
	}()

	logger.Infow("startup.listening", map[string]any{"bind": *bindAddr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "listen"})
		os.Exit(1)
	}
	<-drained
	logger.Infow("shutdown.complete", nil)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(started).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		if sw.status >= 500 {
			logger.Errorw("request.completed", fields)
			return
		}
		if sw.status >= 400 {
			logger.Warnw("request.completed", fields)
			return
		}
		logger.Debugw("request.completed", fields)
	})
}
