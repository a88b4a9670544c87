package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lgadye/warn-monitor/api"
	"github.com/lgadye/warn-monitor/config"
	"github.com/lgadye/warn-monitor/orchestrator"
)

func main() {
	// Command-line flags
	serveMode := flag.Bool("serve", false, "Run the HTTP API instead of a single monitoring cycle")
	port := flag.String("port", "", "API server port (overrides PORT)")
	flag.Parse()

	log.SetOutput(os.Stderr)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor, closeAll, err := orchestrator.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize monitor: %v", err)
	}

	if *serveMode {
		err = serve(ctx, cfg, monitor)
	} else {
		err = runOnce(ctx, monitor)
	}
	closeAll()
	if err != nil {
		stop()
		log.Fatalf("❌ %v", err)
	}
}

// runOnce is the cron entry point: one cycle, summary on stdout.
func runOnce(ctx context.Context, monitor *orchestrator.Monitor) error {
	sum, err := monitor.RunOnce(ctx)
	fmt.Println(sum.Render())
	if orchestrator.IsLocked(err) {
		log.Printf("Another run is in progress")
	}
	return err
}

func serve(ctx context.Context, cfg config.Config, monitor *orchestrator.Monitor) error {
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(monitor),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 API Server listening on %s", addr)
	log.Println("📌 Endpoints:")
	log.Println("   GET  /api/health  - Health check")
	log.Println("   GET  /api/state   - Persisted dedup state")
	log.Println("   POST /api/run     - Run one monitoring cycle")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Println("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
