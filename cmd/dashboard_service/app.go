package dashboardservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"fleet-tracker/internal/common/contextx"
	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/common/ws"
	"fleet-tracker/internal/general/config"
	"fleet-tracker/internal/general/rabbitmq"
	"fleet-tracker/internal/general/telemetry"
	"fleet-tracker/internal/general/websocket"
	"fleet-tracker/internal/roster"
	"fleet-tracker/internal/software/dashboard/handler"
	"fleet-tracker/internal/software/dashboard/service"
	"fleet-tracker/internal/tracking/store"
)

// Run wires the dashboard service and blocks until ctx is cancelled.
// maxConcurrent overrides the configured limit when positive.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	logger := log.New("dashboard-service")
	ctx = contextx.WithRequestID(ctx, "startup-001")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": configPath})
		return err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = cfg.Dashboard.MaxConcurrent
	}

	provider, closeRoster, err := roster.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "roster_open_failed", "Failed to open roster", err, nil)
		return err
	}
	defer closeRoster()

	channel := telemetry.NewChannel()
	defer channel.Close()

	stopExport, err := rabbitmq.StartExport(ctx, cfg.RabbitMQ, channel, logger)
	if err != nil {
		logger.Error(ctx, "telemetry_export_failed", "Failed to start telemetry export", err, nil)
		return err
	}
	defer stopExport()

	hub := ws.NewHub(logger)
	defer hub.Close()

	var st *store.Store
	liveView := websocket.NewLiveView(hub, logger, func() any { return st.Snapshot() })
	st = store.New(channel,
		store.WithLogger(logger),
		store.WithSurface(liveView),
		store.WithConfig(cfg.StoreConfig()),
	)
	defer st.Close(ctx)

	svc := service.NewDashboardService(provider, st, logger)

	mux := http.NewServeMux()
	handler.NewDashboardHTTPHandler(svc, logger, liveView).RegisterRoutes(mux)

	port := cfg.Dashboard.Port
	logger.Info(ctx, "service_started", fmt.Sprintf("Dashboard started on port %d", port),
		map[string]any{"port": port, "max_concurrent": maxConcurrent, "roster": cfg.Roster.Source})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": port})
		}
		return err
	}
}

// withConcurrencyLimit caps in-flight requests with a semaphore. Live view
// sockets hold a slot for as long as they stay open.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
