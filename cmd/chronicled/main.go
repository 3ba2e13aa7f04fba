package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/obschronicle/internal/config"
	"github.com/danielpatrickdp/obschronicle/internal/library"
	"github.com/danielpatrickdp/obschronicle/internal/metrics"
	"github.com/danielpatrickdp/obschronicle/internal/rpc"
	"github.com/danielpatrickdp/obschronicle/internal/store"
)

// #region main
func main() {
	log.SetPrefix("[CHRON] ")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("chronicled: %v", err)
	}
}

// #endregion main

// #region run
func run(ctx context.Context, cfg config.Config) error {
	length, err := cfg.Length()
	if err != nil {
		return err
	}

	m := metrics.New()
	opts := library.Options{Metrics: m}
	if cfg.DBPath != "" {
		st, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()
		opts.Store = st
	}

	lib, err := library.Open(cfg.ChronicleDir, opts)
	if err != nil {
		return err
	}
	log.Printf("loaded %d chronicles from %s", len(lib.Observers()), cfg.ChronicleDir)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(timeoutInterceptor(cfg.RequestTimeout)))
	rpc.Register(grpcServer, rpc.NewServer(lib, length))

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("gRPC listening at %v", grpcLis.Addr())
		return grpcServer.Serve(grpcLis)
	})

	g.Go(func() error {
		log.Printf("metrics listening at %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	if cfg.Watch {
		g.Go(func() error {
			return lib.Watch(gctx, cfg.ReloadDebounce, nil)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down")
		grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// #endregion run

// #region helpers
func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// timeoutInterceptor bounds every call by d and logs it.
func timeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return rpc.LoggingInterceptor(ctx, req, info, handler)
	}
}

// #endregion helpers
