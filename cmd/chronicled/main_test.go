package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/danielpatrickdp/obschronicle/internal/config"
	"github.com/danielpatrickdp/obschronicle/internal/metrics"
	"github.com/danielpatrickdp/obschronicle/internal/rpc"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun_ServesAndStops(t *testing.T) {
	cfg := config.Config{
		ChronicleDir:   "../../internal/library/testdata",
		GRPCAddr:       freeAddr(t),
		MetricsAddr:    freeAddr(t),
		WindowLength:   "PT6H",
		Watch:          true,
		ReloadDebounce: 10 * time.Millisecond,
		RequestTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	c, err := rpc.NewClient(cfg.GRPCAddr)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		callCtx, callCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer callCancel()
		_, err := c.ListObservers(callCtx)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	res, err := c.Resolve(context.Background(), "amsua_n19", "2010-01-01T00:00:00Z", "")
	require.NoError(t, err)
	require.Equal(t, []int{1, -1, 1}, res.Config.Active)

	resp, err := http.Get("http://" + cfg.MetricsAddr + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), `obschronicle_resolutions_total{outcome="ok"} 1`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestMetricsMux(t *testing.T) {
	srv := httptest.NewServer(metricsMux(metrics.New()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTimeoutInterceptor(t *testing.T) {
	ic := timeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Slow"}

	_, err := ic(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		<-ctx.Done()
		return nil, status.FromContextError(ctx.Err()).Err()
	})
	require.Error(t, err)
}
