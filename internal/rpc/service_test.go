package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/obschronicle/internal/chronicle"
	"github.com/danielpatrickdp/obschronicle/internal/library"
	"github.com/danielpatrickdp/obschronicle/internal/state"
)

// #region helpers

// startServer serves the testdata library on a loopback port and returns a
// connection to it.
func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	lib, err := library.Open("testdata", library.Options{})
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor))
	Register(srv, NewServer(lib, 6*time.Hour))

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(listener) }()
	t.Cleanup(func() {
		srv.GracefulStop()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
		}
	})

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// #endregion helpers

// #region resolve-tests

func TestResolve(t *testing.T) {
	c := NewClientWithConn(startServer(t))
	ctx := testContext(t)

	res, err := c.Resolve(ctx, "amsua_n19", "2009-04-21T21:00:00Z", "PT6H")
	require.NoError(t, err)
	require.Equal(t, "amsua_n19", res.Observer)
	require.Equal(t, []int{1, 2, 3, 4}, res.Config.Simulated)
	require.Equal(t, []int{1, -1, 1, -1}, res.Config.Active)
	require.Equal(t, []float64{2.5, 2.2, 2.0, 0.55}, res.Config.Variables["obs_error"])
	require.Equal(t, 2, res.StepsApplied)
	require.Equal(t, 6*time.Hour, res.WindowFinal.Sub(res.WindowBegin))
}

func TestResolve_DefaultLength(t *testing.T) {
	c := NewClientWithConn(startServer(t))

	res, err := c.Resolve(testContext(t), "amsua_n19", "2010-01-01T00:00:00Z", "")
	require.NoError(t, err)
	require.Equal(t, time.Date(2010, 1, 1, 6, 0, 0, 0, time.UTC), res.WindowFinal)
	require.Equal(t, []int{1, -1, 1}, res.Config.Active)
}

func TestResolve_ExplicitFinal(t *testing.T) {
	conn := startServer(t)
	req, err := structpb.NewStruct(map[string]any{
		"observer": "amsua_n19",
		"begin":    "2010-01-01T00:00:00Z",
		"final":    "2010-01-01T03:00:00Z",
	})
	require.NoError(t, err)

	resp := new(structpb.Struct)
	require.NoError(t, conn.Invoke(testContext(t), methodResolve, req, resp))
	res, err := decodeResolution(resp)
	require.NoError(t, err)
	require.Equal(t, 3*time.Hour, res.WindowFinal.Sub(res.WindowBegin))
}

func TestResolve_StatusCodes(t *testing.T) {
	c := NewClientWithConn(startServer(t))

	cases := []struct {
		name     string
		observer string
		begin    string
		length   string
		want     codes.Code
	}{
		{"unknown observer", "gps_ro", "2010-01-01T00:00:00Z", "PT6H", codes.NotFound},
		{"decommissioned", "ssmis_f16", "2010-01-01T00:00:00Z", "PT6H", codes.FailedPrecondition},
		{"not a satellite", "sondes", "2010-01-01T00:00:00Z", "PT6H", codes.InvalidArgument},
		{"missing observer", "", "2010-01-01T00:00:00Z", "PT6H", codes.InvalidArgument},
		{"bad begin", "amsua_n19", "tomorrow", "PT6H", codes.InvalidArgument},
		{"bad length", "amsua_n19", "2010-01-01T00:00:00Z", "P1M", codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Resolve(testContext(t), tc.observer, tc.begin, tc.length)
			require.Error(t, err)
			require.Equal(t, tc.want, status.Code(err), err.Error())
		})
	}
}

func TestResolve_ExpiredDeadline(t *testing.T) {
	lib, err := library.Open("testdata", library.Options{})
	require.NoError(t, err)
	srv := NewServer(lib, 6*time.Hour)

	req, err := structpb.NewStruct(map[string]any{"observer": "amsua_n19", "begin": "2010-01-01T00:00:00Z"})
	require.NoError(t, err)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err = srv.Resolve(ctx, req)
	require.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

// #endregion resolve-tests

// #region other-method-tests

func TestUseObserver(t *testing.T) {
	c := NewClientWithConn(startServer(t))
	ctx := testContext(t)

	use, err := c.UseObserver(ctx, "ssmis_f16", "2010-01-01T00:00:00Z", "PT6H")
	require.NoError(t, err)
	require.False(t, use)

	use, err = c.UseObserver(ctx, "gps_ro", "2010-01-01T00:00:00Z", "PT6H")
	require.NoError(t, err)
	require.True(t, use)
}

func TestListObservers(t *testing.T) {
	c := NewClientWithConn(startServer(t))

	names, err := c.ListObservers(testContext(t))
	require.NoError(t, err)
	require.Equal(t, []string{"amsua_n19", "sondes", "ssmis_f16"}, names)
}

func TestHealth(t *testing.T) {
	conn := startServer(t)
	hc := grpc_health_v1.NewHealthClient(conn)

	resp, err := hc.Check(testContext(t), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("localhost:0")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.NoError(t, NewClientWithConn(nil).Close())
}

// #endregion other-method-tests

// #region status-tests

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{library.ErrNoChronicle, codes.NotFound},
		{library.ErrDecommissioned, codes.FailedPrecondition},
		{library.ErrNotSatellite, codes.InvalidArgument},
		{chronicle.ErrChronicleOrder, codes.InvalidArgument},
		{state.ErrInvalidStateTransition, codes.InvalidArgument},
		{errors.New("disk full"), codes.Internal},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{fmt.Errorf("resolve: %w", context.Canceled), codes.Canceled},
	}
	for _, c := range cases {
		require.Equal(t, c.want, status.Code(toStatus(c.err)), c.err.Error())
	}
}

// #endregion status-tests
