// Package rpc serves chronicle resolution over gRPC. Messages are
// google.protobuf.Struct values so the service needs no generated code.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/obschronicle/internal/chronicle"
	"github.com/danielpatrickdp/obschronicle/internal/library"
	"github.com/danielpatrickdp/obschronicle/internal/replay"
	"github.com/danielpatrickdp/obschronicle/internal/timestamp"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "obschronicle.v1.ChronicleService"

const (
	methodResolve       = "/" + ServiceName + "/Resolve"
	methodUseObserver   = "/" + ServiceName + "/UseObserver"
	methodListObservers = "/" + ServiceName + "/ListObservers"
)

// #region service
// ChronicleServer is the server API of the chronicle service.
type ChronicleServer interface {
	Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UseObserver(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListObservers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server resolves chronicles held by a library.
type Server struct {
	lib           *library.Library
	defaultLength time.Duration
}

// NewServer returns a Server over lib. Requests that carry neither "final"
// nor "length" use defaultLength.
func NewServer(lib *library.Library, defaultLength time.Duration) *Server {
	return &Server{lib: lib, defaultLength: defaultLength}
}

// Register adds the chronicle and health services to s and marks both serving.
func Register(s *grpc.Server, srv ChronicleServer) *health.Server {
	s.RegisterService(&ServiceDesc, srv)
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return hs
}

// #endregion service

// #region handlers
// Resolve expects {observer, begin, final | length} and returns the resolved
// configuration of the window.
func (s *Server) Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	observer, w, err := s.request(req)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := s.lib.ResolveContext(ctx, observer, w)
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err := encodeOutcome(observer, out)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

// UseObserver expects {observer, begin, final | length} and returns {use}.
func (s *Server) UseObserver(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	observer, w, err := s.request(req)
	if err != nil {
		return nil, toStatus(err)
	}
	use, err := s.lib.UseObserver(observer, w)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"observer": observer, "use": use})
}

// ListObservers returns {observers: [...]}.
func (s *Server) ListObservers(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	names := s.lib.Observers()
	list := make([]any, len(names))
	for i, n := range names {
		list[i] = n
	}
	return structpb.NewStruct(map[string]any{"observers": list})
}

func (s *Server) request(req *structpb.Struct) (string, replay.Window, error) {
	fields := req.GetFields()
	observer := fields["observer"].GetStringValue()
	if observer == "" {
		return "", replay.Window{}, errMissingObserver
	}
	begin := fields["begin"].GetStringValue()
	if final := fields["final"].GetStringValue(); final != "" {
		w, err := chronicle.NewWindow(begin, final)
		return observer, w, err
	}
	b, err := timestamp.FromConf(begin)
	if err != nil {
		return "", replay.Window{}, fmt.Errorf("%w: begin: %w", chronicle.ErrInvalidWindow, err)
	}
	length := s.defaultLength
	if l := fields["length"].GetStringValue(); l != "" {
		if length, err = timestamp.ParseDuration(l); err != nil {
			return "", replay.Window{}, fmt.Errorf("%w: length: %w", chronicle.ErrInvalidWindow, err)
		}
	}
	w, err := replay.NewWindow(b, b.Add(length))
	return observer, w, err
}

// #endregion handlers

// #region status
var errMissingObserver = errors.New("request has no observer")

// toStatus maps library and chronicle errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, library.ErrNoChronicle):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, library.ErrDecommissioned):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, library.ErrNotSatellite), errors.Is(err, errMissingObserver):
		return status.Error(codes.InvalidArgument, err.Error())
	case chronicle.IsDataError(err):
		return status.Errorf(codes.InvalidArgument, "%s: %v", chronicle.Classify(err), err)
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion status

// #region interceptor
// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Printf("[RPC] %s %s %s", info.FullMethod, status.Code(err), time.Since(start).Round(time.Microsecond))
	return resp, err
}

// #endregion interceptor
