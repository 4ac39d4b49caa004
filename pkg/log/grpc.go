package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const metadataKeyRequestID = "x-request-id"

// UnaryServerInterceptor returns a gRPC unary server interceptor that injects
// a request-scoped logger, turns handler panics into codes.Internal and logs
// every completed call.
func UnaryServerInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()
		child := callLogger(ctx, logger, info.FullMethod)
		ctx = WithLogger(ctx, child)

		defer func() {
			if r := recover(); r != nil {
				child.Error().Interface("panic", r).Msg("grpc handler panicked")
				err = status.Error(codes.Internal, "internal error")
			}
			logCall(child, "unary call completed", start, err)
		}()

		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
func StreamServerInterceptor(logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		child := callLogger(ss.Context(), logger, info.FullMethod)
		wrapped := &wrappedStream{
			ServerStream: ss,
			ctx:          WithLogger(ss.Context(), child),
		}

		defer func() {
			if r := recover(); r != nil {
				child.Error().Interface("panic", r).Msg("grpc stream handler panicked")
				err = status.Error(codes.Internal, "internal error")
			}
			logCall(child, "stream call completed", start, err)
		}()

		return handler(srv, wrapped)
	}
}

func callLogger(ctx context.Context, logger zerolog.Logger, method string) zerolog.Logger {
	return logger.With().
		Str(FieldRequestID, requestIDFromMD(ctx)).
		Str(FieldGRPCMethod, method).
		Logger()
}

// logCall logs server-side faults at error level and everything else at
// debug, since health probes arrive every few seconds.
func logCall(l zerolog.Logger, msg string, start time.Time, err error) {
	code := status.Code(err)
	evt := l.Debug()
	switch code {
	case codes.OK, codes.Canceled, codes.NotFound, codes.InvalidArgument:
	default:
		evt = l.Error()
	}
	evt.Str(FieldGRPCCode, code.String()).
		Float64(FieldLatency, float64(time.Since(start).Milliseconds())).
		Err(err).
		Msg(msg)
}

// wrappedStream overrides Context() to carry the child logger.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

func requestIDFromMD(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(metadataKeyRequestID); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.New().String()
}
