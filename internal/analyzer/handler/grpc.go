package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/pkg/requestid"
)

const (
	AnalyzerServiceName = "analyzer.v1.AnalyzerService"
	analyzeFullMethod   = "/" + AnalyzerServiceName + "/Analyze"
	grpcRequestIDKey    = "x-request-id"
)

// AnalyzerServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
type AnalyzerServer interface {
	Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var AnalyzerServiceDesc = grpc.ServiceDesc{
	ServiceName: AnalyzerServiceName,
	HandlerType: (*AnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "analyzer/v1/analyzer.proto",
}

func RegisterAnalyzerServer(s grpc.ServiceRegistrar, srv AnalyzerServer) {
	s.RegisterService(&AnalyzerServiceDesc, srv)
}

func analyzeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor) (interface{}, error) {

	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyzerServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzeFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnalyzerServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AnalyzerClient calls a remote AnalyzerServer.
type AnalyzerClient struct {
	cc grpc.ClientConnInterface
}

func NewAnalyzerClient(cc grpc.ClientConnInterface) *AnalyzerClient {
	return &AnalyzerClient{cc: cc}
}

func (c *AnalyzerClient) Analyze(ctx context.Context, req *domain.AnalyzeRequest,
	opts ...grpc.CallOption) (*domain.AnalyzeResponse, error) {

	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, analyzeFullMethod, in, out, opts...); err != nil {
		return nil, err
	}

	var resp domain.AnalyzeResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type GRPCHandler struct {
	service Analyzer
	logger  *zap.Logger
}

func NewGRPCHandler(service Analyzer, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{
		service: service,
		logger:  logger,
	}
}

func (h *GRPCHandler) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req domain.AnalyzeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		req.ClientIP = p.Addr.String()
	}

	resp, err := h.service.Analyze(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, domain.ErrRateLimitExhausted):
			return nil, status.Error(codes.ResourceExhausted, err.Error())
		default:
			h.logger.Error("Failed to analyze keyword",
				zap.Error(err), zap.String("keyword", req.Keyword))
			return nil, status.Errorf(codes.Internal, "failed to analyze: %v", err)
		}
	}

	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// UnaryLogger tags each call with a request id, taken from the
// x-request-id metadata or generated, and logs it once complete.
func UnaryLogger(logger *zap.Logger, gen requestid.Generator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler) (interface{}, error) {

		start := time.Now()
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(grpcRequestIDKey); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id, _ = gen.Generate()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(grpcRequestIDKey, id))

		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Info("Call completed", fields...)
		case codes.InvalidArgument, codes.ResourceExhausted:
			logger.Warn("Call completed", fields...)
		default:
			logger.Error("Call completed", fields...)
		}
		return resp, err
	}
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return structpb.NewStruct(fields)
}

func fromStruct(s *structpb.Struct, v interface{}) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal struct: %w", err)
	}
	return json.Unmarshal(data, v)
}
