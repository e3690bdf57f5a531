package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "framecheck.v1.ReportService"

const (
	diagnoseMethod  = "/" + ServiceName + "/Diagnose"
	ephemerisMethod = "/" + ServiceName + "/Ephemeris"
)

// ReportServiceServer is the server API for ReportService. Requests and
// responses are google.protobuf.Struct values.
type ReportServiceServer interface {
	Diagnose(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ephemeris(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterReportServiceServer registers srv on s.
func RegisterReportServiceServer(s grpc.ServiceRegistrar, srv ReportServiceServer) {
	s.RegisterService(&ReportServiceDesc, srv)
}

// ReportServiceDesc describes ReportService for grpc.Server.
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Diagnose", Handler: diagnoseHandler},
		{MethodName: "Ephemeris", Handler: ephemerisHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "framecheck/v1/report.proto",
}

func diagnoseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).Diagnose(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: diagnoseMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).Diagnose(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func ephemerisHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).Ephemeris(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ephemerisMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).Ephemeris(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ReportClient calls ReportService.
type ReportClient struct {
	cc grpc.ClientConnInterface
}

// NewReportClient wraps a client connection.
func NewReportClient(cc grpc.ClientConnInterface) *ReportClient {
	return &ReportClient{cc: cc}
}

// Diagnose calls ReportService/Diagnose.
func (c *ReportClient) Diagnose(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, diagnoseMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Ephemeris calls ReportService/Ephemeris.
func (c *ReportClient) Ephemeris(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ephemerisMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
