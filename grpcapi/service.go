// Package grpcapi serves the public and private greetings over gRPC as the
// oauthdemo.Hello service.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/oauth-demo/api"
	"github.com/example/oauth-demo/core"
)

const (
	ServiceName         = "oauthdemo.Hello"
	PublicHelloMethod   = "/" + ServiceName + "/PublicHello"
	PrivateHelloMethod  = "/" + ServiceName + "/PrivateHello"
	principalMissingMsg = "no authenticated principal for a protected method"
)

// HelloRequest is the empty request of both methods.
type HelloRequest struct{}

// HelloServer is the server side of oauthdemo.Hello.
type HelloServer interface {
	PublicHello(context.Context, *HelloRequest) (*api.PublicHelloResponse, error)
	PrivateHello(context.Context, *HelloRequest) (*api.PrivateHelloResponse, error)
}

// Server implements HelloServer on top of the api handlers. PrivateHello
// expects jwtgrpc's interceptor to have stored the principal.
type Server struct{}

func (Server) PublicHello(context.Context, *HelloRequest) (*api.PublicHelloResponse, error) {
	resp := api.PublicHello()
	return &resp, nil
}

func (Server) PrivateHello(ctx context.Context, _ *HelloRequest) (*api.PrivateHelloResponse, error) {
	p, err := core.GetClaims[api.Principal](ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, principalMissingMsg)
	}
	resp := api.PrivateHello(p)
	return &resp, nil
}

// ServiceDesc describes oauthdemo.Hello for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HelloServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PublicHello", Handler: publicHelloHandler},
		{MethodName: "PrivateHello", Handler: privateHelloHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterHelloServer registers srv on s.
func RegisterHelloServer(s grpc.ServiceRegistrar, srv HelloServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func publicHelloHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HelloRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HelloServer).PublicHello(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PublicHelloMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HelloServer).PublicHello(ctx, req.(*HelloRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func privateHelloHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HelloRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HelloServer).PrivateHello(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PrivateHelloMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HelloServer).PrivateHello(ctx, req.(*HelloRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// HelloClient is the client side of oauthdemo.Hello.
type HelloClient struct {
	cc grpc.ClientConnInterface
}

// NewHelloClient returns a client that speaks the JSON codec over cc.
func NewHelloClient(cc grpc.ClientConnInterface) *HelloClient {
	return &HelloClient{cc: cc}
}

func (c *HelloClient) PublicHello(ctx context.Context, opts ...grpc.CallOption) (*api.PublicHelloResponse, error) {
	out := new(api.PublicHelloResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, PublicHelloMethod, &HelloRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HelloClient) PrivateHello(ctx context.Context, opts ...grpc.CallOption) (*api.PrivateHelloResponse, error) {
	out := new(api.PrivateHelloResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, PrivateHelloMethod, &HelloRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
