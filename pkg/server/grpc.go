package server

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/yutopp/compilet/pkg/domain"
)

const (
	serviceName             = "compilet.v1.CompileService"
	compileFullMethodName   = "/" + serviceName + "/Compile"
	languagesFullMethodName = "/" + serviceName + "/Languages"
)

// CompileServiceServer is the server API of compilet.v1.CompileService. Messages
// are protobuf well-known types:
//
//	Compile(StringValue path) returns (Struct outcome)
//	Languages(Empty) returns (Struct {languages: [{language, extension}]})
type CompileServiceServer interface {
	Compile(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Languages(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var _ CompileServiceServer = (*Server)(nil)

func Register(grpcServer *grpc.Server, srv *Server) {
	grpcServer.RegisterService(&compileServiceDesc, srv)
}

func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(NewLoggingInterceptor(srv.config.Logger)))
	grpcServer := grpc.NewServer(opts...)
	Register(grpcServer, srv)
	return grpcServer
}

func (s *Server) Compile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.compile(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"success":     res.Success,
		"skipped":     res.Skipped,
		"diagnostics": res.Diagnostics,
		"exit_code":   res.ExitCode,
		"output_path": res.OutputPath,
		"report":      res.Report,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) Languages(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	langs := make([]interface{}, 0)
	for _, e := range s.config.Table.Entries() {
		langs = append(langs, map[string]interface{}{
			"language":  string(e.Language),
			"extension": e.Extension,
		})
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"languages": langs,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case isUserError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// Client calls a remote compilet.v1.CompileService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{
		cc: cc,
	}
}

type ClientResult struct {
	domain.CompileOutcome
	Report string
}

func (c *Client) Compile(ctx context.Context, srcPath string, opts ...grpc.CallOption) (*ClientResult, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, compileFullMethodName, wrapperspb.String(srcPath), out, opts...); err != nil {
		return nil, err
	}

	f := out.GetFields()
	return &ClientResult{
		CompileOutcome: domain.CompileOutcome{
			Success:     f["success"].GetBoolValue(),
			Skipped:     f["skipped"].GetBoolValue(),
			Diagnostics: f["diagnostics"].GetStringValue(),
			ExitCode:    int(f["exit_code"].GetNumberValue()),
			OutputPath:  f["output_path"].GetStringValue(),
		},
		Report: f["report"].GetStringValue(),
	}, nil
}

func (c *Client) Languages(ctx context.Context, opts ...grpc.CallOption) ([]domain.ExtensionEntry, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, languagesFullMethodName, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}

	var entries []domain.ExtensionEntry
	for _, v := range out.GetFields()["languages"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		entries = append(entries, domain.ExtensionEntry{
			Language:  domain.LanguageName(f["language"].GetStringValue()),
			Extension: f["extension"].GetStringValue(),
		})
	}
	return entries, nil
}

func compileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompileServiceServer).Compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: compileFullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CompileServiceServer).Compile(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func languagesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompileServiceServer).Languages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: languagesFullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CompileServiceServer).Languages(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var compileServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CompileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Compile",
			Handler:    compileHandler,
		},
		{
			MethodName: "Languages",
			Handler:    languagesHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "compilet/v1/compile.proto",
}
