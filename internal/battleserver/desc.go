package battleserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type unaryMethod func(BattleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BattleServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BattleServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the battle service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateSession", BattleServiceServer.CreateSession),
		unaryHandler("GetState", BattleServiceServer.GetState),
		unaryHandler("SubmitRoll", BattleServiceServer.SubmitRoll),
		unaryHandler("Command", BattleServiceServer.Command),
		unaryHandler("GetReport", BattleServiceServer.GetReport),
		unaryHandler("CloseSession", BattleServiceServer.CloseSession),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "Watch",
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(structpb.Struct)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return srv.(BattleServiceServer).Watch(in, stream)
		},
	}},
	Metadata: "skirmish/v1/battle.proto",
}

// RegisterBattleServiceServer registers srv with s.
func RegisterBattleServiceServer(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the battle service over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession calls BattleService.CreateSession.
func (c *Client) CreateSession(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateSession", in, opts...)
}

// GetState calls BattleService.GetState.
func (c *Client) GetState(ctx context.Context, sessionID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetState", map[string]any{"session_id": sessionID}, opts...)
}

// SubmitRoll calls BattleService.SubmitRoll.
func (c *Client) SubmitRoll(ctx context.Context, sessionID string, values []int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return c.invoke(ctx, "SubmitRoll", map[string]any{"session_id": sessionID, "values": list}, opts...)
}

// Command calls BattleService.Command; args carries the command's fields.
func (c *Client) Command(ctx context.Context, sessionID, command string, args map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in := map[string]any{"session_id": sessionID, "command": command}
	for k, v := range args {
		in[k] = v
	}
	return c.invoke(ctx, "Command", in, opts...)
}

// GetReport calls BattleService.GetReport.
func (c *Client) GetReport(ctx context.Context, sessionID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetReport", map[string]any{"session_id": sessionID}, opts...)
}

// CloseSession calls BattleService.CloseSession.
func (c *Client) CloseSession(ctx context.Context, sessionID string, opts ...grpc.CallOption) error {
	_, err := c.invoke(ctx, "CloseSession", map[string]any{"session_id": sessionID}, opts...)
	return err
}

// Watch opens the snapshot stream of sessionID.
func (c *Client) Watch(ctx context.Context, sessionID string, opts ...grpc.CallOption) (*WatchStream, error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/Watch", opts...)
	if err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]any{"session_id": sessionID})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchStream{stream: stream}, nil
}

// WatchStream receives snapshots from Watch.
type WatchStream struct {
	stream grpc.ClientStream
}

// Recv returns the next message; io.EOF once the stream ends.
func (w *WatchStream) Recv() (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := w.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}
