package reduxfifopb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ReduxFIFOControl_OpenBus_FullMethodName      = "/reduxfifopb.ReduxFIFOControl/OpenBus"
	ReduxFIFOControl_CloseBus_FullMethodName     = "/reduxfifopb.ReduxFIFOControl/CloseBus"
	ReduxFIFOControl_ListBuses_FullMethodName    = "/reduxfifopb.ReduxFIFOControl/ListBuses"
	ReduxFIFOControl_OpenSession_FullMethodName  = "/reduxfifopb.ReduxFIFOControl/OpenSession"
	ReduxFIFOControl_CloseSession_FullMethodName = "/reduxfifopb.ReduxFIFOControl/CloseSession"
	ReduxFIFOControl_ReadSession_FullMethodName  = "/reduxfifopb.ReduxFIFOControl/ReadSession"
	ReduxFIFOControl_WriteMessage_FullMethodName = "/reduxfifopb.ReduxFIFOControl/WriteMessage"
	ReduxFIFOControl_ArbitrateID_FullMethodName  = "/reduxfifopb.ReduxFIFOControl/ArbitrateID"
	ReduxFIFOControl_StartOTA_FullMethodName     = "/reduxfifopb.ReduxFIFOControl/StartOTA"
	ReduxFIFOControl_OTAStatus_FullMethodName    = "/reduxfifopb.ReduxFIFOControl/OTAStatus"
	ReduxFIFOControl_AbortOTA_FullMethodName     = "/reduxfifopb.ReduxFIFOControl/AbortOTA"
)

// ReduxFIFOControlServer is the server API for the control-plane
// service: bus lifecycle, sessions, single writes, serial-number
// arbitration, and OTA transfers.
type ReduxFIFOControlServer interface {
	OpenBus(context.Context, *OpenBusRequest) (*OpenBusResponse, error)
	CloseBus(context.Context, *CloseBusRequest) (*CloseBusResponse, error)
	ListBuses(context.Context, *ListBusesRequest) (*ListBusesResponse, error)
	OpenSession(context.Context, *OpenSessionRequest) (*OpenSessionResponse, error)
	CloseSession(context.Context, *CloseSessionRequest) (*CloseSessionResponse, error)
	ReadSession(context.Context, *ReadSessionRequest) (*ReadSessionResponse, error)
	WriteMessage(context.Context, *WriteMessageRequest) (*WriteMessageResponse, error)
	ArbitrateID(context.Context, *ArbitrateIDRequest) (*ArbitrateIDResponse, error)
	StartOTA(context.Context, *StartOTARequest) (*StartOTAResponse, error)
	OTAStatus(context.Context, *OTAStatusRequest) (*OTAStatusResponse, error)
	AbortOTA(context.Context, *AbortOTARequest) (*AbortOTAResponse, error)
	mustEmbedUnimplementedReduxFIFOControlServer()
}

// UnimplementedReduxFIFOControlServer must be embedded by value in any
// implementation for forward compatibility with added methods.
type UnimplementedReduxFIFOControlServer struct{}

func (UnimplementedReduxFIFOControlServer) OpenBus(context.Context, *OpenBusRequest) (*OpenBusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method OpenBus not implemented")
}
func (UnimplementedReduxFIFOControlServer) CloseBus(context.Context, *CloseBusRequest) (*CloseBusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CloseBus not implemented")
}
func (UnimplementedReduxFIFOControlServer) ListBuses(context.Context, *ListBusesRequest) (*ListBusesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListBuses not implemented")
}
func (UnimplementedReduxFIFOControlServer) OpenSession(context.Context, *OpenSessionRequest) (*OpenSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method OpenSession not implemented")
}
func (UnimplementedReduxFIFOControlServer) CloseSession(context.Context, *CloseSessionRequest) (*CloseSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CloseSession not implemented")
}
func (UnimplementedReduxFIFOControlServer) ReadSession(context.Context, *ReadSessionRequest) (*ReadSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ReadSession not implemented")
}
func (UnimplementedReduxFIFOControlServer) WriteMessage(context.Context, *WriteMessageRequest) (*WriteMessageResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method WriteMessage not implemented")
}
func (UnimplementedReduxFIFOControlServer) ArbitrateID(context.Context, *ArbitrateIDRequest) (*ArbitrateIDResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ArbitrateID not implemented")
}
func (UnimplementedReduxFIFOControlServer) StartOTA(context.Context, *StartOTARequest) (*StartOTAResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StartOTA not implemented")
}
func (UnimplementedReduxFIFOControlServer) OTAStatus(context.Context, *OTAStatusRequest) (*OTAStatusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method OTAStatus not implemented")
}
func (UnimplementedReduxFIFOControlServer) AbortOTA(context.Context, *AbortOTARequest) (*AbortOTAResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AbortOTA not implemented")
}
func (UnimplementedReduxFIFOControlServer) mustEmbedUnimplementedReduxFIFOControlServer() {}

// RegisterReduxFIFOControlServer registers srv with s, following the
// teacher's ynpb registration idiom.
func RegisterReduxFIFOControlServer(s grpc.ServiceRegistrar, srv ReduxFIFOControlServer) {
	s.RegisterService(&ReduxFIFOControl_ServiceDesc, srv)
}

func _ReduxFIFOControl_OpenBus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OpenBusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).OpenBus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_OpenBus_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).OpenBus(ctx, req.(*OpenBusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_CloseBus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CloseBusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).CloseBus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_CloseBus_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).CloseBus(ctx, req.(*CloseBusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_ListBuses_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListBusesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).ListBuses(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_ListBuses_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).ListBuses(ctx, req.(*ListBusesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_OpenSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OpenSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).OpenSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_OpenSession_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).OpenSession(ctx, req.(*OpenSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_CloseSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CloseSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).CloseSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_CloseSession_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).CloseSession(ctx, req.(*CloseSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_ReadSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReadSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).ReadSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_ReadSession_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).ReadSession(ctx, req.(*ReadSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_WriteMessage_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(WriteMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).WriteMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_WriteMessage_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).WriteMessage(ctx, req.(*WriteMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_ArbitrateID_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ArbitrateIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).ArbitrateID(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_ArbitrateID_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).ArbitrateID(ctx, req.(*ArbitrateIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_StartOTA_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartOTARequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).StartOTA(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_StartOTA_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).StartOTA(ctx, req.(*StartOTARequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_OTAStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OTAStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).OTAStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_OTAStatus_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).OTAStatus(ctx, req.(*OTAStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReduxFIFOControl_AbortOTA_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AbortOTARequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReduxFIFOControlServer).AbortOTA(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReduxFIFOControl_AbortOTA_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReduxFIFOControlServer).AbortOTA(ctx, req.(*AbortOTARequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ReduxFIFOControl_ServiceDesc is the grpc.ServiceDesc for
// ReduxFIFOControl. It's only intended for direct use with
// grpc.RegisterService, and not to be introspected or modified (even
// as a copy), matching the teacher's generated-service convention.
var ReduxFIFOControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "reduxfifopb.ReduxFIFOControl",
	HandlerType: (*ReduxFIFOControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenBus", Handler: _ReduxFIFOControl_OpenBus_Handler},
		{MethodName: "CloseBus", Handler: _ReduxFIFOControl_CloseBus_Handler},
		{MethodName: "ListBuses", Handler: _ReduxFIFOControl_ListBuses_Handler},
		{MethodName: "OpenSession", Handler: _ReduxFIFOControl_OpenSession_Handler},
		{MethodName: "CloseSession", Handler: _ReduxFIFOControl_CloseSession_Handler},
		{MethodName: "ReadSession", Handler: _ReduxFIFOControl_ReadSession_Handler},
		{MethodName: "WriteMessage", Handler: _ReduxFIFOControl_WriteMessage_Handler},
		{MethodName: "ArbitrateID", Handler: _ReduxFIFOControl_ArbitrateID_Handler},
		{MethodName: "StartOTA", Handler: _ReduxFIFOControl_StartOTA_Handler},
		{MethodName: "OTAStatus", Handler: _ReduxFIFOControl_OTAStatus_Handler},
		{MethodName: "AbortOTA", Handler: _ReduxFIFOControl_AbortOTA_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reduxfifo.proto",
}
