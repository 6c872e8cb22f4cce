// Package proto holds the Go bindings for partition.proto, maintained
// by hand in the legacy protoc-gen-go shape. Keep the messages and
// service description in sync with the .proto file when editing.

package proto

import (
	context "context"
	fmt "fmt"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

// Row is one table row. Each datum is the tagged JSON encoding used by
// the catalog; an empty element is SQL NULL.
type Row struct {
	Datums [][]byte `protobuf:"bytes,1,rep,name=datums,proto3" json:"datums,omitempty"`
}

func (m *Row) Reset()         { *m = Row{} }
func (m *Row) String() string { return fmt.Sprintf("%+v", *m) }
func (*Row) ProtoMessage()    {}

func (m *Row) GetDatums() [][]byte {
	if m != nil {
		return m.Datums
	}
	return nil
}

// RouteRowRequest routes one row through a partitioned table.
type RouteRowRequest struct {
	TableId string `protobuf:"bytes,1,opt,name=table_id,json=tableId,proto3" json:"table_id,omitempty"`
	Row     *Row   `protobuf:"bytes,2,opt,name=row,proto3" json:"row,omitempty"`
}

func (m *RouteRowRequest) Reset()         { *m = RouteRowRequest{} }
func (m *RouteRowRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*RouteRowRequest) ProtoMessage()    {}

func (m *RouteRowRequest) GetTableId() string {
	if m != nil {
		return m.TableId
	}
	return ""
}

func (m *RouteRowRequest) GetRow() *Row {
	if m != nil {
		return m.Row
	}
	return nil
}

type RouteRowResponse struct {
	LeafTableId string `protobuf:"bytes,1,opt,name=leaf_table_id,json=leafTableId,proto3" json:"leaf_table_id,omitempty"`
	LeafSlot    int32  `protobuf:"varint,2,opt,name=leaf_slot,json=leafSlot,proto3" json:"leaf_slot,omitempty"`
	RequestId   string `protobuf:"bytes,3,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
}

func (m *RouteRowResponse) Reset()         { *m = RouteRowResponse{} }
func (m *RouteRowResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*RouteRowResponse) ProtoMessage()    {}

func (m *RouteRowResponse) GetLeafTableId() string {
	if m != nil {
		return m.LeafTableId
	}
	return ""
}

func (m *RouteRowResponse) GetLeafSlot() int32 {
	if m != nil {
		return m.LeafSlot
	}
	return 0
}

func (m *RouteRowResponse) GetRequestId() string {
	if m != nil {
		return m.RequestId
	}
	return ""
}

// CheckBoundRequest asks whether a candidate bound declaration fits the
// existing partitions of a table. The declaration is the catalog blob
// encoding.
type CheckBoundRequest struct {
	ParentId    string `protobuf:"bytes,1,opt,name=parent_id,json=parentId,proto3" json:"parent_id,omitempty"`
	Declaration []byte `protobuf:"bytes,2,opt,name=declaration,proto3" json:"declaration,omitempty"`
}

func (m *CheckBoundRequest) Reset()         { *m = CheckBoundRequest{} }
func (m *CheckBoundRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*CheckBoundRequest) ProtoMessage()    {}

func (m *CheckBoundRequest) GetParentId() string {
	if m != nil {
		return m.ParentId
	}
	return ""
}

func (m *CheckBoundRequest) GetDeclaration() []byte {
	if m != nil {
		return m.Declaration
	}
	return nil
}

type CheckBoundResponse struct {
	Ok            bool   `protobuf:"varint,1,opt,name=ok,proto3" json:"ok,omitempty"`
	ConflictsWith string `protobuf:"bytes,2,opt,name=conflicts_with,json=conflictsWith,proto3" json:"conflicts_with,omitempty"`
	RequestId     string `protobuf:"bytes,3,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
}

func (m *CheckBoundResponse) Reset()         { *m = CheckBoundResponse{} }
func (m *CheckBoundResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*CheckBoundResponse) ProtoMessage()    {}

func (m *CheckBoundResponse) GetOk() bool {
	if m != nil {
		return m.Ok
	}
	return false
}

func (m *CheckBoundResponse) GetConflictsWith() string {
	if m != nil {
		return m.ConflictsWith
	}
	return ""
}

func (m *CheckBoundResponse) GetRequestId() string {
	if m != nil {
		return m.RequestId
	}
	return ""
}

// InvalidateRequest drops a table's cached bound table.
type InvalidateRequest struct {
	TableId string `protobuf:"bytes,1,opt,name=table_id,json=tableId,proto3" json:"table_id,omitempty"`
}

func (m *InvalidateRequest) Reset()         { *m = InvalidateRequest{} }
func (m *InvalidateRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*InvalidateRequest) ProtoMessage()    {}

func (m *InvalidateRequest) GetTableId() string {
	if m != nil {
		return m.TableId
	}
	return ""
}

type InvalidateResponse struct {
	Dropped   bool   `protobuf:"varint,1,opt,name=dropped,proto3" json:"dropped,omitempty"`
	RequestId string `protobuf:"bytes,2,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
}

func (m *InvalidateResponse) Reset()         { *m = InvalidateResponse{} }
func (m *InvalidateResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*InvalidateResponse) ProtoMessage()    {}

func (m *InvalidateResponse) GetDropped() bool {
	if m != nil {
		return m.Dropped
	}
	return false
}

func (m *InvalidateResponse) GetRequestId() string {
	if m != nil {
		return m.RequestId
	}
	return ""
}

// RouteServiceClient is the client API for RouteService service.
type RouteServiceClient interface {
	RouteRow(ctx context.Context, in *RouteRowRequest, opts ...grpc.CallOption) (*RouteRowResponse, error)
	CheckBound(ctx context.Context, in *CheckBoundRequest, opts ...grpc.CallOption) (*CheckBoundResponse, error)
	Invalidate(ctx context.Context, in *InvalidateRequest, opts ...grpc.CallOption) (*InvalidateResponse, error)
}

type routeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRouteServiceClient creates a client for RouteService.
func NewRouteServiceClient(cc grpc.ClientConnInterface) RouteServiceClient {
	return &routeServiceClient{cc}
}

func (c *routeServiceClient) RouteRow(ctx context.Context, in *RouteRowRequest, opts ...grpc.CallOption) (*RouteRowResponse, error) {
	out := new(RouteRowResponse)
	err := c.cc.Invoke(ctx, "/tessera.RouteService/RouteRow", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *routeServiceClient) CheckBound(ctx context.Context, in *CheckBoundRequest, opts ...grpc.CallOption) (*CheckBoundResponse, error) {
	out := new(CheckBoundResponse)
	err := c.cc.Invoke(ctx, "/tessera.RouteService/CheckBound", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *routeServiceClient) Invalidate(ctx context.Context, in *InvalidateRequest, opts ...grpc.CallOption) (*InvalidateResponse, error) {
	out := new(InvalidateResponse)
	err := c.cc.Invoke(ctx, "/tessera.RouteService/Invalidate", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RouteServiceServer is the server API for RouteService service.
type RouteServiceServer interface {
	RouteRow(context.Context, *RouteRowRequest) (*RouteRowResponse, error)
	CheckBound(context.Context, *CheckBoundRequest) (*CheckBoundResponse, error)
	Invalidate(context.Context, *InvalidateRequest) (*InvalidateResponse, error)
}

// UnimplementedRouteServiceServer can be embedded to have forward
// compatible implementations.
type UnimplementedRouteServiceServer struct{}

func (*UnimplementedRouteServiceServer) RouteRow(context.Context, *RouteRowRequest) (*RouteRowResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RouteRow not implemented")
}

func (*UnimplementedRouteServiceServer) CheckBound(context.Context, *CheckBoundRequest) (*CheckBoundResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CheckBound not implemented")
}

func (*UnimplementedRouteServiceServer) Invalidate(context.Context, *InvalidateRequest) (*InvalidateResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Invalidate not implemented")
}

// RegisterRouteServiceServer registers the service implementation with
// a gRPC server.
func RegisterRouteServiceServer(s *grpc.Server, srv RouteServiceServer) {
	s.RegisterService(&_RouteService_serviceDesc, srv)
}

func _RouteService_RouteRow_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RouteRowRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteServiceServer).RouteRow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/tessera.RouteService/RouteRow",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteServiceServer).RouteRow(ctx, req.(*RouteRowRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RouteService_CheckBound_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CheckBoundRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteServiceServer).CheckBound(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/tessera.RouteService/CheckBound",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteServiceServer).CheckBound(ctx, req.(*CheckBoundRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RouteService_Invalidate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InvalidateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteServiceServer).Invalidate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/tessera.RouteService/Invalidate",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteServiceServer).Invalidate(ctx, req.(*InvalidateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var _RouteService_serviceDesc = grpc.ServiceDesc{
	ServiceName: "tessera.RouteService",
	HandlerType: (*RouteServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RouteRow",
			Handler:    _RouteService_RouteRow_Handler,
		},
		{
			MethodName: "CheckBound",
			Handler:    _RouteService_CheckBound_Handler,
		},
		{
			MethodName: "Invalidate",
			Handler:    _RouteService_Invalidate_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "partition.proto",
}
