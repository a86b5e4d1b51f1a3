// Package rpc exposes patient admission over gRPC as
// queue.v1.QueueService/AddToQueue.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Service and method names.
const (
	ServiceName      = "queue.v1.QueueService"
	AddToQueueMethod = "/" + ServiceName + "/AddToQueue"
)

// AddToQueueRequest is the admission message. All fields are optional on
// the wire.
type AddToQueueRequest struct {
	PatientID   string `json:"nik"`
	PatientName string `json:"nama"`
	BirthPlace  string `json:"tempat_lahir,omitempty"`
	BirthDate   string `json:"tgl_lahir,omitempty"`
	Gender      string `json:"jenis_kelamin,omitempty"`
	Address     string `json:"alamat,omitempty"`
	Religion    string `json:"agama,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Note        string `json:"keterangan,omitempty"`
	// InstitutionID is accepted and ignored.
	InstitutionID string `json:"institutionId,omitempty"`
}

// AddToQueueResponse reports the admission outcome. DataJSON holds the
// created entry encoded as JSON.
type AddToQueueResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	DataJSON string `json:"dataJson"`
	Error    string `json:"error"`
}

// QueueServiceServer is the server API for queue.v1.QueueService.
type QueueServiceServer interface {
	AddToQueue(ctx context.Context, req *AddToQueueRequest) (*AddToQueueResponse, error)
}

// ServiceDesc describes queue.v1.QueueService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueueServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddToQueue",
			Handler:    addToQueueHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "queue/v1/queue.proto",
}

// Register registers srv on s.
func Register(s grpc.ServiceRegistrar, srv QueueServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func addToQueueHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddToQueueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueueServiceServer).AddToQueue(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AddToQueueMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(QueueServiceServer).AddToQueue(ctx, req.(*AddToQueueRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls queue.v1.QueueService using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client on an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// AddToQueue admits a patient.
func (c *Client) AddToQueue(ctx context.Context, in *AddToQueueRequest, opts ...grpc.CallOption) (*AddToQueueResponse, error) {
	out := new(AddToQueueResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, AddToQueueMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
