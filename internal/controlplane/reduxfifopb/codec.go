package reduxfifopb

import "encoding/json"

// jsonCodec stands in for the generated protobuf wire codec: without a
// .proto toolchain there is no descriptor to drive
// google.golang.org/protobuf's real marshaler, so messages round-trip
// as JSON instead. Registered on the server via grpc.ForceServerCodec
// so it never collides with the "proto" codec name other services
// might register.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "reduxfifo-json" }

// Codec is the jsonCodec instance wired into the gRPC server by
// controlplane.NewServer.
var Codec = jsonCodec{}
