package live

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"galaxy/internal/domain"
	"galaxy/internal/timeline"
)

// codecName is the gRPC content-subtype frames travel under
// (application/grpc+json).
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "galaxy.Frames"

const streamFramesMethod = "/" + ServiceName + "/StreamFrames"

// StreamRequest selects what a client streams. An empty Session follows the
// server's shared playback session.
type StreamRequest struct {
	Session  string `json:"session,omitempty"`
	Autoplay bool   `json:"autoplay,omitempty"`
}

// FrameMessage is one composed frame plus the playback state that
// produced it. Seq increases monotonically per stream.
type FrameMessage struct {
	Seq     uint64              `json:"seq"`
	Session string              `json:"session"`
	State   timeline.State      `json:"state"`
	Frame   domain.DisplayFrame `json:"frame"`
	Fit     *FitMessage         `json:"fit,omitempty"`
}

// FitMessage carries the server's camera fit for the default viewport. It
// is sent on the first message of a stream only.
type FitMessage struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Zoom    float64 `json:"zoom"`
}

// FramesServer is the server API for the galaxy.Frames service.
type FramesServer interface {
	StreamFrames(*StreamRequest, grpc.ServerStreamingServer[FrameMessage]) error
}

func streamFramesHandler(srv any, stream grpc.ServerStream) error {
	req := new(StreamRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(FramesServer).StreamFrames(req, &grpc.GenericServerStream[StreamRequest, FrameMessage]{ServerStream: stream})
}

var framesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FramesServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamFrames",
			Handler:       streamFramesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "galaxy/frames",
}
