package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"galaxy/internal/util"
)

// Client connects to a frame gRPC server and populates a local Mirror.
type Client struct {
	addr   string
	mirror *Mirror
	log    *slog.Logger
	opts   []grpc.DialOption

	Request   StreamRequest
	Attempts  int
	BaseDelay time.Duration
}

// NewClient creates a client targeting the given gRPC address. Extra dial
// options are appended to the insecure transport default.
func NewClient(addr string, mirror *Mirror, log *slog.Logger, opts ...grpc.DialOption) *Client {
	return &Client{
		addr:      addr,
		mirror:    mirror,
		log:       log,
		opts:      opts,
		Attempts:  5,
		BaseDelay: 500 * time.Millisecond,
	}
}

type frameStream = grpc.GenericClientStream[StreamRequest, FrameMessage]

// Sync connects to the server and streams frames into the mirror. Opening
// the stream is retried with backoff. It blocks until ctx is cancelled or
// the stream ends.
func (c *Client) Sync(ctx context.Context) error {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, c.opts...)
	conn, err := grpc.NewClient(c.addr, dialOpts...)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	defer conn.Close()

	var (
		stream *frameStream
		first  *FrameMessage
	)
	err = util.Retry(ctx, c.Attempts, c.BaseDelay, func() error {
		var openErr error
		stream, first, openErr = c.open(ctx, conn)
		if openErr == nil {
			return nil
		}
		if !retryable(openErr) {
			return util.Permanent(openErr)
		}
		c.log.Warn("opening frame stream", "addr", c.addr, "error", openErr)
		return openErr
	})
	if err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	c.log.Info("connected to frame stream", "addr", c.addr, "session", first.Session)
	c.mirror.Reset()
	c.mirror.Add(*first)

	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving frame: %w", err)
		}
		c.mirror.Add(*msg)
	}
}

// retryable reports whether opening the stream may succeed on a later
// attempt. Unavailable covers both a server that is not up yet and one
// whose load failed and may be reloaded.
func retryable(err error) bool {
	switch status.Code(err) {
	case codes.NotFound, codes.InvalidArgument, codes.Unimplemented,
		codes.PermissionDenied, codes.Unauthenticated, codes.Canceled:
		return false
	}
	return true
}

// open starts the stream and waits for the first frame, so a server that
// accepts the call but cannot serve it counts as a failed attempt.
func (c *Client) open(ctx context.Context, conn *grpc.ClientConn) (*frameStream, *FrameMessage, error) {
	cs, err := conn.NewStream(ctx, &framesServiceDesc.Streams[0], streamFramesMethod)
	if err != nil {
		return nil, nil, err
	}
	stream := &frameStream{ClientStream: cs}
	req := c.Request
	if err := stream.SendMsg(&req); err != nil {
		return nil, nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, nil, err
	}
	first, err := stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("stream closed before first frame")
		}
		return nil, nil, err
	}
	return stream, first, nil
}
