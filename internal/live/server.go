package live

import (
	"errors"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"galaxy/internal/camera"
	"galaxy/internal/dashboard"
)

// Server implements the StreamFrames gRPC endpoint over a dashboard model.
type Server struct {
	model *dashboard.Model
	log   *slog.Logger

	mu     sync.Mutex
	shared *dashboard.Session
}

// NewServer creates a gRPC server backed by the given model.
func NewServer(model *dashboard.Model, log *slog.Logger) *Server {
	return &Server{model: model, log: log}
}

// RegisterGRPC registers the server on the given gRPC server instance.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	gs.RegisterService(&framesServiceDesc, s)
}

// Shared returns the playback session streamed to clients that do not name
// one, creating it on first use or after it was pruned.
func (s *Server) Shared() *dashboard.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared != nil {
		if _, err := s.model.Session(s.shared.ID); err == nil {
			return s.shared
		}
	}
	s.shared = s.model.NewSession()
	s.log.Info("shared grpc session created", "session", s.shared.ID)
	return s.shared
}

// StreamFrames sends the session's current frame, then every frame it
// publishes. The stream ends when the client disconnects or the session
// is closed.
func (s *Server) StreamFrames(req *StreamRequest, stream grpc.ServerStreamingServer[FrameMessage]) error {
	if snap := s.model.Snapshot(); snap.Status == dashboard.StatusFailed {
		return status.Error(codes.Unavailable, snap.Error)
	}

	sess := s.Shared()
	if req.Session != "" {
		var err error
		sess, err = s.model.Session(req.Session)
		if err != nil {
			if errors.Is(err, dashboard.ErrNoSession) {
				return status.Error(codes.NotFound, err.Error())
			}
			return err
		}
	}
	if req.Autoplay && !sess.State().Playing {
		sess.Play()
	}

	subID, ch := sess.Subscribe(64)
	defer sess.Unsubscribe(subID)

	s.log.Info("grpc client subscribed", "session", sess.ID, "subID", subID)

	fit := s.model.CameraFit(camera.Viewport{})
	first := &FitMessage{CenterX: fit.CenterX, CenterY: fit.CenterY, Zoom: fit.Zoom}

	var seq uint64
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("grpc client disconnected", "session", sess.ID, "subID", subID)
			return nil
		case df, ok := <-ch:
			if !ok {
				return status.Error(codes.Aborted, "session closed")
			}
			seq++
			msg := &FrameMessage{Seq: seq, Session: sess.ID, State: sess.State(), Frame: df, Fit: first}
			first = nil
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
