package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"golang.org/x/time/rate"

	streampulse "goa.design/uistream/features/stream/pulse"
	"goa.design/uistream/runtime/agent/model"
	"goa.design/uistream/runtime/agent/telemetry"
	"goa.design/uistream/runtime/uistream/builder"
	"goa.design/uistream/runtime/uistream/convert"
	"goa.design/uistream/runtime/uistream/sse"
	"goa.design/uistream/runtime/uistream/translate"
)

type (
	// chatServer serves the chat endpoints.
	chatServer struct {
		agent model.Agent
		// admit bounds request admission; nil admits everything.
		admit *rate.Limiter
		// publisher and follower are set when the Pulse mirror is enabled.
		publisher *streampulse.Publisher
		follower  *streampulse.Subscriber
		// vars returns the path parameters of a request.
		vars func(*http.Request) map[string]string
		// newBuilder is overridden in tests for deterministic ids.
		newBuilder func() *builder.Builder

		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
	}

	// errorResponse is the body of non-streaming error responses.
	errorResponse struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

// handleChat serves POST /api/chat. Request errors are reported as JSON
// before any stream byte is written; afterwards every failure is reported
// in-stream.
func (s *chatServer) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.admit != nil && !s.admit.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many chat requests")
		return
	}
	req, err := convert.DecodeChatRequest(r.Body)
	if err != nil {
		s.conversionError(w, r, err)
		return
	}
	prompt, history, err := convert.SplitLast(req.Messages)
	if err != nil {
		s.conversionError(w, r, err)
		return
	}

	b := s.newBuilder()
	s.logTranscript(r, b.MessageID(), history, prompt)
	stream, err := s.agent.Stream(ctx, prompt, history)
	if err != nil {
		stream = model.NewSliceStreamer(nil, err)
	}

	var (
		sink   translate.Sink = sse.NewWriter(w)
		mirror *streampulse.Sink
	)
	if s.publisher != nil {
		if mirror, err = s.publisher.Sink(b.MessageID()); err != nil {
			s.logger.Warn(ctx, "stream mirror unavailable", "message_id", b.MessageID(), "err", err)
		} else {
			sink = translate.NewMultiSink(s.logger, sink, mirror)
		}
	}
	err = translate.Run(ctx, translate.New(b), stream, sink,
		translate.WithLogger(s.logger),
		translate.WithMetrics(s.metrics),
		translate.WithTracer(s.tracer),
	)
	if err != nil {
		s.logger.Warn(ctx, "chat stream aborted", "message_id", b.MessageID(), "thread_id", req.ID, "err", err)
	}
	if mirror != nil {
		if err := mirror.Close(ctx); err != nil {
			s.logger.Warn(ctx, "close stream mirror", "message_id", b.MessageID(), "err", err)
		}
	}
}

// logTranscript logs the converted conversation at debug level.
func (s *chatServer) logTranscript(r *http.Request, messageID string, history []model.Message, prompt model.Message) {
	transcript, err := json.Marshal(append(slices.Clip(history), prompt))
	if err != nil {
		s.logger.Warn(r.Context(), "encode transcript", "message_id", messageID, "err", err)
		return
	}
	s.logger.Debug(r.Context(), "chat request", "message_id", messageID, "transcript", string(transcript))
}

// handleFollow serves GET /api/chat/{id}/stream by replaying the mirrored
// stream of message id from its first event.
func (s *chatServer) handleFollow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.follower == nil {
		writeError(w, http.StatusNotFound, "not_found", "stream mirror is not enabled")
		return
	}
	id := s.vars(r)["id"]
	if id == "" {
		writeError(w, http.StatusBadRequest, string(convert.CodeInvalidRequest), "missing message id")
		return
	}
	events, errs, cancel, err := s.follower.Subscribe(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "follow stream", "message_id", id, "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "stream mirror unavailable")
		return
	}
	defer cancel()

	out := sse.NewWriter(w)
	for ev := range events {
		if err := out.Send(ctx, ev); err != nil {
			s.logger.Warn(ctx, "follower disconnected", "message_id", id, "err", err)
			return
		}
	}
	if err := <-errs; err != nil {
		s.logger.Error(ctx, "follow stream failed", "message_id", id, "err", err)
		if !out.Started() {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "stream mirror unavailable")
		}
	}
}

func (s *chatServer) conversionError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := convert.CodeInvalidRequest, err.Error()
	var cerr *convert.ConversionError
	if errors.As(err, &cerr) {
		code, msg = cerr.Code, cerr.Message
	}
	s.logger.Warn(r.Context(), "rejected chat request", "code", string(code), "err", err)
	writeError(w, http.StatusBadRequest, string(code), msg)
}

func writeError(w http.ResponseWriter, status int, name, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Name: name, Message: msg})
}
