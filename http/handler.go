package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/tutor"
	tutorjson "github.com/fwojciec/tutor/json"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps a student line request body.
const maxBodyBytes = 64 << 10

// replyResponse is the body of a successful submit or retry.
type replyResponse struct {
	Reply   string            `json:"reply"`
	Session tutorjson.Session `json:"session"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.newSession()
	if err := sess.Initialize(r.Context()); err != nil {
		s.logger.Warn("initialize failed", "session", sess.ID, "kind", tutor.Classify(err).String(), "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	s.sessions.Add(sess)
	s.logger.Info("session created", "session", sess.ID)
	writeJSON(w, http.StatusCreated, tutorjson.NewSession(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tutorjson.NewSession(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, errSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var msg tutorjson.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		err = fmt.Errorf("invalid request body: %w", tutor.ErrValidation)
		writeError(w, statusFor(err), err)
		return
	}
	s.reply(w, r, sess, func(ctx context.Context, opts ...tutor.SubmitOption) (string, error) {
		return sess.Submit(ctx, msg.Text, opts...)
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.reply(w, r, sess, sess.Retry)
}

type replyFunc func(ctx context.Context, opts ...tutor.SubmitOption) (string, error)

// reply runs call and answers with JSON, or streams frames when the client
// accepts server-sent events.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, sess *tutor.Session, call replyFunc) {
	if wantsEventStream(r) {
		s.streamReply(w, r, sess, call)
		return
	}
	text, err := call(r.Context())
	if err != nil {
		s.logFailure(sess, err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, replyResponse{Reply: text, Session: tutorjson.NewSession(sess)})
}

func (s *Server) streamReply(w http.ResponseWriter, r *http.Request, sess *tutor.Session, call replyFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported: %w", tutor.ErrConfiguration))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(f tutorjson.Frame) {
		data, err := json.Marshal(f)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Type, data)
		flusher.Flush()
	}

	text, err := call(r.Context(), tutor.WithEventHandler(func(evt tutor.Event) {
		if f, ok := tutorjson.EventFrame(evt); ok {
			send(f)
		}
	}))
	if err != nil {
		s.logFailure(sess, err)
		send(tutorjson.ErrorFrame(err))
		return
	}
	send(tutorjson.ReplyFrame(text))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*tutor.Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errSessionNotFound)
	}
	return sess, ok
}

func (s *Server) logFailure(sess *tutor.Session, err error) {
	s.logger.Warn("request failed", "session", sess.ID, "kind", tutor.Classify(err).String(), "error", err)
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
