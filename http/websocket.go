package http

import (
	"context"
	"net/http"

	"github.com/fwojciec/tutor"
	tutorjson "github.com/fwojciec/tutor/json"
	"github.com/gorilla/websocket"
)

// handleWebSocket serves one session over a websocket. Each client message
// is a student line, or a retry when Retry is set; the server answers with
// delta frames followed by a reply or error frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Warn("websocket upgrade failed", "session", sess.ID, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	for {
		var msg tutorjson.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", "session", sess.ID, "error", err)
			}
			return
		}
		if err := s.answerFrame(ctx, conn, sess, msg); err != nil {
			s.logger.Debug("websocket write failed", "session", sess.ID, "error", err)
			return
		}
	}
}

// answerFrame runs one request and writes its frames. Only write failures
// are returned; request failures become error frames.
func (s *Server) answerFrame(ctx context.Context, conn *websocket.Conn, sess *tutor.Session, msg tutorjson.Message) error {
	var writeErr error
	onEvent := tutor.WithEventHandler(func(evt tutor.Event) {
		if writeErr != nil {
			return
		}
		if f, ok := tutorjson.EventFrame(evt); ok {
			writeErr = conn.WriteJSON(f)
		}
	})

	var (
		text string
		err  error
	)
	if msg.Retry {
		text, err = sess.Retry(ctx, onEvent)
	} else {
		text, err = sess.Submit(ctx, msg.Text, onEvent)
	}
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		s.logFailure(sess, err)
		return conn.WriteJSON(tutorjson.ErrorFrame(err))
	}
	return conn.WriteJSON(tutorjson.ReplyFrame(text))
}
