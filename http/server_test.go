package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/tutor"
	tutorhttp "github.com/fwojciec/tutor/http"
	tutorjson "github.com/fwojciec/tutor/json"
	"github.com/fwojciec/tutor/mock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testConfig() tutor.Config {
	return tutor.Config{Model: "gemini-1.5-flash-8b", Preamble: "You are a patient Mandarin tutor."}
}

type replyBody struct {
	Reply   string            `json:"reply"`
	Session tutorjson.Session `json:"session"`
}

type errorBody struct {
	Error tutorjson.Error `json:"error"`
}

// newServer returns a server whose sessions share provider.
func newServer(t *testing.T, provider tutor.Provider, cfg tutor.Config, opts ...tutorhttp.Option) *tutorhttp.Server {
	t.Helper()
	opts = append([]tutorhttp.Option{tutorhttp.WithRateLimit(rate.Inf, 0)}, opts...)
	return tutorhttp.NewServer(func() *tutor.Session {
		return tutor.NewSession(provider, cfg)
	}, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) tutorjson.Session {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tutorjson.Session](t, rec)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	srv := newServer(t, mock.NewReplies(), testConfig())
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_CreateSession(t *testing.T) {
	t.Parallel()

	t.Run("creates an active session", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, mock.NewReplies(), testConfig())
		sess := createSession(t, srv)

		assert.NotEmpty(t, sess.ID)
		assert.Equal(t, "active", sess.State)
		assert.Empty(t, sess.Turns)
		assert.Equal(t, 1, srv.Sessions().Len())
	})

	t.Run("opening turn when configured", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.Opening = true
		srv := newServer(t, mock.NewReplies("Challenge 1: 你几点起床？"), cfg)
		sess := createSession(t, srv)

		require.Len(t, sess.Turns, 1)
		turns, err := sess.Transcript()
		require.NoError(t, err)
		assert.Equal(t, tutor.SpeakerAssistant, turns[0].Speaker)
		assert.Equal(t, "Challenge 1: 你几点起床？", turns[0].Text)
	})

	t.Run("initialization failure is reported and nothing is registered", func(t *testing.T) {
		t.Parallel()

		provider := &mock.Provider{
			VerifyFn: func(context.Context, string) error {
				return fmt.Errorf("invalid api key: %w", tutor.ErrConfiguration)
			},
		}
		srv := newServer(t, provider, testConfig())
		rec := do(t, srv, http.MethodPost, "/api/sessions", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "configuration", body.Error.Kind)
		assert.False(t, body.Error.Retryable)
		assert.Equal(t, 0, srv.Sessions().Len())
	})

	t.Run("empty model is a configuration error", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.Model = ""
		replies := mock.NewReplies()
		srv := newServer(t, replies, cfg)
		rec := do(t, srv, http.MethodPost, "/api/sessions", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, replies.Requests())
	})
}

func TestServer_GetSession(t *testing.T) {
	t.Parallel()

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, mock.NewReplies(), testConfig())
		rec := do(t, srv, http.MethodGet, "/api/sessions/nope", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decode[errorBody](t, rec).Error.Kind)
	})

	t.Run("returns the transcript", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, mock.NewReplies("早上七点。"), testConfig())
		id := createSession(t, srv).ID
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", `{"text":"你几点去学校？"}`).Code)

		rec := do(t, srv, http.MethodGet, "/api/sessions/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code)
		sess := decode[tutorjson.Session](t, rec)
		turns, err := sess.Transcript()
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "你几点去学校？", turns[0].Text)
		assert.Equal(t, "早上七点。", turns[1].Text)
	})
}

func TestServer_DeleteSession(t *testing.T) {
	t.Parallel()

	srv := newServer(t, mock.NewReplies(), testConfig())
	id := createSession(t, srv).ID

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/sessions/"+id, "").Code)
}

func TestServer_Submit(t *testing.T) {
	t.Parallel()

	t.Run("returns the reply and the session", func(t *testing.T) {
		t.Parallel()

		replies := mock.NewReplies("Very good!", "Next: 你几点吃午饭？")
		srv := newServer(t, replies, testConfig())
		id := createSession(t, srv).ID

		rec := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", `{"text":"我七点去学校。"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[replyBody](t, rec)
		assert.Equal(t, "Very good!", body.Reply)
		assert.Len(t, body.Session.Turns, 2)

		rec = do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", `{"text":"好的"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[replyBody](t, rec).Session.Turns, 4)

		reqs := replies.Requests()
		require.Len(t, reqs, 2)
		assert.Len(t, reqs[1].Turns, 3)
	})

	tests := []struct {
		name   string
		body   string
		script []any
		status int
		kind   string
	}{
		{name: "empty text", body: `{"text":"  "}`, status: http.StatusBadRequest, kind: "validation"},
		{name: "invalid body", body: `{`, status: http.StatusBadRequest, kind: "validation"},
		{name: "rate limited", body: `{"text":"hi"}`, script: []any{fmt.Errorf("429: %w", tutor.ErrRateLimited)}, status: http.StatusTooManyRequests, kind: "rate_limited"},
		{name: "model unavailable", body: `{"text":"hi"}`, script: []any{fmt.Errorf("404: %w", tutor.ErrModelUnavailable)}, status: http.StatusServiceUnavailable, kind: "model_unavailable"},
		{name: "transient", body: `{"text":"hi"}`, script: []any{fmt.Errorf("connection reset")}, status: http.StatusBadGateway, kind: "transient"},
		{name: "configuration", body: `{"text":"hi"}`, script: []any{fmt.Errorf("401: %w", tutor.ErrConfiguration)}, status: http.StatusInternalServerError, kind: "configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newServer(t, mock.NewReplies(tt.script...), testConfig())
			id := createSession(t, srv).ID
			rec := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.kind, body.Error.Kind)
			assert.NotEmpty(t, body.Error.Hint)
		})
	}

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, mock.NewReplies(), testConfig())
		rec := do(t, srv, http.MethodPost, "/api/sessions/nope/messages", `{"text":"hi"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("concurrent request is busy", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})
		var calls int
		provider := &mock.Provider{
			StreamFn: func(context.Context, tutor.Request) (tutor.Stream, error) {
				calls++
				close(started)
				<-release
				return mock.TextStream("ok"), nil
			},
		}
		srv := newServer(t, provider, testConfig())
		id := createSession(t, srv).ID

		done := make(chan *httptest.ResponseRecorder, 1)
		go func() {
			done <- do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", `{"text":"first"}`)
		}()
		<-started

		rec := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", `{"text":"second"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "busy", decode[errorBody](t, rec).Error.Kind)

		close(release)
		first := <-done
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, 1, calls)
	})
}

func TestServer_Retry(t *testing.T) {
	t.Parallel()

	t.Run("resends the pending turn", func(t *testing.T) {
		t.Parallel()

		replies := mock.NewReplies(fmt.Errorf("429: %w", tutor.ErrRateLimited), "Welcome back.")
		srv := newServer(t, replies, testConfig())
		id := createSession(t, srv).ID

		rec := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages", `{"text":"hi"}`)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		rec = do(t, srv, http.MethodGet, "/api/sessions/"+id, "")
		assert.True(t, decode[tutorjson.Session](t, rec).Pending)

		rec = do(t, srv, http.MethodPost, "/api/sessions/"+id+"/retry", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[replyBody](t, rec)
		assert.Equal(t, "Welcome back.", body.Reply)
		assert.Len(t, body.Session.Turns, 2)
		assert.False(t, body.Session.Pending)
	})

	t.Run("nothing pending", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, mock.NewReplies(), testConfig())
		id := createSession(t, srv).ID
		rec := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/retry", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", decode[errorBody](t, rec).Error.Kind)
	})
}

func TestServer_SubmitEventStream(t *testing.T) {
	t.Parallel()

	readFrames := func(t *testing.T, body io.Reader) []tutorjson.Frame {
		t.Helper()
		var frames []tutorjson.Frame
		sc := bufio.NewScanner(body)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data: ")
			if !ok {
				continue
			}
			var f tutorjson.Frame
			require.NoError(t, json.Unmarshal([]byte(data), &f))
			frames = append(frames, f)
		}
		require.NoError(t, sc.Err())
		return frames
	}

	post := func(t *testing.T, url, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Accept", "text/event-stream")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("streams deltas then the reply", func(t *testing.T) {
		t.Parallel()

		provider := &mock.Provider{
			StreamFn: func(context.Context, tutor.Request) (tutor.Stream, error) {
				return mock.TextStream("早上", "七点。"), nil
			},
		}
		srv := newServer(t, provider, testConfig())
		ts := httptest.NewServer(srv)
		t.Cleanup(ts.Close)
		id := createSession(t, srv).ID

		resp := post(t, ts.URL+"/api/sessions/"+id+"/messages", `{"text":"你几点去学校？"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		frames := readFrames(t, resp.Body)
		require.Len(t, frames, 3)
		assert.Equal(t, tutorjson.Frame{Type: tutorjson.FrameDelta, Delta: "早上"}, frames[0])
		assert.Equal(t, tutorjson.Frame{Type: tutorjson.FrameDelta, Delta: "七点。"}, frames[1])
		assert.Equal(t, tutorjson.Frame{Type: tutorjson.FrameReply, Text: "早上七点。"}, frames[2])
	})

	t.Run("failure ends with an error frame", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, mock.NewReplies(fmt.Errorf("429: %w", tutor.ErrRateLimited)), testConfig())
		ts := httptest.NewServer(srv)
		t.Cleanup(ts.Close)
		id := createSession(t, srv).ID

		resp := post(t, ts.URL+"/api/sessions/"+id+"/messages", `{"text":"hi"}`)
		frames := readFrames(t, resp.Body)
		require.Len(t, frames, 1)
		assert.Equal(t, tutorjson.FrameError, frames[0].Type)
		require.NotNil(t, frames[0].Error)
		assert.Equal(t, "rate_limited", frames[0].Error.Kind)
	})
}

func TestServer_WebSocket(t *testing.T) {
	t.Parallel()

	replies := mock.NewReplies("Very good!")
	srv := newServer(t, replies, testConfig())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	id := createSession(t, srv).ID

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	read := func() tutorjson.Frame {
		t.Helper()
		var f tutorjson.Frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	require.NoError(t, conn.WriteJSON(tutorjson.Message{Text: "我七点去学校。"}))
	assert.Equal(t, tutorjson.Frame{Type: tutorjson.FrameDelta, Delta: "Very good!"}, read())
	assert.Equal(t, tutorjson.Frame{Type: tutorjson.FrameReply, Text: "Very good!"}, read())

	require.NoError(t, conn.WriteJSON(tutorjson.Message{Retry: true}))
	f := read()
	assert.Equal(t, tutorjson.FrameError, f.Type)
	require.NotNil(t, f.Error)
	assert.Equal(t, "validation", f.Error.Kind)

	require.NoError(t, conn.WriteJSON(tutorjson.Message{Text: ""}))
	f = read()
	require.NotNil(t, f.Error)
	assert.Equal(t, "validation", f.Error.Kind)
	assert.Len(t, replies.Requests(), 1)
}

func TestServer_WebSocketUnknownSession(t *testing.T) {
	t.Parallel()

	srv := newServer(t, mock.NewReplies(), testConfig())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	srv := tutorhttp.NewServer(func() *tutor.Session {
		return tutor.NewSession(mock.NewReplies(), testConfig())
	}, tutorhttp.WithRateLimit(rate.Limit(0.001), 1))

	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/sessions", "").Code)
	rec := do(t, srv, http.MethodPost, "/api/sessions", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "too_many_requests", body.Error.Kind)
	assert.Contains(t, body.Error.Hint, "from this client")
	assert.NotEqual(t, tutor.KindQuota.Hint(), body.Error.Hint)
	assert.True(t, body.Error.Retryable)

	// Health checks are not limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	srv := newServer(t, mock.NewReplies(), testConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
