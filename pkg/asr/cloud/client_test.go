package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscow/speechstack-go/pkg/ai"
	"github.com/chriscow/speechstack-go/pkg/ai/stt"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

const (
	testKeyID  = "key-id"
	testSecret = "key-secret"
)

// fakeServer speaks the recognition protocol. It answers every binary
// frame with an interim hypothesis and the empty frame with a final one.
type fakeServer struct {
	t        *testing.T
	reject   string
	failMid  string
	frames   int
	lastBody request
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != Path {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	var hs handshake
	if err := conn.ReadJSON(&hs); err != nil {
		f.t.Errorf("read handshake: %v", err)
		return
	}
	if hs.KeyID != testKeyID || hs.Signature != Sign(testSecret, hs.Body) {
		conn.WriteJSON(Response{Status: "error", Error: "invalid_signature"})
		return
	}
	if f.reject != "" {
		conn.WriteJSON(Response{Status: "error", Error: f.reject})
		return
	}
	if err := json.Unmarshal([]byte(hs.Body), &f.lastBody); err != nil {
		f.t.Errorf("decode body: %v", err)
		return
	}
	conn.WriteJSON(Response{Status: "ok"})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 {
			conn.WriteJSON(Response{Final: true, Hypotheses: []Hypothesis{{Transcript: "turn on the lights", Confidence: 0.8}}})
			return
		}
		f.frames++
		if f.failMid != "" {
			conn.WriteJSON(Response{Error: f.failMid})
			return
		}
		conn.WriteJSON(Response{Hypotheses: []Hypothesis{{Transcript: "turn", Confidence: 0.4}}})
	}
}

func newTestClient(t *testing.T, srv *fakeServer) *Client {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	c, err := New(Config{
		SocketURL: "ws" + strings.TrimPrefix(ts.URL, "http"),
		KeyID:     testKeyID,
		KeySecret: testSecret,
	})
	require.NoError(t, err)
	return c
}

func collect(t *testing.T, s stt.STTStream) []stt.SpeechEvent {
	t.Helper()
	var out []stt.SpeechEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestStreamRecognize(t *testing.T) {
	srv := &fakeServer{t: t}
	c := newTestClient(t, srv)

	s, err := c.NewStream(context.Background(), stt.StreamConfig{SampleRate: 16000, NumChannels: 1, Lang: "en", Limit: 3})
	require.NoError(t, err)

	frame := rtc.FromSamples(make([]int16, 320), 16000, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Push(frame))
	}
	require.NoError(t, s.CloseSend())

	events := collect(t, s)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, stt.SpeechEventFinal, last.Type)
	assert.Equal(t, "turn on the lights", last.Text)
	assert.InDelta(t, 0.8, last.Confidence, 1e-9)
	for _, ev := range events[:len(events)-1] {
		assert.Equal(t, stt.SpeechEventInterim, ev.Type)
		assert.Equal(t, "turn", ev.Text)
	}

	assert.Equal(t, 3, srv.frames)
	assert.Equal(t, request{Format: Format, Rate: 16000, Language: "en", Limit: 3}, srv.lastBody)
}

func TestHandshakeRejected(t *testing.T) {
	c := newTestClient(t, &fakeServer{t: t, reject: "quota_exceeded"})

	_, err := c.NewStream(context.Background(), stt.StreamConfig{SampleRate: 16000})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "quota_exceeded", apiErr.Message)
	assert.True(t, ai.IsFatal(err))
}

func TestBadSignature(t *testing.T) {
	ts := httptest.NewServer(&fakeServer{t: t})
	defer ts.Close()
	c, err := New(Config{
		SocketURL: "ws" + strings.TrimPrefix(ts.URL, "http"),
		KeyID:     testKeyID,
		KeySecret: "wrong",
	})
	require.NoError(t, err)

	_, err = c.NewStream(context.Background(), stt.StreamConfig{SampleRate: 16000})
	assert.True(t, ai.IsFatal(err))
}

func TestServerErrorMidStream(t *testing.T) {
	c := newTestClient(t, &fakeServer{t: t, failMid: "invalid_audio"})

	s, err := c.NewStream(context.Background(), stt.StreamConfig{SampleRate: 16000})
	require.NoError(t, err)
	require.NoError(t, s.Push(rtc.FromSamples(make([]int16, 320), 16000, 0)))

	events := collect(t, s)
	require.Len(t, events, 1)
	assert.Equal(t, stt.SpeechEventError, events[0].Type)
	assert.True(t, ai.IsFatal(events[0].Error))
}

func TestDialFailureIsRecoverable(t *testing.T) {
	c, err := New(Config{SocketURL: "ws://127.0.0.1:1", KeyID: testKeyID, KeySecret: testSecret})
	require.NoError(t, err)

	_, err = c.NewStream(context.Background(), stt.StreamConfig{SampleRate: 16000})
	require.Error(t, err)
	assert.True(t, ai.IsRecoverable(err))
}

func TestCancelClosesStream(t *testing.T) {
	c := newTestClient(t, &fakeServer{t: t})

	ctx, cancel := context.WithCancel(context.Background())
	s, err := c.NewStream(ctx, stt.StreamConfig{SampleRate: 16000})
	require.NoError(t, err)
	cancel()

	assert.Empty(t, collect(t, s))
	assert.Error(t, s.Push(rtc.FromSamples(make([]int16, 320), 16000, 0)))
}

func TestMissingCredentials(t *testing.T) {
	_, err := New(Config{KeyID: testKeyID})
	assert.True(t, ai.IsFatal(err))
}

func TestSign(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t, "97yD9DBThCSxMpjmqm+xQ+9NWaFJRhdZl0edvC0aPNg=",
		Sign("key", "The quick brown fox jumps over the lazy dog"))
}
