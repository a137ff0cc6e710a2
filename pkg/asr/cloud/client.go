// Package cloud implements a streaming speech recognition client for the
// Spokestack websocket API.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chriscow/speechstack-go/pkg/ai"
	"github.com/chriscow/speechstack-go/pkg/ai/stt"
	"github.com/chriscow/speechstack-go/pkg/rtc"
)

const (
	// DefaultSocketURL is the public service endpoint.
	DefaultSocketURL = "wss://api.spokestack.io"
	// Path is appended to the socket URL.
	Path = "/v1/asr/websocket"
	// Format is the only audio encoding the client sends.
	Format = "PCM16LE"
)

// Config holds connection settings and credentials.
type Config struct {
	SocketURL        string        `yaml:"socket_url"`
	KeyID            string        `yaml:"key_id"`
	KeySecret        string        `yaml:"key_secret"`
	HandshakeTimeout time.Duration `yaml:"-"`
}

// Client opens recognition streams. It implements stt.STT.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

var _ stt.STT = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// New creates a client. KeyID and KeySecret are required.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, ai.NewFatalError(nil, "missing credentials: key_id and key_secret are required")
	}
	if cfg.SocketURL == "" {
		cfg.SocketURL = DefaultSocketURL
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Capabilities reports streaming with interim results.
func (c *Client) Capabilities() stt.STTCapabilities {
	return stt.STTCapabilities{
		Streaming:      true,
		InterimResults: true,
		SampleRates:    []int{8000, 16000, 32000},
	}
}

// NewStream connects, performs the signed handshake and starts reading
// results. Cancelling ctx closes the connection.
func (c *Client) NewStream(ctx context.Context, cfg stt.StreamConfig) (stt.STTStream, error) {
	if cfg.NumChannels > 1 {
		return nil, ai.NewFatalError(nil, "unsupported channels: only mono audio is supported")
	}
	limit := cfg.Limit
	if limit == 0 {
		limit = 10
	}
	lang := cfg.Lang
	if lang == "" {
		lang = "en"
	}

	url := strings.TrimSuffix(c.cfg.SocketURL, "/") + Path
	c.logger.Debug("Connecting to speech api", slog.String("url", url))
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, ai.NewRecoverableError(err, "failed to connect")
	}

	if err := c.initialize(conn, request{Format: Format, Rate: cfg.SampleRate, Language: lang, Limit: limit}); err != nil {
		conn.Close()
		return nil, err
	}

	s := &stream{
		conn:   conn,
		events: make(chan stt.SpeechEvent, 32),
		done:   make(chan struct{}),
		lang:   lang,
		logger: c.logger,
	}
	go s.read(ctx)
	go s.watch(ctx)
	return s, nil
}

func (c *Client) initialize(conn *websocket.Conn, req request) error {
	msg, err := newHandshake(c.cfg.KeyID, c.cfg.KeySecret, req)
	if err != nil {
		return ai.NewFatalError(err, "failed to build handshake")
	}
	if err := conn.WriteJSON(msg); err != nil {
		return ai.NewRecoverableError(err, "failed to send handshake")
	}
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		return ai.NewRecoverableError(err, "failed to read handshake")
	}
	if resp.Status != "ok" {
		return &APIError{Message: resp.Error}
	}
	return nil
}

type stream struct {
	conn   *websocket.Conn
	events chan stt.SpeechEvent
	done   chan struct{}
	lang   string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Push sends one frame of PCM16LE audio.
func (s *stream) Push(frame rtc.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream is closed")
	}
	if len(frame.Data) == 0 {
		return nil
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
		return ai.NewRecoverableError(err, "failed to send audio")
	}
	return nil
}

func (s *stream) Events() <-chan stt.SpeechEvent { return s.events }

// CloseSend sends the empty binary frame that ends the audio.
func (s *stream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.WriteMessage(websocket.BinaryMessage, []byte{}); err != nil {
		return fmt.Errorf("failed to end audio: %w", err)
	}
	return nil
}

// read forwards server responses until the final result, an error, or the
// connection closes.
func (s *stream) read(ctx context.Context) {
	defer close(s.events)
	defer close(s.done)
	defer s.conn.Close()

	for {
		var resp Response
		if err := s.conn.ReadJSON(&resp); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("speech api connection closed")
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.emit(ctx, stt.SpeechEvent{
				Type:  stt.SpeechEventError,
				Error: ai.NewRecoverableError(err, "failed to read response"),
			})
			return
		}
		if resp.Error != "" {
			s.emit(ctx, stt.SpeechEvent{Type: stt.SpeechEventError, Error: &APIError{Message: resp.Error}})
			return
		}

		best := resp.Best()
		ev := stt.SpeechEvent{
			Type:       stt.SpeechEventInterim,
			Text:       best.Transcript,
			Confidence: best.Confidence,
			IsFinal:    resp.Final,
			Language:   s.lang,
			Timestamp:  time.Now().UnixMilli(),
		}
		if resp.Final {
			ev.Type = stt.SpeechEventFinal
		}
		s.emit(ctx, ev)
		if resp.Final {
			return
		}
	}
}

func (s *stream) emit(ctx context.Context, ev stt.SpeechEvent) {
	if ev.Type == stt.SpeechEventInterim {
		select {
		case s.events <- ev:
		default:
			s.logger.Warn("Interim result dropped, event channel full")
		}
		return
	}
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// watch closes the connection when ctx ends so that read returns.
func (s *stream) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.conn.Close()
	case <-s.done:
	}
}
