package ai_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chriscow/speechstack-go/pkg/ai"
	"github.com/chriscow/speechstack-go/pkg/ai/stt"
	sttfake "github.com/chriscow/speechstack-go/pkg/ai/stt/fake"
)

// ExampleRetry opens a recognition stream, retrying the recoverable dial
// failure and giving up on nothing else.
func ExampleRetry() {
	provider := sttfake.NewFakeSTT("turn on the lights")
	provider.FailNext(ai.NewRecoverableError(errors.New("dial tcp: i/o timeout"), "connect"))

	cfg := ai.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stream, err := ai.Retry(context.Background(), cfg, logger, "stream setup",
		func(ctx context.Context) (stt.STTStream, error) {
			return provider.NewStream(ctx, stt.StreamConfig{SampleRate: 16000, NumChannels: 1})
		})
	if err != nil {
		fmt.Println("failed:", err)
		return
	}
	_ = stream.CloseSend()
	for ev := range stream.Events() {
		fmt.Println(ev.Type == stt.SpeechEventFinal, ev.Text)
	}
	fmt.Println("streams opened:", provider.Streams())
	// Output:
	// true turn on the lights
	// streams opened: 1
}

// ExampleIsFatal shows how provider errors are classified.
func ExampleIsFatal() {
	rejected := ai.NewFatalError(errors.New("status 401"), "handshake")
	busy := ai.NewRecoverableError(errors.New("status 429"), "handshake")

	fmt.Println(ai.IsFatal(rejected), ai.IsRecoverable(rejected))
	fmt.Println(ai.IsFatal(busy), ai.IsRecoverable(busy))
	// Output:
	// true false
	// false true
}
