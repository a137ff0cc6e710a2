package cloud

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/chriscow/speechstack-go/pkg/ai"
)

// request is the body signed during the handshake.
type request struct {
	Format   string `json:"format"`
	Rate     int    `json:"rate"`
	Language string `json:"language"`
	Limit    int    `json:"limit"`
}

type handshake struct {
	KeyID     string `json:"keyId"`
	Signature string `json:"signature"`
	Body      string `json:"body"`
}

// Hypothesis is one candidate transcript.
type Hypothesis struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Response is a server message. The handshake reply carries only Status.
type Response struct {
	Error      string       `json:"error,omitempty"`
	Final      bool         `json:"final"`
	Hypotheses []Hypothesis `json:"hypotheses"`
	Status     string       `json:"status,omitempty"`
}

// Best returns the first hypothesis, or the zero value when there are none.
func (r Response) Best() Hypothesis {
	if len(r.Hypotheses) == 0 {
		return Hypothesis{}
	}
	return r.Hypotheses[0]
}

// APIError is an error reported by the service. It is never retried.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("speech api: %s", e.Message)
}

func (e *APIError) Unwrap() error { return ai.ErrFatal }

// Sign returns the base64 HMAC-SHA256 of body keyed by secret.
func Sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newHandshake(keyID, secret string, req request) (handshake, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return handshake{}, fmt.Errorf("marshal request: %w", err)
	}
	return handshake{
		KeyID:     keyID,
		Signature: Sign(secret, string(body)),
		Body:      string(body),
	}, nil
}
