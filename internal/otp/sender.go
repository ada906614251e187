package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Sender delivers a one-time code to a contact address out-of-band. The
// network is involved; treat it as fallible and possibly slow.
type Sender interface {
	Send(ctx context.Context, contact, kind, code string) error
}

// HTTPSender delivers codes through the remote OTP service.
type HTTPSender struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSender builds a sender posting to {baseURL}/otp/send.
func NewHTTPSender(baseURL string) *HTTPSender {
	return &HTTPSender{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	Type    string `json:"type"`
	Contact string `json:"contact"`
	OTP     string `json:"otp"`
}

// Send posts the code to the delivery service and fails on any non-2xx reply.
func (s *HTTPSender) Send(ctx context.Context, contact, kind, code string) error {
	payload, err := json.Marshal(sendRequest{Type: kind, Contact: contact, OTP: code})
	if err != nil {
		return fmt.Errorf("encode otp request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/otp/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build otp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send otp to %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("otp service responded %d", resp.StatusCode)
	}
	return nil
}

// LoggerSender writes codes to the structured logger instead of delivering
// them. Useful for local development and tests.
type LoggerSender struct {
	logger *slog.Logger
}

// NewLoggerSender constructs a logging sender stub.
func NewLoggerSender(logger *slog.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

// Send writes the code to the structured logger.
func (s *LoggerSender) Send(_ context.Context, contact, kind, code string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("otp delivery", "kind", kind, "contact", contact, "code", code)
	return nil
}
