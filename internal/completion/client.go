// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the completion client.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type so errors.Is works across
// independently constructed ClientError values.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeAuthExpired
	ErrTypePayloadTooLarge
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrAuthExpired     = &ClientError{Type: ErrTypeAuthExpired, Status: http.StatusUnauthorized, Message: "authentication expired"}
	ErrPayloadTooLarge = &ClientError{Type: ErrTypePayloadTooLarge, Status: http.StatusRequestEntityTooLarge, Message: "request too large"}
)

// IsAuthExpired checks whether err signals an expired session (HTTP 401).
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsPayloadTooLarge checks whether err signals an oversized request (HTTP 413).
func IsPayloadTooLarge(err error) bool {
	return errors.Is(err, ErrPayloadTooLarge)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the completion client.
type ClientConfig struct {
	// BaseURL of the assistant backend.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout for non-streaming requests. Streaming requests carry no
	// client timeout; their lifetime is governed by the caller's context.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8080",
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the hosted completion endpoint. Thread-safe for
// concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a completion client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8080"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// =============================================================================
// STREAMING COMPLETION
// =============================================================================

// DeltaFunc is called once per received text fragment, in request order.
type DeltaFunc func(delta string)

// Stream opens a streaming completion request and calls fn for each UTF-8
// text fragment until the stream closes. No fragment is dropped and none
// are reordered; consumption is pull-based so backpressure is bounded by
// the caller's read rate.
//
// Returns nil on normal end of stream, the context error on cancellation,
// ErrAuthExpired on 401, ErrPayloadTooLarge on 413, and a generic
// ClientError otherwise. The client never retries.
func (c *Client) Stream(ctx context.Context, req ChatRequest, fn DeltaFunc) error {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	// No client timeout for streaming; the caller's context governs the
	// request lifetime.
	streamClient := &http.Client{}

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ClientError{Type: ErrTypeConnection, Message: "completion request failed", Cause: err}
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	reader := NewStreamReader(resp.Body)
	for {
		chunk, err := reader.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}
		if chunk != "" {
			fn(chunk)
		}
	}
}

// statusError maps a non-2xx response to the error taxonomy.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	}

	// Try to surface the server's error message.
	var apiErr apiError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Status: resp.StatusCode, Message: apiErr.Error}
	}
	return &ClientError{
		Type:    ErrTypeInvalidResponse,
		Status:  resp.StatusCode,
		Message: "completion request failed: " + resp.Status,
	}
}
