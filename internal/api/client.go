// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api consumes the assistant backend's REST endpoints: the model
// capability list and the user profile. Both are collaborators fetched
// independently of the streaming core; failures degrade to configured
// defaults.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// Profile is the user profile returned by the backend.
type Profile struct {
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	DefaultModel string `json:"default_model,omitempty"`
}

// Client fetches model and profile data from the backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a REST client for the given backend.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ListModels retrieves the model capability list.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelCapability, error) {
	var result struct {
		Models []model.ModelCapability `json:"models"`
	}
	if err := c.get(ctx, "/v1/models", &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// GetProfile retrieves the user profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.get(ctx, "/v1/profile", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
