// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// MODEL CAPABILITY TYPE
// =============================================================================

// Model status values reported by the model-list endpoint.
const (
	StatusReady       = "ready"
	StatusUnavailable = "unavailable"
)

// ModelCapability describes one entry of the fetched model list: what the
// model accepts as input and produces as output, and whether it is
// currently serving.
type ModelCapability struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Input  []string `json:"input"`
	Output []string `json:"output"`
	Status string   `json:"status"`
}

// Ready reports whether the model is currently selectable.
func (m ModelCapability) Ready() bool {
	return m.Status == "" || m.Status == StatusReady
}

// AcceptsInput reports whether the model declares the given input token
// ("text", "image", "audio", "video", "file").
func (m ModelCapability) AcceptsInput(token string) bool {
	for _, in := range m.Input {
		if strings.EqualFold(in, token) {
			return true
		}
	}
	return false
}

// AcceptsAttachment reports whether the model can consume attachments of
// the given kind.
func (m ModelCapability) AcceptsAttachment(kind AttachmentKind) bool {
	return m.AcceptsInput(kind.InputToken())
}

// =============================================================================
// MODEL LIST RESOLUTION
// =============================================================================

// FindModel looks up a model by ID in the capability list.
func FindModel(list []ModelCapability, id string) (ModelCapability, bool) {
	for _, m := range list {
		if m.ID == id {
			return m, true
		}
	}
	return ModelCapability{}, false
}

// ResolveModel validates selected against the fetched model list. The
// selected model wins when it is a member of the list; otherwise the
// configured fallback; otherwise the first ready model; otherwise the first
// model at all. With an empty list the selection is left alone so a later
// fetch can re-validate.
func ResolveModel(selected, fallback string, list []ModelCapability) string {
	if len(list) == 0 {
		if selected != "" {
			return selected
		}
		return fallback
	}
	if _, ok := FindModel(list, selected); ok {
		return selected
	}
	if _, ok := FindModel(list, fallback); ok {
		return fallback
	}
	for _, m := range list {
		if m.Ready() {
			return m.ID
		}
	}
	return list[0].ID
}
