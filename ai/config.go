// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// CompletionHost is the base URL for the completion service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible
	// server.
	CompletionHost string

	// EmbeddingHost is the base URL for the embedding service API. May be
	// empty; the embedding capability is then unavailable and the pipeline
	// degrades accordingly.
	EmbeddingHost string

	// CompletionModel is the model identifier for pipeline completions.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	CompletionModel string

	// EmbeddingModel is the model identifier for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// Token is the API token. Local OpenAI-compatible services usually
	// accept any value; defaults to "none".
	Token string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithCompletionHost sets the completion service host URL.
func WithCompletionHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithHost sets both completion and embedding hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
		c.EmbeddingHost = host
	}
}

// WithCompletionModel sets the completion model identifier.
func WithCompletionModel(model string) ConfigOption {
	return func(c *Config) {
		c.CompletionModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithToken sets the API token.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithoutEmbedding clears the embedding configuration, leaving only the
// completion capability.
func WithoutEmbedding() ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = ""
		c.EmbeddingModel = ""
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		CompletionHost:  defaultHost,
		EmbeddingHost:   defaultHost,
		CompletionModel: "qwen2.5:3b",
		EmbeddingModel:  "embeddinggemma",
		Token:           "none",
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form: hosts get the
// /v1 suffix most OpenAI-compatible APIs require.
func (c *Config) Normalize() {
	c.CompletionHost = normalizeHost(c.CompletionHost)
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	if c.Token == "" {
		c.Token = "none"
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// EmbeddingConfigured reports whether the config carries enough to build
// an embedder.
func (c *Config) EmbeddingConfigured() bool {
	return c.EmbeddingHost != "" && c.EmbeddingModel != ""
}

// Validate checks that the configuration is valid and complete. The
// embedding fields are optional but must be set together. Normalizes
// before validating.
func (c *Config) Validate() error {
	c.Normalize()

	if c.CompletionHost == "" {
		return errors.New("ai config: CompletionHost is required")
	}
	if c.CompletionModel == "" {
		return errors.New("ai config: CompletionModel is required")
	}
	if (c.EmbeddingHost == "") != (c.EmbeddingModel == "") {
		return errors.New("ai config: EmbeddingHost and EmbeddingModel must be set together")
	}
	return nil
}
