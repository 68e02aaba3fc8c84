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
	"strings"

	"github.com/poiesic/recall/core"
)

// Config holds configuration for the embedding service.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// Dimensions is the expected embedding width. Every vector in the corpus
	// must have this dimensionality; vectors that disagree are skipped at
	// query time. Default: 1024.
	Dimensions int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithDimensions sets the expected embedding dimensionality.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible embedding service.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
		Dimensions:     core.DefaultDimensions,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434/v1"),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks the Config for usability.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.EmbeddingHost) == "" {
		return ErrEmptyHost
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return ErrEmptyModel
	}
	if c.Dimensions <= 0 {
		return ErrInvalidDimensions
	}
	return nil
}
