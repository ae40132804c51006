// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads model credentials from a directory of plain-text
// files. Each file is one secret: the filename is the key name and the
// trimmed contents are the value.
//
// Recognised key files: anthropic-api-key, openai-api-key, openai-base-url.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Key file names.
const (
	AnthropicAPIKey = "anthropic-api-key"
	OpenAIAPIKey    = "openai-api-key"
	OpenAIBaseURL   = "openai-base-url"
)

// envFallback maps key files to environment variables consulted when the
// file is absent.
var envFallback = map[string]string{
	AnthropicAPIKey: "ANTHROPIC_API_KEY",
	OpenAIAPIKey:    "OPENAI_API_KEY",
	OpenAIBaseURL:   "OPENAI_BASE_URL",
}

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty map. Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (Secrets, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Get returns the named secret, falling back to its environment variable.
func (s Secrets) Get(name string) string {
	if v := s[name]; v != "" {
		return v
	}
	if env, ok := envFallback[name]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// ModelAPIKey returns the API key for an LLM provider name.
func (s Secrets) ModelAPIKey(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai", "openai-compatible":
		return s.Get(OpenAIAPIKey)
	default:
		return s.Get(AnthropicAPIKey)
	}
}
