// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// secretsDir writes files (name to contents) into a fresh directory. A
// name ending in "/" becomes a subdirectory.
func secretsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if name[len(name)-1] == '/' {
			require.NoError(t, os.Mkdir(path, 0o755))
			continue
		}
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Secrets
	}{
		{
			name: "model keys trimmed",
			files: map[string]string{
				AnthropicAPIKey: "  sk-ant-abc123  \n",
				OpenAIAPIKey:    "sk-xyz789",
				OpenAIBaseURL:   "http://localhost:11434/v1\n",
			},
			want: Secrets{
				AnthropicAPIKey: "sk-ant-abc123",
				OpenAIAPIKey:    "sk-xyz789",
				OpenAIBaseURL:   "http://localhost:11434/v1",
			},
		},
		{
			name:  "blank files dropped",
			files: map[string]string{OpenAIAPIKey: "", AnthropicAPIKey: " \n\t", "arxiv-contact": "me@example.org"},
			want:  Secrets{"arxiv-contact": "me@example.org"},
		},
		{
			name:  "dotfiles and directories ignored",
			files: map[string]string{".gitkeep": "", ".old-key": "stale", "archive/": "", AnthropicAPIKey: "ak"},
			want:  Secrets{AnthropicAPIKey: "ak"},
		},
		{
			name: "empty directory",
			want: Secrets{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(secretsDir(t, tt.files), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), ".secrets"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadPathIsFile(t *testing.T) {
	dir := secretsDir(t, map[string]string{"not-a-dir": "x"})
	_, err := Load(filepath.Join(dir, "not-a-dir"), nil)
	assert.ErrorContains(t, err, "reading secrets directory")
}

func TestLoadSkipsUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read mode 0 files")
	}
	dir := secretsDir(t, map[string]string{OpenAIAPIKey: "sk-ok"})
	locked := filepath.Join(dir, AnthropicAPIKey)
	require.NoError(t, os.WriteFile(locked, []byte("sk-locked"), 0o000))

	core, logs := observer.New(zap.WarnLevel)
	got, err := Load(dir, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, Secrets{OpenAIAPIKey: "sk-ok"}, got)

	warned := logs.FilterMessage("could not read secret").All()
	require.Len(t, warned, 1)
	assert.Equal(t, AnthropicAPIKey, warned[0].ContextMap()["name"])
}

func TestModelAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", " http://gpu-box:8000/v1 ")

	s := Secrets{OpenAIAPIKey: "file-openai"}
	assert.Equal(t, "env-ant", s.ModelAPIKey("anthropic"))
	assert.Equal(t, "env-ant", s.ModelAPIKey(""))
	assert.Equal(t, "file-openai", s.ModelAPIKey(" OpenAI "))
	assert.Equal(t, "file-openai", s.ModelAPIKey("openai-compatible"))
	assert.Equal(t, "", Secrets{}.ModelAPIKey("openai"))

	assert.Equal(t, "http://gpu-box:8000/v1", s.Get(OpenAIBaseURL))
	assert.Equal(t, "", s.Get("arxiv-contact"))
}
