package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/gofallback/pkg/types"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "fallbackctl", cmd.Use)
	assert.Contains(t, cmd.Long, "fallback")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"plan", "run", "batch"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("log-format")
	require.NotNil(t, format)
	assert.Equal(t, "console", format.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
}

const cliConfig = `
retry:
  waits: [0s]
primary:
  provider: openrouter
  base_url: %[1]s/primary
  credentials:
    - name: or-1
      env: CLI_TEST_OR_KEY
secondary:
  base_url: %[1]s/secondary
  credentials:
    - name: hf-1
      env: CLI_TEST_HF_TOKEN
      providers: [together, fireworks-ai]
targets:
  deepseek-ai/DeepSeek-R1: [fireworks-ai, together]
`

// newProvider fails every primary call with 503 and answers secondary calls
// by echoing the model name
func newProvider(t *testing.T) (*httptest.Server, *atomic.Int64) {
	var primaryCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/primary") {
			primaryCalls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]string{
					"role":    "assistant",
					"content": body.Messages[0].Content + " via " + body.Model,
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &primaryCalls
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Setenv("CLI_TEST_OR_KEY", "sk-or")
	t.Setenv("CLI_TEST_HF_TOKEN", "hf")

	path := filepath.Join(t.TempDir(), "fallback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(cliConfig, baseURL)), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPlanCommand(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:0")

	out, _, err := execute(t, "plan", "--config", path, "deepseek-ai/DeepSeek-R1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "3 node(s)")
	assert.Regexp(t, `0\s+openrouter\s+or-1\s+primary`, lines[1])
	assert.Regexp(t, `1\s+fireworks-ai\s+hf-1\s+secondary`, lines[2])
	assert.Regexp(t, `2\s+together\s+hf-1\s+secondary`, lines[3])
}

func TestPlanCommand_UnknownTarget(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:0")

	_, _, err := execute(t, "plan", "--config", path, "nope")
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))
}

func TestRunCommand_FallsBack(t *testing.T) {
	srv, primaryCalls := newProvider(t)
	path := writeConfig(t, srv.URL)

	out, errOut, err := execute(t, "run", "--config", path, "deepseek-ai/DeepSeek-R1", "hello", "there")
	require.NoError(t, err)

	assert.Equal(t, "hello there via deepseek-ai/DeepSeek-R1:fireworks-ai\n", out)
	assert.Contains(t, errOut, "fireworks-ai/hf-1")
	assert.Contains(t, errOut, "2 node(s), 3 attempt(s)")
	assert.Equal(t, int64(2), primaryCalls.Load())
}

func TestBatchCommand(t *testing.T) {
	srv, _ := newProvider(t)
	path := writeConfig(t, srv.URL)

	out, _, err := execute(t, "batch", "--config", path, "deepseek-ai/DeepSeek-R1", "a", "b", "c")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, prompt := range []string{"a", "b", "c"} {
		assert.True(t, strings.HasPrefix(lines[i], fmt.Sprintf("[%d] %s via", i, prompt)), lines[i])
	}
}

func TestInvalidLogFormat(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:0")

	_, _, err := execute(t, "plan", "--config", path, "--log-format", "xml", "deepseek-ai/DeepSeek-R1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestMissingConfig(t *testing.T) {
	_, _, err := execute(t, "plan", "--config", filepath.Join(t.TempDir(), "none.yaml"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
