package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/knoguchi/editorialbot/internal/auth"
	"github.com/knoguchi/editorialbot/internal/config"
	"github.com/knoguchi/editorialbot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const corpusJSON = `[
	{"title": "Economy grows", "full_text": "The economy grew 3% this quarter", "url": "http://x/1"},
	{"title": "Weather", "full_text": "Storm approaching coast", "url": "http://x/2"},
	{"title": "Budget talks", "full_text": "Congress debates the economy and the budget", "url": "http://x/3"}
]`

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "editorials.json")
	require.NoError(t, os.WriteFile(path, []byte(corpusJSON), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetErr(nil); rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewApp_RetrieveOnly(t *testing.T) {
	t.Setenv("CORPUS_PATH", writeCorpus(t))
	cfg, err := config.Load()
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.qa.Retrieve(context.Background(), service.RetrieveRequest{Question: "the economy budget", TopK: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Budget talks", got[0].Title)
	assert.Equal(t, "Economy grows", got[1].Title)
}

func TestNewApp_AnthropicNeedsKey(t *testing.T) {
	t.Setenv("CORPUS_PATH", writeCorpus(t))
	cfg, err := config.Load()
	require.NoError(t, err)

	_, err = newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), true)
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestRetrieveCommand_JSON(t *testing.T) {
	t.Setenv("CORPUS_PATH", writeCorpus(t))

	out, err := execute(t, "retrieve", "--json", "--top-k", "1", "storm", "coast")
	require.NoError(t, err)
	assert.Equal(t, "Weather", gjson.Get(out, "0.title").String())
	assert.Equal(t, int64(2), gjson.Get(out, "0.overlap").Int())
	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	out, err := execute(t, "token", "--reader", "alice")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "expires "))

	claims, err := auth.NewJWTManager(auth.DefaultJWTConfig("s3cret")).ValidateToken(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Reader)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token", "--reader", "alice")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestSetupLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	var stdout bytes.Buffer

	logger, closer := setupLogger(&stdout, "debug", path)
	logger.Debug("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", gjson.GetBytes(data, "msg").String())
	assert.Equal(t, "hello", gjson.Get(stdout.String(), "msg").String())
}
