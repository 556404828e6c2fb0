package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:   "editorialbot",
	Short: "Answer questions from a corpus of newspaper editorials",
	Long: `Washington Post Editorial Board AI Bot

Shortlists the editorials that share the most words with a question, asks a
language model to answer from them and links the cited sources.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger installs a JSON slog logger writing to w, teeing to a rotated
// file when file is set.
func setupLogger(w io.Writer, level, file string) (*slog.Logger, io.Closer) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	out := w
	var closer io.Closer = io.NopCloser(nil)
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		}
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 30,
			MaxAge:     7,
			Compress:   true,
		}
		out = io.MultiWriter(w, rotated)
		closer = rotated
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger, closer
}
