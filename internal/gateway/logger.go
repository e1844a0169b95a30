package gateway

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omarluq/dashcache/internal/config"
)

type ctxKey string

// RequestIDKey is the context key for request IDs.
const RequestIDKey ctxKey = "request_id"

// NewLogger creates a zerolog.Logger from LoggingConfig.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	output, outputFile, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, err
	}

	if shouldUsePretty(cfg, outputFile) {
		output = buildConsoleWriter(output)
	}

	return zerolog.New(output).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger(), nil
}

func selectOutput(outputCfg string) (io.Writer, *os.File, error) {
	switch outputCfg {
	case "", "stdout":
		return os.Stdout, os.Stdout, nil
	case "stderr":
		return os.Stderr, os.Stderr, nil
	default:
		f, err := os.OpenFile(filepath.Clean(outputCfg), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log output: %w", err)
		}
		return f, f, nil
	}
}

// shouldUsePretty decides on console output. Pretty always wins, json never
// is pretty, and anything else follows whether the output is a terminal.
func shouldUsePretty(cfg config.LoggingConfig, outputFile *os.File) bool {
	if cfg.Pretty || cfg.Format == "pretty" {
		return true
	}
	if cfg.Format == "json" {
		return false
	}
	return outputFile != nil && isatty.IsTerminal(outputFile.Fd())
}

func buildConsoleWriter(output io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: "15:04:05",
		FormatLevel: func(i any) string {
			level, ok := i.(string)
			if !ok {
				return ""
			}
			if colored, exists := levelColors[level]; exists {
				return colored
			}
			return level
		},
		FormatMessage: func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("-> %s", i)
		},
		FormatFieldName: func(i any) string {
			return fmt.Sprintf("\033[2m%s=\033[0m", i)
		},
	}
}

var levelColors = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
	"fatal": "\033[35mFTL\033[0m",
	"panic": "\033[35mPNC\033[0m",
}

// AddRequestID stores requestID, or a fresh UUID when empty, in ctx and in
// the context logger.
func AddRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	logger := log.Ctx(ctx).With().Str("request_id", requestID).Logger()
	return logger.WithContext(ctx)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
