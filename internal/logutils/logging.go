// Package logutils configures the structured loggers used by the connection.
package logutils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel is the environment variable read by NewLogger.
const EnvLogLevel = "QUICCONN_LOG_LEVEL"

// LogLevelNone is a log level that disables all logging.
const LogLevelNone slog.Level = slog.LevelError + 1

// ComponentKey is the slog attribute key used to identify the component.
const ComponentKey = "component"

// Component names used across the module.
const (
	ComponentConnection    = "connection"
	ComponentPathValidator = "pathvalidator"
	ComponentIngress       = "ingress"
	ComponentEgress        = "egress"
	ComponentHandshake     = "handshake"
	ComponentRecovery      = "recovery"
	ComponentTransport     = "transport"
)

type logLevels struct {
	Level      slog.Level            // top-level log level
	Components map[string]slog.Level // nil if no component-specific levels
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "none":
		return LogLevelNone, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
}

// parseLogConfig parses the value of QUICCONN_LOG_LEVEL.
//
// Valid formats:
//   - "info"                                  - top-level only
//   - "debug,pathvalidator=info"              - top-level + component
//   - "pathvalidator=debug,transport=error"   - components only (no top-level)
func parseLogConfig(config string) (logLevels, error) {
	levels := logLevels{Level: LogLevelNone}
	for part := range strings.SplitSeq(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		component, levelStr, found := strings.Cut(part, "=")
		if !found {
			level, err := parseLogLevel(part)
			if err != nil {
				return logLevels{}, err
			}
			levels.Level = level
			continue
		}
		component = strings.TrimSpace(component)
		level, err := parseLogLevel(strings.TrimSpace(levelStr))
		if err != nil {
			return logLevels{}, fmt.Errorf("component %s: %w", component, err)
		}
		if levels.Components == nil {
			levels.Components = make(map[string]slog.Level)
		}
		levels.Components[component] = level
	}
	return levels, nil
}

type levelFilterHandler struct {
	Component string // empty for top-level

	slog.Handler
	Levels logLevels
}

var _ slog.Handler = &levelFilterHandler{}

func (h *levelFilterHandler) Enabled(_ context.Context, level slog.Level) bool {
	if minLevel, ok := h.Levels.Components[h.Component]; ok {
		return level >= minLevel
	}
	return level >= h.Levels.Level
}

func (h *levelFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.Component
	for _, attr := range attrs {
		if attr.Key == ComponentKey {
			component = attr.Value.String()
			break
		}
	}
	return &levelFilterHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		Levels:    h.Levels,
		Component: component,
	}
}

func (h *levelFilterHandler) WithGroup(name string) slog.Handler {
	return &levelFilterHandler{
		Handler:   h.Handler.WithGroup(name),
		Levels:    h.Levels,
		Component: h.Component,
	}
}

// msgLastHandler moves the message behind the attributes,
// so that lines of one component line up.
type msgLastHandler struct {
	slog.Handler
}

func (h *msgLastHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String(slog.MessageKey, r.Message))
	r.Message = ""
	return h.Handler.Handle(ctx, r)
}

func (h *msgLastHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &msgLastHandler{h.Handler.WithAttrs(attrs)}
}

func (h *msgLastHandler) WithGroup(name string) slog.Handler {
	return &msgLastHandler{h.Handler.WithGroup(name)}
}

func newHandler(w io.Writer, levels logLevels) slog.Handler {
	return &msgLastHandler{
		Handler: &levelFilterHandler{
			Handler: slog.NewTextHandler(w, &slog.HandlerOptions{
				Level: slog.LevelDebug, // filtering is done by levelFilterHandler
				ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
					if len(groups) == 0 && a.Key == slog.MessageKey && a.Value.String() == "" {
						return slog.Attr{}
					}
					return a
				},
			}),
			Levels: levels,
		},
	}
}

// NewLogger creates a text logger writing to w,
// filtered according to the QUICCONN_LOG_LEVEL environment variable.
func NewLogger(w io.Writer) (*slog.Logger, error) {
	levels, err := parseLogConfig(os.Getenv(EnvLogLevel))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", EnvLogLevel, err)
	}
	return slog.New(newHandler(w, levels)), nil
}

// DefaultLogger returns a logger writing to stderr.
// An invalid QUICCONN_LOG_LEVEL disables logging.
func DefaultLogger() *slog.Logger {
	logger, err := NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return Discard()
	}
	return logger
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Component derives the logger of a named component.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With(ComponentKey, name)
}
