// Package logging adapts zerolog to the key/value Logger interfaces used by
// the background services.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. pretty selects the console writer.
func New(level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// KV logs messages with alternating key/value fields.
type KV struct {
	logger zerolog.Logger
}

// NewKV wraps logger, tagging every line with component.
func NewKV(logger zerolog.Logger, component string) *KV {
	return &KV{logger: logger.With().Str("component", component).Logger()}
}

func (l *KV) Info(msg string, fields ...interface{})  { l.write(l.logger.Info(), msg, fields) }
func (l *KV) Error(msg string, fields ...interface{}) { l.write(l.logger.Error(), msg, fields) }
func (l *KV) Debug(msg string, fields ...interface{}) { l.write(l.logger.Debug(), msg, fields) }

func (l *KV) write(e *zerolog.Event, msg string, fields []interface{}) {
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		if i+1 >= len(fields) {
			e = e.Str(key, "(missing)")
			break
		}
		switch v := fields[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
