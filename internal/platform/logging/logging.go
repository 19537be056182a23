package logging

import (
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// New builds the root host logger. go-plugin forwards plugin stderr into
// loggers derived from it, so plugin output and host output share one stream.
func New(level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}
	parsed := hclog.LevelFromString(level)
	if parsed == hclog.NoLevel {
		parsed = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "trackhost",
		Level:  parsed,
		Output: output,
	})
}

// Discard returns a logger that drops everything.
func Discard() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel})
}
