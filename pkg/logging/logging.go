package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

const DefaultFileName = "relinfo.log"

// DefaultPath is the log file used when none is configured.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFileName)
}

type Options struct {
	Name  string
	Level hclog.Level

	// Path is truncated on open. Empty means no log file.
	Path string

	// Console, when set, also receives every log line.
	Console io.Writer
}

// Logger is an hclog logger writing to a file and optionally echoing to a
// console sink. Close releases the file.
type Logger struct {
	hclog.InterceptLogger

	file *os.File
}

func New(opts Options) (*Logger, error) {
	var (
		out  io.Writer = io.Discard
		file *os.File
	)

	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "opening log file")
		}

		file = f
		out = f
	}

	L := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:   opts.Name,
		Level:  opts.Level,
		Output: out,
	})

	if opts.Console != nil {
		L.RegisterSink(hclog.NewSinkAdapter(&hclog.LoggerOptions{
			Name:   opts.Name,
			Level:  opts.Level,
			Output: opts.Console,
		}))
	}

	return &Logger{InterceptLogger: L, file: file}, nil
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}

	return l.file.Close()
}
