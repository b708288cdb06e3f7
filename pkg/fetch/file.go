package fetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"lab47.dev/relinfo/pkg/logging"
	"lab47.dev/relinfo/pkg/progress"
)

// File is a Transport over the local filesystem. host is joined to path as
// a directory, so File can replay an index saved by fetch-index.
type File struct {
	logging.Common

	ChunkSize int
}

var _ Transport = (*File)(nil)

func (f *File) Fetch(ctx context.Context, host, path string, onChunk ChunkFunc) error {
	full := filepath.Join(host, path)

	fh, err := os.Open(full)
	if err != nil {
		return errors.Wrapf(ErrTransport, "open %s: %s", full, err)
	}

	size := f.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	s := &Stream{
		name: full,
		body: &ctxReader{ctx: ctx, f: fh},
		buf:  make([]byte, size),
		bar:  &progress.Progress{},
	}

	defer s.Close()

	err = s.Each(onChunk)
	if err != nil {
		return err
	}

	f.L().Debug("file read", "path", full, "size", s.Size())

	return nil
}

type ctxReader struct {
	ctx context.Context
	f   *os.File
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.f.Read(p)
}

func (r *ctxReader) Close() error {
	return r.f.Close()
}
