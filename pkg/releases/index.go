package releases

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-getter"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/relinfo/pkg/fetch"
	"lab47.dev/relinfo/pkg/logging"
	"lab47.dev/relinfo/pkg/sumfile"
)

const (
	IndexFile = "index.json"
	SumsFile  = "SUMS"
)

var (
	ErrNoChecksum       = errors.New("no recorded checksum")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// IndexDir holds a downloaded copy of the release index and a sumfile
// recording its digest.
type IndexDir struct {
	logging.Common

	Path string
}

// Download fetches url into the directory and records its sha256. It
// returns the path of the saved index.
func (d *IndexDir) Download(ctx context.Context, url string) (string, error) {
	err := os.MkdirAll(d.Path, 0755)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(d.Path, IndexFile)

	d.L().Info("downloading release index", "url", url, "dest", dest)

	err = getter.GetFile(dest, url, getter.WithContext(ctx))
	if err != nil {
		return "", errors.Wrapf(fetch.ErrTransport, "downloading %s: %s", url, err)
	}

	sum, err := d.Record(IndexFile)
	if err != nil {
		return "", err
	}

	d.L().Info("release index saved", "path", dest, "digest", sum)

	return dest, nil
}

// Record stores the current sha256 of name in the sumfile.
func (d *IndexDir) Record(name string) (string, error) {
	h, err := hashFile(filepath.Join(d.Path, name))
	if err != nil {
		return "", err
	}

	sumsPath := filepath.Join(d.Path, SumsFile)

	sf, err := sumfile.ReadFile(sumsPath)
	if err != nil {
		return "", err
	}

	enc := sf.Add(name, "sha256", h)

	err = sf.WriteFile(sumsPath)
	if err != nil {
		return "", err
	}

	return enc, nil
}

// Verify checks name against the digest recorded by Record.
func (d *IndexDir) Verify(name string) error {
	sf, err := sumfile.ReadFile(filepath.Join(d.Path, SumsFile))
	if err != nil {
		return err
	}

	algo, want, ok := sf.Lookup(name)
	if !ok || algo != "sha256" {
		return errors.Wrapf(ErrNoChecksum, "%s", name)
	}

	got, err := hashFile(filepath.Join(d.Path, name))
	if err != nil {
		return err
	}

	if !bytes.Equal(want, got) {
		d.L().Error("release index does not match recorded checksum", "name", name)
		return errors.Wrapf(ErrChecksumMismatch, "%s", name)
	}

	return nil
}

// Fetcher returns a Fetcher reading name from the directory.
func (d *IndexDir) Fetcher(name string, chunkSize int) *Fetcher {
	t := &fetch.File{ChunkSize: chunkSize}
	t.SetLogger(d.L())

	f := NewFetcher(d.Path, name, t)
	f.SetLogger(d.L())

	return f
}

// LoadFile loads the index saved at path. When the directory holding it has
// a recorded checksum the file must match it; without one a warning is
// logged and the file is trusted.
func LoadFile(ctx context.Context, L hclog.Logger, path string, chunkSize int) (*Fetcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	d := &IndexDir{Path: filepath.Dir(abs)}
	d.SetLogger(L)

	name := filepath.Base(abs)

	err = d.Verify(name)
	switch {
	case err == nil:
		L.Debug("release index matches recorded checksum", "path", abs)
	case errors.Is(err, ErrNoChecksum):
		L.Warn("no recorded checksum for release index", "path", abs)
	default:
		return nil, err
	}

	f := d.Fetcher(name, chunkSize)

	err = f.Load(ctx)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	h := sha256.New()

	_, err = io.Copy(h, f)
	if err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}
