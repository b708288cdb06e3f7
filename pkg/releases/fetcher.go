package releases

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"lab47.dev/relinfo/pkg/catalog"
	"lab47.dev/relinfo/pkg/fetch"
	"lab47.dev/relinfo/pkg/jsondoc"
	"lab47.dev/relinfo/pkg/logging"
)

// ReleaseFetcher answers questions about the releases in an index.
type ReleaseFetcher interface {
	SupportedVersions(arch string) ([]string, error)
	CurrentLTSRelease(arch string) (string, error)
	PackageFileInfo(versionName, fileName, infoTag string) (string, error)
}

// Fetcher streams a release index from a Transport into a catalog. Until
// Load succeeds every query fails with catalog.ErrNotInitialized.
type Fetcher struct {
	logging.Common

	host      string
	path      string
	transport fetch.Transport

	catalog *catalog.Catalog
}

var _ ReleaseFetcher = (*Fetcher)(nil)

func NewFetcher(host, path string, transport fetch.Transport) *Fetcher {
	return &Fetcher{
		host:      host,
		path:      path,
		transport: transport,
	}
}

func (f *Fetcher) cat() *catalog.Catalog {
	if f.catalog == nil {
		f.catalog = catalog.New(f.L())
	}

	return f.catalog
}

// Catalog exposes the underlying catalog, eg. for dumping.
func (f *Fetcher) Catalog() *catalog.Catalog {
	return f.cat()
}

// Load downloads and parses the index. It may only succeed once; a failed
// Load leaves the Fetcher permanently uninitialized.
func (f *Fetcher) Load(ctx context.Context) error {
	L := f.L()
	cat := f.cat()

	L.Info("fetching release info", "source", f.host+f.path)

	start := time.Now()

	var asm jsondoc.Assembler

	err := asm.Begin()
	if err != nil {
		L.Error("unable to start parser", "error", err)
		return err
	}

	err = f.transport.Fetch(ctx, f.host, f.path, asm.Feed)
	if err != nil {
		if errors.Is(err, fetch.ErrAborted) && asm.Err() != nil {
			err = asm.Err()
		}

		asm.Discard()

		L.Error("failed to download release info", "error", err)
		return err
	}

	doc, err := asm.End()
	if err != nil {
		L.Error("failed to parse release info", "error", err)
		return err
	}

	err = cat.Load(doc)
	if err != nil {
		L.Error("failed to load release info", "error", err)
		return err
	}

	L.Info("release info downloaded", "duration", time.Since(start).Round(time.Millisecond))

	return nil
}

func (f *Fetcher) SupportedVersions(arch string) ([]string, error) {
	return f.cat().SupportedVersions(arch)
}

func (f *Fetcher) CurrentLTSRelease(arch string) (string, error) {
	return f.cat().CurrentLTSRelease(arch)
}

func (f *Fetcher) PackageFileInfo(versionName, fileName, infoTag string) (string, error) {
	return f.cat().PackageFileInfo(versionName, fileName, infoTag)
}
