package catalog

import (
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/relinfo/pkg/logging"
)

var (
	ErrBuild              = errors.New("release catalog has an invalid structure")
	ErrAlreadyLoaded      = errors.New("release catalog already loaded")
	ErrNotInitialized     = errors.New("release catalog not initialized")
	ErrVersionNotFound    = errors.New("version not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrUnsupportedInfoTag = errors.New("unsupported file info tag")
)

// InfoSHA256 is the only file info tag a catalog can answer.
const InfoSHA256 = "sha256"

type FileEntry struct {
	FileType  string
	Checksums map[string]string
}

type VersionEntry struct {
	PubName string
	Files   []FileEntry
}

// ProductEntry is one supported architecture/release combination.
type ProductEntry struct {
	Arch         string
	ReleaseTitle string
	EndOfSupport string
	Versions     []VersionEntry
}

// Catalog holds the supported products of a release index. It is loaded
// once and never modified afterwards, so once Ready reports true the query
// methods may be called from any number of goroutines.
type Catalog struct {
	logging.Common

	products []ProductEntry

	// loaded guards the single Load; ready publishes products to readers.
	loaded int32
	ready  int32
}

// New returns an empty catalog. A nil logger means the hclog default.
func New(logger hclog.Logger) *Catalog {
	if logger == nil {
		logger = hclog.L()
	}

	c := &Catalog{}
	c.SetLogger(logger)
	return c
}

func (c *Catalog) Ready() bool {
	return atomic.LoadInt32(&c.ready) == 1
}

// Products returns a copy of the product list, or nil if the catalog is not
// ready.
func (c *Catalog) Products() []ProductEntry {
	if !c.Ready() {
		return nil
	}

	out := make([]ProductEntry, len(c.products))
	for i, p := range c.products {
		out[i] = p.clone()
	}

	return out
}

func (p ProductEntry) clone() ProductEntry {
	versions := make([]VersionEntry, len(p.Versions))

	for i, v := range p.Versions {
		files := make([]FileEntry, len(v.Files))

		for j, f := range v.Files {
			sums := make(map[string]string, len(f.Checksums))
			for k, s := range f.Checksums {
				sums[k] = s
			}

			files[j] = FileEntry{FileType: f.FileType, Checksums: sums}
		}

		versions[i] = VersionEntry{PubName: v.PubName, Files: files}
	}

	p.Versions = versions

	return p
}

func (c *Catalog) publish(products []ProductEntry) {
	c.products = products
	atomic.StoreInt32(&c.ready, 1)
}

func (c *Catalog) checkReady() error {
	if !c.Ready() {
		c.L().Error("release info not initialized")
		return ErrNotInitialized
	}

	return nil
}
