package catalog

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/relinfo/pkg/jsondoc"
)

// BuildError describes the first structural problem found in a supported
// product. Path is a dotted key path into the document.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid release index: %s", e.Err)
	}

	return fmt.Sprintf("invalid release index at %s: %s", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}

// Build returns a ready catalog made from doc.
func Build(doc *jsondoc.Value) (*Catalog, error) {
	c := New(hclog.L())

	err := c.Load(doc)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Load fills the catalog from a parsed release index. Only products marked
// supported are kept. Any structural problem in a supported product fails
// the whole load and leaves the catalog not ready. Load may only be called
// once per catalog, whether or not it succeeds.
func (c *Catalog) Load(doc *jsondoc.Value) error {
	if !atomic.CompareAndSwapInt32(&c.loaded, 0, 1) {
		return ErrAlreadyLoaded
	}

	products, err := buildProducts(doc)
	if err != nil {
		c.L().Error("unable to populate supported releases", "error", err)
		return err
	}

	c.publish(products)

	c.L().Debug("populated supported releases", "products", len(products))

	return nil
}

type walker struct {
	path []string
}

func (w *walker) push(key string) {
	w.path = append(w.path, key)
}

func (w *walker) pop() {
	w.path = w.path[:len(w.path)-1]
}

func (w *walker) fail(err error) error {
	return &BuildError{Path: strings.Join(w.path, "."), Err: err}
}

func (w *walker) object(v *jsondoc.Value, key string) ([]jsondoc.Member, error) {
	fv, err := v.Field(key)
	if err != nil {
		return nil, w.fail(errors.Wrapf(err, "field %s", key))
	}

	members, err := fv.AsObject()
	if err != nil {
		return nil, w.fail(errors.Wrapf(err, "field %s", key))
	}

	return members, nil
}

func (w *walker) str(v *jsondoc.Value, key string) (string, error) {
	fv, err := v.Field(key)
	if err != nil {
		return "", w.fail(errors.Wrapf(err, "field %s", key))
	}

	s, err := fv.AsString()
	if err != nil {
		return "", w.fail(errors.Wrapf(err, "field %s", key))
	}

	return s, nil
}

func (w *walker) boolean(v *jsondoc.Value, key string) (bool, error) {
	fv, err := v.Field(key)
	if err != nil {
		return false, w.fail(errors.Wrapf(err, "field %s", key))
	}

	b, err := fv.AsBool()
	if err != nil {
		return false, w.fail(errors.Wrapf(err, "field %s", key))
	}

	return b, nil
}

func buildProducts(doc *jsondoc.Value) ([]ProductEntry, error) {
	var w walker

	if doc.Kind() != jsondoc.Object {
		return nil, w.fail(errors.Errorf("document is a %s, not an object", doc.Kind()))
	}

	members, err := w.object(doc, "products")
	if err != nil {
		return nil, err
	}

	w.push("products")

	products := []ProductEntry{}

	for _, m := range members {
		w.push(m.Key)

		prod, ok, err := w.product(m.Value)
		if err != nil {
			return nil, err
		}

		if ok {
			products = append(products, prod)
		}

		w.pop()
	}

	return products, nil
}

func (w *walker) product(v *jsondoc.Value) (ProductEntry, bool, error) {
	var prod ProductEntry

	supported, err := w.boolean(v, "supported")
	if err != nil || !supported {
		return prod, false, err
	}

	prod.Arch, err = w.str(v, "arch")
	if err != nil {
		return prod, false, err
	}

	prod.ReleaseTitle, err = w.str(v, "release_title")
	if err != nil {
		return prod, false, err
	}

	prod.EndOfSupport, err = w.str(v, "support_eol")
	if err != nil {
		return prod, false, err
	}

	if !validDate(prod.EndOfSupport) {
		return prod, false, w.fail(errors.Errorf("support_eol %q is not YYYY-MM-DD", prod.EndOfSupport))
	}

	versions, err := w.object(v, "versions")
	if err != nil {
		return prod, false, err
	}

	w.push("versions")
	defer w.pop()

	for _, vm := range versions {
		w.push(vm.Key)

		ver, err := w.version(vm.Value)
		if err != nil {
			return prod, false, err
		}

		prod.Versions = append(prod.Versions, ver)

		w.pop()
	}

	return prod, true, nil
}

func (w *walker) version(v *jsondoc.Value) (VersionEntry, error) {
	var (
		ver VersionEntry
		err error
	)

	ver.PubName, err = w.str(v, "pubname")
	if err != nil {
		return ver, err
	}

	items, err := w.object(v, "items")
	if err != nil {
		return ver, err
	}

	w.push("items")
	defer w.pop()

	for _, im := range items {
		w.push(im.Key)

		ftype, err := w.str(im.Value, "ftype")
		if err != nil {
			return ver, err
		}

		sum, err := w.str(im.Value, InfoSHA256)
		if err != nil {
			return ver, err
		}

		ver.Files = append(ver.Files, FileEntry{
			FileType:  ftype,
			Checksums: map[string]string{InfoSHA256: sum},
		})

		w.pop()
	}

	return ver, nil
}

// validDate checks for a zero padded YYYY-MM-DD string.
func validDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}

	for i := 0; i < len(s); i++ {
		if i == 4 || i == 7 {
			continue
		}

		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
