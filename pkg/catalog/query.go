package catalog

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AllArchitectures matches every product in SupportedVersions.
const AllArchitectures = "*"

// SupportedVersions returns the pubnames of every version of every product
// built for arch, in catalog order. Names are not de-duplicated.
func (c *Catalog) SupportedVersions(arch string) ([]string, error) {
	err := c.checkReady()
	if err != nil {
		return nil, err
	}

	versions := []string{}

	for _, prod := range c.products {
		if arch != AllArchitectures && prod.Arch != arch {
			continue
		}

		for _, ver := range prod.Versions {
			versions = append(versions, ver.PubName)
		}
	}

	return versions, nil
}

// CurrentLTSRelease returns the title of the LTS release for arch with the
// latest end of support. When several share that date the first one in
// catalog order wins. It returns "" if arch has no LTS release.
func (c *Catalog) CurrentLTSRelease(arch string) (string, error) {
	err := c.checkReady()
	if err != nil {
		return "", err
	}

	var (
		title string
		best  int
	)

	for _, prod := range c.products {
		if prod.Arch != arch || !strings.Contains(prod.ReleaseTitle, "LTS") {
			continue
		}

		eol := comparableDate(prod.EndOfSupport)
		if eol > best {
			best = eol
			title = prod.ReleaseTitle
		}
	}

	return title, nil
}

// PackageFileInfo returns the info tagged infoTag for fileName in the
// version named versionName.
//
// Only the first product carrying versionName is searched. If that product
// lacks fileName the lookup fails even when a later product (another
// architecture publishing the same pubname) has it.
func (c *Catalog) PackageFileInfo(versionName, fileName, infoTag string) (string, error) {
	err := c.checkReady()
	if err != nil {
		return "", err
	}

	L := c.L()

	for _, prod := range c.products {
		ver, ok := prod.version(versionName)
		if !ok {
			continue
		}

		file, ok := ver.file(fileName)
		if !ok {
			L.Error("failed to find file info", "file", fileName, "version", versionName)
			return "", errors.Wrapf(ErrFileNotFound, "%s in %s", fileName, versionName)
		}

		if infoTag != InfoSHA256 {
			L.Warn("querying of file info is not supported", "tag", infoTag)
			return "", errors.Wrapf(ErrUnsupportedInfoTag, "%q", infoTag)
		}

		return file.Checksums[InfoSHA256], nil
	}

	L.Error("failed to find version info", "version", versionName)

	return "", errors.Wrapf(ErrVersionNotFound, "%s", versionName)
}

func (p *ProductEntry) version(name string) (*VersionEntry, bool) {
	for i := range p.Versions {
		if p.Versions[i].PubName == name {
			return &p.Versions[i], true
		}
	}

	return nil, false
}

func (v *VersionEntry) file(fileType string) (*FileEntry, bool) {
	for i := range v.Files {
		if v.Files[i].FileType == fileType {
			return &v.Files[i], true
		}
	}

	return nil, false
}

// comparableDate turns YYYY-MM-DD into the integer YYYYMMDD. Dates are
// checked when the catalog is loaded.
func comparableDate(date string) int {
	if len(date) < 10 {
		return 0
	}

	n, err := strconv.Atoi(date[0:4] + date[5:7] + date[8:10])
	if err != nil {
		return 0
	}

	return n
}
