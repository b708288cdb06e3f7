package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/relinfo/pkg/cmd"
)

const index = `{"products": {
  "com.ubuntu.cloud:server:22.04:amd64": {
    "supported": true, "arch": "amd64", "release_title": "22.04 LTS", "support_eol": "2027-04-21",
    "versions": {"20240101": {"pubname": "jammy-20240101",
      "items": {"disk1.img": {"ftype": "disk1.img", "sha256": "aaa"}}}}
  },
  "com.ubuntu.cloud:server:24.04:amd64": {
    "supported": true, "arch": "amd64", "release_title": "24.04 LTS", "support_eol": "2029-05-31",
    "versions": {"20240423": {"pubname": "noble-20240423",
      "items": {"disk1.img": {"ftype": "disk1.img", "sha256": "bbb"}}}}
  }
}}`

func setup(t *testing.T) (string, *bytes.Buffer, *bytes.Buffer) {
	dir, err := ioutil.TempDir("", "relinfo")
	require.NoError(t, err)

	t.Cleanup(func() { os.RemoveAll(dir) })

	cfgPath := filepath.Join(dir, "config.json")
	cfg := `{
  // keep test logs out of the shared temp dir
  "log-path": "` + filepath.Join(dir, "relinfo.log") + `"
}`

	require.NoError(t, ioutil.WriteFile(cfgPath, []byte(cfg), 0644))

	old, set := os.LookupEnv("RELINFO_CONFIG")
	os.Setenv("RELINFO_CONFIG", cfgPath)

	t.Cleanup(func() {
		if set {
			os.Setenv("RELINFO_CONFIG", old)
		} else {
			os.Unsetenv("RELINFO_CONFIG")
		}
	})

	indexPath := filepath.Join(dir, "index.json")
	require.NoError(t, ioutil.WriteFile(indexPath, []byte(index), 0644))

	var out, errOut bytes.Buffer

	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut

	t.Cleanup(func() {
		stdout, stderr = oldOut, oldErr
	})

	return indexPath, &out, &errOut
}

func TestLegacyArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"query", "--versions", "--checksum", "x"},
		legacyArgs([]string{"--versions", "--checksum", "x"}),
	)

	assert.Equal(t, []string{"versions"}, legacyArgs([]string{"versions"}))
	assert.Equal(t, []string{"--help"}, legacyArgs([]string{"--help"}))
	assert.Equal(t, []string{"-v"}, legacyArgs([]string{"-v"}))
	assert.Empty(t, legacyArgs(nil))
}

func TestCommands(t *testing.T) {
	t.Run("versions", func(t *testing.T) {
		path, out, errOut := setup(t)

		c := cmd.New("versions", "", versionsF)
		c.Stderr = errOut

		require.Equal(t, 0, c.Run([]string{"--file", path}), errOut.String())
		assert.Equal(t, "jammy-20240101\nnoble-20240423\n", out.String())
	})

	t.Run("checksum", func(t *testing.T) {
		path, out, errOut := setup(t)

		c := cmd.New("checksum", "", checksumF)
		c.Stderr = errOut

		require.Equal(t, 0, c.Run([]string{"--file", path, "noble-20240423"}), errOut.String())
		assert.Equal(t, "bbb\n", out.String())

		assert.Equal(t, 1, c.Run([]string{"--file", path, "nope"}))
		assert.Contains(t, errOut.String(), "version not found")
	})

	t.Run("lts", func(t *testing.T) {
		path, out, errOut := setup(t)

		c := cmd.New("lts", "", ltsF)
		c.Stderr = errOut

		require.Equal(t, 0, c.Run([]string{"--file", path}), errOut.String())
		assert.Equal(t, "24.04 LTS\n", out.String())
	})

	t.Run("malformed index", func(t *testing.T) {
		path, _, errOut := setup(t)
		require.NoError(t, ioutil.WriteFile(path, []byte(`{"products": ]`), 0644))

		c := cmd.New("versions", "", versionsF)
		c.Stderr = errOut

		assert.Equal(t, 1, c.Run([]string{"--file", path}))
		assert.Contains(t, errOut.String(), "Error")
	})

	t.Run("query", func(t *testing.T) {
		path, out, errOut := setup(t)

		q := &queryCommand{}

		status := q.Run([]string{"--versions", "--checksum", "jammy-20240101", "--ltsrelease", "--file", path})
		require.Equal(t, 0, status, errOut.String())

		assert.Contains(t, out.String(), "  jammy-20240101\n")
		assert.Contains(t, out.String(), "  noble-20240423\n")
		assert.Contains(t, out.String(), "aaa")
		assert.Contains(t, out.String(), "24.04 LTS")
	})

	t.Run("query without operations prints help", func(t *testing.T) {
		_, out, errOut := setup(t)

		q := &queryCommand{}

		assert.Equal(t, 1, q.Run(nil))
		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "--ltsrelease")
	})

	t.Run("query keeps going after a failed query", func(t *testing.T) {
		path, out, errOut := setup(t)

		q := &queryCommand{}

		assert.Equal(t, 1, q.Run([]string{"--checksum", "nope", "--ltsrelease", "--file", path}))
		assert.Contains(t, errOut.String(), "version not found")
		assert.Contains(t, out.String(), "24.04 LTS")
	})
}
