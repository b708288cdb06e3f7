package fetch

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.Handler) (*Client, string) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := &Client{Scheme: "http", ChunkSize: 4}
	c.SetLogger(hclog.NewNullLogger())

	return c, u.Host
}

func TestClient(t *testing.T) {
	body := `{"products": {"p": {"supported": false}}}`

	var gotPath, gotAgent string

	c, host := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")

		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}

		io.WriteString(w, body)
	}))

	t.Run("streams the body in chunks", func(t *testing.T) {
		var (
			buf    bytes.Buffer
			chunks int
		)

		err := c.Fetch(context.Background(), host, "/streams/v1/com.ubuntu.cloud:released:download.json",
			func(chunk []byte) bool {
				assert.True(t, len(chunk) <= 4)
				chunks++
				buf.Write(chunk)
				return true
			})
		require.NoError(t, err)

		assert.Equal(t, body, buf.String())
		assert.True(t, chunks >= len(body)/4)
		assert.Equal(t, "/streams/v1/com.ubuntu.cloud:released:download.json", gotPath)
		assert.Equal(t, "relinfo/0.1.0", gotAgent)
	})

	t.Run("stops when the handler rejects a chunk", func(t *testing.T) {
		calls := 0

		err := c.Fetch(context.Background(), host, "/index.json", func(chunk []byte) bool {
			calls++
			return calls < 2
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAborted))
		assert.Equal(t, 2, calls)
	})

	t.Run("reports http errors", func(t *testing.T) {
		err := c.Fetch(context.Background(), host, "/missing.json", func([]byte) bool {
			t.Fatal("no chunks expected")
			return false
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStatus))
	})

	t.Run("reports connection errors", func(t *testing.T) {
		err := c.Fetch(context.Background(), "127.0.0.1:1", "/index.json", func([]byte) bool {
			return true
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTransport))
	})

	t.Run("opens a pull based stream", func(t *testing.T) {
		s, err := c.Open(context.Background(), host, "/index.json")
		require.NoError(t, err)

		defer s.Close()

		var parts []string

		for {
			chunk, err := s.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)

			parts = append(parts, string(chunk))
		}

		assert.Equal(t, body, strings.Join(parts, ""))
		assert.Equal(t, int64(len(body)), s.Size())
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.Fetch(ctx, host, "/index.json", func([]byte) bool { return true })
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTransport))
	})
}

func TestFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "fetch")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	data := `{"products": {}}`
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "index.json"), []byte(data), 0644))

	f := &File{ChunkSize: 3}
	f.SetLogger(hclog.NewNullLogger())

	t.Run("reads a file in chunks", func(t *testing.T) {
		var buf bytes.Buffer

		err := f.Fetch(context.Background(), dir, "index.json", func(chunk []byte) bool {
			assert.True(t, len(chunk) <= 3)
			buf.Write(chunk)
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, data, buf.String())
	})

	t.Run("reports missing files", func(t *testing.T) {
		err := f.Fetch(context.Background(), dir, "nope.json", func([]byte) bool { return true })
		assert.True(t, errors.Is(err, ErrTransport))
	})

	t.Run("aborts on rejection", func(t *testing.T) {
		err := f.Fetch(context.Background(), "", filepath.Join(dir, "index.json"), func([]byte) bool { return false })
		assert.True(t, errors.Is(err, ErrAborted))
	})
}
