package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"lab47.dev/relinfo/pkg/cleanhttp"
	"lab47.dev/relinfo/pkg/humanize"
	"lab47.dev/relinfo/pkg/logging"
	"lab47.dev/relinfo/pkg/progress"
)

// DefaultChunkSize matches the read buffer the index has always been
// streamed with.
const DefaultChunkSize = 10 * 1024

var (
	ErrTransport = errors.New("transport error")
	ErrStatus    = errors.New("unexpected http status")
	ErrAborted   = errors.New("fetch aborted by chunk handler")
)

// ChunkFunc receives body chunks in order. Returning false stops the fetch.
// The slice is only valid until ChunkFunc returns.
type ChunkFunc func(chunk []byte) bool

// Transport retrieves path from host and streams the body to onChunk. The
// next chunk is not read until onChunk returns.
type Transport interface {
	Fetch(ctx context.Context, host, path string, onChunk ChunkFunc) error
}

type httpDo interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is the HTTPS Transport. The zero value is ready to use.
type Client struct {
	logging.Common

	// Scheme defaults to https.
	Scheme    string
	ChunkSize int

	client httpDo
}

var _ Transport = (*Client)(nil)

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.client != nil {
		return c.client.Do(req)
	}

	return cleanhttp.Do(req)
}

func (c *Client) url(host, path string) string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "https"
	}

	u := url.URL{Scheme: scheme, Host: host, Path: path}

	return u.String()
}

// Open issues the GET and returns the body as a Stream. The caller must
// Close it.
func (c *Client) Open(ctx context.Context, host, path string) (*Stream, error) {
	target := c.url(host, path)

	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrTransport, "building request for %s: %s", target, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrTransport, "GET %s: %s", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrStatus, "GET %s: %d", target, resp.StatusCode)
	}

	c.L().Debug("response received", "url", target, "status", resp.StatusCode, "length", resp.ContentLength)

	size := c.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	return &Stream{
		name: target,
		body: resp.Body,
		buf:  make([]byte, size),
		bar:  progress.Bytes(ctx, resp.ContentLength, "Downloading release index"),
	}, nil
}

// Fetch implements Transport.
func (c *Client) Fetch(ctx context.Context, host, path string, onChunk ChunkFunc) error {
	s, err := c.Open(ctx, host, path)
	if err != nil {
		return err
	}

	defer s.Close()

	err = s.Each(onChunk)
	if err != nil {
		return err
	}

	c.L().Debug("body complete", "url", s.name, "size", humanize.Bytes(s.Size()))

	return nil
}

// Stream yields a response body one chunk at a time.
type Stream struct {
	name string
	body io.ReadCloser
	buf  []byte
	size int64
	bar  *progress.Progress
}

// Next returns the next chunk, or io.EOF once the body is exhausted. The
// chunk is overwritten by the following call to Next.
func (s *Stream) Next() ([]byte, error) {
	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.size += int64(n)
			s.bar.Add(int64(n))
			return s.buf[:n], nil
		}

		if err == io.EOF {
			return nil, io.EOF
		}

		if err != nil {
			return nil, errors.Wrapf(ErrTransport, "reading %s: %s", s.name, err)
		}
	}
}

// Each passes every remaining chunk to onChunk.
func (s *Stream) Each(onChunk ChunkFunc) error {
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if !onChunk(chunk) {
			return errors.Wrapf(ErrAborted, "%s after %d bytes", s.name, s.size)
		}
	}
}

// Size is the number of body bytes read so far.
func (s *Stream) Size() int64 {
	return s.size
}

func (s *Stream) Close() error {
	s.bar.Close()
	return s.body.Close()
}

func (s *Stream) String() string {
	return fmt.Sprintf("<stream %s>", s.name)
}
