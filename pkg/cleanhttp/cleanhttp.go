package cleanhttp

import (
	"net"
	"net/http"
	"time"
)

const UserAgent = "relinfo/0.1.0"

// DefaultTransport never asks for gzip, so response bodies arrive exactly as
// the server stores them.
var DefaultTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 30 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	DisableCompression:    true,
}

var DefaultClient = &http.Client{
	Transport: &userAgent{next: DefaultTransport},
}

type userAgent struct {
	next http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", UserAgent)

	return u.next.RoundTrip(req)
}

func Do(req *http.Request) (*http.Response, error) {
	return DefaultClient.Do(req)
}
