package app

import (
	"net"
	"net/http"
	"time"
)

// newSourceHTTPClient returns the client shared by page fetches, robots.txt
// lookups and partner APIs. Per-host pacing happens above it, so the pool
// itself is not throttled.
func newSourceHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if timeout <= 0 {
		timeout = sourceTimeoutDefault
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
