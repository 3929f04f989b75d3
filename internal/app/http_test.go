package app

import (
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestNewSourceHTTPClient_Config(t *testing.T) {
	c := newSourceHTTPClient(0)
	if c.Timeout != sourceTimeoutDefault {
		t.Fatalf("expected default timeout, got %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.MaxIdleConnsPerHost < 2 {
		t.Fatalf("expected a per-host idle pool, got %d", tr.MaxIdleConnsPerHost)
	}
	// Ensure we didn't return the default client's transport
	if reflect.ValueOf(http.DefaultTransport).Pointer() == reflect.ValueOf(tr).Pointer() {
		t.Fatalf("transport should not be default")
	}
	if got := newSourceHTTPClient(3 * time.Second).Timeout; got != 3*time.Second {
		t.Fatalf("timeout=%v, want 3s", got)
	}
}
