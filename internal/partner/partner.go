// Package partner implements the listing APIs of sites that offer one. Each
// integration is safe to call when unconfigured and returns records already
// mapped to extract.Record.
package partner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/listing"
)

// DefaultLimit is the page size requested from partner APIs.
const DefaultLimit = 20

// Integration is one partner API.
type Integration interface {
	Name() string
	// IsConfigured is a local check; it never touches the network.
	IsConfigured() bool
	// Search returns no records and no error when the integration is not
	// configured.
	Search(ctx context.Context, c listing.SearchCriteria) ([]extract.Record, error)
}

// Registry resolves a descriptor's integration name.
type Registry struct {
	byName map[string]Integration
}

// NewRegistry indexes integrations by Name. Later duplicates win.
func NewRegistry(integrations ...Integration) *Registry {
	r := &Registry{byName: make(map[string]Integration, len(integrations))}
	for _, in := range integrations {
		if in == nil {
			continue
		}
		r.byName[strings.ToLower(in.Name())] = in
	}
	return r
}

// Lookup returns the integration registered as name.
func (r *Registry) Lookup(name string) (Integration, bool) {
	if r == nil {
		return nil, false
	}
	in, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return in, ok
}

// Configured lists the registered integrations with credentials.
func (r *Registry) Configured() []string {
	if r == nil {
		return nil
	}
	var out []string
	for name, in := range r.byName {
		if in.IsConfigured() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// StatusError reports a non-2xx partner response.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status: %d", e.Service, e.Code)
}

func isUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

func httpClient(hc *http.Client) *http.Client {
	if hc == nil {
		return &http.Client{Timeout: 15 * time.Second}
	}
	return hc
}

// getJSON issues an authenticated GET and decodes the JSON body into out.
func getJSON(ctx context.Context, hc *http.Client, service, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: new request: %w", service, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient(hc).Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Service: service, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", service, err)
	}
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexPrice accepts a JSON number or a numeric string and truncates to whole
// units.
type flexPrice int64

func (p *flexPrice) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v := strings.TrimSpace(string(s))
	if v == "" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*p = flexPrice(extract.ParsePrice(v))
		return nil
	}
	*p = flexPrice(int64(f))
	return nil
}

type photo struct {
	URL string `json:"url"`
}

func firstPhoto(ps []photo) string {
	if len(ps) == 0 {
		return ""
	}
	return ps[0].URL
}

func limitRecords(in []extract.Record, n int) []extract.Record {
	if n > 0 && len(in) > n {
		return in[:n]
	}
	return in
}
