// Package robots fetches and evaluates robots.txt so scrape adapters can
// skip paths a site has opted out of.
package robots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
)

type Rules struct {
	Groups []Group
}

type Group struct {
	Agents     []string
	Allow      []string
	Disallow   []string
	CrawlDelay *time.Duration
}

var (
	allowAll    = Rules{}
	disallowAll = Rules{Groups: []Group{{Agents: []string{"*"}, Disallow: []string{"/"}}}}
)

// Manager caches parsed robots.txt per URL in memory. It is safe for
// concurrent use and is shared by every search.
type Manager struct {
	HTTPClient        *http.Client
	UserAgent         string
	EntryExpiry       time.Duration
	AllowPrivateHosts bool

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	rules  Rules
	expiry time.Time
}

// Get returns the rules at robotsURL. A missing file (404 and other 4xx)
// allows everything; 401/403, 5xx and transport failures disallow
// everything until the entry expires.
func (m *Manager) Get(ctx context.Context, robotsURL string) (Rules, Source, error) {
	u, err := url.Parse(robotsURL)
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("parse url: %w", err)
	}
	if u == nil || !isHTTPScheme(u) {
		return Rules{}, SourceNetwork, fmt.Errorf("unsupported url scheme: %q", robotsURL)
	}
	host := u.Hostname()
	if !m.AllowPrivateHosts && isLocalOrPrivateHost(host) {
		return Rules{}, SourceNetwork, fmt.Errorf("private host not allowed: %s", host)
	}

	m.mu.Lock()
	if m.now == nil {
		m.now = time.Now
	}
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	if ent, ok := m.mem[robotsURL]; ok && m.now().Before(ent.expiry) {
		r := ent.rules
		m.mu.Unlock()
		return r, SourceMemory, nil
	}
	m.mu.Unlock()

	rules, err := m.fetch(ctx, robotsURL)
	if err != nil {
		// The caller going away is not a statement about the site.
		if ctx.Err() != nil {
			return Rules{}, SourceNetwork, err
		}
		rules = disallowAll
	}
	m.storeMem(robotsURL, rules)
	return rules, SourceNetwork, nil
}

func (m *Manager) fetch(ctx context.Context, robotsURL string) (Rules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, fmt.Errorf("new request: %w", err)
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Rules{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Rules{}, fmt.Errorf("robots: status %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode <= 499:
		return allowAll, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Rules{}, fmt.Errorf("robots: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return Rules{}, fmt.Errorf("read robots: %w", err)
	}
	return parseRobots(string(data)), nil
}

// Decision is the outcome of checking one page URL.
type Decision struct {
	Allowed    bool
	CrawlDelay *time.Duration
}

// ErrDisallowed is returned by Require when robots.txt forbids the path.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Check evaluates pageURL against its host's robots.txt.
func (m *Manager) Check(ctx context.Context, pageURL string) (Decision, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Decision{}, fmt.Errorf("parse url: %w", err)
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	rules, _, err := m.Get(ctx, robotsURL)
	if err != nil {
		return Decision{}, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return Decision{
		Allowed:    rules.IsAllowed(m.UserAgent, path),
		CrawlDelay: rules.CrawlDelayFor(m.UserAgent),
	}, nil
}

// Require returns ErrDisallowed when pageURL may not be fetched.
func (m *Manager) Require(ctx context.Context, pageURL string) error {
	d, err := m.Check(ctx, pageURL)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
	}
	return nil
}

func (m *Manager) storeMem(key string, rules Rules) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	m.mem[key] = memEntry{rules: rules, expiry: m.now().Add(exp)}
	m.mu.Unlock()
}

func parseRobots(text string) Rules {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var groups []Group
	current := Group{}
	flush := func() {
		if len(current.Agents) == 0 && len(current.Allow) == 0 && len(current.Disallow) == 0 && current.CrawlDelay == nil {
			return
		}
		groups = append(groups, current)
		current = Group{}
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		val := strings.TrimSpace(line[colon+1:])
		switch key {
		case "user-agent", "useragent":
			if len(current.Agents) > 0 && (len(current.Allow) > 0 || len(current.Disallow) > 0 || current.CrawlDelay != nil) {
				flush()
			}
			current.Agents = append(current.Agents, strings.ToLower(val))
		case "allow":
			current.Allow = append(current.Allow, val)
		case "disallow":
			current.Disallow = append(current.Disallow, val)
		case "crawl-delay", "crawldelay":
			if val != "" {
				if d, err := time.ParseDuration(val + "s"); err == nil {
					dd := d
					current.CrawlDelay = &dd
				}
			}
		}
	}
	flush()
	return Rules{Groups: groups}
}

// IsAllowed evaluates whether the path (which may include a query string) may
// be fetched by userAgent.
//
// The most specific matching User-agent group is selected, exact tokens
// beating "*". Within it the matching directive with the longest pattern
// wins, ignoring '*' and a trailing '$'; on a tie Allow beats Disallow. No
// matching directive means allowed.
func (r Rules) IsAllowed(userAgent string, pathWithOptionalQuery string) bool {
	grpIdx := r.selectGroupIndex(userAgent)
	if grpIdx < 0 || grpIdx >= len(r.Groups) {
		return true
	}
	grp := r.Groups[grpIdx]

	bestScore := -1
	bestAllow := true

	evaluate := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			if p == "" {
				continue
			}
			if patternMatches(p, pathWithOptionalQuery) {
				score := patternSpecificity(p)
				if score > bestScore || (score == bestScore && isAllow && !bestAllow) {
					bestScore = score
					bestAllow = isAllow
				}
			}
		}
	}

	evaluate(grp.Disallow, false)
	evaluate(grp.Allow, true)

	if bestScore == -1 {
		return true
	}
	return bestAllow
}

// CrawlDelayFor returns the crawl delay of the group matching userAgent, or
// nil.
func (r Rules) CrawlDelayFor(userAgent string) *time.Duration {
	grpIdx := r.selectGroupIndex(userAgent)
	if grpIdx < 0 || grpIdx >= len(r.Groups) {
		return nil
	}
	return r.Groups[grpIdx].CrawlDelay
}

// selectGroupIndex prefers the longest agent token contained in userAgent;
// '*' matches with the lowest score. Ties keep the first group.
func (r Rules) selectGroupIndex(userAgent string) int {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	bestIdx := -1
	bestScore := -1
	for i, g := range r.Groups {
		for _, a := range g.Agents {
			token := strings.ToLower(strings.TrimSpace(a))
			if token == "" {
				continue
			}
			var score int
			if token == "*" {
				score = 0
			} else if strings.Contains(ua, token) {
				score = len(token)
			} else {
				continue
			}
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
	}
	return bestIdx
}

// patternMatches anchors pattern at the start of path. '*' matches any run
// and a trailing '$' anchors the end.
func patternMatches(pattern, path string) bool {
	anchorEnd := strings.HasSuffix(pattern, "$")
	p := strings.TrimSuffix(pattern, "$")
	var b strings.Builder
	b.WriteString("^")
	for _, rn := range p {
		if rn == '*' {
			b.WriteString(".*")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(rn)))
	}
	if anchorEnd {
		b.WriteString("$")
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

func patternSpecificity(pattern string) int {
	p := strings.TrimSuffix(pattern, "$")
	return len(strings.ReplaceAll(p, "*", ""))
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isLocalOrPrivateHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "localhost" || h == "localhost.localdomain" || h == "::1" || h == "[::1]" {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return true
		}
	}
	return false
}
