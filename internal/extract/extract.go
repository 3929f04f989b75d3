package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	kiloSuffix = regexp.MustCompile(`(\d)\s*[kK]\b`)
	digitRun   = regexp.MustCompile(`\d+`)
)

// ParsePrice turns listing price text such as "$12,500" or "15K" into whole
// currency units. Text without any digits parses as 0.
func ParsePrice(text string) int64 {
	if text == "" {
		return 0
	}
	clean := strings.NewReplacer("$", "", ",", "").Replace(text)
	clean = kiloSuffix.ReplaceAllString(clean, "${1}000")
	run := digitRun.FindString(clean)
	if run == "" {
		return 0
	}
	n, err := strconv.ParseInt(run, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// NormalizeLocation collapses whitespace and strips parentheses. An empty
// location becomes "Unknown".
func NormalizeLocation(location string) string {
	location = strings.NewReplacer("(", "", ")", "").Replace(location)
	location = strings.TrimSpace(collapseSpaces(location))
	if location == "" {
		return "Unknown"
	}
	return location
}

// NormalizeURL makes a listing link absolute. Root-relative paths are
// resolved against base when it is known; anything else without a scheme is
// prefixed with https:// after stripping leading slashes.
func NormalizeURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && base != "" {
		if b, err := url.Parse(base); err == nil && b.Host != "" {
			if ref, err := url.Parse(raw); err == nil {
				return b.ResolveReference(ref).String()
			}
		}
	}
	return "https://" + strings.TrimLeft(raw, "/")
}

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"}

// CanonicalURL lower-cases the host and drops fragments and common tracking
// parameters so the same listing linked twice yields one identity.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ListingID derives a stable identifier. A native id (VIN, item id) wins;
// otherwise the canonical URL is hashed; as a last resort the
// title/price/location fallback key is hashed.
func ListingID(source, nativeID, canonicalURL, fallback string) string {
	prefix := slug(source)
	if id := strings.TrimSpace(nativeID); id != "" {
		return prefix + ":" + id
	}
	key := canonicalURL
	if key == "" {
		key = fallback
	}
	sum := sha256.Sum256([]byte(key))
	return prefix + ":" + hex.EncodeToString(sum[:8])
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ' ' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
