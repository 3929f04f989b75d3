// Package sources describes the listing providers a search can visit. A
// Descriptor is static configuration: it is loaded once at startup and only
// read afterwards.
package sources

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/carfinder/internal/listing"
)

// Strategy is how a source is fetched.
type Strategy string

const (
	StrategyAPI           Strategy = "api"
	StrategyBrowserRender Strategy = "browser-render"
	StrategyStaticHTML    Strategy = "static-html"
)

func (s Strategy) valid() bool {
	switch s {
	case StrategyAPI, StrategyBrowserRender, StrategyStaticHTML:
		return true
	}
	return false
}

// Defaults applied when a descriptor leaves the field unset.
const (
	DefaultResultCap     = 20
	DefaultPolitenessMin = 1 * time.Second
	DefaultPolitenessMax = 2500 * time.Millisecond
	DefaultSettleDelay   = 2 * time.Second
)

// Field names a SearchCriteria value a query parameter can bind to.
type Field string

const (
	FieldKeyword  Field = "keyword"
	FieldLocation Field = "location"
	FieldMaxPrice Field = "maxPrice"
	FieldRadius   Field = "radius"
	FieldZipCode  Field = "zipCode"
	FieldMake     Field = "make"
	FieldModel    Field = "model"
)

// Param is one query parameter of a source's search URL. Exactly one of
// Value (a literal) or Field (a criteria binding) is set.
type Param struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
	Field Field  `yaml:"field,omitempty" json:"field,omitempty"`
}

// Selectors are the CSS selectors used to pull one listing out of a results
// page. Title, Price and URL are evaluated inside each Container match.
type Selectors struct {
	Container   string `yaml:"container" json:"container"`
	Title       string `yaml:"title" json:"title"`
	Price       string `yaml:"price" json:"price"`
	Location    string `yaml:"location" json:"location"`
	URL         string `yaml:"url" json:"url"`
	Image       string `yaml:"image,omitempty" json:"image,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// DelayRange bounds the randomized pause taken after visiting a source.
type DelayRange struct {
	Min time.Duration `yaml:"min" json:"min"`
	Max time.Duration `yaml:"max" json:"max"`
}

// Descriptor is the static configuration of one source.
type Descriptor struct {
	Name     string   `yaml:"name" json:"name"`
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	// Fallback is the scrape strategy used when an api source has no
	// configured integration. Defaults to static-html.
	Fallback Strategy `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	// Integration names the partner API client serving an api source.
	Integration string        `yaml:"integration,omitempty" json:"integration,omitempty"`
	BaseURL     string        `yaml:"baseURL" json:"baseURL"`
	SearchPath  string        `yaml:"searchPath" json:"searchPath"`
	Params      []Param       `yaml:"params" json:"params"`
	ResultCap   int           `yaml:"resultCap,omitempty" json:"resultCap,omitempty"`
	Politeness  DelayRange    `yaml:"politeness,omitempty" json:"politeness,omitempty"`
	SettleDelay time.Duration `yaml:"settleDelay,omitempty" json:"settleDelay,omitempty"`
	Selectors   Selectors     `yaml:"selectors" json:"selectors"`
}

// ScrapeStrategy is the strategy to use when the source is scraped rather
// than queried through an API.
func (d Descriptor) ScrapeStrategy() Strategy {
	if d.Strategy != StrategyAPI {
		return d.Strategy
	}
	if d.Fallback == "" {
		return StrategyStaticHTML
	}
	return d.Fallback
}

// Cap returns ResultCap or DefaultResultCap.
func (d Descriptor) Cap() int {
	if d.ResultCap <= 0 {
		return DefaultResultCap
	}
	return d.ResultCap
}

// PolitenessRange returns the configured pause range, filling in defaults
// and swapping an inverted range.
func (d Descriptor) PolitenessRange() DelayRange {
	r := d.Politeness
	if r.Min == 0 && r.Max == 0 {
		return DelayRange{Min: DefaultPolitenessMin, Max: DefaultPolitenessMax}
	}
	if r.Max < r.Min {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Settle returns SettleDelay or DefaultSettleDelay.
func (d Descriptor) Settle() time.Duration {
	if d.SettleDelay <= 0 {
		return DefaultSettleDelay
	}
	return d.SettleDelay
}

// SearchURL binds criteria into the source's endpoint template. Parameters
// bound to an empty criteria value are omitted.
func (d Descriptor) SearchURL(c listing.SearchCriteria) (string, error) {
	u, err := url.Parse(strings.TrimRight(d.BaseURL, "/") + d.SearchPath)
	if err != nil {
		return "", fmt.Errorf("source %s: parse endpoint: %w", d.Name, err)
	}
	q := u.Query()
	for _, p := range d.Params {
		if p.Field == "" {
			q.Set(p.Name, p.Value)
			continue
		}
		v, ok := Bind(p.Field, c)
		if !ok {
			continue
		}
		q.Set(p.Name, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Bind resolves a criteria field to its query-string form. ok is false when
// the criteria leave the field empty or the field is unknown.
func Bind(f Field, c listing.SearchCriteria) (string, bool) {
	var v string
	switch f {
	case FieldKeyword:
		v = c.Keyword
	case FieldLocation:
		v = c.Location
	case FieldMaxPrice:
		return strconv.FormatInt(c.MaxPrice, 10), true
	case FieldRadius:
		return strconv.Itoa(c.EffectiveRadius()), true
	case FieldZipCode:
		v = c.ZipCode
	case FieldMake:
		v = c.Make
	case FieldModel:
		v = c.Model
	default:
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate checks that d can be dispatched.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("source without name")
	}
	if !d.Strategy.valid() {
		return fmt.Errorf("source %s: unknown strategy %q", d.Name, d.Strategy)
	}
	if d.Strategy == StrategyAPI {
		if d.Integration == "" {
			return fmt.Errorf("source %s: api strategy requires an integration", d.Name)
		}
		if fb := d.ScrapeStrategy(); fb == StrategyAPI || !fb.valid() {
			return fmt.Errorf("source %s: invalid fallback %q", d.Name, d.Fallback)
		}
	}
	if _, err := url.Parse(d.BaseURL + d.SearchPath); err != nil || d.BaseURL == "" {
		return fmt.Errorf("source %s: invalid endpoint %q", d.Name, d.BaseURL+d.SearchPath)
	}
	s := d.Selectors
	if s.Container == "" || s.Title == "" || s.Price == "" {
		return fmt.Errorf("source %s: container, title and price selectors are required", d.Name)
	}
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("source %s: parameter without name", d.Name)
		}
		if p.Field != "" && p.Value != "" {
			return fmt.Errorf("source %s: parameter %s sets both value and field", d.Name, p.Name)
		}
	}
	return nil
}
