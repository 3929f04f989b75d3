package sources

import (
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/carfinder/internal/listing"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Default source counts per breadth.
const (
	DefaultFastCount = 10
	DefaultFullCount = 35
)

// Catalog is the ordered list of configured sources. Order matters: the
// fast breadth visits a prefix of it.
type Catalog struct {
	Sources []Descriptor `yaml:"sources"`
}

// Default returns the built-in catalog.
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path.
func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML catalog.
func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks every descriptor and rejects duplicate names.
func (c Catalog) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("catalog has no sources")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, d := range c.Sources {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("duplicate source %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// Subset returns the sources visited for breadth b: the first fastCount for
// fast and the first fullCount for full. Non-positive counts fall back to
// the defaults.
func (c Catalog) Subset(b listing.Breadth, fastCount, fullCount int) []Descriptor {
	if fastCount <= 0 {
		fastCount = DefaultFastCount
	}
	if fullCount <= 0 {
		fullCount = DefaultFullCount
	}
	n := fastCount
	if b == listing.BreadthFull {
		n = fullCount
	}
	if n > len(c.Sources) {
		n = len(c.Sources)
	}
	out := make([]Descriptor, n)
	copy(out, c.Sources[:n])
	return out
}
