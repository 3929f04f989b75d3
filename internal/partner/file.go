package partner

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/listing"
)

// File serves listings from a local JSON file for offline runs and tests.
// The file is an array of objects with the fields of extract.Record.
type File struct {
	Path string
}

func (f *File) Name() string { return "file" }

func (f *File) IsConfigured() bool { return strings.TrimSpace(f.Path) != "" }

// Search returns the records whose title or description contains the
// keyword, case-insensitively.
func (f *File) Search(_ context.Context, c listing.SearchCriteria) ([]extract.Record, error) {
	if !f.IsConfigured() {
		return nil, nil
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var raw []extract.Record
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(c.Keyword))
	out := make([]extract.Record, 0, len(raw))
	for _, r := range raw {
		if r.Title == "" {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Description), q) {
			out = append(out, r)
		}
	}
	return out, nil
}
