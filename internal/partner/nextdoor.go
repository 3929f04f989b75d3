package partner

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/listing"
)

// NextdoorBaseURL is the Nextdoor API root.
const NextdoorBaseURL = "https://api.nextdoor.com/v1"

// Nextdoor searches for-sale posts with a static bearer API key.
type Nextdoor struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func (n *Nextdoor) Name() string { return "nextdoor" }

func (n *Nextdoor) IsConfigured() bool { return strings.TrimSpace(n.APIKey) != "" }

func (n *Nextdoor) Search(ctx context.Context, c listing.SearchCriteria) ([]extract.Record, error) {
	if !n.IsConfigured() {
		return nil, nil
	}
	base := n.BaseURL
	if base == "" {
		base = NextdoorBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/marketplace/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("query", c.Keyword)
	q.Set("category", "FOR_SALE")
	q.Set("max_price", strconv.FormatInt(c.MaxPrice, 10))
	q.Set("limit", strconv.Itoa(DefaultLimit))
	u.RawQuery = q.Encode()

	h := http.Header{}
	h.Set("Authorization", "Bearer "+n.APIKey)
	var resp struct {
		Results []struct {
			ID           flexString `json:"id"`
			Title        string     `json:"title"`
			Price        flexPrice  `json:"price"`
			Neighborhood string     `json:"neighborhood"`
			URL          string     `json:"url"`
			Photos       []photo    `json:"photos"`
			Description  string     `json:"description"`
			CreatedAt    string     `json:"created_at"`
		} `json:"results"`
	}
	if err := getJSON(ctx, n.HTTPClient, "nextdoor", u.String(), h, &resp); err != nil {
		return nil, err
	}
	out := make([]extract.Record, 0, len(resp.Results))
	for _, it := range resp.Results {
		out = append(out, extract.Record{
			NativeID:    string(it.ID),
			Title:       it.Title,
			Price:       int64(it.Price),
			Location:    it.Neighborhood,
			URL:         it.URL,
			ImageURL:    firstPhoto(it.Photos),
			Description: it.Description,
			Timestamp:   it.CreatedAt,
		})
	}
	return limitRecords(out, DefaultLimit), nil
}
