package partner

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/listing"
)

// Edmunds endpoints.
const (
	EdmundsTokenURL = "https://api.edmunds.com/oauth/token"
	EdmundsBaseURL  = "https://api.edmunds.com/api/inventory/v2"
)

// Edmunds searches dealer inventory. Access requires a dealer partnership.
type Edmunds struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	HTTPClient   *http.Client

	once   sync.Once
	tokens *tokenCache
}

func (e *Edmunds) Name() string { return "edmunds" }

func (e *Edmunds) IsConfigured() bool {
	return strings.TrimSpace(e.ClientID) != "" && strings.TrimSpace(e.ClientSecret) != ""
}

func (e *Edmunds) tokenCache() *tokenCache {
	e.once.Do(func() {
		tokenURL := e.TokenURL
		if tokenURL == "" {
			tokenURL = EdmundsTokenURL
		}
		e.tokens = &tokenCache{
			cfg: clientcredentials.Config{
				ClientID:     e.ClientID,
				ClientSecret: e.ClientSecret,
				TokenURL:     tokenURL,
				AuthStyle:    oauth2.AuthStyleInParams,
			},
			httpClient: e.HTTPClient,
		}
	})
	return e.tokens
}

func (e *Edmunds) Search(ctx context.Context, c listing.SearchCriteria) ([]extract.Record, error) {
	if !e.IsConfigured() {
		return nil, nil
	}
	base := e.BaseURL
	if base == "" {
		base = EdmundsBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/inventories")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	zip := c.ZipCode
	if zip == "" {
		zip = c.Location
	}
	q.Set("zip", zip)
	q.Set("radius", strconv.Itoa(c.EffectiveRadius()))
	q.Set("pagesize", strconv.Itoa(DefaultLimit))
	if c.Make != "" {
		q.Set("make", c.Make)
	}
	if c.Model != "" {
		q.Set("model", c.Model)
	}
	u.RawQuery = q.Encode()

	var resp struct {
		Results []struct {
			VIN   string     `json:"vin"`
			Year  flexString `json:"year"`
			Make  string     `json:"make"`
			Model string     `json:"model"`
			Price struct {
				Total flexPrice `json:"total"`
			} `json:"price"`
			Dealer struct {
				City string `json:"city"`
			} `json:"dealer"`
			Link          string  `json:"link"`
			Photos        []photo `json:"photos"`
			InventoryDate string  `json:"inventoryDate"`
		} `json:"results"`
	}
	err = e.tokenCache().withToken(ctx, func(token string) error {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		return getJSON(ctx, e.HTTPClient, "edmunds", u.String(), h, &resp)
	})
	if err != nil {
		return nil, err
	}
	out := make([]extract.Record, 0, len(resp.Results))
	for _, it := range resp.Results {
		out = append(out, extract.Record{
			NativeID:  it.VIN,
			Title:     joinNonEmpty(string(it.Year), it.Make, it.Model),
			Price:     int64(it.Price.Total),
			Location:  it.Dealer.City,
			URL:       it.Link,
			ImageURL:  firstPhoto(it.Photos),
			Timestamp: it.InventoryDate,
		})
	}
	return limitRecords(out, DefaultLimit), nil
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
