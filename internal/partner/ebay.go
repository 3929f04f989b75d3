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

// eBay endpoints.
const (
	EbayTokenURL   = "https://api.ebay.com/identity/v1/oauth2/token"
	EbayFindingURL = "https://svcs.ebay.com/services/search/FindingService/v1"
	EbayScope      = "https://api.ebay.com/oauth/api_scope"
	// ebayCarsAndTrucks is the eBay Motors "Cars & Trucks" category.
	ebayCarsAndTrucks = "6001"
)

// Ebay searches eBay Motors through the Finding API. Credentials are the
// application id and cert id of an eBay developer keyset.
type Ebay struct {
	AppID      string
	CertID     string
	TokenURL   string
	FindingURL string
	HTTPClient *http.Client

	once   sync.Once
	tokens *tokenCache
}

func (e *Ebay) Name() string { return "ebay" }

func (e *Ebay) IsConfigured() bool {
	return strings.TrimSpace(e.AppID) != "" && strings.TrimSpace(e.CertID) != ""
}

func (e *Ebay) tokenCache() *tokenCache {
	e.once.Do(func() {
		tokenURL := e.TokenURL
		if tokenURL == "" {
			tokenURL = EbayTokenURL
		}
		e.tokens = &tokenCache{
			cfg: clientcredentials.Config{
				ClientID:     e.AppID,
				ClientSecret: e.CertID,
				TokenURL:     tokenURL,
				Scopes:       []string{EbayScope},
				AuthStyle:    oauth2.AuthStyleInHeader,
			},
			httpClient: e.HTTPClient,
		}
	})
	return e.tokens
}

func (e *Ebay) Search(ctx context.Context, c listing.SearchCriteria) ([]extract.Record, error) {
	if !e.IsConfigured() {
		return nil, nil
	}
	base := e.FindingURL
	if base == "" {
		base = EbayFindingURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("OPERATION-NAME", "findItemsAdvanced")
	q.Set("SERVICE-VERSION", "1.0.0")
	q.Set("SECURITY-APPNAME", e.AppID)
	q.Set("RESPONSE-DATA-FORMAT", "JSON")
	q.Set("REST-PAYLOAD", "")
	q.Set("keywords", c.Keyword)
	q.Set("categoryId", ebayCarsAndTrucks)
	q.Set("itemFilter(0).name", "MaxPrice")
	q.Set("itemFilter(0).value", strconv.FormatInt(c.MaxPrice, 10))
	q.Set("paginationInput.entriesPerPage", strconv.Itoa(DefaultLimit))
	u.RawQuery = q.Encode()

	var resp ebayResponse
	err = e.tokenCache().withToken(ctx, func(token string) error {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		return getJSON(ctx, e.HTTPClient, "ebay", u.String(), h, &resp)
	})
	if err != nil {
		return nil, err
	}

	var out []extract.Record
	for _, r := range resp.FindItemsAdvancedResponse {
		for _, sr := range r.SearchResult {
			for _, it := range sr.Item {
				out = append(out, it.record())
			}
		}
	}
	return limitRecords(out, DefaultLimit), nil
}

// The Finding API wraps every scalar in a one-element array.
type ebayResponse struct {
	FindItemsAdvancedResponse []struct {
		SearchResult []struct {
			Item []ebayItem `json:"item"`
		} `json:"searchResult"`
	} `json:"findItemsAdvancedResponse"`
}

type ebayItem struct {
	ItemID        []string `json:"itemId"`
	Title         []string `json:"title"`
	Location      []string `json:"location"`
	ViewItemURL   []string `json:"viewItemURL"`
	GalleryURL    []string `json:"galleryURL"`
	SellingStatus []struct {
		CurrentPrice []struct {
			Value flexPrice `json:"__value__"`
		} `json:"currentPrice"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		StartTime []string `json:"startTime"`
	} `json:"listingInfo"`
}

func (it ebayItem) record() extract.Record {
	r := extract.Record{
		NativeID: first(it.ItemID),
		Title:    first(it.Title),
		Location: first(it.Location),
		URL:      first(it.ViewItemURL),
		ImageURL: first(it.GalleryURL),
	}
	if len(it.SellingStatus) > 0 && len(it.SellingStatus[0].CurrentPrice) > 0 {
		r.Price = int64(it.SellingStatus[0].CurrentPrice[0].Value)
	}
	if len(it.ListingInfo) > 0 {
		r.Timestamp = first(it.ListingInfo[0].StartTime)
	}
	return r
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
