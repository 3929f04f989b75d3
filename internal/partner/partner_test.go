package partner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/carfinder/internal/listing"
)

func writeToken(w http.ResponseWriter, token string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"access_token": token, "token_type": "bearer", "expires_in": 3600})
}

func TestUnconfiguredIntegrationsDoNotTouchNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	for _, in := range []Integration{
		&Ebay{AppID: "only-app-id", TokenURL: srv.URL, FindingURL: srv.URL},
		&Nextdoor{BaseURL: srv.URL},
		&Edmunds{ClientID: "id", TokenURL: srv.URL, BaseURL: srv.URL},
		&File{},
	} {
		assert.False(t, in.IsConfigured(), in.Name())
		recs, err := in.Search(context.Background(), listing.SearchCriteria{Keyword: "civic"})
		assert.NoError(t, err, in.Name())
		assert.Empty(t, recs, in.Name())
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestEbaySearchMapsFindingResponse(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "app" || pass != "cert" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeToken(w, "tok")
	})
	mux.HandleFunc("/finding", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("OPERATION-NAME") != "findItemsAdvanced" || q.Get("categoryId") != "6001" ||
			q.Get("itemFilter(0).name") != "MaxPrice" || q.Get("itemFilter(0).value") != "15000" ||
			q.Get("keywords") != "honda civic" || q.Get("SECURITY-APPNAME") != "app" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"findItemsAdvancedResponse":[{"searchResult":[{"item":[
			{"itemId":["1234"],"title":["2016 Honda Civic EX"],"location":["Fresno,CA,USA"],
			 "viewItemURL":["https://www.ebay.com/itm/1234"],"galleryURL":["https://i.ebayimg.com/1.jpg"],
			 "sellingStatus":[{"currentPrice":[{"@currencyId":"USD","__value__":"11250.0"}]}],
			 "listingInfo":[{"startTime":["2025-02-01T10:00:00.000Z"]}]}
		]}]}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := &Ebay{AppID: "app", CertID: "cert", TokenURL: srv.URL + "/token", FindingURL: srv.URL + "/finding", HTTPClient: srv.Client()}
	c := listing.SearchCriteria{Keyword: "honda civic", MaxPrice: 15000}
	recs, err := e.Search(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1234", recs[0].NativeID)
	assert.Equal(t, "2016 Honda Civic EX", recs[0].Title)
	assert.Equal(t, int64(11250), recs[0].Price)
	assert.Equal(t, "Fresno,CA,USA", recs[0].Location)
	assert.Equal(t, "https://i.ebayimg.com/1.jpg", recs[0].ImageURL)
	assert.Equal(t, "2025-02-01T10:00:00.000Z", recs[0].Timestamp)

	_, err = e.Search(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "token is cached across searches")
}

func TestEdmundsReacquiresTokenAfter401(t *testing.T) {
	var tokenCalls, queryCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("client_id") != "cid" || r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		n := atomic.AddInt32(&tokenCalls, 1)
		if n == 1 {
			writeToken(w, "stale")
			return
		}
		writeToken(w, "fresh")
	})
	mux.HandleFunc("/inventories", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&queryCalls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("zip") != "90001" || q.Get("radius") != "25" || q.Get("make") != "Honda" || q.Get("pagesize") != "20" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"vin":"1HGCV1F3XKA000001","year":2019,"make":"Honda","model":"Accord",
			"price":{"total":18995},"dealer":{"city":"Los Angeles"},"link":"https://www.edmunds.com/x",
			"photos":[{"url":"https://media.ed.edmunds-media.com/1.jpg"}],"inventoryDate":"2025-01-20"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	radius := 25
	e := &Edmunds{ClientID: "cid", ClientSecret: "secret", TokenURL: srv.URL + "/oauth/token", BaseURL: srv.URL, HTTPClient: srv.Client()}
	recs, err := e.Search(context.Background(), listing.SearchCriteria{Keyword: "accord", Location: "90001", Radius: &radius, Make: "Honda"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2019 Honda Accord", recs[0].Title)
	assert.Equal(t, int64(18995), recs[0].Price)
	assert.Equal(t, "1HGCV1F3XKA000001", recs[0].NativeID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&queryCalls))
}

func TestEdmundsGivesUpAfterSecond401(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) { writeToken(w, "t") })
	mux.HandleFunc("/inventories", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := &Edmunds{ClientID: "cid", ClientSecret: "secret", TokenURL: srv.URL + "/oauth/token", BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := e.Search(context.Background(), listing.SearchCriteria{Keyword: "x", ZipCode: "90001"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}

func TestTokenFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	e := &Ebay{AppID: "a", CertID: "b", TokenURL: srv.URL, FindingURL: srv.URL, HTTPClient: srv.Client()}
	_, err := e.Search(context.Background(), listing.SearchCriteria{Keyword: "x"})
	require.Error(t, err)
}

func TestNextdoorSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/marketplace/search" || r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("category") != "FOR_SALE" || q.Get("max_price") != "9000" || q.Get("limit") != "20" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":991,"title":"2010 Toyota Corolla","price":"6500","neighborhood":"Echo Park",
			"url":"https://nextdoor.com/p/991","photos":[],"description":"runs great","created_at":"2025-02-03T04:05:06Z"}]}`))
	}))
	defer srv.Close()

	n := &Nextdoor{APIKey: "key", BaseURL: srv.URL, HTTPClient: srv.Client()}
	recs, err := n.Search(context.Background(), listing.SearchCriteria{Keyword: "corolla", MaxPrice: 9000})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "991", recs[0].NativeID)
	assert.Equal(t, int64(6500), recs[0].Price)
	assert.Equal(t, "Echo Park", recs[0].Location)
	assert.Empty(t, recs[0].ImageURL)
}

func TestFileSearchMatchesKeyword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"a","title":"2018 Honda Civic","price":12000,"location":"LA","url":"https://example.com/a"},
		{"id":"b","title":"2012 Ford Focus","price":5000,"location":"LA","description":"not a civic"},
		{"id":"c","title":"","price":1}
	]`), 0o600))

	f := &File{Path: path}
	recs, err := f.Search(context.Background(), listing.SearchCriteria{Keyword: "Civic"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].NativeID)
	assert.Equal(t, "b", recs[1].NativeID)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&Nextdoor{APIKey: "k"}, &Ebay{}, nil)
	in, ok := r.Lookup(" NextDoor ")
	require.True(t, ok)
	assert.Equal(t, "nextdoor", in.Name())
	_, ok = r.Lookup("edmunds")
	assert.False(t, ok)
	assert.Equal(t, []string{"nextdoor"}, r.Configured())

	var nilReg *Registry
	_, ok = nilReg.Lookup("ebay")
	assert.False(t, ok)
}
