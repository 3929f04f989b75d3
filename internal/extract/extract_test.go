package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/carfinder/internal/sources"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func craigslist() sources.Descriptor {
	return sources.Descriptor{
		Name:     "Craigslist",
		Strategy: sources.StrategyStaticHTML,
		BaseURL:  "https://losangeles.craigslist.org",
		Selectors: sources.Selectors{
			Container: "li.result-row",
			Title:     "a.result-title",
			Price:     "span.result-price",
			Location:  "span.result-hood",
			URL:       "a.result-title",
			Image:     "img",
		},
	}
}

const resultsPage = `<!doctype html>
<html><body><ul>
  <li class="result-row">
    <a class="result-title" href="/cto/d/civic/123.html?utm_source=x">  2015 Honda   Civic </a>
    <span class="result-price">$12,000</span>
    <span class="result-hood"> (Los   Angeles) </span>
    <img data-src="//images.example.com/1.jpg">
  </li>
  <li class="result-row">
    <a class="result-title" href="https://example.com/2">2012 Ford Focus</a>
    <span class="result-hood">(Pasadena)</span>
  </li>
  <li class="result-row">
    <span class="result-price">$5,000</span>
  </li>
  <li class="result-row">
    <a class="result-title" href="example.com/4">Toyota Camry</a>
    <span class="result-price">9.5K obo</span>
  </li>
</ul></body></html>`

func TestFromHTML_SelectsContainersAndNormalizes(t *testing.T) {
	items, err := FromHTML([]byte(resultsPage), craigslist())
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 containers, got %d", len(items))
	}
	ex := Extractor{Now: fixedNow}

	l, ok := ex.Normalize(items[0])
	if !ok {
		t.Fatalf("first item should normalize")
	}
	if l.Title != "2015 Honda Civic" {
		t.Fatalf("title: %q", l.Title)
	}
	if l.Price != 12000 {
		t.Fatalf("price: %d", l.Price)
	}
	if l.Location != "Los Angeles" {
		t.Fatalf("location: %q", l.Location)
	}
	if l.URL != "https://losangeles.craigslist.org/cto/d/civic/123.html?utm_source=x" {
		t.Fatalf("url: %q", l.URL)
	}
	if l.ImageURL != "https://images.example.com/1.jpg" {
		t.Fatalf("image: %q", l.ImageURL)
	}
	if l.Timestamp != "2025-03-01T12:00:00Z" {
		t.Fatalf("timestamp: %q", l.Timestamp)
	}
	if !strings.HasPrefix(l.ID, "craigslist:") || len(l.ID) != len("craigslist:")+16 {
		t.Fatalf("id: %q", l.ID)
	}

	if _, ok := ex.Normalize(items[1]); ok {
		t.Fatalf("item without price must be dropped")
	}
	if _, ok := ex.Normalize(items[2]); ok {
		t.Fatalf("item without title must be dropped")
	}

	l, ok = ex.Normalize(items[3])
	if !ok {
		t.Fatalf("fourth item should normalize")
	}
	if l.URL != "https://example.com/4" {
		t.Fatalf("schemeless url: %q", l.URL)
	}
	if l.Price != 9 {
		t.Fatalf("first digit run of 9.5000: got %d", l.Price)
	}
	if l.Location != "Unknown" {
		t.Fatalf("missing location: %q", l.Location)
	}
}

func TestItems_RespectsCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<ul>")
	for i := 0; i < 30; i++ {
		b.WriteString(`<li class="result-row"><a class="result-title" href="/x">t</a><span class="result-price">$1</span></li>`)
	}
	b.WriteString("</ul>")
	doc, err := Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := len(Items(doc, craigslist(), 0)); got != sources.DefaultResultCap {
		t.Fatalf("expected default cap %d, got %d", sources.DefaultResultCap, got)
	}
	if got := len(Items(doc, craigslist(), 5)); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestNormalize_SameURLSameID(t *testing.T) {
	ex := Extractor{Now: fixedNow}
	a, _ := ex.Normalize(RawItem{Source: "Cars.com", Record: &Record{Title: "Civic", Price: 9000, URL: "https://WWW.Cars.com/vehicle/1?utm_campaign=z#photos"}})
	b, _ := ex.Normalize(RawItem{Source: "Cars.com", Record: &Record{Title: "Civic", Price: 9000, URL: "https://www.cars.com/vehicle/1"}})
	if a.ID != b.ID {
		t.Fatalf("expected equal ids, got %q and %q", a.ID, b.ID)
	}
}

func TestNormalize_Record(t *testing.T) {
	ex := Extractor{Now: fixedNow}
	l, ok := ex.Normalize(RawItem{Source: "Edmunds", Record: &Record{
		NativeID:  "1HGCM82633A004352",
		Title:     "2019 Honda Accord",
		Price:     18500,
		Location:  "",
		URL:       "www.edmunds.com/inventory/vin/1HGCM82633A004352",
		Timestamp: "2025-02-10T08:30:00.000Z",
	}})
	if !ok {
		t.Fatalf("record should normalize")
	}
	if l.ID != "edmunds:1HGCM82633A004352" {
		t.Fatalf("id: %q", l.ID)
	}
	if l.Timestamp != "2025-02-10T08:30:00Z" {
		t.Fatalf("timestamp: %q", l.Timestamp)
	}
	if l.URL != "https://www.edmunds.com/inventory/vin/1HGCM82633A004352" {
		t.Fatalf("url: %q", l.URL)
	}
	if l.Location != "Unknown" {
		t.Fatalf("location: %q", l.Location)
	}

	if _, ok := ex.Normalize(RawItem{Source: "Edmunds", Record: &Record{Price: 100}}); ok {
		t.Fatalf("record without title must be dropped")
	}
	if _, ok := ex.Normalize(RawItem{Source: "Edmunds"}); ok {
		t.Fatalf("empty item must be dropped")
	}
}

func TestNormalize_FallbackIDWithoutURL(t *testing.T) {
	ex := Extractor{Now: fixedNow}
	a, _ := ex.Normalize(RawItem{Source: "Nextdoor", Record: &Record{Title: "Truck", Price: 4000, Location: "Elm"}})
	b, _ := ex.Normalize(RawItem{Source: "Nextdoor", Record: &Record{Title: "Truck", Price: 4000, Location: "Elm"}})
	c, _ := ex.Normalize(RawItem{Source: "Nextdoor", Record: &Record{Title: "Truck", Price: 4500, Location: "Elm"}})
	if a.ID != b.ID || a.ID == c.ID {
		t.Fatalf("fallback ids: %q %q %q", a.ID, b.ID, c.ID)
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]int64{
		"$12,000":     12000,
		"15K":         15000,
		"15k":         15000,
		"15 k":        15000,
		"$8k":         8000,
		"Price: $950": 950,
		"Call":        0,
		"":            0,
		"$1,234 obo":  1234,
		"99999999999999999999999": 0,
	}
	for in, want := range cases {
		if got := ParsePrice(in); got != want {
			t.Fatalf("ParsePrice(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNormalizeLocation(t *testing.T) {
	cases := map[string]string{
		" (Los   Angeles) ": "Los Angeles",
		"":                  "Unknown",
		"()":                "Unknown",
		"Austin,\tTX":       "Austin, TX",
	}
	for in, want := range cases {
		if got := NormalizeLocation(in); got != want {
			t.Fatalf("NormalizeLocation(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	base := "https://www.example.com/search"
	cases := []struct{ in, want string }{
		{"", ""},
		{"https://a.example/1", "https://a.example/1"},
		{"HTTP://a.example/1", "HTTP://a.example/1"},
		{"//cdn.example/img.jpg", "https://cdn.example/img.jpg"},
		{"/listing/7", "https://www.example.com/listing/7"},
		{"a.example/2", "https://a.example/2"},
	}
	for _, c := range cases {
		if got := NormalizeURL(c.in, base); got != c.want {
			t.Fatalf("NormalizeURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := NormalizeURL("/listing/7", ""); got != "https://listing/7" {
		t.Fatalf("without base: %q", got)
	}
}
