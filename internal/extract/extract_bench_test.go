package extract

import (
	"strconv"
	"strings"
	"testing"
)

// Benchmark parsing and normalizing results pages of typical sizes.
func BenchmarkFromHTML(b *testing.B) {
	d := craigslist()
	ex := Extractor{Now: fixedNow}
	for _, n := range []int{5, 20, 120} {
		page := makePage(n)
		b.Run("rows="+strconv.Itoa(n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				items, err := FromHTML(page, d)
				if err != nil {
					b.Fatal(err)
				}
				for _, it := range items {
					_, _ = ex.Normalize(it)
				}
			}
		})
	}
}

func makePage(rows int) []byte {
	builder := new(strings.Builder)
	builder.WriteString("<html><head><title>results</title></head><body><ul>")
	for i := 0; i < rows; i++ {
		builder.WriteString(`<li class="result-row"><a class="result-title" href="/cto/d/`)
		builder.WriteString(strconv.Itoa(i))
		builder.WriteString(`.html">2014 Honda Civic LX</a><span class="result-price">$9,500</span><span class="result-hood">(Glendale)</span><p>`)
		builder.WriteString(sampleText)
		builder.WriteString("</p></li>")
	}
	builder.WriteString("</ul></body></html>")
	return []byte(builder.String())
}

const sampleText = "Clean title, new tires, one owner. Runs and drives great, recent service records available."
