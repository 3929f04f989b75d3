package listing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		c    SearchCriteria
		ok   bool
	}{
		{"minimal", SearchCriteria{Keyword: "civic", MaxPrice: 15000}, true},
		{"zero price", SearchCriteria{Keyword: "civic"}, true},
		{"empty keyword", SearchCriteria{Keyword: "", MaxPrice: 1}, true},
		{"negative price", SearchCriteria{Keyword: "civic", MaxPrice: -1}, false},
		{"zero radius", SearchCriteria{Keyword: "civic", Radius: intPtr(0)}, false},
		{"inverted years", SearchCriteria{Keyword: "civic", MinYear: intPtr(2020), MaxYear: intPtr(2010)}, false},
		{"zip plus four", SearchCriteria{Keyword: "civic", ZipCode: "90210-1234"}, true},
		{"bad zip", SearchCriteria{Keyword: "civic", ZipCode: "9021"}, false},
		{"full mode", SearchCriteria{Keyword: "civic", Breadth: BreadthFull}, true},
		{"unknown mode", SearchCriteria{Keyword: "civic", Breadth: "deep"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCriteria))
		})
	}
}

func TestCriteriaDecodesFrontendFields(t *testing.T) {
	body := `{"keyword":"civic","location":"Los Angeles","maxPrice":15000,"radius":25,
		"fuelTypes":["Hybrid"],"privateOnly":true,"searchMode":"full"}`
	var c SearchCriteria
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	assert.Equal(t, int64(15000), c.MaxPrice)
	assert.Equal(t, 25, c.EffectiveRadius())
	assert.Equal(t, BreadthFull, c.EffectiveBreadth())
	assert.True(t, c.PrivateOnly)
	assert.Equal(t, []string{"Hybrid"}, c.FuelTypes)
}

func TestDefaults(t *testing.T) {
	c := SearchCriteria{Keyword: "civic"}
	assert.Equal(t, DefaultRadius, c.EffectiveRadius())
	assert.Equal(t, BreadthFast, c.EffectiveBreadth())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$12,000", FormatPrice(12000))
	assert.Equal(t, "$950", FormatPrice(950))
}
