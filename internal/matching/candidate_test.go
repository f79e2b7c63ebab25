package matching

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecord_FillsFromDescription(t *testing.T) {
	rec := CandidateRecord{
		"isin":        "US71654QDD16",
		"ticker":      "PEMEX",
		"description": "PEMEX 5.95 01/28/31",
		"country":     "Mexico",
	}

	c := normalizeRecordAt(rec, fixedNow)

	assert.Equal(t, "US71654QDD16", c.ISIN)
	assert.Equal(t, "PEMEX", c.Ticker)
	assert.Equal(t, "Mexico", c.Country)
	assert.InDelta(t, 5.95, c.Coupon, 1e-9)
	assert.Equal(t, 2031, c.MaturityYear)
	assert.Nil(t, c.Price)
	assert.Nil(t, c.Accrued)

	// The caller's map is left alone.
	_, hasCoupon := rec["coupon"]
	_, hasYear := rec["maturity_year"]
	assert.False(t, hasCoupon)
	assert.False(t, hasYear)
	assert.Len(t, rec, 4)
}

func TestNormalizeRecord_Fields(t *testing.T) {
	tests := []struct {
		name    string
		rec     CandidateRecord
		coupon  float64
		year    int
		country string
	}{
		{
			name:    "explicit values win over description",
			rec:     CandidateRecord{"coupon": 4.0, "maturity_year": 2040, "description": "X 6.5 2050", "country": "Chile"},
			coupon:  4.0,
			year:    2040,
			country: "Chile",
		},
		{
			name:    "numeric strings",
			rec:     CandidateRecord{"coupon": " 3.5 ", "maturity_year": "2041"},
			coupon:  3.5,
			year:    2041,
			country: DefaultCountry,
		},
		{
			name:    "float year truncates",
			rec:     CandidateRecord{"coupon": 2, "maturity_year": 2040.9},
			coupon:  2,
			year:    2040,
			country: DefaultCountry,
		},
		{
			name:    "json numbers",
			rec:     CandidateRecord{"coupon": json.Number("6.125"), "maturity_year": json.Number("2035")},
			coupon:  6.125,
			year:    2035,
			country: DefaultCountry,
		},
		{
			name:    "unparseable coupon does not fall back",
			rec:     CandidateRecord{"coupon": "abc", "description": "COLOMBIA 3.25 2061"},
			coupon:  0,
			year:    2061,
			country: DefaultCountry,
		},
		{
			name:    "iso maturity date",
			rec:     CandidateRecord{"maturity_date": "2031-01-28"},
			year:    2031,
			country: DefaultCountry,
		},
		{
			name:    "numeric maturity date",
			rec:     CandidateRecord{"maturity_date": float64(20610415)},
			year:    2061,
			country: DefaultCountry,
		},
		{
			name:    "integer maturity date",
			rec:     CandidateRecord{"maturity_date": int64(20310128)},
			year:    2031,
			country: DefaultCountry,
		},
		{
			name:    "non iso maturity date yields unknown year",
			rec:     CandidateRecord{"maturity_date": "01/28/31", "description": "PEMEX 2031"},
			year:    0,
			country: DefaultCountry,
		},
		{
			name:    "negative values clamp to zero",
			rec:     CandidateRecord{"coupon": -1.5, "maturity_year": -3},
			coupon:  0,
			year:    0,
			country: DefaultCountry,
		},
		{
			name:    "nil country is unknown",
			rec:     CandidateRecord{"country": nil},
			country: DefaultCountry,
		},
		{
			name:    "blank country stays blank",
			rec:     CandidateRecord{"country": ""},
			country: "",
		},
		{
			name:    "empty record",
			rec:     CandidateRecord{},
			country: DefaultCountry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := normalizeRecordAt(tt.rec, fixedNow)
			assert.InDelta(t, tt.coupon, c.Coupon, 1e-9)
			assert.Equal(t, tt.year, c.MaturityYear)
			assert.Equal(t, tt.country, c.Country)
		})
	}
}

func TestNormalizeRecord_NaNCouponClamps(t *testing.T) {
	c := normalizeRecordAt(CandidateRecord{"coupon": math.NaN()}, fixedNow)
	assert.Equal(t, 0.0, c.Coupon)

	c = normalizeRecordAt(CandidateRecord{"coupon": math.Inf(1)}, fixedNow)
	assert.Equal(t, 0.0, c.Coupon)
}

func TestNormalizeRecord_PriceAliases(t *testing.T) {
	c := normalizeRecordAt(CandidateRecord{"clean_price": 98.5, "ai": 1.25}, fixedNow)
	require.NotNil(t, c.Price)
	require.NotNil(t, c.Accrued)
	assert.Equal(t, 98.5, *c.Price)
	assert.Equal(t, 1.25, *c.Accrued)
	assert.InDelta(t, 99.75, c.DirtyPrice(), 1e-9)

	// An unparseable value is skipped in favour of the next alias.
	c = normalizeRecordAt(CandidateRecord{"price": "n/a", "clean_price": "97", "accrued_interest": 0.5, "accrued": 9.0}, fixedNow)
	require.NotNil(t, c.Price)
	require.NotNil(t, c.Accrued)
	assert.Equal(t, 97.0, *c.Price)
	assert.Equal(t, 0.5, *c.Accrued)
}

func TestCandidate_DirtyPriceDefaults(t *testing.T) {
	assert.Equal(t, 100.0, Candidate{}.DirtyPrice())

	accrued := 2.0
	assert.Equal(t, 102.0, Candidate{Accrued: &accrued}.DirtyPrice())
}

func TestNormalizeCandidates_PreservesOrder(t *testing.T) {
	cands := normalizeCandidatesAt([]CandidateRecord{
		{"isin": "A"},
		{"isin": "B"},
		{"isin": "C"},
	}, fixedNow)

	require.Len(t, cands, 3)
	assert.Equal(t, "A", cands[0].ISIN)
	assert.Equal(t, "B", cands[1].ISIN)
	assert.Equal(t, "C", cands[2].ISIN)

	assert.Empty(t, NormalizeCandidates(nil))
	assert.NotNil(t, NormalizeCandidates(nil))
}

func TestNormalizeRecord_DecodedJSONNumbers(t *testing.T) {
	var rec CandidateRecord
	require.NoError(t, json.Unmarshal([]byte(`{"isin":1e21,"ticker":12345,"maturity_date":20610415}`), &rec))

	c := normalizeRecordAt(rec, fixedNow)

	assert.Equal(t, 2061, c.MaturityYear)
	assert.Equal(t, "1000000000000000000000", c.ISIN)
	assert.Equal(t, "12345", c.Ticker)
}
