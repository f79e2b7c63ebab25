package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultCountry is assigned to candidates that arrive without a country.
const DefaultCountry = "Unknown"

// Defaults used when deriving a dirty price from missing fields.
const (
	defaultCleanPrice = 100.0
	defaultAccrued    = 0.0
)

// CandidateRecord is a bond as it arrives over the wire: a loosely typed JSON or
// MessagePack object.
// Recognised keys are isin, ticker, description, country, coupon, maturity_year,
// maturity_date, price, clean_price, accrued_interest, accrued and ai; the rest are
// ignored.
type CandidateRecord map[string]any

// Candidate is a normalized member of the searchable bond universe.
//
// Coupon and MaturityYear are never negative. A MaturityYear of 0 means the maturity
// is unknown and never scores on year.
type Candidate struct {
	ISIN         string
	Ticker       string
	Description  string
	Country      string
	Coupon       float64
	MaturityYear int
	Price        *float64 // clean price, nil when not supplied
	Accrued      *float64 // accrued interest, nil when not supplied
}

// DirtyPrice returns clean price plus accrued interest, defaulting missing parts
// to par and zero.
func (c Candidate) DirtyPrice() float64 {
	clean := defaultCleanPrice
	if c.Price != nil {
		clean = *c.Price
	}
	acc := defaultAccrued
	if c.Accrued != nil {
		acc = *c.Accrued
	}
	return clean + acc
}

// NormalizeRecord converts a wire record into a Candidate. It never fails: fields that
// are missing or of the wrong type degrade to their zero/unknown value.
func NormalizeRecord(rec CandidateRecord) Candidate {
	return normalizeRecordAt(rec, time.Now())
}

// NormalizeCandidates converts every record. The input maps are not modified.
func NormalizeCandidates(records []CandidateRecord) []Candidate {
	return normalizeCandidatesAt(records, time.Now())
}

func normalizeCandidatesAt(records []CandidateRecord, now time.Time) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		out = append(out, normalizeRecordAt(rec, now))
	}
	return out
}

func normalizeRecordAt(rec CandidateRecord, now time.Time) Candidate {
	description := stringField(rec, "description")

	c := Candidate{
		ISIN:        stringField(rec, "isin"),
		Ticker:      stringField(rec, "ticker"),
		Description: description,
		Country:     DefaultCountry,
		Price:       firstFloat(rec, "price", "clean_price"),
		Accrued:     firstFloat(rec, "accrued_interest", "accrued", "ai"),
	}

	if v, ok := rec["country"]; ok && v != nil {
		c.Country = toString(v)
	}

	// An explicit coupon wins even when it does not parse; only a missing one
	// falls back to the description.
	if v, ok := rec["coupon"]; ok && v != nil {
		c.Coupon, _ = toFloat(v)
	} else if description != "" {
		c.Coupon, _ = ExtractCoupon(description)
	}
	if c.Coupon < 0 || math.IsNaN(c.Coupon) || math.IsInf(c.Coupon, 0) {
		c.Coupon = 0
	}

	if v, ok := rec["maturity_year"]; ok && v != nil {
		c.MaturityYear = toInt(v)
	} else if v, ok := rec["maturity_date"]; ok && v != nil && toString(v) != "" {
		c.MaturityYear = yearFromDate(toString(v))
	} else if description != "" {
		c.MaturityYear, _ = ExtractYearAt(description, now)
	}
	if c.MaturityYear < 0 {
		c.MaturityYear = 0
	}

	return c
}

// yearFromDate reads the leading four characters of an ISO-style date.
func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func stringField(rec CandidateRecord, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	return toString(v)
}

func firstFloat(rec CandidateRecord, keys ...string) *float64 {
	for _, key := range keys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return &f
		}
	}
	return nil
}

// toString renders numbers in plain decimal so date-like values such as 20610415
// keep their leading digits.
func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toInt truncates numeric values and parses integer strings; anything else is 0.
func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
		return 0
	}
	if f, ok := toFloat(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) < math.MaxInt32 {
		return int(f)
	}
	return 0
}
