package testing

import (
	"github.com/aristath/orca/internal/modules/universe"
)

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

// NewBondFixtures returns a small analytics universe for use in tests.
// The PEMEX bond has no structured coupon or year so the matcher must read them
// from its description.
func NewBondFixtures() []universe.Bond {
	return []universe.Bond{
		{
			ISIN:         "US195325DS19",
			Ticker:       "COLTES",
			Description:  "REPUBLIC OF COLOMBIA 3.25 04/22/61",
			Country:      "Colombia",
			Coupon:       floatPtr(3.25),
			MaturityYear: intPtr(2061),
			MaturityDate: "2061-04-22",
			Price:        floatPtr(70.5),
			Accrued:      floatPtr(1.75),
		},
		{
			ISIN:        "US71654QDD16",
			Ticker:      "PEMEX",
			Description: "PEMEX 5.95 01/28/31",
			Country:     "Mexico",
		},
		{
			ISIN:         "US912828Z490",
			Ticker:       "T",
			Description:  "US TREASURY N/B 1.5 02/15/30",
			Country:      "United States",
			Coupon:       floatPtr(1.5),
			MaturityYear: intPtr(2030),
			Price:        floatPtr(91.2),
		},
		{
			ISIN:         "XS1234567890",
			Ticker:       "KSA",
			Description:  "KINGDOM OF SAUDI ARABIA 4.5 2030",
			Country:      "Saudi Arabia",
			Coupon:       floatPtr(4.5),
			MaturityYear: intPtr(2030),
		},
		{
			ISIN:         "XS0000000019",
			Ticker:       "ARGENT",
			Description:  "REPUBLIC OF ARGENTINA 1 07/09/19",
			Country:      "Argentina",
			Coupon:       floatPtr(1),
			MaturityYear: intPtr(2019),
		},
	}
}
