package matching

import "regexp"

// countryAlias maps a desk nickname for an issuer country to its canonical name.
type countryAlias struct {
	alias   string
	country string
	// boundary is set for aliases of three characters or fewer; those must match
	// as whole words so "col" does not fire inside "protocol".
	boundary *regexp.Regexp
}

// countryAliases is searched top to bottom and the first hit wins, so the order
// below is part of the behaviour: longer spellings sit before their short forms
// ("colombia" before "col"). Do not sort this table.
var countryAliases = buildCountryAliases([][2]string{
	{"colombia", "Colombia"},
	{"colom", "Colombia"},
	{"col", "Colombia"},
	{"mexico", "Mexico"},
	{"mex", "Mexico"},
	{"brazil", "Brazil"},
	{"braz", "Brazil"},
	{"chile", "Chile"},
	{"peru", "Peru"},
	{"panama", "Panama"},
	{"saudi", "Saudi Arabia"},
	{"ksa", "Saudi Arabia"},
	{"uae", "United Arab Emirates"},
	{"emirates", "United Arab Emirates"},
	{"dubai", "United Arab Emirates"},
	{"qatar", "Qatar"},
	{"oman", "Oman"},
	{"bahrain", "Bahrain"},
	{"israel", "Israel"},
	{"turkey", "Turkey"},
	{"turkiye", "Turkey"},
	{"indonesia", "Indonesia"},
	{"indo", "Indonesia"},
	{"philippines", "Philippines"},
	{"phils", "Philippines"},
	{"kazakh", "Kazakhstan"},
	{"kaz", "Kazakhstan"},
	{"south africa", "South Africa"},
	{"sa", "South Africa"},
	{"nigeria", "Nigeria"},
	{"egypt", "Egypt"},
	{"morocco", "Morocco"},
	{"ivory", "Ivory Coast"},
	{"cote", "Ivory Coast"},
	{"dominican", "Dominican Republic"},
	{"dom rep", "Dominican Republic"},
	{"uruguay", "Uruguay"},
	{"paraguay", "Paraguay"},
	{"argentina", "Argentina"},
	{"argie", "Argentina"},
})

func buildCountryAliases(pairs [][2]string) []countryAlias {
	aliases := make([]countryAlias, 0, len(pairs))
	for _, p := range pairs {
		a := countryAlias{alias: p[0], country: p[1]}
		// ASCII word boundaries: non-ASCII letters count as separators
		if len(p[0]) <= 3 {
			a.boundary = regexp.MustCompile(`\b` + regexp.QuoteMeta(p[0]) + `\b`)
		}
		aliases = append(aliases, a)
	}
	return aliases
}

// KnownCountries returns the canonical country names the alias table resolves to,
// in first-appearance order.
func KnownCountries() []string {
	seen := make(map[string]bool, len(countryAliases))
	var out []string
	for _, a := range countryAliases {
		if !seen[a.country] {
			seen[a.country] = true
			out = append(out, a.country)
		}
	}
	return out
}
