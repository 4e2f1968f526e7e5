package intent

import "strings"

// DefaultCity is the city assumed when none is given.
const DefaultCity = "臺北市"

// CityAlias maps one surface form to a canonical city name.
type CityAlias struct {
	Alias string `yaml:"alias" json:"alias"`
	City  string `yaml:"city" json:"city"`
}

// DefaultCityAliases returns the built-in alias table. Order matters for
// substring scans: earlier aliases win, so an alias that contains another
// (新北 contains 北, 新竹縣 contains 新竹) comes first.
func DefaultCityAliases() []CityAlias {
	return []CityAlias{
		{"新北", "新北市"},
		{"台北", "臺北市"}, {"臺北", "臺北市"}, {"北市", "臺北市"},
		{"台中", "臺中市"}, {"臺中", "臺中市"},
		{"台南", "臺南市"}, {"臺南", "臺南市"},
		{"高雄", "高雄市"},
		{"桃園", "桃園市"},
		{"新竹縣", "新竹縣"},
		{"新竹", "新竹市"},
		{"基隆", "基隆市"},
		{"嘉義縣", "嘉義縣"},
		{"嘉義", "嘉義市"},
		{"宜蘭", "宜蘭縣"},
		{"花蓮", "花蓮縣"},
		{"台東", "臺東縣"}, {"臺東", "臺東縣"},
		{"屏東", "屏東縣"},
		{"苗栗", "苗栗縣"},
		{"彰化", "彰化縣"},
		{"雲林", "雲林縣"},
		{"南投", "南投縣"},
		{"連江", "連江縣"},
		{"金門", "金門縣"},
		{"澎湖", "澎湖縣"},
	}
}

// canonicalCities are accepted verbatim by Normalize.
var canonicalCities = []string{"臺北市", "新北市", "高雄市", "桃園市", "臺中市", "臺南市", "基隆市", "新竹市", "嘉義市"}

// CityResolver resolves city mentions against an ordered alias table.
type CityResolver struct {
	aliases     []CityAlias
	exact       map[string]string
	defaultCity string
}

// NewCityResolver creates a resolver. A nil table uses DefaultCityAliases.
func NewCityResolver(aliases []CityAlias) *CityResolver {
	if aliases == nil {
		aliases = DefaultCityAliases()
	}
	r := &CityResolver{
		aliases:     append([]CityAlias(nil), aliases...),
		exact:       make(map[string]string, len(aliases)+len(canonicalCities)),
		defaultCity: DefaultCity,
	}
	for _, c := range canonicalCities {
		r.exact[c] = c
	}
	for _, a := range aliases {
		r.exact[a.City] = a.City
	}
	// aliases override canonical self-maps, first declaration wins
	seen := make(map[string]bool)
	for _, a := range aliases {
		if !seen[a.Alias] {
			seen[a.Alias] = true
			r.exact[a.Alias] = a.City
		}
	}
	return r
}

// Find scans the alias table in order and returns the city of the first
// alias that occurs anywhere in text.
func (r *CityResolver) Find(text string) (string, bool) {
	for _, a := range r.aliases {
		if a.Alias != "" && strings.Contains(text, a.Alias) {
			return a.City, true
		}
	}
	return "", false
}

// Normalize maps a whole city name or alias to its canonical form.
// Empty input yields DefaultCity.
func (r *CityResolver) Normalize(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return r.defaultCity, true
	}
	city, ok := r.exact[text]
	return city, ok
}
