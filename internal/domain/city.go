package domain

import "strings"

// City is one of the eight fixed capital-city buckets.
type City struct {
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	State       string      `json:"state"`
	Keywords    []string    `json:"keywords"`
	Coordinates Coordinates `json:"coordinates"`
}

// DefaultCitySlug is used when neither keywords nor the state code match.
const DefaultCitySlug = "sydney"

// capitalCities is scored in this order; the order decides ties.
var capitalCities = [...]City{
	{
		Name: "Sydney", Slug: "sydney", State: "NSW",
		Keywords:    []string{"sydney", "nsw", "new south wales", "parramatta", "blacktown", "penrith", "campbelltown", "liverpool", "fairfield", "bankstown"},
		Coordinates: Coordinates{Lat: -33.8688, Lng: 151.2093},
	},
	{
		Name: "Melbourne", Slug: "melbourne", State: "VIC",
		Keywords:    []string{"melbourne", "vic", "victoria", "geelong", "ballarat", "bendigo", "shepparton", "warrnambool"},
		Coordinates: Coordinates{Lat: -37.8136, Lng: 144.9631},
	},
	{
		Name: "Brisbane", Slug: "brisbane", State: "QLD",
		Keywords:    []string{"brisbane", "qld", "queensland", "gold coast", "sunshine coast", "ipswich", "logan", "redcliffe"},
		Coordinates: Coordinates{Lat: -27.4698, Lng: 153.0251},
	},
	{
		Name: "Perth", Slug: "perth", State: "WA",
		Keywords:    []string{"perth", "wa", "western australia", "fremantle", "joondalup", "rockingham", "mandurah", "bunbury"},
		Coordinates: Coordinates{Lat: -31.9505, Lng: 115.8605},
	},
	{
		Name: "Adelaide", Slug: "adelaide", State: "SA",
		Keywords:    []string{"adelaide", "sa", "south australia", "port adelaide", "mount gambier", "whyalla", "murray bridge"},
		Coordinates: Coordinates{Lat: -34.9285, Lng: 138.6007},
	},
	{
		Name: "Hobart", Slug: "hobart", State: "TAS",
		Keywords:    []string{"hobart", "tas", "tasmania", "launceston", "devonport", "burnie", "kingston"},
		Coordinates: Coordinates{Lat: -42.8821, Lng: 147.3272},
	},
	{
		Name: "Canberra", Slug: "canberra", State: "ACT",
		Keywords:    []string{"canberra", "act", "australian capital territory", "tuggeranong", "woden", "belconnen"},
		Coordinates: Coordinates{Lat: -35.2809, Lng: 149.13},
	},
	{
		Name: "Darwin", Slug: "darwin", State: "NT",
		Keywords:    []string{"darwin", "nt", "northern territory", "alice springs", "katherine", "nhulunbuy"},
		Coordinates: Coordinates{Lat: -12.4634, Lng: 130.8456},
	},
}

// stateCapitals maps a lowercase state code to its capital's slug.
var stateCapitals = map[string]string{
	"nsw": "sydney",
	"vic": "melbourne",
	"qld": "brisbane",
	"wa":  "perth",
	"sa":  "adelaide",
	"tas": "hobart",
	"act": "canberra",
	"nt":  "darwin",
}

const (
	scoreCityName = 10
	scoreState    = 5
	scoreKeyword  = 2
)

// Cities returns a copy of the capital-city table in scoring order.
func Cities() []City {
	out := make([]City, len(capitalCities))
	for i, c := range capitalCities {
		c.Keywords = append([]string(nil), c.Keywords...)
		out[i] = c
	}
	return out
}

// CityBySlug looks up a capital city by slug.
func CityBySlug(slug string) (City, bool) {
	for _, c := range capitalCities {
		if c.Slug == slug {
			c.Keywords = append([]string(nil), c.Keywords...)
			return c, true
		}
	}
	return City{}, false
}

// CityCandidate is the text a location is matched on.
type CityCandidate struct {
	Name    string
	Address string
	City    string
	State   string
	Region  string
}

// AssignCity picks the capital city a location belongs to. Each keyword found
// as a case-insensitive substring of the candidate text adds to that city's
// score; the first city with the strictly highest score wins. With no score at
// all the state code decides, then DefaultCitySlug.
func AssignCity(c CityCandidate) string {
	text := strings.ToLower(strings.Join([]string{c.Name, c.Address, c.City, c.State, c.Region}, " "))

	best, bestScore := "", 0
	for _, city := range capitalCities {
		if score := scoreCity(city, text); score > bestScore {
			best, bestScore = city.Slug, score
		}
	}
	if best != "" {
		return best
	}

	if slug, ok := stateCapitals[strings.ToLower(c.State)]; ok {
		return slug
	}
	return DefaultCitySlug
}

func scoreCity(city City, text string) int {
	name := strings.ToLower(city.Name)
	state := strings.ToLower(city.State)

	score := 0
	for _, kw := range city.Keywords {
		if !strings.Contains(text, kw) {
			continue
		}
		switch kw {
		case name:
			score += scoreCityName
		case state:
			score += scoreState
		default:
			score += scoreKeyword
		}
	}
	return score
}
