package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultOpeningHours is returned when no hours phrase is found.
	DefaultOpeningHours = "Contact for hours"
	// DefaultMaterial is the sole accepted material when nothing else is known.
	DefaultMaterial = "General Waste"
	// DefaultFacilityType is used when no facility keyword matches.
	DefaultFacilityType = "Waste Facility"
	// AddressUnavailable is used when a row has no address parts at all.
	AddressUnavailable = "Address not available"

	// maxContentRunes bounds both the content field and long descriptions.
	maxContentRunes = 5000
	// minDescriptionRunes is the content length above which content is used as the description.
	minDescriptionRunes = 100

	minHoursRunes = 10
	maxHoursRunes = 200

	placeholderUndefined = "undefined"
	placeholderNull      = "null"
)

// space matches what content exported from the CMS uses as whitespace,
// including NBSP, BOM and the Unicode line and paragraph separators.
const space = `[\s\v\p{Zs}\x{FEFF}\x{2028}\x{2029}]`

var (
	// phonePatterns are tried in order; the first pattern with any match wins.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\(\d{2}\)` + space + `*\d{4}` + space + `*\d{4}`),               // (02) 1234 5678
		regexp.MustCompile(`\d{2}` + space + `*\d{4}` + space + `*\d{4}`),                   // 02 1234 5678
		regexp.MustCompile(`\d{10}`),                                                        // 0212345678
		regexp.MustCompile(`\+61` + space + `*\d{1}` + space + `*\d{4}` + space + `*\d{4}`), // +61 2 1234 5678
	}

	hoursPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:open|hours?|operating)(?:` + space + `|:)*([^.!?]{20,100}(?:am|pm|hours?))`),
		regexp.MustCompile(`(?i)(?:monday|mon).*?(?:sunday|sun)[^.!?]*(?:am|pm)`),
		regexp.MustCompile(`(?i)\d{1,2}(?::\d{2})?` + space + `*(?:am|pm).*?\d{1,2}(?::\d{2})?` + space + `*(?:am|pm)`),
	}

	whitespaceRunRe = regexp.MustCompile(space + `+`)

	// materialKeywords is scanned in order when no materials column is usable.
	materialKeywords = []string{
		"general waste", "green waste", "garden waste", "construction waste",
		"household waste", "commercial waste", "recyclables", "recycling",
		"metal", "metals", "concrete", "rubble", "timber", "wood",
		"electronics", "e-waste", "hazardous waste", "batteries",
		"paint", "chemicals", "asbestos", "tyres", "tires",
		"paper", "cardboard", "plastics", "glass", "organic waste",
		"bulky items", "furniture", "appliances", "mattresses",
		"cars", "vehicles", "automotive", "oil", "whitegoods",
	}

	// htmlEntities are decoded one after another, in this order.
	htmlEntities = [][2]string{
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", `"`},
		{"&#39;", "'"},
	}

	// facilityTypes are checked in order against categories + content; first hit wins.
	facilityTypes = []struct {
		needles []string
		label   string
	}{
		{[]string{"transfer station"}, "Transfer Station"},
		{[]string{"resource recovery"}, "Resource Recovery"},
		{[]string{"recycling centre", "recycling center"}, "Recycling Centre"},
		{[]string{"council tip"}, "Council Tip"},
		{[]string{"waste management"}, "Waste Management"},
		{[]string{"tip"}, "Rubbish Tip"},
		{[]string{"landfill"}, "Landfill"},
	}
)

// ExtractPhone returns the first Australian phone number found in content,
// or "" if there is none.
func ExtractPhone(content string) string {
	if content == "" {
		return ""
	}
	for _, re := range phonePatterns {
		if m := re.FindString(content); m != "" {
			return strings.TrimFunc(m, isSpace)
		}
	}
	return ""
}

// ExtractOpeningHours returns the first opening-hours phrase in content that
// is between 11 and 199 characters long, or DefaultOpeningHours.
func ExtractOpeningHours(content string) string {
	if content == "" {
		return DefaultOpeningHours
	}

	clean := whitespaceRunRe.ReplaceAllString(content, " ")
	for _, re := range hoursPatterns {
		m := re.FindString(clean)
		if n := utf8.RuneCountInString(m); n > minHoursRunes && n < maxHoursRunes {
			return strings.TrimFunc(m, isSpace)
		}
	}
	return DefaultOpeningHours
}

// ExtractAcceptedMaterials prefers the pipe-delimited materials column and
// falls back to keyword matching over content. The result is never empty.
func ExtractAcceptedMaterials(materialsColumn, content string) []string {
	var materials []string

	if strings.TrimSpace(materialsColumn) != "" {
		for _, part := range strings.Split(materialsColumn, "|") {
			part = strings.TrimSpace(part)
			if part == "" || part == placeholderUndefined || part == placeholderNull {
				continue
			}
			materials = append(materials, decodeEntities(part))
		}
	}

	if len(materials) == 0 && content != "" {
		lower := strings.ToLower(content)
		for _, kw := range materialKeywords {
			if strings.Contains(lower, kw) {
				materials = append(materials, titleWords(kw))
			}
		}
	}

	materials = dedupe(materials)
	if len(materials) == 0 {
		return []string{DefaultMaterial}
	}
	return materials
}

// ExtractFacilityType classifies a facility from its categories and content.
func ExtractFacilityType(categories, content string) string {
	text := strings.ToLower(categories + " " + content)
	for _, ft := range facilityTypes {
		for _, needle := range ft.needles {
			if strings.Contains(text, needle) {
				return ft.label
			}
		}
	}
	return DefaultFacilityType
}

// BuildAddress joins the row's address parts, falling back to the raw
// address column and then AddressUnavailable.
func BuildAddress(row RawRow) string {
	var parts []string
	if row.Street != "" {
		parts = append(parts, row.Street)
	}
	if row.Street2 != "" && row.Street2 != placeholderUndefined {
		parts = append(parts, row.Street2)
	}
	if row.City != "" {
		parts = append(parts, row.City)
	}
	if row.Province != "" {
		parts = append(parts, row.Province)
	}
	if row.Zip != "" && row.Zip != placeholderUndefined {
		parts = append(parts, row.Zip)
	}

	if addr := strings.Join(parts, ", "); addr != "" {
		return addr
	}
	if row.Address != "" {
		return row.Address
	}
	return AddressUnavailable
}

// GenerateDescription uses long content as the description (truncated, with
// an ellipsis) and otherwise writes a generic sentence naming the city.
func GenerateDescription(name, content, citySlug string) string {
	if utf8.RuneCountInString(content) > minDescriptionRunes {
		return TruncateContent(content) + "..."
	}

	cityName := "Australia"
	if c, ok := CityBySlug(citySlug); ok {
		cityName = c.Name
	}
	return fmt.Sprintf("%s is a waste disposal facility serving the %s area. "+
		"Contact the facility for specific details about accepted materials, opening hours, and disposal fees.",
		name, cityName)
}

// TruncateContent cuts content to its first 5000 characters.
func TruncateContent(content string) string {
	if utf8.RuneCountInString(content) <= maxContentRunes {
		return content
	}
	return string([]rune(content)[:maxContentRunes])
}

func decodeEntities(s string) string {
	for _, e := range htmlEntities {
		s = strings.ReplaceAll(s, e[0], e[1])
	}
	return strings.TrimSpace(s)
}

// titleWords upper-cases the first letter of each space-separated word.
func titleWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
