// Package domain models Australian waste-disposal facilities and the
// conversion of the facility CSV export into the directory JSON document.
//
// # Data Source
//
// The input is a WordPress store-locator export: one row per facility with a
// free-text Content column and a handful of loosely structured columns
// (street, city, province, zip, categories, pipe-delimited materials, region).
// Columns are matched by header name; see [Columns] and [DefaultColumns].
//
// # CSV Conventions
//
// The export is not strict RFC 4180. [Tokenize] is lenient:
//
//	"a, ""quoted"" b",plain   →  [a, "quoted" b] [plain]
//	unterminated "quote       →  reads to end of input
//	blank lines               →  collapsed into the previous row terminator
//
// # Derived Fields
//
// Phone, opening hours, accepted materials and facility type are pulled out of
// the Content text with fixed heuristics. None of them fail; each degrades to
// a fallback value:
//
//	phone          ""
//	opening hours  "Contact for hours"
//	materials      ["General Waste"]
//	type           "Waste Facility"
//
// # City Assignment
//
// Every facility is bucketed into one of eight capital cities by keyword
// scoring over name, address, city, state and region:
//
//	city name  +10 | state code  +5 | other keyword  +2
//
// Cities are scored in the fixed order of [Cities]; only a strictly greater
// score replaces the current best, so the earlier city wins a tie. A zero
// score falls back to the state-code capital, then to Sydney. See [AssignCity].
//
// # Slugs
//
// Location slugs are derived from the facility name by [Slugify] and are not
// made unique. Two facilities with the same slugified name in the same city
// collide; [Convert] reports these in [ConversionResult.SlugCollisions] and
// leaves the data untouched.
package domain
