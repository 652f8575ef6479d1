package schema

// Dataset families with their own column conventions.
const (
	Mpox    = "mpox"
	Covid19 = "covid19"
	Corona  = "corona"
)

// Canonical numeric fields.
const (
	fCases        = "cases"
	fDeaths       = "deaths"
	fRecovered    = "recovered"
	fActive       = "active"
	fNewCases     = "new_cases"
	fNewDeaths    = "new_deaths"
	fNewRecovered = "new_recovered"
)

var canonicalFields = []string{
	fCases, fDeaths, fRecovered, fActive, fNewCases, fNewDeaths, fNewRecovered,
}

// locationKeywords are matched against lower-cased headers to find the
// location column.
var locationKeywords = []string{"country", "location", "region", "state"}

// dateLayouts are tried in order before the permissive parser.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"1-2-2006",
	"2006/1/2",
}

// familyFields maps canonical fields to candidate headers per family. The
// first candidate present in a file wins. The quirks of these lists are
// the contract with the upstream datasets, keep them as they are.
var familyFields = map[string]map[string][]string{
	Mpox: {
		fCases:     {"total_cases", "cases"},
		fDeaths:    {"total_deaths", "deaths"},
		fNewCases:  {"new_cases"},
		fNewDeaths: {"new_deaths"},
	},
	Covid19: {
		fCases:     {"total_cases", "cases"},
		fDeaths:    {"total_deaths", "deaths"},
		fRecovered: {"total_recovered", "recovered"},
		fActive:    {"active_cases", "active"},
		fNewCases:  {"new_cases"},
		fNewDeaths: {"new_deaths"},
	},
}

// defaultFields are used for families without their own entry.
var defaultFields = map[string][]string{
	fCases:        {"Confirmed", "confirmed", "cases"},
	fDeaths:       {"Deaths", "deaths"},
	fRecovered:    {"Recovered", "recovered"},
	fActive:       {"Active", "active"},
	fNewCases:     {"New cases", "new_cases"},
	fNewDeaths:    {"New deaths", "new_deaths"},
	fNewRecovered: {"New recovered", "new_recovered"},
}

// specialCase injects a constant column into files that are known to miss
// a date or a location.
type specialCase struct {
	family string
	// files limits the case to these base names, empty means any file.
	files []string
	// needCols must all be present as exact headers.
	needCols []string
	// noDateCol requires that no header mentions "date".
	noDateCol bool
	column    string
	value     string
}

var specialCases = []specialCase{
	{
		family:    Covid19,
		needCols:  []string{"total_confirmed"},
		noDateCol: true,
		column:    "date",
		value:     "2022-05-14",
	},
	{
		family: Corona,
		files:  []string{"worldometer_data.csv", "country_wise_latest.csv"},
		column: "date",
		value:  "2020-01-21",
	},
	{
		family:   Corona,
		files:    []string{"day_wise.csv"},
		needCols: []string{"Date"},
		column:   "location",
		value:    "Global",
	},
}

func fieldsFor(family string) map[string][]string {
	if res, ok := familyFields[family]; ok {
		return res
	}
	return defaultFields
}
