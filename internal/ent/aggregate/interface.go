package aggregate

// Totals are aggregated numbers of an epidemic.
type Totals struct {
	EpidemicID    uint    `json:"epidemicId"`
	Name          string  `json:"name,omitempty"`
	TotalCases    int64   `json:"totalCases"`
	TotalDeaths   int64   `json:"totalDeaths"`
	FatalityRatio float64 `json:"fatalityRatio"`
}

// Recalculator recomputes aggregates from daily stats.
type Recalculator interface {
	// Recompute updates aggregates of one epidemic.
	Recompute(epidemicID uint) (Totals, error)

	// RecomputeAll updates aggregates of every epidemic. It stops at the
	// first epidemic that cannot be updated.
	RecomputeAll() ([]Totals, error)

	// Overall returns stored aggregates of every epidemic.
	Overall() ([]Totals, error)
}

// FatalityRatio returns deaths per 100 cases, 0 if there are no cases.
func FatalityRatio(cases, deaths int64) float64 {
	if cases <= 0 {
		return 0
	}
	return float64(deaths) / float64(cases) * 100
}
