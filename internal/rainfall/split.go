package rainfall

import (
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// SplitByDate partitions a table into one sub-table per distinct raw date
// value, returned alongside the dates in first-appearance order.
//
// Dates are grouped by their raw string form and are NOT validated here: the
// splitter checks neither parseability, continuity, nor ordering. Each day's
// date is parsed later by the unit that processes it, so a malformed date
// fails exactly one day. Discontinuous or out-of-order date sequences pass
// through silently; that is deliberate, documented policy.
func SplitByDate(t *Table) (map[string]*Table, []string, error) {
	if len(t.Records) == 0 {
		return nil, nil, domain.DataFormatf("cannot split an empty table")
	}
	byDate := make(map[string]*Table)
	var order []string
	for _, rec := range t.Records {
		sub, ok := byDate[rec.RawDate]
		if !ok {
			sub = &Table{}
			byDate[rec.RawDate] = sub
			order = append(order, rec.RawDate)
		}
		sub.Records = append(sub.Records, rec)
	}
	return byDate, order, nil
}

// SumByStation collapses a multi-date table into one row per station with
// rainfall summed across dates, keeping each station's first coordinates and
// date. Recorded rainfall enters the overlay as an accumulated total, not a
// time series.
func SumByStation(t *Table) *Table {
	totals := make(map[string]*Record)
	var order []string
	for _, rec := range t.Records {
		agg, ok := totals[rec.Station]
		if !ok {
			cp := rec
			totals[rec.Station] = &cp
			order = append(order, rec.Station)
			continue
		}
		agg.Rainfall += rec.Rainfall
	}
	out := &Table{Records: make([]Record, 0, len(order))}
	for _, station := range order {
		out.Records = append(out.Records, *totals[station])
	}
	return out
}
