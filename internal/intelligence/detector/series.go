package detector

import (
	"sort"
	"strings"

	"narrative-workers/internal/models"
)

type metricGroup struct {
	name    string
	records []models.DataRecord
}

// groupByMetric keeps metrics in first-seen order.
func groupByMetric(records []models.DataRecord) []metricGroup {
	idx := map[string]int{}
	var groups []metricGroup
	for _, r := range records {
		i, ok := idx[r.MetricName]
		if !ok {
			i = len(groups)
			idx[r.MetricName] = i
			groups = append(groups, metricGroup{name: r.MetricName})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

// byRegion splits records by region. Region names come back sorted.
func byRegion(records []models.DataRecord) ([]string, map[string][]models.DataRecord) {
	m := map[string][]models.DataRecord{}
	for _, r := range records {
		m[r.Region] = append(m[r.Region], r)
	}
	regions := make([]string, 0, len(m))
	for k := range m {
		regions = append(regions, k)
	}
	sort.Strings(regions)
	return regions, m
}

// point is one year of a series; same-year values are averaged.
type point struct {
	year    int
	value   float64
	records []models.DataRecord
}

// yearSeries builds a year-ordered series from the dated records.
func yearSeries(records []models.DataRecord) []point {
	byYear := map[int][]models.DataRecord{}
	for _, r := range records {
		if r.HasYear() {
			byYear[*r.Year] = append(byYear[*r.Year], r)
		}
	}
	out := make([]point, 0, len(byYear))
	for y, rs := range byYear {
		out = append(out, point{year: y, value: mean(rs), records: rs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].year < out[j].year })
	return out
}

func mean(records []models.DataRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.Value
	}
	return sum / float64(len(records))
}

// entry is one region in a single-time-point snapshot.
type entry struct {
	region  string
	value   float64
	records []models.DataRecord
}

type snapshot struct {
	year    *int
	entries []entry
}

func (s *snapshot) records() []models.DataRecord {
	var out []models.DataRecord
	for _, e := range s.entries {
		out = append(out, e.records...)
	}
	return out
}

// latestSnapshot picks the latest year reported by at least two regions,
// falling back to undated records. It returns nil when no time point has
// two regions. Entries are sorted by value descending, ties by region.
func latestSnapshot(records []models.DataRecord) *snapshot {
	dated := map[int]map[string][]models.DataRecord{}
	undated := map[string][]models.DataRecord{}
	for _, r := range records {
		if r.Region == "" {
			continue
		}
		if !r.HasYear() {
			undated[r.Region] = append(undated[r.Region], r)
			continue
		}
		if dated[*r.Year] == nil {
			dated[*r.Year] = map[string][]models.DataRecord{}
		}
		dated[*r.Year][r.Region] = append(dated[*r.Year][r.Region], r)
	}

	years := make([]int, 0, len(dated))
	for y := range dated {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	for _, y := range years {
		if len(dated[y]) >= 2 {
			year := y
			return &snapshot{year: &year, entries: entries(dated[y])}
		}
	}
	if len(undated) >= 2 {
		return &snapshot{entries: entries(undated)}
	}
	return nil
}

func entries(m map[string][]models.DataRecord) []entry {
	out := make([]entry, 0, len(m))
	for region, rs := range m {
		out = append(out, entry{region: region, value: mean(rs), records: rs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].region < out[j].region
	})
	return out
}

// latestValue is the most recent value of records: the latest year when any
// record is dated, else the average of all of them.
func latestValue(records []models.DataRecord) (float64, *int, []models.DataRecord) {
	series := yearSeries(records)
	if len(series) > 0 {
		last := series[len(series)-1]
		year := last.year
		return last.value, &year, last.records
	}
	return mean(records), nil, records
}

func regionRecords(records []models.DataRecord, region string) []models.DataRecord {
	var out []models.DataRecord
	for _, r := range records {
		if strings.EqualFold(r.Region, region) {
			out = append(out, r)
		}
	}
	return out
}
