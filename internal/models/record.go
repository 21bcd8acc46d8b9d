package models

import "strconv"

// DataRecord is one observed value as returned by a retriever. Records are
// never modified after retrieval.
type DataRecord struct {
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
	Year       *int    `json:"year,omitempty"`
	Region     string  `json:"region,omitempty"`
	Source     string  `json:"source"`
	Unit       string  `json:"unit,omitempty"`
	Domain     string  `json:"domain,omitempty"`
}

// YearOf is a helper for building records.
func YearOf(y int) *int {
	return &y
}

func (r DataRecord) HasYear() bool {
	return r.Year != nil
}

// YearValue returns the year or 0 for undated records.
func (r DataRecord) YearValue() int {
	if r.Year == nil {
		return 0
	}
	return *r.Year
}

// Key identifies a record for de-duplication across backends.
func (r DataRecord) Key() string {
	year := "-"
	if r.Year != nil {
		year = strconv.Itoa(*r.Year)
	}
	return r.MetricName + "|" + r.Region + "|" + year + "|" + r.Source + "|" +
		strconv.FormatFloat(r.Value, 'g', -1, 64)
}
