// Package record merges per-endpoint fetch results into the fixed-schema
// health record persisted per date.
//
// The merge never fails: a date whose 34 calls all failed still yields a
// fully-populated record of sentinels, because the row records "we tried and
// could get nothing", not success. Absent and junk values become the
// Sentinel only here, at the output boundary; upstream code works with
// plain maps and errors.
package record

import (
	"strings"
	"time"

	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/endpoint"
	"github.com/bipard/healthfetch/pkg/fetchclient"
)

// Sentinel is the placeholder stored for any column whose source data could
// not be obtained.
const Sentinel = "Not Available"

// Fixed derived-column values.
const (
	StateName = "Bihar"
	FocusArea = "State Health System Performance"
	Source    = "Bhavya"
)

// fetchedAtLayout is the storage form of the fetched_at column.
const fetchedAtLayout = "2006-01-02 15:04:05"

// HealthRecord is the merged output row for one date. Every column in
// Columns holds a value; columns never go absent.
type HealthRecord struct {
	values map[string]string
}

// Date returns the record's data_date key.
func (r *HealthRecord) Date() datekey.Key {
	return datekey.Key(r.values["data_date"])
}

// Get returns the value of a column, or the empty string for a column
// outside the schema.
func (r *HealthRecord) Get(column string) string {
	return r.values[column]
}

// Values returns the column values in Columns order.
func (r *HealthRecord) Values() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = r.values[c]
	}
	return out
}

// Map returns a copy of the record as a column→value map.
func (r *HealthRecord) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// junkValues are source spellings that mean "no data". Comparison is
// case-insensitive.
var junkValues = map[string]bool{
	"null": true, "none": true, "nan": true,
	"not found": true, "notfound": true,
	"n/a": true, "na": true, "-": true,
}

func usable(v string) bool {
	if v == "" {
		return false
	}
	return !junkValues[strings.ToLower(v)]
}

// Merge combines the per-endpoint results for date into one HealthRecord.
//
// For each endpoint field mapping, a successful result's payload populates
// the mapped column; failed or missing results leave the Sentinel. Derived
// columns are computed unconditionally. now stamps fetched_at.
func Merge(date datekey.Key, results []fetchclient.Result, now time.Time) *HealthRecord {
	values := make(map[string]string, len(Columns))
	for _, c := range Columns {
		values[c] = Sentinel
	}

	values["data_date"] = date.String()
	values["state_name"] = StateName
	values["focus_area"] = FocusArea
	values["year"] = date.Year()
	values["month"] = date.Month()
	values["start_date"] = date.String()
	values["end_date"] = date.String()
	values["source"] = Source
	values["fetched_at"] = now.Format(fetchedAtLayout)

	byName := make(map[string]fetchclient.Result, len(results))
	for _, res := range results {
		byName[res.Endpoint] = res
	}

	for _, spec := range endpoint.Specs {
		res, ok := byName[spec.Name]
		if !ok || !res.OK() {
			continue
		}
		for _, f := range spec.Fields {
			v, ok := lookup(res.Values, f.Keys)
			if !ok {
				continue
			}
			if f.SkipZero && (v == "0" || v == "0.0") {
				continue
			}
			values[f.Column] = v
		}
	}

	return &HealthRecord{values: values}
}

// lookup returns the first usable value among keys.
func lookup(payload map[string]string, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok && usable(v) {
			return v, true
		}
	}
	return "", false
}

// FromMap rebuilds a record from stored column values. Columns missing from
// m are sentineled, so rows written by older schema revisions stay readable.
func FromMap(m map[string]string) *HealthRecord {
	values := make(map[string]string, len(Columns))
	for _, c := range Columns {
		if v, ok := m[c]; ok && v != "" {
			values[c] = v
		} else {
			values[c] = Sentinel
		}
	}
	return &HealthRecord{values: values}
}
