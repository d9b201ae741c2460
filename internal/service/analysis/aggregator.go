// Package analysis summarizes traffic records by hour of day.
package analysis

import (
	"errors"
	"math"
	"sort"

	"trafficcount/internal/model"
)

// ErrEmptyInput is returned when there are no records to analyze.
var ErrEmptyInput = errors.New("analysis: no records to analyze")

// HourlyAggregate maps hour of day to the summed total traffic for that hour.
// Only hours present in the data have an entry.
type HourlyAggregate map[int]int

// Hours returns the populated hours in ascending order.
func (h HourlyAggregate) Hours() []int {
	hours := make([]int, 0, len(h))
	for hour := range h {
		hours = append(hours, hour)
	}
	sort.Ints(hours)
	return hours
}

// HourBucket is one bar of the hourly chart.
type HourBucket struct {
	Hour  int `json:"hour"`
	Total int `json:"total"`
}

// Buckets returns the aggregate as an hour-sorted slice.
func (h HourlyAggregate) Buckets() []HourBucket {
	hours := h.Hours()
	buckets := make([]HourBucket, 0, len(hours))
	for _, hour := range hours {
		buckets = append(buckets, HourBucket{Hour: hour, Total: h[hour]})
	}
	return buckets
}

// Analysis is the result of Analyze.
type Analysis struct {
	Hourly    HourlyAggregate `json:"-"`
	PeakHour  int             `json:"peak_hour"`
	PeakTotal int             `json:"peak_total"`
}

// Analyze sums record totals by hour and picks the busiest hour.
//
// When several hours share the maximum, the lowest hour wins.
func Analyze(records []model.TrafficRecord) (Analysis, error) {
	if len(records) == 0 {
		return Analysis{}, ErrEmptyInput
	}

	hourly := make(HourlyAggregate)
	for _, r := range records {
		hourly[r.Hour()] = addCapped(hourly[r.Hour()], r.Total())
	}

	result := Analysis{Hourly: hourly, PeakHour: -1}
	for _, hour := range hourly.Hours() {
		// strict comparison keeps the first (lowest) hour on ties
		if result.PeakHour < 0 || hourly[hour] > result.PeakTotal {
			result.PeakHour = hour
			result.PeakTotal = hourly[hour]
		}
	}
	return result, nil
}

// addCapped adds non-negative b to a, saturating at math.MaxInt.
func addCapped(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// ShouldAnalyze reports whether count is a positive multiple of batch.
func ShouldAnalyze(count, batch int) bool {
	if batch <= 0 {
		return false
	}
	return count >= batch && count%batch == 0
}

// IsHighTraffic reports whether a pending entry exceeds threshold.
func IsHighTraffic(entry model.Entry, threshold int) bool {
	return entry.Total() > threshold
}
