// Package analytics provides the grouping, windowing and ranking primitives
// shared by the report builders. Every function is a pure transform over its
// input slice; callers apply explicit date-range filters at the query layer
// before bucketing.
package analytics

import (
	"math"
	"sort"
	"time"
)

// BucketBy groups records by an arbitrary derived key.
func BucketBy[T any, K comparable](records []T, key func(T) K) map[K][]T {
	buckets := make(map[K][]T)
	for _, record := range records {
		k := key(record)
		buckets[k] = append(buckets[k], record)
	}
	return buckets
}

// Rate returns the percentage of records matching the predicate. An empty
// input yields 0, never a division by zero.
func Rate[T any](records []T, predicate func(T) bool) float64 {
	if len(records) == 0 {
		return 0
	}
	matched := 0
	for _, record := range records {
		if predicate(record) {
			matched++
		}
	}
	return 100 * float64(matched) / float64(len(records))
}

// TopN sorts records descending by score and truncates to n. The sort is
// stable, so equal scores keep their input order unless a tie-break is
// supplied.
func TopN[T any](records []T, score func(T) float64, n int, tieBreak func(a, b T) bool) []T {
	ranked := make([]T, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := score(ranked[i]), score(ranked[j])
		if si != sj {
			return si > sj
		}
		if tieBreak != nil {
			return tieBreak(ranked[i], ranked[j])
		}
		return false
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// WindowFilter retains records whose date falls within the trailing
// days-day window ending at now, inclusive on both ends. now is injected by
// the caller so windowing stays deterministic.
func WindowFilter[T any](records []T, date func(T) time.Time, now time.Time, days int) []T {
	cutoff := now.AddDate(0, 0, -days)
	kept := make([]T, 0, len(records))
	for _, record := range records {
		d := date(record)
		if d.Before(cutoff) || d.After(now) {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

// DayKey formats a calendar-day bucket key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthKey formats a calendar-month bucket key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// SortedKeys returns the bucket keys in ascending order.
func SortedKeys[T any](buckets map[string][]T) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Round2 rounds to two decimals for presentation. Aggregation itself keeps
// full precision so nested groupings do not compound rounding error.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
