package domain

import (
	"math"
	"sort"
	"strconv"
)

// DefaultRecentLimit is how many dated accidents AccidentStatisticsOf keeps.
const DefaultRecentLimit = 10

// Percentage returns round(count / total * 100), or 0 when total is not positive.
func Percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// group is an insertion-ordered mapping from key to members.
type group[T any] struct {
	keys    []string
	members map[string][]T
}

// groupBy buckets items by key, remembering first-seen key order. Items for
// which key reports false are skipped.
func groupBy[T any](items []T, key func(T) (string, bool)) group[T] {
	g := group[T]{members: make(map[string][]T)}
	for _, item := range items {
		k, ok := key(item)
		if !ok {
			continue
		}
		if _, seen := g.members[k]; !seen {
			g.keys = append(g.keys, k)
		}
		g.members[k] = append(g.members[k], item)
	}
	return g
}

// counts flattens a group into key -> member count.
func (g group[T]) counts() map[string]int {
	out := make(map[string]int, len(g.keys))
	for _, k := range g.keys {
		out[k] = len(g.members[k])
	}
	return out
}

// share is one labelled slice of a distribution.
type share struct {
	label      string
	count      int
	percentage int
}

// distribution turns a group into shares of total, sorted by count
// descending. Equal counts keep first-seen order.
func (g group[T]) distribution(total int) []share {
	out := make([]share, 0, len(g.keys))
	for _, k := range g.keys {
		n := len(g.members[k])
		out = append(out, share{label: k, count: n, percentage: Percentage(n, total)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

// AccidentStatisticsOf aggregates a processed accident snapshot, keeping the
// DefaultRecentLimit most recent dated accidents.
func AccidentStatisticsOf(records []ProcessedAccidentRecord) AccidentStatistics {
	return AccidentStatisticsWithLimit(records, DefaultRecentLimit)
}

// AccidentStatisticsWithLimit is AccidentStatisticsOf with a configurable
// recent-accident limit. Records without a parsed date are left out of the
// year breakdown and the recent list.
func AccidentStatisticsWithLimit(records []ProcessedAccidentRecord, recentLimit int) AccidentStatistics {
	stats := AccidentStatistics{
		TotalAccidents: len(records),
		ByProvince: groupBy(records, func(r ProcessedAccidentRecord) (string, bool) {
			return r.Province, true
		}).counts(),
		ByRoadType: groupBy(records, func(r ProcessedAccidentRecord) (string, bool) {
			return string(r.RoadTypeCategory), true
		}).counts(),
		ByYear: groupBy(records, func(r ProcessedAccidentRecord) (string, bool) {
			if r.ParsedDate == nil {
				return "", false
			}
			return strconv.Itoa(r.ParsedDate.In(Zone).Year()), true
		}).counts(),
	}

	stats.TotalCasualties = TotalCasualties(records)
	stats.RecentAccidents = recentAccidents(records, recentLimit)
	return stats
}

// recentAccidents returns dated records, newest first, truncated to limit.
func recentAccidents(records []ProcessedAccidentRecord, limit int) []ProcessedAccidentRecord {
	dated := make([]ProcessedAccidentRecord, 0, len(records))
	for _, r := range records {
		if r.ParsedDate != nil {
			dated = append(dated, r)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].ParsedDate.After(*dated[j].ParsedDate)
	})
	if limit >= 0 && len(dated) > limit {
		dated = dated[:limit]
	}
	return dated
}

// MediaStatisticsOf aggregates a processed media snapshot by raw column values.
func MediaStatisticsOf(records []ProcessedMediaRecord) MediaStatistics {
	stats := MediaStatistics{
		TotalArticles: len(records),
		ByPublisherType: groupBy(records, func(r ProcessedMediaRecord) (string, bool) {
			return r.PublisherType, true
		}).counts(),
		ByLocation: groupBy(records, func(r ProcessedMediaRecord) (string, bool) {
			return r.PublisherIDLocation, true
		}).counts(),
	}

	totalLength := 0
	for _, r := range records {
		if r.HasVideo {
			stats.WithVideo++
		}
		if r.IsGovernmentSource {
			stats.GovernmentSources++
		}
		totalLength += r.ArticleCharacterCount
	}
	if len(records) > 0 {
		stats.AverageLength = int(math.Round(float64(totalLength) / float64(len(records))))
	}
	return stats
}
