package domain

import (
	"regexp"
	"sort"
	"strconv"
	"time"
)

// dayKeyRe parses the "M月D日" keys the timeline is grouped by.
var dayKeyRe = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日$`)

// dayKeyReferenceYear is a leap year so that "2月29日" buckets stay valid.
const dayKeyReferenceYear = 2024

// dayKeyDate reconstructs a comparable date from a "M月D日" key. Keys that do
// not parse report false.
func dayKeyDate(key string) (time.Time, bool) {
	m := dayKeyRe.FindStringSubmatch(key)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return time.Date(dayKeyReferenceYear, time.Month(month), day, 0, 0, 0, 0, Zone), true
}

// sortDailyStats orders buckets chronologically by their keys. Unparseable
// keys sort last in their original order.
func sortDailyStats(days []DailyStats) {
	sort.SliceStable(days, func(i, j int) bool {
		di, okI := dayKeyDate(days[i].Date)
		dj, okJ := dayKeyDate(days[j].Date)
		switch {
		case okI && okJ:
			return di.Before(dj)
		default:
			return okI && !okJ
		}
	})
}

// DailyStatsOf groups dated articles by their formatted publish day, in
// chronological order. Articles without a publish date are not bucketed.
// Day keys carry no year, so a timeline spanning New Year sorts January
// ahead of December.
func DailyStatsOf(articles []ProcessedArticle) []DailyStats {
	byDay := groupBy(articles, func(a ProcessedArticle) (string, bool) {
		return a.PublishTimeFormatted, a.PublishTime != nil && a.PublishTimeFormatted != ""
	})

	days := make([]DailyStats, 0, len(byDay.keys))
	for _, k := range byDay.keys {
		members := byDay.members[k]
		days = append(days, DailyStats{Date: k, Count: len(members), Articles: members})
	}
	sortDailyStats(days)
	return days
}

// PeakDayOf returns the bucket with the highest count. Ties go to the
// earliest bucket in days; an empty input yields the zero PeakDay.
func PeakDayOf(days []DailyStats) PeakDay {
	var peak PeakDay
	for i, d := range days {
		if i == 0 || d.Count > peak.Count {
			peak = PeakDay{Date: d.Date, Count: d.Count}
		}
	}
	return peak
}

// PublisherTypeStatsOf returns the publisher-type distribution, largest first.
func PublisherTypeStatsOf(articles []ProcessedArticle) []PublisherTypeStats {
	shares := groupBy(articles, func(a ProcessedArticle) (string, bool) {
		return a.PublisherType, true
	}).distribution(len(articles))

	out := make([]PublisherTypeStats, len(shares))
	for i, s := range shares {
		out[i] = PublisherTypeStats{Type: s.label, Count: s.count, Percentage: s.percentage}
	}
	return out
}

// LocationStatsOf splits articles into Guangdong and non-Guangdong publishers
// by exact match on the location column, largest first.
func LocationStatsOf(articles []ProcessedArticle) []LocationStats {
	guangdong := 0
	for _, a := range articles {
		if a.PublisherLocation == LocationGuangdong {
			guangdong++
		}
	}
	total := len(articles)
	out := []LocationStats{
		{Location: LocationGuangdong, Count: guangdong, Percentage: Percentage(guangdong, total)},
		{Location: LocationNonGuangdong, Count: total - guangdong, Percentage: Percentage(total-guangdong, total)},
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ExclusiveStatsOf counts exclusive articles and those published by news media.
func ExclusiveStatsOf(articles []ProcessedArticle) ExclusiveStats {
	var stats ExclusiveStats
	for _, a := range articles {
		if a.PublishFormType != PublishFormExclusive {
			continue
		}
		stats.TotalExclusive++
		if a.PublisherType == PublisherNewsMedia {
			stats.ExclusiveByMedia++
		}
	}
	stats.ExclusivePercentage = Percentage(stats.TotalExclusive, len(articles))
	return stats
}

// VideoStatsOf counts articles with on-site video.
func VideoStatsOf(articles []ProcessedArticle) VideoStats {
	var stats VideoStats
	for _, a := range articles {
		if a.HasVideo {
			stats.TotalWithVideo++
		}
	}
	stats.VideoPercentage = Percentage(stats.TotalWithVideo, len(articles))
	return stats
}

// CoverageOf computes the full coverage timeline for a set of articles.
func CoverageOf(articles []ProcessedArticle) Coverage {
	days := DailyStatsOf(articles)
	return Coverage{
		Articles:           articles,
		DailyStats:         days,
		PublisherTypeStats: PublisherTypeStatsOf(articles),
		LocationStats:      LocationStatsOf(articles),
		TotalArticles:      len(articles),
		PeakDay:            PeakDayOf(days),
		ExclusiveStats:     ExclusiveStatsOf(articles),
		VideoStats:         VideoStatsOf(articles),
	}
}

// Day returns the bucket for a "M月D日" key.
func (c Coverage) Day(date string) (DailyStats, bool) {
	for _, d := range c.DailyStats {
		if d.Date == date {
			return d, true
		}
	}
	return DailyStats{}, false
}
