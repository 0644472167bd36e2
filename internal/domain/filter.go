package domain

import "strings"

// localPublisherMarkers identify publishers local to the Zhoushi Road site.
var localPublisherMarkers = []string{"深圳", "宝安"}

// FilterByProvince returns the records in province. An empty province returns
// all records.
func FilterByProvince(records []ProcessedAccidentRecord, province string) []ProcessedAccidentRecord {
	if province == "" {
		return records
	}
	out := make([]ProcessedAccidentRecord, 0, len(records))
	for _, r := range records {
		if r.Province == province {
			out = append(out, r)
		}
	}
	return out
}

// TotalCasualties sums casualties over records.
func TotalCasualties(records []ProcessedAccidentRecord) int {
	total := 0
	for _, r := range records {
		total += r.Casualties
	}
	return total
}

// FilterLocalCoverage keeps media records published from Guangdong or by a
// publisher whose name carries a local marker.
func FilterLocalCoverage(records []ProcessedMediaRecord) []ProcessedMediaRecord {
	out := make([]ProcessedMediaRecord, 0, len(records))
	for _, r := range records {
		if r.PublisherIDLocation == LocationGuangdong || containsAny(r.PublisherName, localPublisherMarkers) {
			out = append(out, r)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
