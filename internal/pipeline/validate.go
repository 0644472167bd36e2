package pipeline

import (
	"fmt"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
)

// Check is the outcome of one group of snapshot consistency checks.
type Check struct {
	Name   string   `json:"name"`
	Errors []string `json:"errors,omitempty"`
}

func (c *Check) errorf(format string, args ...any) {
	c.Errors = append(c.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the check found no problems.
func (c Check) Passed() bool { return len(c.Errors) == 0 }

// Validate cross-checks the statistics in s against its records.
func Validate(s Snapshot) []Check {
	return []Check{
		checkAccidentTotals(s),
		checkRecentAccidents(s),
		checkMediaTotals(s),
		checkCoverageTimeline(s.Coverage),
		checkCoverageDistributions(s.Coverage),
	}
}

// AllPassed reports whether every check passed.
func AllPassed(checks []Check) bool {
	for _, c := range checks {
		if !c.Passed() {
			return false
		}
	}
	return true
}

func sumValues(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func checkAccidentTotals(s Snapshot) Check {
	c := Check{Name: "accident totals"}
	st := s.AccidentStats

	if st.TotalAccidents != len(s.Accidents) {
		c.errorf("totalAccidents = %d, records = %d", st.TotalAccidents, len(s.Accidents))
	}
	if got := domain.TotalCasualties(s.Accidents); st.TotalCasualties != got {
		c.errorf("totalCasualties = %d, sum of records = %d", st.TotalCasualties, got)
	}
	if got := sumValues(st.ByProvince); got != st.TotalAccidents {
		c.errorf("byProvince sums to %d, want %d", got, st.TotalAccidents)
	}
	if got := sumValues(st.ByRoadType); got != st.TotalAccidents {
		c.errorf("byRoadType sums to %d, want %d", got, st.TotalAccidents)
	}

	dated := 0
	for _, r := range s.Accidents {
		if r.ParsedDate != nil {
			dated++
		}
	}
	if got := sumValues(st.ByYear); got != dated {
		c.errorf("byYear sums to %d, dated records = %d", got, dated)
	}
	return c
}

func checkRecentAccidents(s Snapshot) Check {
	c := Check{Name: "recent accidents"}
	recent := s.AccidentStats.RecentAccidents
	for i, r := range recent {
		if r.ParsedDate == nil {
			c.errorf("%s has no parsed date", r.ID)
			continue
		}
		if i > 0 && recent[i-1].ParsedDate != nil && r.ParsedDate.After(*recent[i-1].ParsedDate) {
			c.errorf("%s is newer than %s", r.ID, recent[i-1].ID)
		}
	}
	return c
}

func checkMediaTotals(s Snapshot) Check {
	c := Check{Name: "media totals"}
	st := s.MediaStats

	if st.TotalArticles != len(s.Media) {
		c.errorf("totalArticles = %d, records = %d", st.TotalArticles, len(s.Media))
	}
	if got := sumValues(st.ByPublisherType); got != st.TotalArticles {
		c.errorf("byPublisherType sums to %d, want %d", got, st.TotalArticles)
	}
	if st.WithVideo > st.TotalArticles || st.GovernmentSources > st.TotalArticles {
		c.errorf("withVideo = %d, governmentSources = %d exceed %d articles",
			st.WithVideo, st.GovernmentSources, st.TotalArticles)
	}
	if s.Coverage.TotalArticles != len(s.Media) {
		c.errorf("coverage has %d articles, media has %d records", s.Coverage.TotalArticles, len(s.Media))
	}
	return c
}

func checkCoverageTimeline(cov domain.Coverage) Check {
	c := Check{Name: "coverage timeline"}

	dated := 0
	for _, a := range cov.Articles {
		if a.PublishTime != nil {
			dated++
		}
	}

	bucketed, maxCount := 0, 0
	for i, d := range cov.DailyStats {
		bucketed += d.Count
		if d.Count != len(d.Articles) {
			c.errorf("%s: count %d, articles %d", d.Date, d.Count, len(d.Articles))
		}
		if d.Count > maxCount {
			maxCount = d.Count
		}
		if i > 0 && dayBefore(d, cov.DailyStats[i-1]) {
			c.errorf("%s sorted after %s", d.Date, cov.DailyStats[i-1].Date)
		}
	}
	if bucketed != dated {
		c.errorf("daily buckets hold %d articles, dated articles = %d", bucketed, dated)
	}
	if cov.PeakDay.Count != maxCount {
		c.errorf("peak day count = %d, largest bucket = %d", cov.PeakDay.Count, maxCount)
	}
	return c
}

// dayBefore compares buckets by month and day of their first article.
func dayBefore(a, b domain.DailyStats) bool {
	if len(a.Articles) == 0 || len(b.Articles) == 0 {
		return false
	}
	ta := a.Articles[0].PublishTime.In(domain.Zone)
	tb := b.Articles[0].PublishTime.In(domain.Zone)
	if ta.Month() != tb.Month() {
		return ta.Month() < tb.Month()
	}
	return ta.Day() < tb.Day()
}

func checkCoverageDistributions(cov domain.Coverage) Check {
	c := Check{Name: "coverage distributions"}

	publishers := 0
	for _, p := range cov.PublisherTypeStats {
		publishers += p.Count
		if p.Percentage < 0 || p.Percentage > 100 {
			c.errorf("publisher type %q percentage %d out of range", p.Type, p.Percentage)
		}
	}
	if len(cov.PublisherTypeStats) > 0 && publishers != cov.TotalArticles {
		c.errorf("publisher types sum to %d, want %d", publishers, cov.TotalArticles)
	}

	locations := 0
	for _, l := range cov.LocationStats {
		locations += l.Count
		if l.Percentage < 0 || l.Percentage > 100 {
			c.errorf("location %q percentage %d out of range", l.Location, l.Percentage)
		}
	}
	if locations != cov.TotalArticles {
		c.errorf("locations sum to %d, want %d", locations, cov.TotalArticles)
	}

	if cov.ExclusiveStats.ExclusiveByMedia > cov.ExclusiveStats.TotalExclusive {
		c.errorf("exclusiveByMedia %d exceeds totalExclusive %d",
			cov.ExclusiveStats.ExclusiveByMedia, cov.ExclusiveStats.TotalExclusive)
	}
	if cov.VideoStats.TotalWithVideo > cov.TotalArticles {
		c.errorf("totalWithVideo %d exceeds %d articles", cov.VideoStats.TotalWithVideo, cov.TotalArticles)
	}
	return c
}
