package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// keywordRule maps any of its keywords, found by substring containment, to a result.
type keywordRule[T any] struct {
	keywords []string
	result   T
}

// firstMatch evaluates rules in order and returns the result of the first
// rule with a keyword contained in s.
func firstMatch[T any](s string, rules []keywordRule[T], fallback T) T {
	if s == "" {
		return fallback
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(s, kw) {
				return r.result
			}
		}
	}
	return fallback
}

// provinceNames lists provincial-level divisions in match priority order.
var provinceNames = []string{
	"北京", "天津", "河北", "山西", "内蒙古", "辽宁", "吉林", "黑龙江",
	"上海", "江苏", "浙江", "安徽", "福建", "江西", "山东", "河南",
	"湖北", "湖南", "广东", "广西", "海南", "重庆", "四川", "贵州",
	"云南", "西藏", "陕西", "甘肃", "青海", "宁夏", "新疆",
}

var provinceRules = func() []keywordRule[string] {
	rules := make([]keywordRule[string], len(provinceNames))
	for i, name := range provinceNames {
		rules[i] = keywordRule[string]{keywords: []string{name}, result: name}
	}
	return rules
}()

var roadTypeRules = []keywordRule[RoadTypeCategory]{
	{keywords: []string{"高速", "公路"}, result: RoadTypeHighway},
	{keywords: []string{"桥", "大桥"}, result: RoadTypeBridge},
	{keywords: []string{"铁路", "地铁"}, result: RoadTypeRailway},
	{keywords: []string{"隧道"}, result: RoadTypeTunnel},
}

// casualtyPatterns each capture a head count. Every pattern contributes its
// first match; contributions are summed, so overlapping phrasings can over-count.
var casualtyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)人死亡`),
	regexp.MustCompile(`(\d+)人失联`),
	regexp.MustCompile(`(\d+)人失踪`),
	regexp.MustCompile(`死亡(\d+)人`),
	regexp.MustCompile(`失联(\d+)人`),
}

// datePattern captures year (optional), month, and day groups.
type datePattern struct {
	re      *regexp.Regexp
	hasYear bool
}

var datePatterns = []datePattern{
	{re: regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`), hasYear: true},
	{re: regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), hasYear: true},
	{re: regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)},
}

// excelEpoch is serial day 1. The nonexistent 1900-02-29 is not corrected for.
var excelEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, Zone)

// ParseTimeString parses a free-text accident date. It recognizes
// "YYYY年M月D日", "YYYY-M-D" and "M月D日" (current year) anywhere in the
// string, then falls back to a generic date parse. Returns nil for "",
// "null", or unparseable input.
func ParseTimeString(s string) *time.Time {
	if s == "" || s == "null" {
		return nil
	}

	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		nums := make([]int, 0, 3)
		for _, g := range m[1:] {
			n, err := strconv.Atoi(g)
			if err != nil {
				return nil
			}
			nums = append(nums, n)
		}
		year := clock.Now().In(Zone).Year()
		if p.hasYear {
			year, nums = nums[0], nums[1:]
		}
		t := time.Date(year, time.Month(nums[0]), nums[1], 0, 0, 0, 0, Zone)
		return encodable(t)
	}

	// dateparse accepts some digit-free input as the zero time.
	if !strings.ContainsAny(s, "0123456789") {
		return nil
	}
	t, err := dateparse.ParseIn(strings.TrimSpace(s), Zone)
	if err != nil || t.IsZero() {
		return nil
	}
	return encodable(t)
}

// ExcelSerialToDate converts a spreadsheet serial day count to a date:
// epoch + (serial - 1) days, with any fractional part kept as time of day.
// Returns nil for zero, NaN, infinite, or out-of-range serials.
func ExcelSerialToDate(serial float64) *time.Time {
	if serial == 0 || math.IsNaN(serial) || math.IsInf(serial, 0) || math.Abs(serial) > maxSerialMagnitude {
		return nil
	}
	whole, frac := math.Modf(serial)
	t := excelEpoch.AddDate(0, 0, int(whole)-1)
	if frac != 0 {
		t = t.Add(time.Duration(frac * float64(24*time.Hour)))
	}
	return encodable(t)
}

// maxSerialMagnitude bounds serials before the int conversion. Anything this
// large is already far outside the encodable year range.
const maxSerialMagnitude = 1e7

// encodable returns &t when t's year is within 0..9999, the range
// time.Time can marshal to JSON, and nil otherwise.
func encodable(t time.Time) *time.Time {
	if y := t.Year(); y < 0 || y > 9999 {
		return nil
	}
	return &t
}

// FormatChineseDate renders a date as "M月D日".
func FormatChineseDate(t time.Time) string {
	t = t.In(Zone)
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

// ExtractProvince returns the first known province named in location, or
// ProvinceUnknown.
func ExtractProvince(location string) string {
	return firstMatch(location, provinceRules, ProvinceUnknown)
}

// ExtractCasualties sums the dead and missing counts mentioned in an injury
// statistics string.
func ExtractCasualties(stats string) int {
	if stats == "" {
		return 0
	}
	total := 0
	for _, re := range casualtyPatterns {
		m := re.FindStringSubmatch(stats)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total += n
	}
	return total
}

// CategorizeRoadType classifies a road description; unmatched input is RoadTypeOther.
func CategorizeRoadType(roadType string) RoadTypeCategory {
	return firstMatch(roadType, roadTypeRules, RoadTypeOther)
}

// IsGovernmentPublisher reports whether the publisher type is the official
// government account marker.
func IsGovernmentPublisher(publisherType string) bool {
	return publisherType == PublisherGovernment
}

// HasVideo reports whether the on-site video column marks a video as present.
func HasVideo(onSiteVideo string) bool {
	return onSiteVideo == VideoPresent
}

// accidentDataFromRow copies the accident columns out of a raw row.
func accidentDataFromRow(row RawRow) AccidentData {
	return AccidentData{
		RoadType:            row.textOrEmpty("road_type"),
		AccidentTime:        row.textOrEmpty("accident_time"),
		AccidentLocation:    row.textOrEmpty("accident_location"),
		InjuryStatistics:    row.textOrEmpty("injury_statistics"),
		AccidentReport:      row.textOrEmpty("accident_report"),
		ConstructionCompany: row.text("construction_company"),
		CompletionTime:      row.text("completion_time"),
		NormalLifespan:      row.text("normal_lifespan"),
		MaintenanceCycle:    row.text("maintenance_cycle"),
		TimeSinceCompletion: row.text("time_since_completion"),
		URL:                 row.textOrEmpty("url"),
		Error:               row.text("error"),
	}
}

// mediaDataFromRow copies the media columns out of a raw row.
func mediaDataFromRow(row RawRow) MediaData {
	var publishTime *float64
	if v, ok := row.number("publish_time"); ok {
		publishTime = &v
	}
	return MediaData{
		ArticleCharacterCount: row.intOrZero("article_character_count"),
		PublisherIDLocation:   row.textOrEmpty("publisher_id_location"),
		PublishTime:           publishTime,
		PublisherName:         row.textOrEmpty("publisher_name"),
		PublisherType:         row.textOrEmpty("publisher_type"),
		PublishFormType:       row.textOrEmpty("publish_form_type"),
		ContentType:           row.textOrEmpty("content_type"),
		OnSiteVideo:           row.textOrEmpty("on_site_video"),
		URL:                   row.textOrEmpty("url"),
		Error:                 row.text("error"),
	}
}

// publishDate converts the publish_time serial, or nil when it is absent.
func (m MediaData) publishDate() *time.Time {
	if m.PublishTime == nil {
		return nil
	}
	return ExcelSerialToDate(*m.PublishTime)
}

// NormalizeAccidentRow derives a processed accident record from one raw row.
// Free-text fields are only interpreted when the cell holds a string.
func NormalizeAccidentRow(row RawRow, index int) ProcessedAccidentRecord {
	var parsed *time.Time
	if s, ok := row.str("accident_time"); ok {
		parsed = ParseTimeString(s)
	}
	return ProcessedAccidentRecord{
		AccidentData:     accidentDataFromRow(row),
		ID:               fmt.Sprintf("accident-%d", index),
		ParsedDate:       parsed,
		Province:         ExtractProvince(row.stringOrEmpty("accident_location")),
		Casualties:       ExtractCasualties(row.stringOrEmpty("injury_statistics")),
		RoadTypeCategory: CategorizeRoadType(row.stringOrEmpty("road_type")),
	}
}

// NormalizeMediaRow derives a processed media record from one raw row.
func NormalizeMediaRow(row RawRow, index int) ProcessedMediaRecord {
	data := mediaDataFromRow(row)
	return ProcessedMediaRecord{
		MediaData:          data,
		ID:                 fmt.Sprintf("media-%d", index),
		ParsedDate:         data.publishDate(),
		IsGovernmentSource: IsGovernmentPublisher(data.PublisherType),
		HasVideo:           HasVideo(data.OnSiteVideo),
	}
}

// NormalizeArticle derives the article view of one raw media row.
func NormalizeArticle(row RawRow, index int) ProcessedArticle {
	data := mediaDataFromRow(row)
	published := data.publishDate()
	formatted := ""
	if published != nil {
		formatted = FormatChineseDate(*published)
	}
	return ProcessedArticle{
		ID:                   fmt.Sprintf("article-%d", index),
		CharacterCount:       data.ArticleCharacterCount,
		PublisherLocation:    data.PublisherIDLocation,
		PublishTime:          published,
		PublishTimeFormatted: formatted,
		PublisherName:        data.PublisherName,
		PublisherType:        data.PublisherType,
		PublishFormType:      data.PublishFormType,
		ContentType:          data.ContentType,
		HasVideo:             HasVideo(data.OnSiteVideo),
		URL:                  data.URL,
	}
}

// ProcessAccidentData normalizes every accident row, assigning ids by position.
func ProcessAccidentData(rows []RawRow) []ProcessedAccidentRecord {
	out := make([]ProcessedAccidentRecord, len(rows))
	for i, row := range rows {
		out[i] = NormalizeAccidentRow(row, i)
	}
	return out
}

// ProcessMediaData normalizes every media row, assigning ids by position.
func ProcessMediaData(rows []RawRow) []ProcessedMediaRecord {
	out := make([]ProcessedMediaRecord, len(rows))
	for i, row := range rows {
		out[i] = NormalizeMediaRow(row, i)
	}
	return out
}

// ProcessArticles builds the article view of every media row.
func ProcessArticles(rows []RawRow) []ProcessedArticle {
	out := make([]ProcessedArticle, len(rows))
	for i, row := range rows {
		out[i] = NormalizeArticle(row, i)
	}
	return out
}
