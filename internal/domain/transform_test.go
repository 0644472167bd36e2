package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLocationShenzhen = "广东省深圳市宝安区洲石路"
	testInjuryMixed      = "3人死亡，2人失联"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, Zone)
}

func TestParseTimeString(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"full chinese date", "2023年5月12日", date(2023, time.May, 12)},
		{"padded chinese date", "2019年03月09日", date(2019, time.March, 9)},
		{"chinese date with trailing text", "2024年12月20日上午9时许", date(2024, time.December, 20)},
		{"dashed date", "2022-7-4", date(2022, time.July, 4)},
		{"dashed date inside text", "约2021-11-30发生", date(2021, time.November, 30)},
		{"month and day uses current year", "12月7日", date(2025, time.December, 7)},
		{"full form wins over month-day form", "2020年1月2日（1月3日通报）", date(2020, time.January, 2)},
		{"day overflow rolls into next month", "2024年2月30日", date(2024, time.March, 1)},
		{"generic fallback", "2023/05/12", date(2023, time.May, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseTimeString(tt.input)
			require.NotNil(t, result)
			assert.True(t, tt.expected.Equal(*result), "got %s", result)
		})
	}
}

func TestParseTimeString_Unknown(t *testing.T) {
	for _, input := range []string{"", "null", "事故时间不详", "9999年13月1日", "9999年12月32日"} {
		t.Run(input, func(t *testing.T) {
			assert.Nil(t, ParseTimeString(input))
		})
	}
}

func TestParseTimeString_CapturedDigitsExact(t *testing.T) {
	for year := 1990; year <= 2030; year += 7 {
		for month := 1; month <= 12; month++ {
			for _, day := range []int{1, 9, 15, 28} {
				input := time.Date(year, time.Month(month), day, 0, 0, 0, 0, Zone).Format("2006年1月2日")
				result := ParseTimeString(input)
				require.NotNil(t, result, input)
				assert.Equal(t, year, result.Year(), input)
				assert.Equal(t, time.Month(month), result.Month(), input)
				assert.Equal(t, day, result.Day(), input)
			}
		}
	}
}

func TestExcelSerialToDate(t *testing.T) {
	tests := []struct {
		name     string
		serial   float64
		expected time.Time
	}{
		{"serial one is the epoch", 1, date(1900, time.January, 1)},
		{"no leap-year correction", 61, date(1900, time.March, 2)},
		{"story start", 45631, date(2024, time.December, 6)},
		{"next day", 45632, date(2024, time.December, 7)},
		{"fraction is time of day", 45631.5, date(2024, time.December, 6).Add(12 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExcelSerialToDate(tt.serial)
			require.NotNil(t, result)
			assert.True(t, tt.expected.Equal(*result), "got %s", result)
		})
	}
}

func TestExcelSerialToDate_AdvancesSerialMinusOneDays(t *testing.T) {
	for _, serial := range []int{1, 2, 59, 60, 366, 10000, 45000, 45631} {
		result := ExcelSerialToDate(float64(serial))
		require.NotNil(t, result)
		assert.Equal(t, excelEpoch.AddDate(0, 0, serial-1), *result)
	}
}

func TestExcelSerialToDate_Invalid(t *testing.T) {
	assert.Nil(t, ExcelSerialToDate(0))
	assert.Nil(t, ExcelSerialToDate(math.NaN()))
	assert.Nil(t, ExcelSerialToDate(math.Inf(1)))
	assert.Nil(t, ExcelSerialToDate(3000000))
	assert.Nil(t, ExcelSerialToDate(-800000))
	assert.Nil(t, ExcelSerialToDate(1e300))
	assert.Nil(t, ExcelSerialToDate(-1e300))
}

func TestExcelSerialToDate_LastEncodableDay(t *testing.T) {
	last := ExcelSerialToDate(2958464)
	require.NotNil(t, last)
	assert.True(t, date(9999, time.December, 31).Equal(*last), "got %s", last)

	_, err := json.Marshal(last)
	require.NoError(t, err)

	assert.Nil(t, ExcelSerialToDate(2958465))
}

func TestFormatChineseDate(t *testing.T) {
	assert.Equal(t, "12月6日", FormatChineseDate(date(2024, time.December, 6)))
	assert.Equal(t, "1月10日", FormatChineseDate(date(2025, time.January, 10)))
	// 2024-12-06 20:00 UTC is already the 7th in UTC+8.
	assert.Equal(t, "12月7日", FormatChineseDate(time.Date(2024, time.December, 6, 20, 0, 0, 0, time.UTC)))
}

func TestExtractProvince(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"guangdong", testLocationShenzhen, "广东"},
		{"multi-character name", "内蒙古呼和浩特市", "内蒙古"},
		{"list order wins", "河北省与北京市交界处", "北京"},
		{"municipality", "重庆市万州区", "重庆"},
		{"not a province", "香港九龙", ProvinceUnknown},
		{"empty", "", ProvinceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractProvince(tt.input))
		})
	}
}

func TestExtractCasualties(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"dead and missing are summed", testInjuryMixed, 5},
		{"count after keyword", "死亡5人，失联2人", 7},
		{"missing as 失踪", "2人死亡，1人失踪", 3},
		{"only first match per phrasing", "3人死亡，另有4人死亡", 3},
		{"adjacent phrasings both count", "3人死亡2人失联", 7},
		{"no casualties", "无人员伤亡", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractCasualties(tt.input))
		})
	}
}

func TestCategorizeRoadType(t *testing.T) {
	tests := []struct {
		input    string
		expected RoadTypeCategory
	}{
		{"京港澳高速", RoadTypeHighway},
		{"城市公路桥", RoadTypeHighway},
		{"长江大桥", RoadTypeBridge},
		{"人行天桥", RoadTypeBridge},
		{"地铁隧道", RoadTypeRailway},
		{"铁路", RoadTypeRailway},
		{"山岭隧道", RoadTypeTunnel},
		{"市政道路", RoadTypeOther},
		{"", RoadTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategorizeRoadType(tt.input))
		})
	}
}

func TestCategorizeRoadType_IsTotal(t *testing.T) {
	valid := map[RoadTypeCategory]bool{
		RoadTypeHighway: true, RoadTypeBridge: true, RoadTypeRailway: true,
		RoadTypeTunnel: true, RoadTypeOther: true,
	}
	for _, input := range []string{"高速公路", "桥", "铁", "隧", "🚧", "road", "  ", "高速铁路隧道桥"} {
		assert.True(t, valid[CategorizeRoadType(input)], input)
	}
}

func TestPublisherFlags(t *testing.T) {
	assert.True(t, IsGovernmentPublisher("政府官方账号"))
	assert.False(t, IsGovernmentPublisher("政府官方账号 "))
	assert.False(t, IsGovernmentPublisher("新闻媒体"))

	assert.True(t, HasVideo("有"))
	assert.False(t, HasVideo("无"))
	assert.False(t, HasVideo(""))
}

func TestNormalizeAccidentRow(t *testing.T) {
	t.Run("complete row", func(t *testing.T) {
		row := RawRow{
			"road_type":             "深圳洲石路",
			"accident_time":         "2024年12月20日",
			"accident_location":     testLocationShenzhen,
			"injury_statistics":     "13人失联",
			"accident_report":       "路面塌陷",
			"construction_company":  nil,
			"completion_time":       float64(2015),
			"normal_lifespan":       "50年",
			"maintenance_cycle":     nil,
			"time_since_completion": "9年",
			"url":                   "https://example.com/a",
			"error":                 nil,
		}

		result := NormalizeAccidentRow(row, 3)

		assert.Equal(t, "accident-3", result.ID)
		require.NotNil(t, result.ParsedDate)
		assert.True(t, date(2024, time.December, 20).Equal(*result.ParsedDate))
		assert.Equal(t, "广东", result.Province)
		assert.Equal(t, 13, result.Casualties)
		assert.Equal(t, RoadTypeOther, result.RoadTypeCategory)
		assert.Equal(t, "深圳洲石路", result.RoadType)
		assert.Nil(t, result.ConstructionCompany)
		require.NotNil(t, result.CompletionTime)
		assert.Equal(t, "2015", *result.CompletionTime)
		assert.Equal(t, "https://example.com/a", result.URL)
	})

	t.Run("malformed row degrades", func(t *testing.T) {
		row := RawRow{
			"accident_time":     float64(45000),
			"accident_location": float64(12),
			"injury_statistics": []any{"3人死亡"},
			"road_type":         true,
		}

		result := NormalizeAccidentRow(row, 0)

		assert.Equal(t, "accident-0", result.ID)
		assert.Nil(t, result.ParsedDate)
		assert.Equal(t, ProvinceUnknown, result.Province)
		assert.Equal(t, 0, result.Casualties)
		assert.Equal(t, RoadTypeOther, result.RoadTypeCategory)
		assert.Equal(t, "45000", result.AccidentTime)
	})

	t.Run("empty row", func(t *testing.T) {
		result := NormalizeAccidentRow(RawRow{}, 7)
		assert.Equal(t, "accident-7", result.ID)
		assert.Nil(t, result.ParsedDate)
		assert.Equal(t, ProvinceUnknown, result.Province)
		assert.Zero(t, result.Casualties)
		assert.Equal(t, RoadTypeOther, result.RoadTypeCategory)
	})
}

func TestNormalizeMediaRow(t *testing.T) {
	row := RawRow{
		"article_character_count": float64(1280),
		"publisher_id_location":   "广东",
		"publish_time":            float64(45631),
		"publisher_name":          "深圳发布",
		"publisher_type":          "政府官方账号",
		"publish_form_type":       "独家",
		"content_type":            "通报",
		"on_site_video":           "有",
		"url":                     "https://example.com/m",
	}

	result := NormalizeMediaRow(row, 2)

	assert.Equal(t, "media-2", result.ID)
	assert.Equal(t, 1280, result.ArticleCharacterCount)
	require.NotNil(t, result.PublishTime)
	assert.InDelta(t, 45631, *result.PublishTime, 0)
	require.NotNil(t, result.ParsedDate)
	assert.True(t, date(2024, time.December, 6).Equal(*result.ParsedDate))
	assert.True(t, result.IsGovernmentSource)
	assert.True(t, result.HasVideo)
	assert.Nil(t, result.Error)
}

func TestNormalizeMediaRow_MissingSerial(t *testing.T) {
	for name, value := range map[string]any{
		"absent":         nil,
		"numeric string": "45631",
		"zero":           float64(0),
	} {
		t.Run(name, func(t *testing.T) {
			row := RawRow{"publisher_type": "自媒体"}
			if value != nil {
				row["publish_time"] = value
			}
			result := NormalizeMediaRow(row, 0)
			assert.Nil(t, result.ParsedDate)
			assert.False(t, result.IsGovernmentSource)
			assert.False(t, result.HasVideo)
		})
	}
}

func TestNormalizeArticle(t *testing.T) {
	row := RawRow{
		"article_character_count": "860",
		"publisher_id_location":   "北京",
		"publish_time":            float64(45632),
		"publisher_name":          "新京报",
		"publisher_type":          "新闻媒体",
		"publish_form_type":       "转载",
		"on_site_video":           "无",
	}

	result := NormalizeArticle(row, 4)

	assert.Equal(t, "article-4", result.ID)
	assert.Equal(t, 860, result.CharacterCount)
	assert.Equal(t, "北京", result.PublisherLocation)
	require.NotNil(t, result.PublishTime)
	assert.Equal(t, "12月7日", result.PublishTimeFormatted)
	assert.Equal(t, "新闻媒体", result.PublisherType)
	assert.False(t, result.HasVideo)

	undated := NormalizeArticle(RawRow{}, 5)
	assert.Nil(t, undated.PublishTime)
	assert.Empty(t, undated.PublishTimeFormatted)
}

func TestProcess_Idempotent(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	accidents := []RawRow{
		{"road_type": "高速", "accident_time": "6月1日", "accident_location": "江西", "injury_statistics": testInjuryMixed},
		{"road_type": "大桥", "accident_time": "null"},
	}
	media := []RawRow{
		{"publish_time": float64(45631), "publisher_type": "新闻媒体"},
		{"publish_time": "bad"},
	}

	first, err := json.Marshal([]any{ProcessAccidentData(accidents), ProcessMediaData(media), ProcessArticles(media)})
	require.NoError(t, err)
	second, err := json.Marshal([]any{ProcessAccidentData(accidents), ProcessMediaData(media), ProcessArticles(media)})
	require.NoError(t, err)

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Fatalf("reprocessing changed output (-first +second):\n%s", diff)
	}
}

func TestProcessAccidentData_AssignsPositionalIDs(t *testing.T) {
	records := ProcessAccidentData([]RawRow{{}, {}, {}})
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, "accident-"+string(rune('0'+i)), r.ID)
	}
	assert.Empty(t, ProcessMediaData(nil))
}
