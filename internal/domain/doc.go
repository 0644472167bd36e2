// Package domain turns the rows behind the road-collapse story into typed
// records and the statistics the charts are drawn from.
//
// # Data Sources
//
// Two spreadsheets are converted once to workbook JSON
// ({"Sheet1": {"headers": [...], "data": [...], "totalRows": N}}):
//
//   - accident data: one row per road, bridge, railway, or tunnel collapse
//     reported in mainland China.
//   - media data: one row per article covering the Zhoushi Road (洲石路)
//     collapse in Shenzhen.
//
// Cells are untyped. Any column may be missing, null, a number where text
// was expected, or free text that only loosely follows a convention. Nothing
// in this package rejects a row; a field that cannot be interpreted becomes
// nil or a documented default.
//
// # Accident Conventions
//
// Dates ("accident_time") appear as:
//
//	"2023年5月12日"   full date
//	"2023-5-12"       ISO-like, unpadded
//	"5月12日"         year omitted, read as the current year
//
// The first pattern found anywhere in the string wins; anything else goes
// through a generic date parser and is nil when that fails too.
//
// Province is the first of the 31 provincial-level names contained in
// "accident_location", or 未知.
//
// Casualties add up the dead and missing counts in "injury_statistics":
// "3人死亡，2人失联" → 5. Each phrasing ("N人死亡", "死亡N人", ...) contributes
// at most once, but different phrasings of the same people are all counted.
//
// Road type is classified by keyword, in priority order:
//
//	highway  高速, 公路
//	bridge   桥, 大桥
//	railway  铁路, 地铁
//	tunnel   隧道
//	other    everything else
//
// # Media Conventions
//
// "publish_time" is a spreadsheet serial day number. It is converted as
// 1900-01-01 + (serial - 1) days, which lands one day after what a
// spreadsheet application displays for modern dates.
//
// "on_site_video" is 有 when the article carries on-site video, and
// "publisher_type" 政府官方账号 marks an official government account.
// Publisher types are otherwise opaque; unexpected values form their own group.
//
// All dates are built in UTC+8 ([Zone]).
package domain
