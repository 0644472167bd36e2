// Package report renders a snapshot as a Markdown or HTML digest.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/couchcryptid/collapse-story-etl/internal/pipeline"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Render writes the digest of s to w in the given format.
func Render(w io.Writer, s pipeline.Snapshot, format string) error {
	text := Markdown(s)
	switch format {
	case FormatMarkdown, "md", "":
		_, err := io.WriteString(w, text)
		return err
	case FormatHTML:
		html, err := HTML(text)
		if err != nil {
			return err
		}
		_, err = w.Write(html)
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// HTML converts Markdown to an HTML fragment.
func HTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Markdown renders the digest of s.
func Markdown(s pipeline.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Road collapse data snapshot\n\n")
	fmt.Fprintf(&b, "- Snapshot: `%s`\n", s.ID)
	fmt.Fprintf(&b, "- Built at: %s\n\n", s.BuiltAt.UTC().Format(time.RFC3339))

	writeAccidents(&b, s.AccidentStats)
	writeCoverage(&b, s.Coverage, s.MediaStats)
	return b.String()
}

func writeAccidents(b *strings.Builder, st domain.AccidentStatistics) {
	fmt.Fprintf(b, "## Accidents\n\n")
	fmt.Fprintf(b, "- Total accidents: %d\n", st.TotalAccidents)
	fmt.Fprintf(b, "- Total casualties: %d\n\n", st.TotalCasualties)

	writeCounts(b, "By province", "Province", st.ByProvince, byCount)
	writeCounts(b, "By road type", "Road type", st.ByRoadType, byCount)
	writeCounts(b, "By year", "Year", st.ByYear, byKey)

	if len(st.RecentAccidents) == 0 {
		return
	}
	fmt.Fprintf(b, "### Recent accidents\n\n")
	writeRow(b, "Date", "Location", "Road type", "Casualties")
	writeRow(b, "---", "---", "---", "---:")
	for _, r := range st.RecentAccidents {
		writeRow(b,
			r.ParsedDate.In(domain.Zone).Format("2006-01-02"),
			r.AccidentLocation,
			string(r.RoadTypeCategory),
			fmt.Sprint(r.Casualties),
		)
	}
	b.WriteString("\n")
}

func writeCoverage(b *strings.Builder, c domain.Coverage, ms domain.MediaStatistics) {
	fmt.Fprintf(b, "## Media coverage\n\n")
	fmt.Fprintf(b, "- Total articles: %d\n", c.TotalArticles)
	if c.PeakDay.Count > 0 {
		fmt.Fprintf(b, "- Peak day: %s (%d articles)\n", c.PeakDay.Date, c.PeakDay.Count)
	}
	fmt.Fprintf(b, "- Exclusive: %d (%d%%), by news media: %d\n",
		c.ExclusiveStats.TotalExclusive, c.ExclusiveStats.ExclusivePercentage, c.ExclusiveStats.ExclusiveByMedia)
	fmt.Fprintf(b, "- With on-site video: %d (%d%%)\n", c.VideoStats.TotalWithVideo, c.VideoStats.VideoPercentage)
	fmt.Fprintf(b, "- Government sources: %d\n", ms.GovernmentSources)
	fmt.Fprintf(b, "- Average length: %d characters\n\n", ms.AverageLength)

	if len(c.DailyStats) > 0 {
		fmt.Fprintf(b, "### Daily coverage\n\n")
		writeRow(b, "Day", "Articles")
		writeRow(b, "---", "---:")
		for _, d := range c.DailyStats {
			writeRow(b, d.Date, fmt.Sprint(d.Count))
		}
		b.WriteString("\n")
	}

	if len(c.PublisherTypeStats) > 0 {
		fmt.Fprintf(b, "### Publisher types\n\n")
		writeRow(b, "Type", "Articles", "Share")
		writeRow(b, "---", "---:", "---:")
		for _, p := range c.PublisherTypeStats {
			writeRow(b, p.Type, fmt.Sprint(p.Count), fmt.Sprintf("%d%%", p.Percentage))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "### Publisher location\n\n")
	writeRow(b, "Location", "Articles", "Share")
	writeRow(b, "---", "---:", "---:")
	for _, l := range c.LocationStats {
		writeRow(b, l.Location, fmt.Sprint(l.Count), fmt.Sprintf("%d%%", l.Percentage))
	}
	b.WriteString("\n")
}

type entry struct {
	key   string
	count int
}

// byCount orders entries largest first, then by key.
func byCount(a, b entry) bool {
	if a.count != b.count {
		return a.count > b.count
	}
	return a.key < b.key
}

func byKey(a, b entry) bool { return a.key < b.key }

func writeCounts(b *strings.Builder, title, label string, counts map[string]int, less func(a, b entry) bool) {
	if len(counts) == 0 {
		return
	}
	entries := make([]entry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, entry{key: k, count: v})
	}
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })

	fmt.Fprintf(b, "### %s\n\n", title)
	writeRow(b, label, "Accidents")
	writeRow(b, "---", "---:")
	for _, e := range entries {
		writeRow(b, e.key, fmt.Sprint(e.count))
	}
	b.WriteString("\n")
}

// cellEscaper keeps a free-text cell on its table row.
var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func writeRow(b *strings.Builder, cells ...string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(cellEscaper.Replace(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
