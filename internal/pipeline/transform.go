package pipeline

import (
	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/couchcryptid/collapse-story-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// StoryTransformer implements Transformer using the domain normalizers and
// aggregators.
type StoryTransformer struct {
	sheet       string
	recentLimit int
	clock       clockwork.Clock
	metrics     *observability.Metrics
}

// NewTransformer creates a StoryTransformer reading rows from sheet.
func NewTransformer(sheet string, recentLimit int, clock clockwork.Clock, metrics *observability.Metrics) *StoryTransformer {
	if sheet == "" {
		sheet = domain.DefaultSheet
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StoryTransformer{
		sheet:       sheet,
		recentLimit: recentLimit,
		clock:       clock,
		metrics:     metrics,
	}
}

// Transform normalizes both workbooks and computes every statistic. A missing
// sheet is treated as an empty dataset.
func (t *StoryTransformer) Transform(accidents, media domain.Workbook) Snapshot {
	accidentRows := accidents.Rows(t.sheet)
	mediaRows := media.Rows(t.sheet)

	processedAccidents := domain.ProcessAccidentData(accidentRows)
	processedMedia := domain.ProcessMediaData(mediaRows)
	articles := domain.ProcessArticles(mediaRows)

	t.record(observability.DatasetAccident, len(accidentRows), countUndatedAccidents(processedAccidents))
	t.record(observability.DatasetMedia, len(mediaRows), countUndatedMedia(processedMedia))

	return Snapshot{
		ID:            uuid.NewString(),
		BuiltAt:       t.clock.Now().UTC(),
		Accidents:     processedAccidents,
		AccidentStats: domain.AccidentStatisticsWithLimit(processedAccidents, t.recentLimit),
		Media:         processedMedia,
		MediaStats:    domain.MediaStatisticsOf(processedMedia),
		Coverage:      domain.CoverageOf(articles),
	}
}

func (t *StoryTransformer) record(dataset string, rows, undated int) {
	if t.metrics == nil {
		return
	}
	t.metrics.RowsProcessed.WithLabelValues(dataset).Add(float64(rows))
	t.metrics.UnparsedDates.WithLabelValues(dataset).Add(float64(undated))
}

func countUndatedAccidents(records []domain.ProcessedAccidentRecord) int {
	n := 0
	for _, r := range records {
		if r.ParsedDate == nil {
			n++
		}
	}
	return n
}

func countUndatedMedia(records []domain.ProcessedMediaRecord) int {
	n := 0
	for _, r := range records {
		if r.ParsedDate == nil {
			n++
		}
	}
	return n
}
