package pipeline

import (
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
)

// Snapshot is one immutable build of both datasets. The presentation layer
// reads it as a whole; a rebuild replaces it rather than updating it.
type Snapshot struct {
	ID      string    `json:"id"`
	BuiltAt time.Time `json:"builtAt"`

	Accidents     []domain.ProcessedAccidentRecord `json:"accidents"`
	AccidentStats domain.AccidentStatistics        `json:"accidentStats"`

	Media      []domain.ProcessedMediaRecord `json:"media"`
	MediaStats domain.MediaStatistics        `json:"mediaStats"`
	Coverage   domain.Coverage               `json:"coverage"`
}
