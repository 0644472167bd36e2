package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/couchcryptid/collapse-story-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	accidentFixture = "../../internal/pipeline/testdata/accident-data.json"
	mediaFixture    = "../../internal/pipeline/testdata/zsl-data.json"
)

func runStory(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ACCIDENT_SOURCE", accidentFixture)
	t.Setenv("MEDIA_SOURCE", mediaFixture)
	t.Setenv("LOG_LEVEL", "error")
	t.Cleanup(func() {
		accidentSource, mediaSource = "", ""
		buildOutput, reportOutput = "", ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildCommand_JSON(t *testing.T) {
	out, err := runStory(t, "build", "--format", "json")
	require.NoError(t, err)

	var snap pipeline.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 4, snap.AccidentStats.TotalAccidents)
	assert.Equal(t, 5, snap.Coverage.TotalArticles)
	assert.NotEmpty(t, snap.ID)
}

func TestBuildCommand_YAMLToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	_, err := runStory(t, "build", "--format", "yaml", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	stats, ok := doc["accidentStats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 54, stats["totalCasualties"])
	assert.Contains(t, string(data), "totalCasualties: 54")
}

func TestBuildCommand_SourceFlagsOverrideEnv(t *testing.T) {
	_, err := runStory(t, "build", "--format", "json", "--accidents", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load accident data")
}

func TestBuildCommand_UnknownFormat(t *testing.T) {
	_, err := runStory(t, "build", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestValidateCommand(t *testing.T) {
	out, err := runStory(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  accident totals")
	assert.Contains(t, out, "4 accidents, 5 articles: all checks passed")
	assert.NotContains(t, out, "FAIL")
}

func TestReportCommand(t *testing.T) {
	out, err := runStory(t, "report", "--format", "markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Road collapse data snapshot"))
	assert.Contains(t, out, "- Total casualties: 54")
}

func TestToYAML_KeepsStringsQuotedWhenAmbiguous(t *testing.T) {
	year := "2024"
	snap := pipeline.Snapshot{
		BuiltAt: time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC),
		Accidents: []domain.ProcessedAccidentRecord{{
			AccidentData: domain.AccidentData{CompletionTime: &year, AccidentTime: "null"},
			ID:           "accident-0",
		}},
	}

	data, err := toYAML(snap)
	require.NoError(t, err)

	var decoded struct {
		Accidents []struct {
			AccidentTime   string  `yaml:"accident_time"`
			CompletionTime *string `yaml:"completion_time"`
			Error          *string `yaml:"error"`
		} `yaml:"accidents"`
	}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Len(t, decoded.Accidents, 1)
	assert.Equal(t, "null", decoded.Accidents[0].AccidentTime)
	require.NotNil(t, decoded.Accidents[0].CompletionTime)
	assert.Equal(t, "2024", *decoded.Accidents[0].CompletionTime)
	assert.Nil(t, decoded.Accidents[0].Error)
}
