// Package xlsx converts the story's source spreadsheets into the workbook JSON
// the pipeline loads.
package xlsx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// SummaryFile is written next to the converted workbooks.
const SummaryFile = "data-summary.json"

// Job names one spreadsheet and the JSON file it converts to.
type Job struct {
	Input  string
	Output string
}

// DefaultJobs are the two story spreadsheets.
func DefaultJobs(inDir string) []Job {
	return []Job{
		{Input: filepath.Join(inDir, "accident data.xlsx"), Output: "accident-data.json"},
		{Input: filepath.Join(inDir, "zsl data.xlsx"), Output: "zsl-data.json"},
	}
}

// FileSummary describes one converted workbook.
type FileSummary struct {
	Filename     string `json:"filename"`
	Sheets       int    `json:"sheets"`
	TotalRecords int    `json:"totalRecords"`
}

// Summary describes one conversion run.
type Summary struct {
	ConvertedAt time.Time     `json:"convertedAt"`
	Files       []FileSummary `json:"files"`
}

// Summarize counts sheets and data rows in wb.
func Summarize(filename string, wb domain.Workbook) FileSummary {
	total := 0
	for _, s := range wb {
		total += s.TotalRows
	}
	return FileSummary{Filename: filename, Sheets: len(wb), TotalRecords: total}
}

// ReadFile converts the spreadsheet at path.
func ReadFile(path string) (domain.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", path, err)
	}
	defer f.Close()
	return Convert(f)
}

// Read converts a spreadsheet from r.
func Read(r io.Reader) (domain.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()
	return Convert(f)
}

// Convert turns every non-empty sheet into headers plus one row object per
// data row. The first row holds the headers; columns with a blank header are
// dropped. Empty, zero, and false cells become null.
func Convert(f *excelize.File) (domain.Workbook, error) {
	wb := make(domain.Workbook)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}

		headers := rows[0]
		kept := make([]string, 0, len(headers))
		for _, h := range headers {
			if h != "" {
				kept = append(kept, h)
			}
		}

		data := make([]domain.RawRow, 0, len(rows)-1)
		for r, cells := range rows[1:] {
			row := make(domain.RawRow, len(kept))
			for c, h := range headers {
				if h == "" {
					continue
				}
				var raw string
				if c < len(cells) {
					raw = cells[c]
				}
				v, err := cellValue(f, name, c+1, r+2, raw)
				if err != nil {
					return nil, err
				}
				row[h] = v
			}
			data = append(data, row)
		}

		wb[name] = domain.Sheet{Headers: kept, Data: data, TotalRows: len(data)}
	}
	return wb, nil
}

// cellValue types a raw cell: numbers become float64, booleans bool, anything
// else stays a string. Falsy values become nil.
func cellValue(f *excelize.File, sheet string, col, row int, raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return nil, fmt.Errorf("cell %s!%s: %w", sheet, axis, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		if raw == "1" || raw == "TRUE" {
			return true, nil
		}
		return nil, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			if n == 0 {
				return nil, nil
			}
			return n, nil
		}
	}
	return raw, nil
}

// WriteJSON writes v as indented JSON without HTML escaping.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ConvertAll converts each job into outDir and writes the run summary. Missing
// inputs are skipped with a warning and failed conversions with an error log;
// neither stops the remaining jobs.
func ConvertAll(jobs []Job, outDir string, now time.Time, logger *slog.Logger) (Summary, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}

	summary := Summary{ConvertedAt: now.UTC(), Files: []FileSummary{}}
	for _, job := range jobs {
		if _, err := os.Stat(job.Input); errors.Is(err, fs.ErrNotExist) {
			logger.Warn("spreadsheet not found, skipping", "input", job.Input)
			continue
		}

		wb, err := ReadFile(job.Input)
		if err == nil {
			err = writeFile(filepath.Join(outDir, job.Output), wb)
		}
		if err != nil {
			logger.Error("conversion failed", "input", job.Input, "error", err)
			continue
		}

		fileSummary := Summarize(job.Output, wb)
		summary.Files = append(summary.Files, fileSummary)
		for name, sheet := range wb {
			logger.Info("sheet converted", "output", job.Output, "sheet", name, "rows", sheet.TotalRows)
		}
	}

	if err := writeFile(filepath.Join(outDir, SummaryFile), summary); err != nil {
		return summary, err
	}
	logger.Info("conversion complete", "files", len(summary.Files), "out_dir", outDir)
	return summary, nil
}
