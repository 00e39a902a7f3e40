// Package usagecsv parses Smart Meter Texas usage exports into daily observations.
package usagecsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jgoulah/gridprice/pkg/models"
)

// HeaderToken marks the header row. Everything above it is report preamble.
const HeaderToken = "ESIID"

// Column synonyms, tried in order
var (
	serviceIDColumns = []string{"ESIID", "ESI ID", "ELECTRIC SERVICE IDENTIFIER"}
	dateColumns      = []string{"DATE", "READ DATE", "USAGE DATE"}
	kwhColumns       = []string{"METER READING (KWH)", "METER READING", "USAGE (KWH)", "KWH", "USAGE_KWH"}
	readingColumns   = []string{"READING TYPE", "TYPE"}
	qualityColumns   = []string{"ACTUAL/ESTIMATED", "ACTUAL_ESTIMATED"}
)

// Layouts accept one or two digit months and days
var dateLayouts = []string{
	"1/2/2006",
	"2006-1-2",
	"1-2-2006",
	"1/2/06",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseDaily parses a daily usage export. Columns are matched by name.
func ParseDaily(r io.Reader) ([]models.UsageObservation, error) {
	reader, headerLine, err := openTable(r)
	if err != nil {
		return nil, err
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		key := strings.ToUpper(strings.TrimSpace(col))
		if key == "" {
			continue
		}
		// A repeated name resolves to its last column
		index[key] = i
	}

	idCol, err := requireColumn(index, "identifier", serviceIDColumns)
	if err != nil {
		return nil, err
	}
	dateCol, err := requireColumn(index, "date", dateColumns)
	if err != nil {
		return nil, err
	}
	kwhCol, err := requireColumn(index, "usage", kwhColumns)
	if err != nil {
		return nil, err
	}
	readingCol := findColumn(index, readingColumns)
	qualityCol := findColumn(index, qualityColumns)

	var rows []models.UsageObservation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		line := lineOf(reader, headerLine)

		day, err := parseDate(cell(record, dateCol), line)
		if err != nil {
			return nil, err
		}

		kwhStr := cell(record, kwhCol)
		kwh, err := strconv.ParseFloat(kwhStr, 64)
		if err != nil {
			return nil, &UnparseableNumberError{Field: "usage", Value: kwhStr, Line: line}
		}

		rows = append(rows, models.UsageObservation{
			ServiceID:       cell(record, idCol),
			Date:            day,
			KWh:             kwh,
			ReadingType:     firstLetter(cell(record, readingCol), models.ReadingConsumption),
			ActualEstimated: firstLetter(cell(record, qualityCol), models.QualityActual),
		})
	}

	return rows, nil
}

// ParseInterval parses a 15-minute interval export into daily totals.
// Columns are positional: identifier, date, then any number of interval readings.
func ParseInterval(r io.Reader) ([]models.UsageObservation, error) {
	reader, headerLine, err := openTable(r)
	if err != nil {
		return nil, err
	}

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var rows []models.UsageObservation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		// Truncated row
		if len(record) < 3 {
			continue
		}
		line := lineOf(reader, headerLine)

		var total float64
		for _, raw := range record[2:] {
			v := strings.TrimSpace(raw)
			if v == "" {
				continue
			}
			kwh, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, &UnparseableNumberError{Field: "interval", Value: v, Line: line}
			}
			total += kwh
		}

		day, err := parseDate(strings.TrimSpace(record[1]), line)
		if err != nil {
			return nil, err
		}

		rows = append(rows, models.UsageObservation{
			ServiceID:       strings.TrimSpace(record[0]),
			Date:            day,
			KWh:             roundTo(total, 3),
			ReadingType:     models.ReadingConsumption,
			ActualEstimated: models.QualityActual,
		})
	}

	return rows, nil
}

// openTable drops the preamble and returns a CSV reader positioned at the header,
// along with the 1-based line number of the header in the original input
func openTable(r io.Reader) (*csv.Reader, int, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("reading input: %w", err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	lines := strings.Split(strings.ReplaceAll(text, "\r", "\n"), "\n")
	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(strings.ToUpper(line), HeaderToken) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, 0, &MissingHeaderError{Token: HeaderToken}
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx:], "\n")))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader, headerIdx + 1, nil
}

func lineOf(reader *csv.Reader, headerLine int) int {
	line, _ := reader.FieldPos(0)
	return headerLine + line - 1
}

func requireColumn(index map[string]int, field string, candidates []string) (int, error) {
	col := findColumn(index, candidates)
	if col == -1 {
		return -1, &MissingFieldError{Field: field, Candidates: candidates}
	}
	return col, nil
}

func findColumn(index map[string]int, candidates []string) int {
	for _, name := range candidates {
		if i, ok := index[name]; ok {
			return i
		}
	}
	return -1
}

// cell returns the trimmed value, or "" when the column is absent or the row is short
func cell(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

func firstLetter(s, fallback string) string {
	if s == "" {
		return fallback
	}
	r, _ := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r))
}

func parseDate(s string, line int) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &UnparseableDateError{Value: s, Line: line}
}

// IsParseError reports whether err came from malformed input rather than I/O
func IsParseError(err error) bool {
	var (
		header *MissingHeaderError
		field  *MissingFieldError
		date   *UnparseableDateError
		number *UnparseableNumberError
	)
	return errors.As(err, &header) || errors.As(err, &field) || errors.As(err, &date) || errors.As(err, &number)
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
