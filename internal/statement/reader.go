// Package statement reads bank statement exports (CSV or XLSX) into typed rows.
package statement

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is the container format of an uploaded statement.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file name, defaulting to CSV.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Sheet is the raw grid of a statement. Lines holds the source line (CSV) or
// row (XLSX) number of each record. A nil record marks an unreadable line.
type Sheet struct {
	Records [][]string
	Lines   []int
}

// Read loads a statement in the given format.
func Read(r io.Reader, format Format) (*Sheet, error) {
	switch format {
	case FormatXLSX:
		return ReadXLSX(r)
	case FormatCSV, "":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported statement format %q", format)
	}
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// ReadCSV reads a delimited statement. The delimiter is sniffed from the first
// non-empty line. Malformed lines are kept as nil records.
func ReadCSV(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	// Trimming would swallow empty fields between tabs.
	cr.TrimLeadingSpace = cr.Comma != '\t'

	sheet := &Sheet{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			sheet.Records = append(sheet.Records, nil)
			sheet.Lines = append(sheet.Lines, parseErr.StartLine)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading statement: %w", err)
		}
		line, _ := cr.FieldPos(0)
		sheet.Records = append(sheet.Records, rec)
		sheet.Lines = append(sheet.Lines, line)
	}
	return sheet, nil
}

// sniffDelimiter picks the candidate that occurs most often, outside quotes,
// across the first few non-empty lines. Statement preambles often carry no
// delimiter at all, so one line is not enough.
func sniffDelimiter(data []byte) rune {
	const sampleLines = 10
	counts := make(map[rune]int, len(candidateDelimiters))
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for seen := 0; seen < sampleLines && sc.Scan(); {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		seen++
		for _, d := range candidateDelimiters {
			counts[d] += countOutsideQuotes(line, d)
		}
	}
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func countOutsideQuotes(line string, delim rune) int {
	n, quoted := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == delim && !quoted:
			n++
		}
	}
	return n
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheetName, err)
	}

	sheet := &Sheet{Records: make([][]string, 0, len(rows)), Lines: make([]int, 0, len(rows))}
	for i, row := range rows {
		sheet.Records = append(sheet.Records, row)
		sheet.Lines = append(sheet.Lines, i+1)
	}
	return sheet, nil
}
