// Package sheet turns spreadsheet exports (CSV, TSV) and plain URL lists
// into capture tasks.
package sheet

import "strings"

// Row maps a trimmed header name to the trimmed cell value in that column.
type Row map[string]string

// utf8BOM is prepended by several spreadsheet tools when exporting UTF-8.
const utf8BOM = "\ufeff"

// splitLines splits on "\n" or "\r\n" and drops lines that are blank after
// trimming. The returned lines are not trimmed.
func splitLines(text string) []string {
	text = strings.TrimPrefix(text, utf8BOM)
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// SplitCSVLine splits a single CSV line into raw (untrimmed) fields.
//
// A double quote toggles quoted state, and inside a quoted field two
// consecutive quotes decode to one literal quote. Commas separate fields only
// outside quotes. Fields never span lines.
func SplitCSVLine(line string) []string {
	var (
		out []string
		cur strings.Builder
		inQ bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQ && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQ = !inQ
			}
		case ch == ',' && !inQ:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(out, cur.String())
}

func splitTSVLine(line string) []string {
	return strings.Split(line, "\t")
}

// ParseCSV parses comma-separated text with a header row.
func ParseCSV(text string) []Row {
	return parseTable(text, SplitCSVLine)
}

// ParseTSV parses tab-separated text with a header row. Quotes carry no
// special meaning.
func ParseTSV(text string) []Row {
	return parseTable(text, splitTSVLine)
}

// ParseLines returns every non-blank line of text, trimmed.
func ParseLines(text string) []string {
	lines := splitLines(text)
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

func parseTable(text string, split func(string) []string) []Row {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}

	headers := split(lines[0])
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cols := split(line)
		row := make(Row, len(headers))
		for idx, h := range headers {
			var v string
			if idx < len(cols) {
				v = strings.TrimSpace(cols[idx])
			}
			row[h] = v
		}
		rows = append(rows, row)
	}
	return rows
}
