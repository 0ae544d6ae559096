package ocr

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// wordLevel is the TSV level of a single recognised word.
const wordLevel = 5

// tsvColumns is the column count of tesseract's TSV output.
const tsvColumns = 12

// Word is one recognised word with its bounding box in image pixels.
type Word struct {
	Text   string
	Conf   float64 // 0-100
	Left   int
	Top    int
	Width  int
	Height int
}

// CenterY returns the vertical centre of the word's box.
func (w Word) CenterY() float64 {
	return float64(w.Top) + float64(w.Height)/2
}

// ParseTSV extracts the word rows of tesseract TSV output. Rows that are not
// words, or words with empty text, are skipped.
func ParseTSV(data []byte) ([]Word, error) {
	var words []Word
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		if line == 1 && strings.HasPrefix(sc.Text(), "level") {
			continue
		}
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < tsvColumns {
			continue
		}
		level, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("tsv line %d: level %q: %w", line, fields[0], err)
		}
		text := strings.TrimSpace(strings.Join(fields[tsvColumns-1:], "\t"))
		if level != wordLevel || text == "" {
			continue
		}

		var box [4]int
		for i := range box {
			box[i], err = strconv.Atoi(fields[6+i])
			if err != nil {
				return nil, fmt.Errorf("tsv line %d: box %q: %w", line, fields[6+i], err)
			}
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			return nil, fmt.Errorf("tsv line %d: conf %q: %w", line, fields[10], err)
		}
		words = append(words, Word{
			Text:   text,
			Conf:   conf,
			Left:   box[0],
			Top:    box[1],
			Width:  box[2],
			Height: box[3],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	return words, nil
}

// FilterConfidence drops words whose confidence is below threshold.
func FilterConfidence(words []Word, threshold float64) []Word {
	out := words[:0:0]
	for _, w := range words {
		if w.Conf >= threshold {
			out = append(out, w)
		}
	}
	return out
}

// GroupRows joins words into visual rows, top to bottom. A word belongs to a
// row when its vertical centre lies within tolerance of the row's first word.
// Words in a row are ordered left to right and joined by single spaces.
func GroupRows(words []Word, tolerance float64) []string {
	if len(words) == 0 {
		return nil
	}
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CenterY() < sorted[j].CenterY()
	})

	var rows [][]Word
	for _, w := range sorted {
		n := len(rows)
		if n > 0 && w.CenterY()-rows[n-1][0].CenterY() < tolerance {
			rows[n-1] = append(rows[n-1], w)
			continue
		}
		rows = append(rows, []Word{w})
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		sort.SliceStable(row, func(a, b int) bool { return row[a].Left < row[b].Left })
		parts := make([]string, len(row))
		for j, w := range row {
			parts[j] = w.Text
		}
		lines[i] = strings.Join(parts, " ")
	}
	return lines
}
