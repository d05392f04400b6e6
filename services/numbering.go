package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// FormatQuotationNumber builds a quotation number from its creation time.
// Format: COT-MT-{yy}-{mm}-{ddHHMM}
func FormatQuotationNumber(t time.Time) string {
	return fmt.Sprintf("COT-MT-%s-%s-%s", t.Format("06"), t.Format("01"), t.Format("021504"))
}

// formatProjectNumber constructs the project number string from components.
func formatProjectNumber(year, sequence int) string {
	return fmt.Sprintf("PROY-%d-%03d", year, sequence)
}

// nextProjectSequence returns the sequence that follows last within year.
// A last number from another year, or one that does not parse, restarts at 1.
func nextProjectSequence(last string, year int) int {
	parts := strings.Split(last, "-")
	if len(parts) != 3 || parts[0] != "PROY" {
		return 1
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil || y != year {
		return 1
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 0 {
		return 1
	}
	return seq + 1
}

// highestProjectSequence returns the largest sequence among numbers for
// year, or 0 when none belongs to it. Sequences compare numerically, so
// PROY-2025-1000 follows PROY-2025-999.
func highestProjectSequence(numbers []string, year int) int {
	highest := 0
	for _, n := range numbers {
		if seq := nextProjectSequence(n, year) - 1; seq > highest {
			highest = seq
		}
	}
	return highest
}

// GenerateProjectNumber creates the next project number for the year of now.
// Format: PROY-{yyyy}-{sequence}
// - sequence: 3-digit zero-padded, per calendar year
func GenerateProjectNumber(app core.App, now time.Time) (string, error) {
	year := now.Year()
	prefix := fmt.Sprintf("PROY-%d-", year)

	records, err := app.FindRecordsByFilter(
		"projects",
		"number ~ {:prefix}",
		"",
		0,
		0,
		dbx.Params{"prefix": prefix + "%"},
	)
	if err != nil {
		return "", fmt.Errorf("find project numbers: %w", err)
	}

	numbers := make([]string, len(records))
	for i, r := range records {
		numbers[i] = r.GetString("number")
	}
	return formatProjectNumber(year, highestProjectSequence(numbers, year)+1), nil
}
