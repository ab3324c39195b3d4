// Package refcode generates human-readable lead reference codes.
//
// Two formats are supported:
//
//	hex:   REF-1A2B3C4D        (8 upper-case hex characters from a random UUID)
//	dated: REF-07-19102026     (daily sequence, then DDMMYYYY)
package refcode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format names accepted by New.
const (
	FormatHex   = "hex"
	FormatDated = "dated"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "REF"

// Generator produces reference codes. Implementations must be safe for
// concurrent use.
type Generator interface {
	// DayPattern returns a SQL LIKE pattern matching every code issued on the
	// given day, or "" when codes are not scoped to a day.
	DayPattern(at time.Time) string

	// Format builds a code for the given instant. seq is the 1-based position
	// of the code within its day; generators that are not day-scoped ignore it.
	Format(at time.Time, seq int) string

	// Sequence extracts the day sequence from a code built by Format, or 0
	// when the code carries none.
	Sequence(code string) int
}

// New returns the generator for the named format.
func New(format, prefix string) (Generator, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatHex:
		return HexGenerator{Prefix: prefix}, nil
	case FormatDated:
		return DatedGenerator{Prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unknown reference format %q", format)
	}
}

// HexGenerator issues PREFIX-XXXXXXXX codes.
type HexGenerator struct {
	Prefix string
}

func (g HexGenerator) DayPattern(time.Time) string { return "" }

func (g HexGenerator) Sequence(string) int { return 0 }

func (g HexGenerator) Format(time.Time, int) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return g.Prefix + "-" + strings.ToUpper(id[:8])
}

// DatedGenerator issues PREFIX-NN-DDMMYYYY codes.
type DatedGenerator struct {
	Prefix string
}

func (g DatedGenerator) DayPattern(at time.Time) string {
	return g.Prefix + "-%-" + at.UTC().Format("02012006")
}

func (g DatedGenerator) Format(at time.Time, seq int) string {
	if seq < 1 {
		seq = 1
	}
	return fmt.Sprintf("%s-%02d-%s", g.Prefix, seq, at.UTC().Format("02012006"))
}

// Sequence reads NN from PREFIX-NN-DDMMYYYY. Codes with more than 99 per day
// widen NN, so the width is not fixed.
func (g DatedGenerator) Sequence(code string) int {
	rest, ok := strings.CutPrefix(code, g.Prefix+"-")
	if !ok {
		return 0
	}
	nn, date, ok := strings.Cut(rest, "-")
	if !ok || len(date) != 8 {
		return 0
	}
	n, err := strconv.Atoi(nn)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
