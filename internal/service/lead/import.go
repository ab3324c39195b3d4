package lead

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadbook/internal/domain"
)

// ImportRow is one parsed data row. Line is the 1-based line or row number
// in the source file, counting the header.
type ImportRow struct {
	Line int
	Lead domain.Lead
}

// RowError reports a row that was not imported.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportOptions controls bulk import.
type ImportOptions struct {
	// DedupeRef skips rows whose reference number already exists instead of
	// reporting them as errors.
	DedupeRef bool
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Total    int        `json:"total"`
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// Import normalizes parsed rows and inserts the valid ones in a single
// transaction. Out-of-enum statuses become New, out-of-enum sources become
// Other and negative values become 0. Rows without a name are reported, not
// inserted. Missing timestamps and reference numbers are filled in.
func (s *Service) Import(ctx context.Context, rows []ImportRow, opts ImportOptions) (*ImportResult, error) {
	res := &ImportResult{Total: len(rows), Errors: []RowError{}}
	now := s.timestamp()

	var (
		batch    []domain.Lead
		lines    []int
		supplied []string
	)
	for _, r := range rows {
		l := r.Lead
		normalizeImported(&l, now)
		if l.Name == "" {
			res.Errors = append(res.Errors, RowError{Line: r.Line, Message: "name is required"})
			continue
		}
		if l.RefNumber != "" {
			supplied = append(supplied, l.RefNumber)
		}
		batch = append(batch, l)
		lines = append(lines, r.Line)
	}

	existing, err := s.repo.ExistingRefs(ctx, supplied)
	if err != nil {
		return nil, fmt.Errorf("check existing references: %w", err)
	}

	kept := batch[:0]
	seen := make(map[string]bool, len(batch))
	for i, l := range batch {
		if l.RefNumber != "" {
			if existing[l.RefNumber] || seen[l.RefNumber] {
				if opts.DedupeRef {
					res.Skipped++
				} else {
					res.Errors = append(res.Errors, RowError{
						Line:    lines[i],
						Message: fmt.Sprintf("duplicate reference number %s", l.RefNumber),
					})
				}
				continue
			}
			seen[l.RefNumber] = true
		}
		kept = append(kept, l)
	}

	if err := s.assignRefs(ctx, kept, seen, now); err != nil {
		return nil, err
	}
	if len(kept) > 0 {
		if err := s.repo.InsertBatch(ctx, kept); err != nil {
			return nil, fmt.Errorf("insert imported leads: %w", err)
		}
	}
	res.Imported = len(kept)

	return res, nil
}

// assignRefs fills missing reference numbers with codes unused both in the
// store and in the batch.
func (s *Service) assignRefs(ctx context.Context, leads []domain.Lead, taken map[string]bool, at time.Time) error {
	seq, err := s.lastSequence(ctx, at)
	if err != nil {
		return err
	}

	var missing []int
	for i := range leads {
		if leads[i].RefNumber == "" {
			missing = append(missing, i)
		}
	}
	for attempt := 0; attempt < maxRefAttempts && len(missing) > 0; attempt++ {
		codes := make([]string, 0, len(missing))
		for _, i := range missing {
			var code string
			for {
				seq++
				code = s.refs.Format(at, seq)
				if !taken[code] {
					break
				}
			}
			taken[code] = true
			leads[i].RefNumber = code
			codes = append(codes, code)
		}
		stored, err := s.repo.ExistingRefs(ctx, codes)
		if err != nil {
			return fmt.Errorf("check generated references: %w", err)
		}
		var retry []int
		for _, i := range missing {
			if stored[leads[i].RefNumber] {
				retry = append(retry, i)
			}
		}
		missing = retry
	}
	if len(missing) > 0 {
		return fmt.Errorf("generate import references: %w", ErrDuplicateRef)
	}
	return nil
}

func normalizeImported(l *domain.Lead, now time.Time) {
	l.ID = 0
	l.Name = strings.TrimSpace(l.Name)
	l.Email = strings.TrimSpace(l.Email)
	l.RefNumber = strings.TrimSpace(l.RefNumber)
	if st, ok := domain.ParseStatus(string(l.Status)); ok {
		l.Status = st
	} else {
		l.Status = domain.StatusNew
	}
	if strings.TrimSpace(string(l.Source)) == "" {
		l.Source = ""
	} else if src, ok := domain.ParseSource(string(l.Source)); ok {
		l.Source = src
	} else {
		l.Source = domain.SourceOther
	}
	if !validValue(l.Value) {
		l.Value = 0
	}
	if !domain.ValidDate(l.PreferredDate) {
		l.PreferredDate = ""
	}
	if !domain.ValidClock(l.PreferredTime) {
		l.PreferredTime = ""
	}
	l.Address = trimAddress(l.Address)
	if l.FullAddress == "" {
		l.FullAddress = l.Address.Full()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() || l.UpdatedAt.Before(l.CreatedAt) {
		l.UpdatedAt = l.CreatedAt
	}
}
