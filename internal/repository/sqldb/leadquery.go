package sqldb

import (
	"strings"

	"github.com/ignite/leadbook/internal/service/lead"
)

const selectLeads = `SELECT id, COALESCE(ref_number, ''), name, COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(place, ''), COALESCE(source, ''), COALESCE(owner, ''), COALESCE(status, ''),
	COALESCE(value, 0), COALESCE(tags, ''), COALESCE(notes, ''),
	COALESCE(preferred_date, ''), COALESCE(preferred_time, ''),
	COALESCE(street_address, ''), COALESCE(city, ''), COALESCE(state, ''),
	COALESCE(postal_code, ''), COALESCE(country, ''), COALESCE(full_address, ''),
	created_at, updated_at
FROM leads`

// leadSearchColumns are matched by the free-text term.
var leadSearchColumns = []string{
	"name", "email", "phone", "place", "owner", "tags", "notes", "ref_number", "full_address",
}

// leadOrderClauses is indexed by lead.SortOrder. Only these literals ever
// reach ORDER BY.
var leadOrderClauses = [...]string{
	lead.SortNewest:    "created_at DESC, id DESC",
	lead.SortOldest:    "created_at ASC, id ASC",
	lead.SortValueDesc: "value DESC, id DESC",
	lead.SortValueAsc:  "value ASC, id ASC",
	lead.SortNameAsc:   "LOWER(name) ASC, id ASC",
	lead.SortNameDesc:  "LOWER(name) DESC, id DESC",
}

func leadOrderClause(s lead.SortOrder) string {
	if s < 0 || int(s) >= len(leadOrderClauses) {
		return leadOrderClauses[lead.SortNewest]
	}
	return leadOrderClauses[s]
}

// BuildLeadQuery turns a filter into one SELECT with `?` placeholders and
// its arguments. Every user supplied value is an argument.
func BuildLeadQuery(f lead.ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if term := strings.TrimSpace(f.Search); term != "" {
		cond, condArgs := containsAny(leadSearchColumns, term)
		where = append(where, cond)
		args = append(args, condArgs...)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if owner := strings.TrimSpace(f.Owner); owner != "" {
		cond, condArgs := containsAny([]string{"owner"}, owner)
		where = append(where, cond)
		args = append(args, condArgs...)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(f.Source))
	}

	var b strings.Builder
	b.WriteString(selectLeads)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY ")
	b.WriteString(leadOrderClause(f.Sort))
	return b.String(), args
}

// containsAny matches term as a case-insensitive substring of any column.
// SQLite's LOWER folds ASCII only, so non-ASCII letters match case-sensitively
// there ("émile" does not find "Émile"). Postgres folds per its locale.
func containsAny(columns []string, term string) (string, []any) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	ors := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		ors[i] = "LOWER(COALESCE(" + c + ", '')) LIKE ? ESCAPE '\\'"
		args[i] = pattern
	}
	if len(ors) == 1 {
		return ors[0], args
	}
	return "(" + strings.Join(ors, " OR ") + ")", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
