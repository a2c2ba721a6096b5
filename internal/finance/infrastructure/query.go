package infrastructure

import (
	"fmt"
	"strings"

	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause collects AND-ed conditions with positional arguments.
type whereClause struct {
	conditions []string
	args       []any
}

// add appends a condition; format must contain exactly one %d for the
// argument position.
func (w *whereClause) add(format string, value any) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereClause) String() string {
	return strings.Join(w.conditions, " AND ")
}

func (w *whereClause) addDateRange(column string, r domain.DateRange) {
	if r.From != nil {
		w.add(column+" >= $%d", *r.From)
	}
	if r.To != nil {
		w.add(column+" <= $%d", *r.To)
	}
}

// containsPattern matches text anywhere in a column with ILIKE, treating
// the user's wildcards literally.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}
