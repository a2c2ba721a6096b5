package application

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	"github.com/familyspend/ExpenseTracker/internal/request"
)

const unknownCategory = "unknown"

var csvHeader = []string{"Date", "Amount", "Category", "Description", "Created At"}

// WriteCSV writes a header and one line per row. Every field is quoted, with
// embedded quotes doubled, and lines end in \n.
func WriteCSV(w io.Writer, rows []domain.ExportRow) error {
	buf := bufio.NewWriter(w)
	writeCSVLine(buf, csvHeader)
	for _, row := range rows {
		category := unknownCategory
		if row.CategoryName != nil {
			category = *row.CategoryName
		}
		writeCSVLine(buf, []string{
			row.Date.UTC().Format(request.DateLayout),
			row.Amount.String(),
			category,
			row.Description,
			row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return buf.Flush()
}

func writeCSVLine(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
