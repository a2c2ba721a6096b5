package application

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
)

func TestWriteCSV_QuotesEveryField(t *testing.T) {
	name := "Food"
	rows := []domain.ExportRow{
		{
			Date:         time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Amount:       domain.Cents(1250),
			CategoryName: &name,
			Description:  `a "quoted", word`,
			CreatedAt:    time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
		},
		{
			Date:        time.Date(2024, 4, 30, 22, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
			Amount:      domain.Cents(5),
			Description: "line\nbreak",
			CreatedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	expected := `"Date","Amount","Category","Description","Created At"` + "\n" +
		`"2024-05-01","12.50","Food","a ""quoted"", word","2024-05-01T08:30:00Z"` + "\n" +
		`"2024-04-30","0.05","unknown","line` + "\n" + `break","2024-05-01T09:00:00Z"` + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteCSV_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, `"Date","Amount","Category","Description","Created At"`+"\n", buf.String())
}
