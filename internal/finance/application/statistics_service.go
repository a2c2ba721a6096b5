package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
)

const (
	minStatisticsYear = 1970
	maxStatisticsYear = 2100
)

type StatisticsService struct {
	repo   domain.StatisticsRepository
	logger *log.Logger
	now    func() time.Time
}

func NewStatisticsService(repo domain.StatisticsRepository, logger *log.Logger) *StatisticsService {
	return &StatisticsService{repo: repo, logger: logger.WithComponent(log.ComponentStats), now: time.Now}
}

// Summary totals every expense of the user and the current calendar month.
// The daily average divides this month's amount by the days elapsed so far.
func (s *StatisticsService) Summary(ctx context.Context, userID uuid.UUID) (*domain.Summary, error) {
	now := s.now().UTC()
	all, err := s.repo.Totals(ctx, userID, domain.DateRange{})
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	thisMonth, err := s.repo.Totals(ctx, userID, domain.DateRange{From: &monthStart, To: &now})
	if err != nil {
		return nil, err
	}

	return &domain.Summary{
		TotalExpenses: all.Count,
		TotalAmount:   all.Amount,
		ThisMonth:     thisMonth,
		AverageDaily:  thisMonth.Amount.DivRound(int64(now.Day())),
	}, nil
}

// ByCategory ranks categories by spending. Percentages have one decimal and
// are computed on cents.
func (s *StatisticsService) ByCategory(ctx context.Context, userID uuid.UUID, dates domain.DateRange) ([]domain.CategoryTotal, error) {
	if dates.From != nil && dates.To != nil && dates.From.After(*dates.To) {
		return nil, financeErrors.ErrInvalidDateRange
	}
	totals, err := s.repo.ByCategory(ctx, userID, dates)
	if err != nil {
		return nil, err
	}

	var grand int64
	for _, total := range totals {
		grand += total.Total.Cents
	}
	for i := range totals {
		totals[i].Percentage = percentage(totals[i].Total.Cents, grand)
	}
	if totals == nil {
		totals = []domain.CategoryTotal{}
	}
	return totals, nil
}

// Monthly returns twelve entries for year, with zero months filled in.
func (s *StatisticsService) Monthly(ctx context.Context, userID uuid.UUID, year int) ([]domain.MonthlyTotal, error) {
	if year == 0 {
		year = s.now().UTC().Year()
	}
	if year < minStatisticsYear || year > maxStatisticsYear {
		return nil, financeErrors.ErrInvalidYear
	}
	found, err := s.repo.ByMonth(ctx, userID, year)
	if err != nil {
		return nil, err
	}

	months := make([]domain.MonthlyTotal, 12)
	for i := range months {
		months[i].Month = i + 1
	}
	for _, total := range found {
		if total.Month >= 1 && total.Month <= 12 {
			months[total.Month-1] = total
		}
	}
	return months, nil
}

// percentage returns part/whole*100 rounded half up to one decimal.
func percentage(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	tenths := (part*1000 + whole/2) / whole
	return float64(tenths) / 10
}
