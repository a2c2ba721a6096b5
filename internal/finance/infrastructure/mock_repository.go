package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
)

var errMockRepository = fmt.Errorf("mock repository failure: %w", appErrors.ErrUnavailable)

// MockCategoryRepository keeps categories in memory and enforces the same
// per-owner uniqueness the database does.
type MockCategoryRepository struct {
	mu         sync.Mutex
	categories map[uuid.UUID]domain.Category
	now        func() time.Time
	ShouldFail bool
	// SkipTakenChecks makes NameTaken and SlugTaken report free, so that
	// only the insert can detect a duplicate.
	SkipTakenChecks bool
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{categories: make(map[uuid.UUID]domain.Category), now: time.Now}
}

// Add stores a category as is and returns it with an id.
func (m *MockCategoryRepository) Add(category domain.Category) domain.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = m.now()
		category.UpdatedAt = category.CreatedAt
	}
	m.categories[category.ID] = category
	return category
}

func (m *MockCategoryRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.categories)
}

func (m *MockCategoryRepository) Get(id uuid.UUID) (domain.Category, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	category, ok := m.categories[id]
	return category, ok
}

func (m *MockCategoryRepository) List(_ context.Context, userID uuid.UUID, q domain.CategoryListQuery) ([]domain.Category, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, 0, errMockRepository
	}
	var matched []domain.Category
	for _, category := range m.categories {
		if category.Ownership.MutableBy(userID) || (q.IncludePredefined && category.IsPredefined()) {
			matched = append(matched, category)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		if q.SortBy == domain.CategorySortCreatedAt {
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		} else {
			less = matched[i].Name < matched[j].Name
		}
		if q.SortOrder == domain.SortDesc {
			return !less
		}
		return less
	})
	return paginate(matched, q.Offset(), q.Limit), len(matched), nil
}

func (m *MockCategoryRepository) FindVisible(_ context.Context, id, userID uuid.UUID) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockRepository
	}
	category, ok := m.categories[id]
	if !ok || !category.Ownership.VisibleTo(userID) {
		return nil, financeErrors.ErrCategoryNotFound
	}
	return &category, nil
}

func (m *MockCategoryRepository) ExistsVisible(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	_, err := m.FindVisible(ctx, id, userID)
	if err == financeErrors.ErrCategoryNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *MockCategoryRepository) NameTaken(_ context.Context, userID uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	return m.taken(userID, exclude, func(c domain.Category) bool { return c.Name == name })
}

func (m *MockCategoryRepository) SlugTaken(_ context.Context, userID uuid.UUID, slug string, exclude *uuid.UUID) (bool, error) {
	return m.taken(userID, exclude, func(c domain.Category) bool { return c.Slug == slug })
}

func (m *MockCategoryRepository) taken(userID uuid.UUID, exclude *uuid.UUID, match func(domain.Category) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errMockRepository
	}
	if m.SkipTakenChecks {
		return false, nil
	}
	for _, category := range m.categories {
		if exclude != nil && category.ID == *exclude {
			continue
		}
		if category.Ownership.MutableBy(userID) && match(category) {
			return true, nil
		}
	}
	return false, nil
}

// conflict must be called with mu held.
func (m *MockCategoryRepository) conflict(candidate domain.Category) error {
	for _, category := range m.categories {
		if category.ID == candidate.ID || category.Ownership != candidate.Ownership {
			continue
		}
		if category.Name == candidate.Name {
			return financeErrors.ErrCategoryNameTaken
		}
		if category.Slug == candidate.Slug {
			return financeErrors.ErrCategorySlugTaken
		}
	}
	return nil
}

func (m *MockCategoryRepository) Create(_ context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	if err := m.conflict(*category); err != nil {
		return err
	}
	category.ID = uuid.New()
	category.CreatedAt = m.now()
	category.UpdatedAt = category.CreatedAt
	m.categories[category.ID] = *category
	return nil
}

func (m *MockCategoryRepository) Update(_ context.Context, category *domain.Category, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	existing, ok := m.categories[category.ID]
	if !ok || !existing.Ownership.MutableBy(userID) {
		return financeErrors.ErrCategoryNotFound
	}
	if err := m.conflict(*category); err != nil {
		return err
	}
	category.UpdatedAt = m.now()
	m.categories[category.ID] = *category
	return nil
}

func (m *MockCategoryRepository) Delete(_ context.Context, id, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errMockRepository
	}
	existing, ok := m.categories[id]
	if !ok || !existing.Ownership.MutableBy(userID) {
		return false, nil
	}
	delete(m.categories, id)
	return true, nil
}

func (m *MockCategoryRepository) UpsertPredefined(_ context.Context, categories []domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	for _, predefined := range categories {
		found := false
		for id, existing := range m.categories {
			if existing.IsPredefined() && existing.Slug == predefined.Slug {
				existing.Name, existing.Color = predefined.Name, predefined.Color
				m.categories[id] = existing
				found = true
				break
			}
		}
		if !found {
			predefined.ID = uuid.New()
			predefined.Ownership = domain.System()
			predefined.CreatedAt = m.now()
			predefined.UpdatedAt = predefined.CreatedAt
			m.categories[predefined.ID] = predefined
		}
	}
	return nil
}

// MockExpenseRepository keeps expenses in memory. Export reads category
// names from Categories when it is set.
type MockExpenseRepository struct {
	mu         sync.Mutex
	expenses   map[uuid.UUID]domain.Expense
	now        func() time.Time
	Categories *MockCategoryRepository
	ShouldFail bool
}

func NewMockExpenseRepository(categories *MockCategoryRepository) *MockExpenseRepository {
	return &MockExpenseRepository{expenses: make(map[uuid.UUID]domain.Expense), now: time.Now, Categories: categories}
}

func (m *MockExpenseRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expenses)
}

func (m *MockExpenseRepository) Get(id uuid.UUID) (domain.Expense, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expense, ok := m.expenses[id]
	return expense, ok
}

func (m *MockExpenseRepository) owned(userID uuid.UUID) []domain.Expense {
	var owned []domain.Expense
	for _, expense := range m.expenses {
		if expense.UserID == userID {
			owned = append(owned, expense)
		}
	}
	return owned
}

func (m *MockExpenseRepository) List(_ context.Context, userID uuid.UUID, q domain.ExpenseListQuery) ([]domain.Expense, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, 0, errMockRepository
	}
	search := strings.ToLower(q.Search)
	var matched []domain.Expense
	for _, expense := range m.owned(userID) {
		if q.CategoryID != nil && expense.CategoryID != *q.CategoryID {
			continue
		}
		if !inRange(expense.Date, domain.DateRange{From: q.DateFrom, To: q.DateTo}) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(expense.Description), search) {
			continue
		}
		matched = append(matched, expense)
	}
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch q.SortBy {
		case domain.ExpenseSortAmount:
			less = matched[i].Amount.Cents < matched[j].Amount.Cents
		case domain.ExpenseSortCreatedAt:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		default:
			less = matched[i].Date.Before(matched[j].Date)
		}
		if q.SortOrder == domain.SortDesc {
			return !less
		}
		return less
	})
	return paginate(matched, q.Offset(), q.Limit), len(matched), nil
}

func (m *MockExpenseRepository) FindByID(_ context.Context, id, userID uuid.UUID) (*domain.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockRepository
	}
	expense, ok := m.expenses[id]
	if !ok || expense.UserID != userID {
		return nil, financeErrors.ErrExpenseNotFound
	}
	return &expense, nil
}

func (m *MockExpenseRepository) Create(_ context.Context, expense *domain.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	expense.ID = uuid.New()
	expense.CreatedAt = m.now()
	expense.UpdatedAt = expense.CreatedAt
	m.expenses[expense.ID] = *expense
	return nil
}

func (m *MockExpenseRepository) Update(_ context.Context, expense *domain.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	existing, ok := m.expenses[expense.ID]
	if !ok || existing.UserID != expense.UserID {
		return financeErrors.ErrExpenseNotFound
	}
	expense.UpdatedAt = m.now()
	m.expenses[expense.ID] = *expense
	return nil
}

func (m *MockExpenseRepository) Delete(_ context.Context, id, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errMockRepository
	}
	existing, ok := m.expenses[id]
	if !ok || existing.UserID != userID {
		return false, nil
	}
	delete(m.expenses, id)
	return true, nil
}

func (m *MockExpenseRepository) Export(_ context.Context, userID uuid.UUID, limit int) ([]domain.ExportRow, error) {
	m.mu.Lock()
	if m.ShouldFail {
		m.mu.Unlock()
		return nil, errMockRepository
	}
	owned := m.owned(userID)
	m.mu.Unlock()

	sort.Slice(owned, func(i, j int) bool { return owned[i].Date.After(owned[j].Date) })
	owned = paginate(owned, 0, limit)

	rows := make([]domain.ExportRow, 0, len(owned))
	for _, expense := range owned {
		row := domain.ExportRow{Date: expense.Date, Amount: expense.Amount, Description: expense.Description, CreatedAt: expense.CreatedAt}
		if m.Categories != nil {
			if category, ok := m.Categories.Get(expense.CategoryID); ok {
				name := category.Name
				row.CategoryName = &name
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MockExpenseRepository) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	return nil
}

// MockStatisticsRepository aggregates the expenses of a MockExpenseRepository.
type MockStatisticsRepository struct {
	Expenses   *MockExpenseRepository
	Categories *MockCategoryRepository
}

func (m *MockStatisticsRepository) snapshot(userID uuid.UUID, r domain.DateRange) ([]domain.Expense, error) {
	m.Expenses.mu.Lock()
	defer m.Expenses.mu.Unlock()
	if m.Expenses.ShouldFail {
		return nil, errMockRepository
	}
	var matched []domain.Expense
	for _, expense := range m.Expenses.owned(userID) {
		if inRange(expense.Date, r) {
			matched = append(matched, expense)
		}
	}
	return matched, nil
}

func (m *MockStatisticsRepository) Totals(_ context.Context, userID uuid.UUID, r domain.DateRange) (domain.MonthTotal, error) {
	expenses, err := m.snapshot(userID, r)
	if err != nil {
		return domain.MonthTotal{}, err
	}
	var totals domain.MonthTotal
	for _, expense := range expenses {
		totals.Count++
		totals.Amount = totals.Amount.Add(expense.Amount)
	}
	return totals, nil
}

func (m *MockStatisticsRepository) ByCategory(_ context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.CategoryTotal, error) {
	expenses, err := m.snapshot(userID, r)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.CategoryTotal)
	var order []uuid.UUID
	for _, expense := range expenses {
		total, ok := byID[expense.CategoryID]
		if !ok {
			total = &domain.CategoryTotal{CategoryID: expense.CategoryID, Name: unknownCategoryName, Color: unknownCategoryColor}
			if m.Categories != nil {
				if category, found := m.Categories.Get(expense.CategoryID); found {
					total.Name, total.Color = category.Name, category.Color
				}
			}
			byID[expense.CategoryID] = total
			order = append(order, expense.CategoryID)
		}
		total.Count++
		total.Total = total.Total.Add(expense.Amount)
	}
	totals := make([]domain.CategoryTotal, 0, len(order))
	for _, id := range order {
		totals = append(totals, *byID[id])
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Total.Cents > totals[j].Total.Cents })
	return totals, nil
}

func (m *MockStatisticsRepository) ByMonth(_ context.Context, userID uuid.UUID, year int) ([]domain.MonthlyTotal, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	expenses, err := m.snapshot(userID, domain.DateRange{From: &start, To: &end})
	if err != nil {
		return nil, err
	}
	byMonth := make(map[int]*domain.MonthlyTotal)
	for _, expense := range expenses {
		month := int(expense.Date.UTC().Month())
		total, ok := byMonth[month]
		if !ok {
			total = &domain.MonthlyTotal{Month: month}
			byMonth[month] = total
		}
		total.Count++
		total.Total = total.Total.Add(expense.Amount)
	}
	totals := make([]domain.MonthlyTotal, 0, len(byMonth))
	for month := 1; month <= 12; month++ {
		if total, ok := byMonth[month]; ok {
			totals = append(totals, *total)
		}
	}
	return totals, nil
}

func inRange(t time.Time, r domain.DateRange) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
