package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	database "github.com/familyspend/ExpenseTracker/internal/db"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ListQuery selects a page of entries, newest first. A nil UserID lists the
// entries of every user.
type ListQuery struct {
	UserID *uuid.UUID
	Page   int
	Limit  int
}

func (q *ListQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Write(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO access_logs (id, user_id, action, resource, resource_id, ip_address, user_agent, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var userID interface{}
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, userID, string(entry.Action), entry.Resource, entry.ResourceID,
		entry.IPAddress, entry.UserAgent, entry.Success, entry.CreatedAt)
	if err != nil {
		return database.Classify(fmt.Errorf("could not insert access log: %w", err))
	}
	return nil
}

// List returns one page of entries and the total number of matching entries.
func (s *PostgresStore) List(ctx context.Context, q ListQuery) ([]Entry, int, error) {
	q.normalize()

	where := ""
	args := []interface{}{}
	if q.UserID != nil {
		where = "WHERE user_id = $1"
		args = append(args, *q.UserID)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM access_logs ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, database.Classify(fmt.Errorf("could not count access logs: %w", err))
	}

	listQuery := fmt.Sprintf(`
		SELECT id, user_id, action, resource, resource_id, ip_address, user_agent, success, created_at
		FROM access_logs %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, database.Classify(fmt.Errorf("could not list access logs: %w", err))
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			entry  Entry
			userID uuid.NullUUID
			action string
		)
		if err := rows.Scan(&entry.ID, &userID, &action, &entry.Resource, &entry.ResourceID,
			&entry.IPAddress, &entry.UserAgent, &entry.Success, &entry.CreatedAt); err != nil {
			return nil, 0, database.Classify(fmt.Errorf("could not scan access log: %w", err))
		}
		if userID.Valid {
			id := userID.UUID
			entry.UserID = &id
		}
		entry.Action = Action(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.Classify(err)
	}
	return entries, total, nil
}

// DeleteOlderThan removes entries created before cutoff and reports how many
// were removed.
func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM access_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, database.Classify(fmt.Errorf("could not delete access logs: %w", err))
	}
	return result.RowsAffected()
}
