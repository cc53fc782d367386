package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

// CreateEventLog creates an event log entry
func (s *PostgresStore) CreateEventLog(ctx context.Context, event *models.EventLog) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	if event.Level == "" {
		event.Level = models.EventLevelInfo
	}

	query := `
		INSERT INTO event_logs (id, created_at, updated_at, user_id, branch_id, type, level, description, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.getDB().ExecContext(ctx, query,
		event.ID, event.CreatedAt, event.UpdatedAt, event.UserID,
		event.BranchID, event.Type, event.Level, event.Description, event.Details,
	)
	return err
}

// ListEventLogs lists the tenant's events, newest first
func (s *PostgresStore) ListEventLogs(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.EventLog, int64, error) {
	query := `SELECT id, created_at, updated_at, user_id, branch_id, type, level, description, details
		FROM event_logs WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM event_logs WHERE user_id = $1`
	args := []interface{}{scope.TenantID}

	if scope.BranchID != nil {
		query += ` AND branch_id = $2`
		countQuery += ` AND branch_id = $2`
		args = append(args, *scope.BranchID)
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*models.EventLog
	for rows.Next() {
		event := &models.EventLog{}
		if err := rows.Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt,
			&event.UserID, &event.BranchID, &event.Type, &event.Level,
			&event.Description, &event.Details); err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}

	return events, total, rows.Err()
}
