package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// SQLStore persists security events to PostgreSQL for deployments that
// need durable history beyond the in-memory ring.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a PostgreSQL-backed event store
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	store := &SQLStore{db: db}

	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure security_events table: %w", err)
	}

	return store, nil
}

// ensureTable creates the security_events table if it doesn't exist
func (s *SQLStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS security_events (
		id VARCHAR(36) PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		risk_level VARCHAR(20) NOT NULL,
		user_id VARCHAR(255),
		ip_address VARCHAR(45),
		user_agent TEXT,
		resource VARCHAR(255),
		action VARCHAR(100),
		success BOOLEAN NOT NULL,
		details JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_security_events_event_type ON security_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_security_events_user_id ON security_events(user_id);
	CREATE INDEX IF NOT EXISTS idx_security_events_ip_address ON security_events(ip_address);
	CREATE INDEX IF NOT EXISTS idx_security_events_risk_level ON security_events(risk_level);
	`

	_, err := s.db.Exec(query)
	return err
}

// Append inserts an event
func (s *SQLStore) Append(ctx context.Context, event SecurityEvent) error {
	var detailsJSON []byte
	var err error

	if event.Details != nil {
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO security_events (
			id, timestamp, event_type, risk_level,
			user_id, ip_address, user_agent,
			resource, action, success, details
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11
		)
	`

	_, err = s.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.Type, event.RiskLevel,
		event.UserID, event.IP, event.UserAgent,
		event.Resource, event.Action, event.Success, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}

	return nil
}

// Query returns events matching the filter, newest first
func (s *SQLStore) Query(ctx context.Context, filter EventFilter) ([]SecurityEvent, error) {
	query := `
		SELECT
			id, timestamp, event_type, risk_level,
			user_id, ip_address, user_agent,
			resource, action, success, details
		FROM security_events
		WHERE 1=1
	`

	args := []interface{}{}
	argCount := 1

	if filter.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, *filter.Since)
		argCount++
	}

	if filter.Until != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argCount)
		args = append(args, *filter.Until)
		argCount++
	}

	if len(filter.Types) > 0 {
		query += fmt.Sprintf(" AND event_type = ANY($%d)", argCount)
		typeStrs := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			typeStrs[i] = string(t)
		}
		args = append(args, pq.Array(typeStrs))
		argCount++
	}

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, filter.UserID)
		argCount++
	}

	if filter.RiskLevel != "" {
		query += fmt.Sprintf(" AND risk_level = $%d", argCount)
		args = append(args, string(filter.RiskLevel))
		argCount++
	}

	if filter.IP != "" {
		query += fmt.Sprintf(" AND ip_address = $%d", argCount)
		args = append(args, filter.IP)
		argCount++
	}

	if filter.Success != nil {
		query += fmt.Sprintf(" AND success = $%d", argCount)
		args = append(args, *filter.Success)
		argCount++
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	var events []SecurityEvent
	for rows.Next() {
		var e SecurityEvent
		var userID, ip, userAgent, resource, action sql.NullString
		var detailsJSON []byte

		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Type, &e.RiskLevel,
			&userID, &ip, &userAgent,
			&resource, &action, &e.Success, &detailsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}

		e.UserID = userID.String
		e.IP = ip.String
		e.UserAgent = userAgent.String
		e.Resource = resource.String
		e.Action = action.String

		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Recent returns the n most recent events, newest first
func (s *SQLStore) Recent(ctx context.Context, n int) ([]SecurityEvent, error) {
	return s.Query(ctx, EventFilter{Limit: n})
}

// Len returns the number of stored events
func (s *SQLStore) Len(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM security_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count security events: %w", err)
	}
	return count, nil
}
