package events

import (
	"context"
	"fmt"

	"vsgifts-api/internal/models"
)

const insertSecurityEvent = `INSERT INTO security_events
	(event_id, event_type, account_id, email, ip_address, occurred_at, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// execer is satisfied by *client.ClickHouseClient.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ClickHouseSink appends events to the security_events audit table.
type ClickHouseSink struct {
	db execer
}

func NewClickHouseSink(db execer) *ClickHouseSink {
	return &ClickHouseSink{db: db}
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

func (s *ClickHouseSink) Write(ctx context.Context, event models.SecurityEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	err := s.db.Exec(ctx, insertSecurityEvent,
		event.ID,
		string(event.Type),
		event.AccountID,
		event.Email,
		event.IPAddress,
		event.OccurredAt,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}
