package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/repository"
)

// eventRow mirrors a row of the interaction_events table
type eventRow struct {
	ID        string    `ch:"id"`
	Timestamp time.Time `ch:"timestamp"`
	UserID    string    `ch:"user_id"`
	IPAddress string    `ch:"ip_address"`
	EventType string    `ch:"event_type"`
	EventData string    `ch:"event_data"`
}

// Repository implements EventRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the interaction_events table when it is missing
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS interaction_events (
		id String,
		timestamp DateTime64(3, 'UTC'),
		user_id String,
		ip_address String,
		event_type LowCardinality(String),
		event_data String
	) ENGINE = ReplacingMergeTree
	ORDER BY (event_type, timestamp, id)
	PARTITION BY toYYYYMM(timestamp)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create interaction_events table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized")
	return nil
}

// Fetch returns the events of period matching filter, ordered by identity
// and timestamp. Rows whose payload fails validation are skipped.
func (r *Repository) Fetch(ctx context.Context, period repository.Period, filter repository.EventFilter) ([]domain.Event, error) {
	query, args := buildFetchQuery(period, filter)

	rows, err := r.client.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close event rows", zap.Error(err))
		}
	}(rows)

	events := make([]domain.Event, 0, 256)
	skipped := 0
	for rows.Next() {
		var row eventRow
		if err := rows.ScanStruct(&row); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		event, err := toEvent(row)
		if err != nil {
			skipped++
			r.log.Warn("Skipping event with invalid payload",
				zap.String("event_id", row.ID),
				zap.String("event_type", row.EventType),
				zap.Error(err))
			continue
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	r.log.Debug("Fetched events",
		zap.String("period", period.Token),
		zap.Int("count", len(events)),
		zap.Int("skipped", skipped))

	return events, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

func buildFetchQuery(period repository.Period, filter repository.EventFilter) (string, []interface{}) {
	conditions := []string{"timestamp >= ?", "timestamp < ?"}
	args := []interface{}{period.From.UTC(), period.To.UTC()}

	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, string(filter.EventType))
	}

	if filter.DataContains != "" {
		conditions = append(conditions, "positionCaseInsensitive(event_data, ?) > 0")
		args = append(args, filter.DataContains)
	}

	query := fmt.Sprintf(`
		SELECT id, timestamp, user_id, ip_address, event_type, event_data
		FROM interaction_events FINAL
		WHERE %s
		ORDER BY if(user_id != '', user_id, concat('ip:', ip_address)), timestamp
	`, strings.Join(conditions, " AND "))

	return query, args
}

func toEvent(row eventRow) (domain.Event, error) {
	eventType := domain.EventType(row.EventType)

	payload, err := domain.DecodePayload(eventType, []byte(row.EventData))
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		ID:        row.ID,
		Timestamp: row.Timestamp.UTC(),
		UserID:    row.UserID,
		IPAddress: row.IPAddress,
		Type:      eventType,
		Data:      payload,
	}, nil
}
