package clickhouse

import (
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/synthesis-engine/internal/config"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/repository"
)

var window = repository.Period{
	Token: "7days",
	From:  time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC),
	To:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
}

func TestBuildFetchQuery_WindowOnly(t *testing.T) {
	query, args := buildFetchQuery(window, repository.EventFilter{})

	assert.Contains(t, query, "WHERE timestamp >= ? AND timestamp < ?")
	assert.NotContains(t, query, "event_type = ?")
	assert.Contains(t, query, "ORDER BY if(user_id != '', user_id, concat('ip:', ip_address)), timestamp")
	assert.Equal(t, []interface{}{window.From, window.To}, args)
}

func TestBuildFetchQuery_Filters(t *testing.T) {
	query, args := buildFetchQuery(window, repository.EventFilter{
		EventType:    domain.EventTypeSearch,
		DataContains: "sunset",
	})

	assert.True(t, strings.Contains(query, "event_type = ? AND positionCaseInsensitive(event_data, ?) > 0"))
	require.Len(t, args, 4)
	assert.Equal(t, "search", args[2])
	assert.Equal(t, "sunset", args[3])
}

func TestToEvent(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	row := eventRow{
		ID:        "evt-1",
		Timestamp: time.Date(2026, 3, 9, 15, 0, 0, 0, loc),
		UserID:    "u1",
		EventType: "agent_request",
		EventData: `{"agent":"art_agent","action_type":"nft","response_time":1.25,"success":false}`,
	}

	event, err := toEvent(row)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, event.Timestamp.Location())
	assert.Equal(t, 12, event.Timestamp.Hour())
	req, ok := event.Data.(domain.AgentRequest)
	require.True(t, ok)
	assert.Equal(t, "art_agent", req.Agent)
	assert.False(t, req.Succeeded())
}

func TestToEvent_InvalidPayload(t *testing.T) {
	_, err := toEvent(eventRow{ID: "evt-2", EventType: "marketplace_action", EventData: `{"price":-4}`})
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	opts := options("db:9000", &config.ClickHouse{
		Database:     "analytics",
		UseTLS:       true,
		MaxOpenConns: 5,
		QueryTimeout: 45 * time.Second,
	})

	assert.Equal(t, []string{"db:9000"}, opts.Addr)
	assert.Equal(t, 45, opts.Settings["max_execution_time"])
	assert.Equal(t, 50*time.Second, opts.ReadTimeout)
	require.NotNil(t, opts.TLS)
	require.NotNil(t, opts.Compression)
	assert.Equal(t, clickhouse.CompressionLZ4, opts.Compression.Method)
}
