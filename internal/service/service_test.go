package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/internal/cache"
	"github.com/BarkinBalci/synthesis-engine/internal/classifier"
	"github.com/BarkinBalci/synthesis-engine/internal/config"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/narrative"
	"github.com/BarkinBalci/synthesis-engine/internal/repository"
	"github.com/BarkinBalci/synthesis-engine/internal/textgen"
)

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Fetch(ctx context.Context, period repository.Period, filter repository.EventFilter) ([]domain.Event, error) {
	args := m.Called(ctx, period, filter)
	events, _ := args.Get(0).([]domain.Event)
	return events, args.Error(1)
}

func (m *MockEventRepository) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTextGenerator is a mock implementation of textgen.Generator
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, req textgen.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockSender is a mock implementation of notify.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, recipients []string, subject, htmlBody string) error {
	args := m.Called(ctx, recipients, subject, htmlBody)
	return args.Error(0)
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func period(token string) interface{} {
	return mock.MatchedBy(func(p repository.Period) bool { return p.Token == token })
}

func narrativeRequest() interface{} {
	return mock.MatchedBy(func(req textgen.Request) bool { return req.System != routingSystemPrompt })
}

func routingRequest() interface{} {
	return mock.MatchedBy(func(req textgen.Request) bool { return req.System == routingSystemPrompt })
}

func boolPtr(b bool) *bool { return &b }

func fixtureEvents() []domain.Event {
	return []domain.Event{
		{ID: "1", Timestamp: now.Add(-3 * time.Hour), UserID: "u1", Type: domain.EventTypeAgentRequest,
			Data: domain.AgentRequest{Agent: "chat_agent", ResponseTime: 1.5, Prompt: "paint a sunset landscape"}},
		{ID: "2", Timestamp: now.Add(-170 * time.Minute), UserID: "u1", Type: domain.EventTypeAgentRequest,
			Data: domain.AgentRequest{Agent: "chat_agent", ResponseTime: 2.5, Prompt: "sunset over mountains"}},
		{ID: "3", Timestamp: now.Add(-160 * time.Minute), UserID: "u1", Type: domain.EventTypeAgentRequest,
			Data: domain.AgentRequest{Agent: "chat_agent", ResponseTime: 2.0, Success: boolPtr(false), Prompt: "sunset portrait"}},
		{ID: "4", Timestamp: now.Add(-time.Hour), IPAddress: "10.0.0.7", Type: domain.EventTypePageView,
			Data: domain.PageView{Page: "/gallery"}},
		{ID: "5", Timestamp: now.Add(-50 * time.Minute), UserID: "u2", Type: domain.EventTypeMarketplaceAction,
			Data: domain.MarketplaceAction{Action: "buy", ItemID: "nft-9", Price: 12.5}},
	}
}

type fixture struct {
	repo   *MockEventRepository
	gen    *MockTextGenerator
	sender *MockSender
	cache  *cache.MemoryCache
	svc    *SynthesisService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c, err := cache.NewMemoryCache(16, cache.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	f := &fixture{
		repo:   new(MockEventRepository),
		gen:    new(MockTextGenerator),
		sender: new(MockSender),
		cache:  c,
	}
	f.svc = NewSynthesisService(f.repo, f.gen, c, f.sender, Options{
		Synthesis:  config.DefaultSynthesis(),
		Narrative:  narrative.Options{MaxTokens: 300, Timeout: time.Second},
		Recipients: []string{"ops@example.com"},
		Now:        func() time.Time { return now },
	}, zap.NewNop())
	return f
}

func TestSubmitQuery_RejectsEmptyQuery(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.SubmitQuery(context.Background(), "   ")

	assert.Nil(t, resp)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	f.repo.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitQuery_RejectsOverlongQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitQuery(context.Background(), strings.Repeat("a", 1001))

	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSubmitQuery_PlatformStatsThenCached(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("30days"), repository.EventFilter{}).Return(fixtureEvents(), nil).Once()
	f.repo.On("Fetch", mock.Anything, period("30days_prior"), repository.EventFilter{}).Return([]domain.Event{}, nil).Once()
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("Traffic is healthy.", nil).Once()

	first, err := f.svc.SubmitQuery(context.Background(), "Show me platform usage overview")
	require.NoError(t, err)

	assert.Equal(t, "Show me platform usage overview", first.Query)
	assert.Equal(t, string(classifier.PlatformStats), first.QueryType)
	assert.Equal(t, "Traffic is healthy.", first.Narrative)
	assert.False(t, first.FromCache)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, now, first.Timestamp)

	var data map[string]any
	require.NoError(t, json.Unmarshal(first.Data, &data))
	assert.EqualValues(t, 5, data["total_events"])
	assert.EqualValues(t, 3, data["unique_identities"])

	second, err := f.svc.SubmitQuery(context.Background(), "  show me PLATFORM usage   overview ")
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.ID, second.ID)
	assert.JSONEq(t, string(first.Data), string(second.Data))
	f.repo.AssertExpectations(t)
	f.gen.AssertExpectations(t)
}

func TestSubmitQuery_FallbackNarrativeOnGeneratorFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("30days"), repository.EventFilter{EventType: domain.EventTypeAgentRequest}).Return(fixtureEvents()[:3], nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("", errors.New("upstream timeout"))

	resp, err := f.svc.SubmitQuery(context.Background(), "How is each agent doing?")
	require.NoError(t, err)

	assert.Equal(t, string(classifier.AgentPerformance), resp.QueryType)
	assert.Contains(t, resp.Narrative, "Agents handled 3 requests")
	assert.Contains(t, resp.Narrative, "chat_agent: 3 requests, 1 failed")

	var data AgentPerformance
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.Recommendations)
	assert.Equal(t, domain.RecommendationErrorInvestigation, data.Recommendations[0].Type)
	assert.Equal(t, domain.PriorityHigh, data.Recommendations[0].Priority)
}

func TestSubmitQuery_NoDataWindow(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("30days"), repository.EventFilter{EventType: domain.EventTypeMarketplaceAction}).Return([]domain.Event{}, nil)
	f.repo.On("Fetch", mock.Anything, period("30days_prior"), repository.EventFilter{EventType: domain.EventTypeMarketplaceAction}).Return([]domain.Event{}, nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("Nothing sold yet.", nil)

	resp, err := f.svc.SubmitQuery(context.Background(), "What were the marketplace sales?")
	require.NoError(t, err)

	var data NoData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, domain.ReportStatusNoData, data.Status)
	assert.Equal(t, string(classifier.MarketplaceTrends), data.Category)
}

func TestSubmitQuery_EventStoreFailureIsSurfaced(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	resp, err := f.svc.SubmitQuery(context.Background(), "platform stats please")

	assert.Nil(t, resp)
	assert.Equal(t, domain.KindExternalService, domain.KindOf(err))
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSubmitQuery_ComplexQueryRoutedByTags(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("30days"), repository.EventFilter{}).Return(fixtureEvents(), nil).Once()
	f.gen.On("Generate", mock.Anything, routingRequest()).Return("agent_performance, content_trends", nil).Once()
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("Focus on the chat agent.", nil).Once()

	resp, err := f.svc.SubmitQuery(context.Background(), "Where should we focus next quarter?")
	require.NoError(t, err)

	assert.Equal(t, string(classifier.ComplexQuery), resp.QueryType)

	var data struct {
		Categories []string                   `json:"categories"`
		Routing    string                     `json:"routing"`
		Sections   map[string]json.RawMessage `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, []string{"agent_performance", "content_trends"}, data.Categories)
	assert.Equal(t, "generated", data.Routing)
	assert.Contains(t, data.Sections, "agent_performance")
	assert.Contains(t, data.Sections, "content_trends")
	f.repo.AssertExpectations(t)
	f.gen.AssertExpectations(t)
}

func TestSubmitQuery_ComplexQueryDefaultsToPlatformStats(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("30days"), repository.EventFilter{}).Return(fixtureEvents(), nil)
	f.repo.On("Fetch", mock.Anything, period("30days_prior"), repository.EventFilter{}).Return([]domain.Event{}, nil)
	f.gen.On("Generate", mock.Anything, routingRequest()).Return("I am not sure.", nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("Overall things look fine.", nil)

	resp, err := f.svc.SubmitQuery(context.Background(), "Where should we focus next quarter?")
	require.NoError(t, err)

	var data ComplexAnswer
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, []classifier.Category{classifier.PlatformStats}, data.Categories)
	assert.Equal(t, "default", data.Routing)
}

func TestInvalidateQuery_ForcesRecomputation(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("30days"), repository.EventFilter{}).Return(fixtureEvents(), nil).Twice()
	f.repo.On("Fetch", mock.Anything, period("30days_prior"), repository.EventFilter{}).Return([]domain.Event{}, nil).Twice()
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("Traffic is healthy.", nil)

	_, err := f.svc.SubmitQuery(context.Background(), "platform overview")
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Len())

	require.NoError(t, f.svc.InvalidateQuery(context.Background(), "Platform Overview"))
	assert.Equal(t, 0, f.cache.Len())

	resp, err := f.svc.SubmitQuery(context.Background(), "platform overview")
	require.NoError(t, err)
	assert.False(t, resp.FromCache)
	f.repo.AssertExpectations(t)
}

func TestGenerateReport_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		period     string
		reportType domain.ReportType
	}{
		{"missing period", "", domain.ReportTypeUsage},
		{"malformed period", "lastweek", domain.ReportTypeUsage},
		{"prior period", "7days_prior", domain.ReportTypeUsage},
		{"upper-case prior period", "7DAYS_PRIOR", domain.ReportTypeUsage},
		{"unknown type", "7days", domain.ReportType("revenue")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := f.svc.GenerateReport(context.Background(), tt.period, tt.reportType)
			assert.Nil(t, report)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
	f.repo.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateReport_NoData(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("7days"), repository.EventFilter{}).Return([]domain.Event{}, nil)

	report, err := f.svc.GenerateReport(context.Background(), "7days", domain.ReportTypeUsage)
	require.NoError(t, err)

	assert.Equal(t, domain.ReportStatusNoData, report.Status)
	assert.Empty(t, report.Recommendations)
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateReport_ComprehensiveAndCached(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("7days"), repository.EventFilter{}).Return(fixtureEvents(), nil).Once()
	f.repo.On("Fetch", mock.Anything, period("7days_prior"), repository.EventFilter{}).Return(fixtureEvents()[:1], nil).Once()
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("A busy week.", nil).Once()

	report, err := f.svc.GenerateReport(context.Background(), "7days", "")
	require.NoError(t, err)

	assert.Equal(t, domain.ReportTypeComprehensive, report.ReportType)
	assert.Equal(t, domain.ReportStatusOK, report.Status)
	assert.Equal(t, 5, report.Summary["total_events"])
	assert.Equal(t, 3, report.Summary["agent_requests"])
	assert.Contains(t, report.Trends, "event_growth")
	assert.Contains(t, report.Trends, "marketplace_growth")
	assert.Contains(t, report.Patterns, "usage_by_hour")
	assert.Equal(t, "landscape", report.ContentAnalysis["top_subject"])
	assert.Equal(t, "A busy week.", report.Insights["narrative"])
	assert.Equal(t, "generated", report.Insights["narrative_source"])

	require.NotEmpty(t, report.Recommendations)
	for i := 1; i < len(report.Recommendations); i++ {
		assert.LessOrEqual(t, report.Recommendations[i-1].Priority.Rank(), report.Recommendations[i].Priority.Rank())
	}

	cached, err := f.svc.GenerateReport(context.Background(), "7days", domain.ReportTypeComprehensive)
	require.NoError(t, err)
	assert.Equal(t, report.Recommendations, cached.Recommendations)
	assert.Equal(t, "A busy week.", cached.Insights["narrative"])
	f.repo.AssertExpectations(t)
	f.gen.AssertExpectations(t)
}

func TestGenerateReport_UsageOnlyFillsUsageSections(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("24hours"), repository.EventFilter{}).Return(fixtureEvents(), nil)
	f.repo.On("Fetch", mock.Anything, period("24hours_prior"), repository.EventFilter{}).Return([]domain.Event{}, nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("", errors.New("circuit open"))

	report, err := f.svc.GenerateReport(context.Background(), "24hours", domain.ReportTypeUsage)
	require.NoError(t, err)

	assert.Contains(t, report.Summary, "sessions")
	assert.NotContains(t, report.Summary, "agent_requests")
	assert.Nil(t, report.ContentAnalysis)
	assert.Equal(t, "fallback", report.Insights["narrative_source"])
	assert.Contains(t, report.Insights["narrative"], "5 events from 3 users or visitors")
}

func recommendationMessages(recs []domain.Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Message)
	}
	return out
}

func TestGenerateReport_AgentPerformanceAppliesGrowthRules(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("7days"), repository.EventFilter{}).Return(fixtureEvents(), nil)
	f.repo.On("Fetch", mock.Anything, period("7days_prior"), repository.EventFilter{}).Return(fixtureEvents()[:1], nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("Agents are busy.", nil)

	report, err := f.svc.GenerateReport(context.Background(), "7days", domain.ReportTypeAgentPerformance)
	require.NoError(t, err)

	assert.Contains(t, recommendationMessages(report.Recommendations),
		"Activity grew 400.0% versus the previous period; check capacity and response times.")
}

func TestGenerateReport_ContentAnalysisAppliesGrowthRules(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("7days"), repository.EventFilter{}).Return(fixtureEvents()[:1], nil)
	f.repo.On("Fetch", mock.Anything, period("7days_prior"), repository.EventFilter{}).Return(fixtureEvents(), nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("Content is thinning.", nil)

	report, err := f.svc.GenerateReport(context.Background(), "7days", domain.ReportTypeContentAnalysis)
	require.NoError(t, err)

	assert.Contains(t, recommendationMessages(report.Recommendations),
		"Activity fell 80.0% versus the previous period; review engagement campaigns.")
}

func TestSendWeeklyReport_SendsRenderedReport(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, period("7days"), repository.EventFilter{}).Return(fixtureEvents(), nil)
	f.repo.On("Fetch", mock.Anything, period("7days_prior"), repository.EventFilter{}).Return([]domain.Event{}, nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("A busy week.", nil)
	f.sender.On("Send", mock.Anything, []string{"ops@example.com"},
		"Weekly platform intelligence report (2026-03-10)",
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, "A busy week.") }),
	).Return(nil).Once()

	require.NoError(t, f.svc.SendWeeklyReport(context.Background()))

	f.sender.AssertExpectations(t)
	assert.Equal(t, 0, f.cache.Len())
}

func TestSendWeeklyReport_SendFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Fetch", mock.Anything, mock.Anything, repository.EventFilter{}).Return(fixtureEvents(), nil)
	f.gen.On("Generate", mock.Anything, narrativeRequest()).Return("A busy week.", nil)
	f.sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("queue unavailable")).Once()

	assert.NoError(t, f.svc.SendWeeklyReport(context.Background()))
	f.sender.AssertNumberOfCalls(t, "Send", 1)
}
