package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/internal/aggregate"
	"github.com/BarkinBalci/synthesis-engine/internal/cache"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/frequency"
	"github.com/BarkinBalci/synthesis-engine/internal/growth"
	"github.com/BarkinBalci/synthesis-engine/internal/narrative"
	"github.com/BarkinBalci/synthesis-engine/internal/notify"
	"github.com/BarkinBalci/synthesis-engine/internal/recommend"
	"github.com/BarkinBalci/synthesis-engine/internal/repository"
	"github.com/BarkinBalci/synthesis-engine/internal/sessions"
)

const (
	weeklyPeriod  = "7days"
	weeklySubject = "Weekly platform intelligence report"
)

// GenerateReport builds a report of reportType over period. An empty
// reportType means comprehensive. Reports are cached per period and type.
func (s *SynthesisService) GenerateReport(ctx context.Context, period string, reportType domain.ReportType) (*domain.Report, error) {
	window, reportType, err := s.validateReport(period, reportType)
	if err != nil {
		return nil, err
	}

	key := cache.ReportKey(window.Token, string(reportType))
	if report, ok := s.cachedReport(ctx, key); ok {
		return report, nil
	}

	report, err := s.buildReport(ctx, window, reportType)
	if err != nil {
		return nil, err
	}

	s.storeReport(ctx, key, report)
	return report, nil
}

// SendWeeklyReport mails a fresh comprehensive report over the last seven
// days. Delivery failures are logged and not retried.
func (s *SynthesisService) SendWeeklyReport(ctx context.Context) error {
	if s.sender == nil || len(s.opts.Recipients) == 0 {
		s.log.Info("Weekly report skipped, no sender or recipients configured")
		return nil
	}

	window, reportType, err := s.validateReport(weeklyPeriod, domain.ReportTypeComprehensive)
	if err != nil {
		return err
	}

	report, err := s.buildReport(ctx, window, reportType)
	if err != nil {
		s.log.Error("Failed to build weekly report", zap.Error(err))
		return err
	}

	body, err := notify.RenderReportHTML(report)
	if err != nil {
		return fmt.Errorf("failed to render weekly report: %w", err)
	}

	subject := fmt.Sprintf("%s (%s)", weeklySubject, report.GeneratedAt.Format("2006-01-02"))
	if err := s.sender.Send(ctx, s.opts.Recipients, subject, body); err != nil {
		s.log.Error("Failed to send weekly report",
			zap.Int("recipients", len(s.opts.Recipients)),
			zap.Error(err))
		return nil
	}

	s.log.Info("Weekly report sent",
		zap.Int("recipients", len(s.opts.Recipients)),
		zap.String("status", report.Status))
	return nil
}

func (s *SynthesisService) validateReport(period string, reportType domain.ReportType) (repository.Period, domain.ReportType, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		return repository.Period{}, "", domain.NewError(domain.KindValidation, "period is required", nil)
	}
	if strings.HasSuffix(period, "_prior") {
		return repository.Period{}, "", domain.NewError(domain.KindValidation, "prior periods cannot be reported directly", nil)
	}

	window, err := repository.ParsePeriod(period, s.opts.Now())
	if err != nil {
		return repository.Period{}, "", domain.NewError(domain.KindValidation, fmt.Sprintf("invalid period %q", period), err)
	}

	if reportType == "" {
		reportType = domain.ReportTypeComprehensive
	}
	if !reportType.Valid() {
		return repository.Period{}, "", domain.NewError(domain.KindValidation, fmt.Sprintf("unknown report type %q", reportType), nil)
	}
	return window, reportType, nil
}

func (s *SynthesisService) buildReport(ctx context.Context, window repository.Period, reportType domain.ReportType) (*domain.Report, error) {
	g := s.newGatherer(window)

	report := &domain.Report{
		Period:          window.Token,
		ReportType:      reportType,
		Status:          domain.ReportStatusOK,
		GeneratedAt:     s.opts.Now(),
		Recommendations: make([]domain.Recommendation, 0),
	}

	current, err := g.loader.load(ctx, window, "")
	if err != nil {
		s.log.Error("Failed to load report window",
			zap.String("period", window.Token),
			zap.Error(err))
		return nil, err
	}
	if len(current) == 0 {
		report.Status = domain.ReportStatusNoData
		s.log.Info("Report window has no events", zap.String("period", window.Token))
		return report, nil
	}

	previous, err := g.loader.load(ctx, window.Prior(), "")
	if err != nil {
		return nil, err
	}

	eventGrowth := growth.Compare(len(current), len(previous))
	b := reportBuilder{
		report:      report,
		current:     current,
		previous:    previous,
		eventGrowth: &eventGrowth,
		timeout:     s.opts.Synthesis.SessionTimeout,
		topTerms:    s.opts.Synthesis.TopTermsLimit,
	}
	switch reportType {
	case domain.ReportTypeUsage:
		b.usage()
	case domain.ReportTypeAgentPerformance:
		b.agentPerformance()
	case domain.ReportTypeContentAnalysis:
		b.contentAnalysis()
	default:
		b.usage()
		b.agentPerformance()
		b.contentAnalysis()
		b.marketplace()
	}

	report.Recommendations = recommend.Generate(b.recommendInput(), s.thresholds())

	text, generated := s.narrator.Narrate(ctx, narrative.Context{
		Subject:  fmt.Sprintf("%s report for the last %s", strings.ReplaceAll(string(reportType), "_", " "), humanPeriod(window.Token)),
		Category: string(reportType) + "_report",
	}, reportData{report})

	source := "fallback"
	if generated {
		source = "generated"
	}
	report.Insights = map[string]any{
		"narrative":        text,
		"narrative_source": source,
	}

	s.log.Info("Report generated",
		zap.String("period", window.Token),
		zap.String("report_type", string(reportType)),
		zap.Int("events", len(current)),
		zap.Int("recommendations", len(report.Recommendations)))

	return report, nil
}

func (s *SynthesisService) cachedReport(ctx context.Context, key string) (*domain.Report, bool) {
	payload, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("Cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		s.log.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &report, true
}

func (s *SynthesisService) storeReport(ctx context.Context, key string, report *domain.Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		s.log.Warn("Failed to encode report for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.opts.Synthesis.ReportCacheTTL); err != nil {
		s.log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// reportBuilder fills report sections from one loaded window pair
type reportBuilder struct {
	report   *domain.Report
	current  []domain.Event
	previous []domain.Event
	timeout  time.Duration
	topTerms int

	agents      map[string]aggregate.AgentStats
	eventGrowth *growth.Growth
	topSubject  string
}

func ensure(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	return m
}

func (b *reportBuilder) usage() {
	r := b.report
	r.Summary = ensure(r.Summary)
	r.Trends = ensure(r.Trends)
	r.Patterns = ensure(r.Patterns)

	current := sessions.Reconstruct(b.current, b.timeout)
	previous := sessions.Reconstruct(b.previous, b.timeout)
	summary := aggregate.SessionStats(current)

	types := make(map[string]int)
	for t, n := range aggregate.EventTypeCounts(b.current) {
		types[string(t)] = n
	}

	r.Summary["total_events"] = len(b.current)
	r.Summary["unique_identities"] = summary.UniqueIdentities
	r.Summary["returning_identities"] = summary.ReturningIdentities
	r.Summary["sessions"] = summary.Count
	r.Summary["avg_session_seconds"] = summary.AvgDuration.Seconds()
	r.Summary["avg_events_per_session"] = summary.AvgEventsPerSession
	r.Summary["event_types"] = types

	r.Trends["event_growth"] = *b.eventGrowth
	r.Trends["session_growth"] = growth.Compare(summary.Count, len(previous))
	r.Trends["identity_growth"] = growth.Compare(summary.UniqueIdentities, aggregate.UniqueIdentities(b.previous))

	hourly := aggregate.UsageByHour(b.current)
	weekday := aggregate.UsageByWeekday(b.current)
	r.Patterns["usage_by_hour"] = hourly
	r.Patterns["usage_by_weekday"] = weekday
	r.Patterns["peak_hour"] = aggregate.PeakHour(hourly)
	r.Patterns["peak_weekday"] = aggregate.PeakWeekday(weekday).String()
	r.Patterns["feature_usage"] = aggregate.FeatureUsage(b.current)
}

func (b *reportBuilder) agentPerformance() {
	r := b.report
	r.Summary = ensure(r.Summary)
	r.Trends = ensure(r.Trends)
	r.Patterns = ensure(r.Patterns)

	b.agents = aggregate.AgentUsage(b.current)
	requests, failures := 0, 0
	for _, stats := range b.agents {
		requests += stats.Count
		failures += stats.FailureCount
	}
	failureRate := 0.0
	if requests > 0 {
		failureRate = float64(failures) / float64(requests)
	}

	before := aggregate.AgentUsage(b.previous)
	previousRequests := 0
	for _, stats := range before {
		previousRequests += stats.Count
	}

	r.Summary["agent_requests"] = requests
	r.Summary["agent_failure_rate"] = failureRate
	r.Trends["agent_growth"] = growth.Compare(requests, previousRequests)
	r.Patterns["agents"] = b.agents
}

func (b *reportBuilder) contentAnalysis() {
	r := b.report
	r.ContentAnalysis = ensure(r.ContentAnalysis)

	content := analyzeContent(r.Period, aggregate.Texts(b.current), b.topTerms)
	b.topSubject = content.TopSubject

	r.ContentAnalysis["texts_analyzed"] = content.TextsAnalyzed
	r.ContentAnalysis["top_terms"] = content.TopTerms
	r.ContentAnalysis["topics"] = content.Topics
	r.ContentAnalysis["top_subject"] = content.TopSubject
}

func (b *reportBuilder) marketplace() {
	r := b.report
	r.Summary = ensure(r.Summary)
	r.Trends = ensure(r.Trends)

	current := filterType(b.current, domain.EventTypeMarketplaceAction)
	previous := filterType(b.previous, domain.EventTypeMarketplaceAction)

	r.Summary["marketplace"] = aggregate.MarketplaceStats(current, b.topTerms)
	r.Trends["marketplace_growth"] = growth.Compare(len(current), len(previous))
}

func (b *reportBuilder) recommendInput() recommend.Input {
	return recommend.Input{
		Agents:     b.agents,
		Growth:     b.eventGrowth,
		TopSubject: b.topSubject,
	}
}

func filterType(events []domain.Event, t domain.EventType) []domain.Event {
	out := make([]domain.Event, 0)
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// reportData exposes a report's sections to the fallback narrative
type reportData struct {
	report *domain.Report
}

func (d reportData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.report)
}

func (d reportData) Facts() []string {
	r := d.report
	var facts []string

	if total, ok := r.Summary["total_events"].(int); ok {
		facts = append(facts, fmt.Sprintf("%d events from %v users or visitors were recorded in the last %s.",
			total, r.Summary["unique_identities"], humanPeriod(r.Period)))
	}
	if g, ok := r.Trends["event_growth"].(growth.Growth); ok {
		facts = append(facts, growthFact("Event volume", g))
	}
	if requests, ok := r.Summary["agent_requests"].(int); ok {
		rate, _ := r.Summary["agent_failure_rate"].(float64)
		facts = append(facts, fmt.Sprintf("Agents handled %d requests with a %.1f%% failure rate.", requests, rate*100))
	}
	if subject, ok := r.ContentAnalysis["top_subject"].(string); ok && subject != "" {
		facts = append(facts, fmt.Sprintf("The most requested subject is %q.", subject))
	}
	if terms, ok := r.ContentAnalysis["top_terms"].([]frequency.TermCount); ok && len(terms) > 0 {
		facts = append(facts, fmt.Sprintf("The most frequent term is %q (%d mentions).", terms[0].Term, terms[0].Count))
	}
	if m, ok := r.Summary["marketplace"].(aggregate.MarketplaceSummary); ok && m.Total > 0 {
		facts = append(facts, fmt.Sprintf("%d marketplace actions moved a volume of %s.", m.Total, m.Volume.StringFixed(2)))
	}
	for _, rec := range r.Recommendations {
		facts = append(facts, fmt.Sprintf("Recommended (%s): %s", rec.Priority, rec.Message))
	}
	return facts
}
