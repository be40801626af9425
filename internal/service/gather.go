package service

import (
	"context"
	"fmt"
	"time"

	"github.com/BarkinBalci/synthesis-engine/internal/aggregate"
	"github.com/BarkinBalci/synthesis-engine/internal/classifier"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/frequency"
	"github.com/BarkinBalci/synthesis-engine/internal/growth"
	"github.com/BarkinBalci/synthesis-engine/internal/recommend"
	"github.com/BarkinBalci/synthesis-engine/internal/repository"
	"github.com/BarkinBalci/synthesis-engine/internal/sessions"
)

// loader fetches event windows once per request. Filtered loads are
// served from an already loaded unfiltered window when possible.
type loader struct {
	repo   repository.EventRepository
	loaded map[string][]domain.Event
}

func newLoader(repo repository.EventRepository) *loader {
	return &loader{repo: repo, loaded: make(map[string][]domain.Event)}
}

func (l *loader) load(ctx context.Context, period repository.Period, eventType domain.EventType) ([]domain.Event, error) {
	key := period.Token + "|" + string(eventType)
	if events, ok := l.loaded[key]; ok {
		return events, nil
	}

	if eventType != "" {
		if all, ok := l.loaded[period.Token+"|"]; ok {
			filtered := make([]domain.Event, 0, len(all))
			for _, e := range all {
				if e.Type == eventType {
					filtered = append(filtered, e)
				}
			}
			l.loaded[key] = filtered
			return filtered, nil
		}
	}

	events, err := l.repo.Fetch(ctx, period, repository.EventFilter{EventType: eventType})
	if err != nil {
		return nil, domain.NewError(domain.KindExternalService, "event store unavailable", err)
	}
	l.loaded[key] = events
	return events, nil
}

// gatherer computes the data payload of one category over a window
type gatherer struct {
	loader     *loader
	period     repository.Period
	timeout    time.Duration
	thresholds recommend.Thresholds
	topTerms   int
}

func (g *gatherer) gather(ctx context.Context, category classifier.Category, question string) (any, error) {
	switch category {
	case classifier.PlatformStats:
		return g.platformStats(ctx)
	case classifier.UserActivity:
		return g.userActivity(ctx)
	case classifier.MarketplaceTrends:
		return g.marketplaceTrends(ctx)
	case classifier.AgentPerformance:
		return g.agentPerformance(ctx)
	case classifier.ContentTrends:
		return g.contentTrends(ctx)
	case classifier.MarketIntelligence:
		return g.marketIntelligence(ctx)
	case classifier.WorldKnowledge:
		return WorldKnowledge{Question: question, Note: "answered from general knowledge, not platform data"}, nil
	default:
		return nil, fmt.Errorf("no data source for category %q", category)
	}
}

func (g *gatherer) window(ctx context.Context, eventType domain.EventType) ([]domain.Event, []domain.Event, error) {
	current, err := g.loader.load(ctx, g.period, eventType)
	if err != nil {
		return nil, nil, err
	}
	previous, err := g.loader.load(ctx, g.period.Prior(), eventType)
	if err != nil {
		return nil, nil, err
	}
	return current, previous, nil
}

func (g *gatherer) noData(category classifier.Category) NoData {
	return NoData{Status: domain.ReportStatusNoData, Period: g.period.Token, Category: string(category)}
}

func (g *gatherer) platformStats(ctx context.Context) (any, error) {
	current, previous, err := g.window(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return g.noData(classifier.PlatformStats), nil
	}

	summary := aggregate.SessionStats(sessions.Reconstruct(current, g.timeout))
	hourly := aggregate.UsageByHour(current)
	weekday := aggregate.UsageByWeekday(current)

	types := make(map[string]int)
	for t, n := range aggregate.EventTypeCounts(current) {
		types[string(t)] = n
	}

	return PlatformStats{
		Period:            g.period.Token,
		TotalEvents:       len(current),
		UniqueIdentities:  aggregate.UniqueIdentities(current),
		Sessions:          summary.Count,
		AvgSessionSeconds: summary.AvgDuration.Seconds(),
		EventTypes:        types,
		UsageByHour:       hourly,
		UsageByWeekday:    weekday,
		PeakHour:          aggregate.PeakHour(hourly),
		PeakWeekday:       aggregate.PeakWeekday(weekday).String(),
		EventGrowth:       growth.Compare(len(current), len(previous)),
		Features:          aggregate.FeatureUsage(current),
	}, nil
}

func (g *gatherer) userActivity(ctx context.Context) (any, error) {
	current, previous, err := g.window(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return g.noData(classifier.UserActivity), nil
	}

	summary := aggregate.SessionStats(sessions.Reconstruct(current, g.timeout))
	previousSessions := sessions.Reconstruct(previous, g.timeout)

	return UserActivity{
		Period:              g.period.Token,
		ActiveIdentities:    summary.UniqueIdentities,
		ReturningIdentities: summary.ReturningIdentities,
		Sessions:            summary.Count,
		AvgSessionSeconds:   summary.AvgDuration.Seconds(),
		LongestSessionSecs:  summary.LongestDuration.Seconds(),
		AvgEventsPerSession: summary.AvgEventsPerSession,
		PeakHour:            aggregate.PeakHour(aggregate.UsageByHour(current)),
		PeakWeekday:         aggregate.PeakWeekday(aggregate.UsageByWeekday(current)).String(),
		SessionGrowth:       growth.Compare(summary.Count, len(previousSessions)),
	}, nil
}

func (g *gatherer) marketplaceTrends(ctx context.Context) (any, error) {
	current, previous, err := g.window(ctx, domain.EventTypeMarketplaceAction)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return g.noData(classifier.MarketplaceTrends), nil
	}

	return MarketplaceTrends{
		Period:      g.period.Token,
		Marketplace: aggregate.MarketplaceStats(current, g.topTerms),
		Growth:      growth.Compare(len(current), len(previous)),
	}, nil
}

func (g *gatherer) agentPerformance(ctx context.Context) (any, error) {
	current, err := g.loader.load(ctx, g.period, domain.EventTypeAgentRequest)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return g.noData(classifier.AgentPerformance), nil
	}

	agents := aggregate.AgentUsage(current)
	failures := 0
	for _, s := range agents {
		failures += s.FailureCount
	}

	return AgentPerformance{
		Period:             g.period.Token,
		TotalRequests:      len(current),
		OverallFailureRate: float64(failures) / float64(len(current)),
		Agents:             agents,
		Recommendations:    recommend.Generate(recommend.Input{Agents: agents}, g.thresholds),
	}, nil
}

func (g *gatherer) contentTrends(ctx context.Context) (any, error) {
	agentEvents, err := g.loader.load(ctx, g.period, domain.EventTypeAgentRequest)
	if err != nil {
		return nil, err
	}
	searchEvents, err := g.loader.load(ctx, g.period, domain.EventTypeSearch)
	if err != nil {
		return nil, err
	}

	texts := aggregate.Texts(append(append([]domain.Event{}, agentEvents...), searchEvents...))
	if len(texts) == 0 {
		return g.noData(classifier.ContentTrends), nil
	}

	return analyzeContent(g.period.Token, texts, g.topTerms), nil
}

func (g *gatherer) marketIntelligence(ctx context.Context) (any, error) {
	agentsNow, agentsBefore, err := g.window(ctx, domain.EventTypeAgentRequest)
	if err != nil {
		return nil, err
	}
	marketNow, marketBefore, err := g.window(ctx, domain.EventTypeMarketplaceAction)
	if err != nil {
		return nil, err
	}
	if len(agentsNow) == 0 && len(marketNow) == 0 {
		return g.noData(classifier.MarketIntelligence), nil
	}

	return MarketIntelligence{
		Period:            g.period.Token,
		Features:          aggregate.FeatureUsage(agentsNow),
		AgentGrowth:       growth.Compare(len(agentsNow), len(agentsBefore)),
		MarketplaceGrowth: growth.Compare(len(marketNow), len(marketBefore)),
	}, nil
}

func analyzeContent(period string, texts []string, topN int) ContentTrends {
	terms := frequency.TopTerms(texts, frequency.DefaultStopWords, topN)
	topics := frequency.TopicCredits(texts, frequency.DefaultTopics)

	return ContentTrends{
		Period:        period,
		TextsAnalyzed: len(texts),
		TopTerms:      terms,
		Topics:        topics,
		TopSubject:    frequency.TopSubject(topics, terms),
	}
}
