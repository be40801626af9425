package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/internal/aggregate"
	"github.com/BarkinBalci/synthesis-engine/internal/cache"
	"github.com/BarkinBalci/synthesis-engine/internal/classifier"
	"github.com/BarkinBalci/synthesis-engine/internal/config"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/dto"
	"github.com/BarkinBalci/synthesis-engine/internal/narrative"
	"github.com/BarkinBalci/synthesis-engine/internal/notify"
	"github.com/BarkinBalci/synthesis-engine/internal/recommend"
	"github.com/BarkinBalci/synthesis-engine/internal/repository"
	"github.com/BarkinBalci/synthesis-engine/internal/textgen"
)

const routingSystemPrompt = `You route analytics questions to data categories.
Reply with a comma-separated list of the relevant category tags and nothing else.`

// Options configures a SynthesisService
type Options struct {
	Synthesis  config.Synthesis
	Narrative  narrative.Options
	Recipients []string
	// Now overrides the clock; defaults to time.Now in UTC
	Now func() time.Time
}

// SynthesisService composes the analysis pipeline into query answers and
// reports. It holds no state besides what lives in the injected cache.
type SynthesisService struct {
	repo     repository.EventRepository
	textgen  textgen.Generator
	narrator *narrative.Generator
	cache    cache.Cache
	sender   notify.Sender
	opts     Options
	log      *zap.Logger
}

// NewSynthesisService creates the orchestrator. gen and sender may be nil;
// narratives then always use the fallback and weekly mails are skipped.
func NewSynthesisService(repo repository.EventRepository, gen textgen.Generator, c cache.Cache, sender notify.Sender, opts Options, log *zap.Logger) *SynthesisService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Synthesis.SessionTimeout <= 0 {
		opts.Synthesis = config.DefaultSynthesis()
	}

	return &SynthesisService{
		repo:     repo,
		textgen:  gen,
		narrator: narrative.NewGenerator(gen, opts.Narrative, log),
		cache:    c,
		sender:   sender,
		opts:     opts,
		log:      log,
	}
}

func (s *SynthesisService) thresholds() recommend.Thresholds {
	return recommend.Thresholds{
		MinAgentUsage:      s.opts.Synthesis.MinAgentUsage,
		ErrorRateThreshold: s.opts.Synthesis.ErrorRateThreshold,
		HighGrowthPercent:  s.opts.Synthesis.HighGrowthPercent,
	}
}

func (s *SynthesisService) newGatherer(period repository.Period) *gatherer {
	return &gatherer{
		loader:     newLoader(s.repo),
		period:     period,
		timeout:    s.opts.Synthesis.SessionTimeout,
		thresholds: s.thresholds(),
		topTerms:   s.opts.Synthesis.TopTermsLimit,
	}
}

func (s *SynthesisService) validateQuery(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", domain.NewError(domain.KindValidation, "query must not be empty", nil)
	}
	if limit := s.opts.Synthesis.MaxQueryLength; limit > 0 && len([]rune(trimmed)) > limit {
		return "", domain.NewError(domain.KindValidation, fmt.Sprintf("query exceeds %d characters", limit), nil)
	}
	return trimmed, nil
}

// SubmitQuery answers an administrator question. Answers are cached by the
// normalized question text; a cached answer is returned with FromCache set.
func (s *SynthesisService) SubmitQuery(ctx context.Context, text string) (*dto.QueryResponse, error) {
	query, err := s.validateQuery(text)
	if err != nil {
		return nil, err
	}

	key := cache.QueryKey(query)
	if cached, ok := s.cachedQuery(ctx, key); ok {
		s.log.Info("Query served from cache",
			zap.String("query_id", cached.ID),
			zap.String("query_type", cached.QueryType))
		return cached, nil
	}

	category := classifier.Classify(query)
	q := domain.Query{
		Text:      query,
		Category:  string(category),
		Timestamp: s.opts.Now(),
	}
	s.log.Info("Query received",
		zap.String("query_type", q.Category),
		zap.Int("query_length", len([]rune(q.Text))))

	period, err := repository.ParsePeriod(s.opts.Synthesis.QueryPeriod, q.Timestamp)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "invalid query period configuration", err)
	}
	g := s.newGatherer(period)

	var data any
	if category == classifier.ComplexQuery {
		data, err = s.answerComplex(ctx, g, q.Text)
	} else {
		data, err = g.gather(ctx, category, q.Text)
	}
	if err != nil {
		s.log.Error("Failed to gather query data",
			zap.String("query_type", q.Category),
			zap.Error(err))
		return nil, err
	}

	story, generated := s.narrator.Narrate(ctx, narrative.Context{Subject: q.Text, Category: q.Category}, data)

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query data: %w", err)
	}

	response := &dto.QueryResponse{
		ID:        uuid.NewString(),
		Query:     q.Text,
		QueryType: q.Category,
		Data:      encoded,
		Narrative: story,
		Timestamp: q.Timestamp,
	}

	s.storeQuery(ctx, key, response)

	s.log.Info("Query answered",
		zap.String("query_id", response.ID),
		zap.String("query_type", response.QueryType),
		zap.Bool("generated_narrative", generated))

	return response, nil
}

// InvalidateQuery drops the cached answer for text
func (s *SynthesisService) InvalidateQuery(ctx context.Context, text string) error {
	query, err := s.validateQuery(text)
	if err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, cache.QueryKey(query)); err != nil {
		return domain.NewError(domain.KindExternalService, "cache unavailable", err)
	}
	return nil
}

func (s *SynthesisService) cachedQuery(ctx context.Context, key string) (*dto.QueryResponse, bool) {
	payload, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("Cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}

	var response dto.QueryResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		s.log.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	response.FromCache = true
	return &response, true
}

func (s *SynthesisService) storeQuery(ctx context.Context, key string, response *dto.QueryResponse) {
	payload, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode query for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.opts.Synthesis.QueryCacheTTL); err != nil {
		s.log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// answerComplex asks the text generator which categories a question needs
// and gathers each of them. Routing falls back to platform stats.
func (s *SynthesisService) answerComplex(ctx context.Context, g *gatherer, query string) (any, error) {
	events, err := g.loader.load(ctx, g.period, "")
	if err != nil {
		return nil, err
	}

	categories, routing := s.routeComplex(ctx, query, g.period.Token, events)

	answer := ComplexAnswer{
		Categories: categories,
		Routing:    routing,
		Sections:   make(map[classifier.Category]any, len(categories)),
	}
	for _, c := range categories {
		section, err := g.gather(ctx, c, query)
		if err != nil {
			return nil, err
		}
		answer.Sections[c] = section
	}
	return answer, nil
}

func (s *SynthesisService) routeComplex(ctx context.Context, query, period string, events []domain.Event) ([]classifier.Category, string) {
	fallback := []classifier.Category{classifier.PlatformStats}
	if s.textgen == nil {
		return fallback, "default"
	}

	timeout := s.opts.Narrative.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := s.textgen.Generate(callCtx, textgen.Request{
		System:      routingSystemPrompt,
		Prompt:      routingPrompt(query, period, events),
		MaxTokens:   60,
		Temperature: 0,
	})
	if err != nil {
		s.log.Warn("Complex query routing failed, using default categories", zap.Error(err))
		return fallback, "default"
	}

	categories := classifier.ParseCategories(reply)
	if len(categories) == 0 {
		s.log.Warn("Complex query routing reply had no known categories", zap.String("reply", reply))
		return fallback, "default"
	}
	return categories, "generated"
}

func routingPrompt(query, period string, events []domain.Event) string {
	counts := aggregate.EventTypeCounts(events)
	types := make([]string, 0, len(counts))
	for t, n := range counts {
		types = append(types, fmt.Sprintf("%s=%d", t, n))
	}
	sort.Strings(types)

	tags := make([]string, 0, 7)
	for _, c := range classifier.Categories() {
		tags = append(tags, string(c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", query)
	fmt.Fprintf(&b, "Available data for the last %s: %d events from %d identities", humanPeriod(period), len(events), aggregate.UniqueIdentities(events))
	if len(types) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(types, ", "))
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Category tags: %s\n", strings.Join(tags, ", "))
	return b.String()
}
