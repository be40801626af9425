package domain

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities so that high sorts first
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

type RecommendationType string

const (
	RecommendationFeaturePromotion   RecommendationType = "feature_promotion"
	RecommendationErrorInvestigation RecommendationType = "error_investigation"
	RecommendationGrowth             RecommendationType = "growth"
	RecommendationPerformance        RecommendationType = "performance"
	RecommendationFeatureEnhancement RecommendationType = "feature_enhancement"
)

type Recommendation struct {
	Type     RecommendationType `json:"type"`
	Priority Priority           `json:"priority"`
	Message  string             `json:"message"`
}

type ReportType string

const (
	ReportTypeUsage            ReportType = "usage"
	ReportTypeAgentPerformance ReportType = "agent_performance"
	ReportTypeContentAnalysis  ReportType = "content_analysis"
	ReportTypeComprehensive    ReportType = "comprehensive"
)

// Valid reports whether t is one of the supported report types
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeUsage, ReportTypeAgentPerformance, ReportTypeContentAnalysis, ReportTypeComprehensive:
		return true
	}
	return false
}

const (
	ReportStatusOK     = "ok"
	ReportStatusNoData = "no_data"
)

// Report is the result of a scheduled or on-demand synthesis run. Sections
// are keyed by name so each report type only fills what it computes.
type Report struct {
	Period          string           `json:"period"`
	ReportType      ReportType       `json:"report_type"`
	Status          string           `json:"status"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Summary         map[string]any   `json:"summary,omitempty"`
	Trends          map[string]any   `json:"trends,omitempty"`
	Patterns        map[string]any   `json:"patterns,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	ContentAnalysis map[string]any   `json:"content_analysis,omitempty"`
	Insights        map[string]any   `json:"insights,omitempty"`
}

// Query is an administrator question; it is never persisted
type Query struct {
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}
