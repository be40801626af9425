package service

import (
	"context"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/dto"
)

// SynthesisServicer is the admin-facing surface of the synthesis engine
type SynthesisServicer interface {
	SubmitQuery(ctx context.Context, text string) (*dto.QueryResponse, error)
	InvalidateQuery(ctx context.Context, text string) error
	GenerateReport(ctx context.Context, period string, reportType domain.ReportType) (*domain.Report, error)
}
