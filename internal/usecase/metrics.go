package usecase

import "context"

// MetricsSummary represents aggregated classification insights.
type MetricsSummary struct {
	TotalRequests        int64   `json:"total_requests"`
	FallbackRequests     int64   `json:"fallback_requests"`
	FallbackRate         float64 `json:"fallback_rate"`
	AverageTopConfidence float64 `json:"average_top_confidence"`
}

// GetMetricsSummary aggregates classification metrics from persisted logs.
func (uc *ClassifyUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalRequests:        aggregation.TotalCount,
		FallbackRequests:     aggregation.FallbackCount,
		AverageTopConfidence: aggregation.AverageConfidence,
	}

	if aggregation.TotalCount > 0 {
		summary.FallbackRate = float64(aggregation.FallbackCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
