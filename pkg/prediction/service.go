package prediction

import (
	"context"
	"fmt"

	"github.com/dev-ayush21/Pvtwingo/pkg/game"
	"github.com/dev-ayush21/Pvtwingo/pkg/pagination"
)

// HistoryAggregator produces a validated history window for a game.
type HistoryAggregator interface {
	Aggregate(ctx context.Context, g game.Type) (*pagination.History, error)
}

// Service runs one prediction request end to end:
// validate, fetch, merge, check sufficiency, predict. Every failure is terminal.
type Service struct {
	aggregator HistoryAggregator
	delegate   *Delegate
}

// NewService wires an aggregator to a delegate.
func NewService(aggregator HistoryAggregator, delegate *Delegate) (*Service, error) {
	if aggregator == nil {
		return nil, fmt.Errorf("history aggregator is required")
	}
	if delegate == nil {
		return nil, fmt.Errorf("prediction delegate is required")
	}
	return &Service{aggregator: aggregator, delegate: delegate}, nil
}

// Predict returns the response payload for g. Aggregation failures are
// *pagination.AggregationError; engine failures wrap ErrEngine.
func (s *Service) Predict(ctx context.Context, g game.Type) (*game.Response, error) {
	history, err := s.aggregator.Aggregate(ctx, g)
	if err != nil {
		outcome := string(pagination.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		predictionsTotal.WithLabelValues(gameLabel(g), outcome).Inc()
		return nil, err
	}

	resp, err := s.delegate.BuildResponse(history)
	if err != nil {
		predictionsTotal.WithLabelValues(gameLabel(g), "engine").Inc()
		return nil, err
	}

	predictionsTotal.WithLabelValues(gameLabel(g), "success").Inc()
	return resp, nil
}

// gameLabel bounds metric label cardinality to the known variants.
func gameLabel(g game.Type) string {
	if g.Valid() {
		return string(g)
	}
	return "invalid"
}
