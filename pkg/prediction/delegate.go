// Package prediction hands aggregated history to the analysis engine and
// shapes the response returned to clients.
package prediction

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dev-ayush21/Pvtwingo/pkg/game"
	"github.com/dev-ayush21/Pvtwingo/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wingo_predictions_total",
	Help: "Total prediction requests by game and outcome",
}, []string{"game", "outcome"})

// ErrEngine wraps any failure raised by the analysis engine.
var ErrEngine = errors.New("analysis engine failed")

// Engine turns a newest-first history window into a prediction.
// Implementations must not retain or modify the slice.
type Engine interface {
	GeneratePrediction(history []game.Record) (game.Prediction, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(history []game.Record) (game.Prediction, error)

// GeneratePrediction calls f.
func (f EngineFunc) GeneratePrediction(history []game.Record) (game.Prediction, error) {
	return f(history)
}

// Config holds delegate configuration.
type Config struct {
	// DigestSize is the number of newest records echoed back as lastResults.
	DigestSize int
}

// DefaultConfig returns a digest of the 20 newest records.
func DefaultConfig() Config {
	return Config{DigestSize: 20}
}

// Delegate invokes the engine and assembles the response payload.
type Delegate struct {
	engine Engine
	config Config
	logger zerolog.Logger
}

// NewDelegate creates a delegate around an engine.
func NewDelegate(engine Engine, cfg Config) (*Delegate, error) {
	if engine == nil {
		return nil, fmt.Errorf("analysis engine is required")
	}
	if cfg.DigestSize < 1 {
		return nil, fmt.Errorf("digest size must be >= 1 (got %d)", cfg.DigestSize)
	}
	return &Delegate{
		engine: engine,
		config: cfg,
		logger: log.With().Str("component", "prediction-delegate").Logger(),
	}, nil
}

// BuildResponse runs the engine over the whole window and builds the payload.
// Engine errors and panics come back wrapped in ErrEngine.
func (d *Delegate) BuildResponse(history *pagination.History) (*game.Response, error) {
	if history == nil {
		return nil, fmt.Errorf("history is required")
	}

	prediction, err := d.generate(history.Records)
	if err != nil {
		return nil, err
	}

	resp := &game.Response{
		Success:     true,
		Prediction:  prediction,
		LastResults: Digest(history.Records, d.config.DigestSize),
	}
	if len(history.Records) > 0 {
		resp.CurrentPeriod = history.Records[0].Issue
	}

	d.logger.Info().
		Str("game", string(history.Game)).
		Str("color", prediction.Color.Prediction).
		Str("size", prediction.Size.Prediction).
		Str("current_period", resp.CurrentPeriod).
		Msg("Prediction generated")

	return resp, nil
}

// generate shields the delegate from engine panics and from engines that keep or mutate the slice.
func (d *Delegate) generate(records []game.Record) (prediction game.Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrEngine, r)
		}
	}()

	prediction, err = d.engine.GeneratePrediction(slices.Clone(records))
	if err != nil {
		return game.Prediction{}, fmt.Errorf("%w: %w", ErrEngine, err)
	}
	return prediction, nil
}

// Digest projects the first n records to period and number.
func Digest(records []game.Record, n int) []game.ResultDigest {
	if n > len(records) {
		n = len(records)
	}
	digest := make([]game.ResultDigest, 0, n)
	for _, r := range records[:n] {
		digest = append(digest, game.ResultDigest{
			Period: r.Issue,
			Number: r.DrawNumber,
		})
	}
	return digest
}
