// Package pattern is the default in-process analysis engine.
//
// For both the color (Red/Green) and size (Big/Small) series it looks at the
// current streak first: a streak of StreakThreshold or more predicts a break.
// Otherwise it follows the label that dominates the last Lookback draws.
package pattern

import (
	"errors"
	"fmt"
	"math"

	"github.com/dev-ayush21/Pvtwingo/pkg/game"
)

// ErrNoUsableRecords is returned when no record carries a valid draw number.
var ErrNoUsableRecords = errors.New("no usable records in history")

// Config tunes the engine.
type Config struct {
	Lookback        int
	StreakThreshold int
}

// DefaultConfig returns a 50-draw lookback and a break-after-4 streak rule.
func DefaultConfig() Config {
	return Config{Lookback: 50, StreakThreshold: 4}
}

// Engine implements prediction.Engine.
type Engine struct {
	config Config
}

// New creates an engine, falling back to defaults for non-positive values.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Lookback < 1 {
		cfg.Lookback = def.Lookback
	}
	if cfg.StreakThreshold < 2 {
		cfg.StreakThreshold = def.StreakThreshold
	}
	return &Engine{config: cfg}
}

// GeneratePrediction predicts the next color and size from newest-first history.
func (e *Engine) GeneratePrediction(history []game.Record) (game.Prediction, error) {
	colors := make([]string, 0, len(history))
	sizes := make([]string, 0, len(history))
	skipped := 0

	for _, r := range history {
		c, s, err := r.Classify()
		if err != nil {
			skipped++
			continue
		}
		colors = append(colors, string(c))
		sizes = append(sizes, string(s))
	}
	if len(colors) == 0 {
		return game.Prediction{}, fmt.Errorf("%w (%d skipped)", ErrNoUsableRecords, skipped)
	}

	color := e.predict(colors, string(game.ColorRed), string(game.ColorGreen))
	size := e.predict(sizes, string(game.SizeBig), string(game.SizeSmall))

	return game.Prediction{
		Color: color.sub,
		Size:  size.sub,
		Details: map[string]any{
			"analyzed":     len(colors),
			"skipped":      skipped,
			"lookback":     min(e.config.Lookback, len(colors)),
			"color_streak": color.streak,
			"size_streak":  size.streak,
		},
	}, nil
}

type seriesResult struct {
	sub    game.SubPrediction
	streak int
}

// predict works on a two-label series, newest first.
func (e *Engine) predict(series []string, a, b string) seriesResult {
	latest := series[0]
	streak := 1
	for streak < len(series) && series[streak] == latest {
		streak++
	}

	window := series[:min(e.config.Lookback, len(series))]
	countA := 0
	for _, v := range window {
		if v == a {
			countA++
		}
	}
	shareA := float64(countA) / float64(len(window))

	if streak >= e.config.StreakThreshold {
		next := opposite(latest, a, b)
		// 0.55 at the threshold, +0.05 per extra draw, capped at 0.85.
		conf := math.Min(0.85, 0.55+0.05*float64(streak-e.config.StreakThreshold))
		return seriesResult{
			sub: game.SubPrediction{
				Prediction: next,
				Confidence: round2(conf),
				Reason:     fmt.Sprintf("%s streak of %d, expecting a break", latest, streak),
			},
			streak: streak,
		}
	}

	next, share := a, shareA
	if shareA < 0.5 || (shareA == 0.5 && latest == b) {
		next, share = b, 1-shareA
	}
	return seriesResult{
		sub: game.SubPrediction{
			Prediction: next,
			Confidence: round2(share),
			Reason:     fmt.Sprintf("%s in %.0f%% of the last %d draws", next, share*100, len(window)),
		},
		streak: streak,
	}
}

func opposite(v, a, b string) string {
	if v == a {
		return b
	}
	return a
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
