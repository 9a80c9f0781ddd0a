package analysis

import (
	"math"

	"github.com/jackzampolin/slate/internal/gateway"
)

// CostConfig holds the per-scene token assumptions behind estimates.
type CostConfig struct {
	InputTokensPerScene  int
	OutputTokensPerScene int
	USDToEUR             float64
}

// DefaultCostConfig assumes 500 input and 200 output tokens per scene.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		InputTokensPerScene:  500,
		OutputTokensPerScene: 200,
		USDToEUR:             1.08,
	}
}

// EstimateCost returns the expected cost in EUR of analyzing scenes with
// model, rounded to three decimals. Unknown models are priced as the
// default model.
func EstimateCost(scenes int, model string, cfg CostConfig) float64 {
	if scenes <= 0 {
		return 0
	}
	m, _ := gateway.LookupModel(model)
	input := float64(scenes * cfg.InputTokensPerScene)
	output := float64(scenes * cfg.OutputTokensPerScene)
	usd := (input*m.InputPerM + output*m.OutputPerM) / 1_000_000
	return math.Round(usd*cfg.USDToEUR*1000) / 1000
}

// Estimate describes the cost of a planned analysis.
type Estimate struct {
	Model          string  `json:"model"`
	Mode           string  `json:"mode"`
	TotalScenes    int     `json:"total_scenes"`
	AnalyzedScenes int     `json:"scenes_to_analyze"`
	Sampled        bool    `json:"sampled"`
	EstimatedCost  float64 `json:"estimated_cost"`
}

// EstimateJob prices total scenes under mode after sampling.
func EstimateJob(total int, mode gateway.Mode, model string, s Sampler, cfg CostConfig) Estimate {
	if model == "" {
		model = gateway.DefaultModel
	}
	analyzed := s.AnalyzedCount(total, mode)
	return Estimate{
		Model:          model,
		Mode:           string(mode),
		TotalScenes:    total,
		AnalyzedScenes: analyzed,
		Sampled:        analyzed < total,
		EstimatedCost:  EstimateCost(analyzed, model, cfg),
	}
}
