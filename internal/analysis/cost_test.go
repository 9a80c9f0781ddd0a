package analysis

import (
	"testing"

	"github.com/jackzampolin/slate/internal/gateway"
)

func TestEstimateCost(t *testing.T) {
	cfg := DefaultCostConfig()
	tests := []struct {
		name   string
		scenes int
		model  string
		want   float64
	}{
		{"gpt-4o", 100, "gpt-4o", 0.351},
		{"gpt-4o-mini", 100, "gpt-4o-mini", 0.021},
		{"llama", 1000, "llama-70b", 0.136},
		{"unknown model uses default rates", 100, "no-such-model", 0.021},
		{"no scenes", 0, "gpt-4o", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateCost(tt.scenes, tt.model, cfg); got != tt.want {
				t.Errorf("EstimateCost(%d, %q) = %v, want %v", tt.scenes, tt.model, got, tt.want)
			}
		})
	}
}

func TestEstimateJob(t *testing.T) {
	est := EstimateJob(20, gateway.ModeStandard, "", DefaultSampler(), DefaultCostConfig())
	if est.AnalyzedScenes != 15 {
		t.Errorf("AnalyzedScenes = %d, want 15", est.AnalyzedScenes)
	}
	if !est.Sampled {
		t.Error("Sampled = false, want true")
	}
	if est.Model != gateway.DefaultModel {
		t.Errorf("Model = %q, want %q", est.Model, gateway.DefaultModel)
	}
	if want := EstimateCost(15, gateway.DefaultModel, DefaultCostConfig()); est.EstimatedCost != want {
		t.Errorf("EstimatedCost = %v, want %v", est.EstimatedCost, want)
	}
}
