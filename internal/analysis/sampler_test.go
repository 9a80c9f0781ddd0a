package analysis

import (
	"reflect"
	"testing"

	"github.com/jackzampolin/slate/internal/gateway"
)

func TestSampler_Plan(t *testing.T) {
	s := DefaultSampler()
	tests := []struct {
		name  string
		total int
		mode  gateway.Mode
		want  []int
	}{
		{"twenty scenes", 20, gateway.ModeStandard, []int{0, 1, 2, 3, 4, 8, 9, 10, 11, 12, 15, 16, 17, 18, 19}},
		{"overlapping blocks", 16, gateway.ModeTatort, []int{0, 1, 2, 3, 4, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}},
		{"at threshold", 15, gateway.ModeStandard, seq(15)},
		{"story mode", 30, gateway.ModeStory, seq(30)},
		{"combined mode", 30, gateway.ModeCombined, seq(30)},
		{"empty", 0, gateway.ModeStandard, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Plan(tt.total, tt.mode)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan(%d, %s) = %v, want %v", tt.total, tt.mode, got, tt.want)
			}
		})
	}
}

func TestSampler_AnalyzedCount(t *testing.T) {
	s := Sampler{Threshold: 10, Block: 2}
	if got := s.AnalyzedCount(100, gateway.ModeStandard); got != 6 {
		t.Errorf("AnalyzedCount(100) = %d, want 6", got)
	}
	if got := s.AnalyzedCount(100, gateway.ModeStory); got != 100 {
		t.Errorf("AnalyzedCount(100, story) = %d, want 100", got)
	}
	if got := s.AnalyzedCount(8, gateway.ModeStandard); got != 8 {
		t.Errorf("AnalyzedCount(8) = %d, want 8", got)
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
