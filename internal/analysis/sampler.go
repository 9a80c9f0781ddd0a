package analysis

import (
	"sort"

	"github.com/jackzampolin/slate/internal/gateway"
)

// Sampler decides which scenes of a long script are sent to the model.
// Scripts longer than Threshold are reduced to three blocks of Block scenes
// taken from the start, middle and end. Story modes always analyze every
// scene because structure needs the whole arc.
type Sampler struct {
	Threshold int
	Block     int
}

// DefaultSampler samples scripts over 15 scenes in blocks of 5.
func DefaultSampler() Sampler {
	return Sampler{Threshold: 15, Block: 5}
}

// Applies reports whether sampling is used for total scenes in mode.
func (s Sampler) Applies(total int, mode gateway.Mode) bool {
	return s.Block > 0 && total > s.Threshold && !mode.HasNarrative()
}

// Plan returns the sorted 0-based indexes of the scenes to analyze.
func (s Sampler) Plan(total int, mode gateway.Mode) []int {
	if total <= 0 {
		return []int{}
	}
	if !s.Applies(total, mode) {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}

	mid := total/2 - s.Block/2
	starts := []int{0, mid, total - s.Block}

	seen := make(map[int]bool, 3*s.Block)
	plan := make([]int, 0, 3*s.Block)
	for _, start := range starts {
		for i := start; i < start+s.Block; i++ {
			if i < 0 || i >= total || seen[i] {
				continue
			}
			seen[i] = true
			plan = append(plan, i)
		}
	}
	sort.Ints(plan)
	return plan
}

// AnalyzedCount is the number of scenes Plan selects.
func (s Sampler) AnalyzedCount(total int, mode gateway.Mode) int {
	return len(s.Plan(total, mode))
}
