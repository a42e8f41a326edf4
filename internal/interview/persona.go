package interview

// The five persona dimensions, in their canonical order. Tie-breaking and
// fallback choices always follow this order so sequencing stays
// deterministic.
const (
	DimensionWorkStyle      = "work_style"
	DimensionProblemSolving = "problem_solving"
	DimensionLearning       = "learning"
	DimensionStressResponse = "stress_response"
	DimensionCommunication  = "communication"
)

// Dimensions lists all persona dimensions in canonical order.
var Dimensions = []string{
	DimensionWorkStyle,
	DimensionProblemSolving,
	DimensionLearning,
	DimensionStressResponse,
	DimensionCommunication,
}

// DefaultMargin is the relative top-two margin under which a dimension
// counts as unresolved.
const DefaultMargin = 0.25

// Trait pairs a persona trait with the dimension it belongs to.
type Trait struct {
	Dimension string
	Name      string
	Score     float64
}

// ScoreBoard accumulates per-dimension trait scores from analyzed answers.
// Deltas are additive and never negative; a negative delta is clamped to
// zero rather than rejected, so one bad analysis cannot erase signal.
type ScoreBoard struct {
	scores map[string]map[string]float64
}

// NewScoreBoard returns an empty board covering all persona dimensions.
func NewScoreBoard() *ScoreBoard {
	scores := make(map[string]map[string]float64, len(Dimensions))
	for _, dim := range Dimensions {
		scores[dim] = make(map[string]float64)
	}
	return &ScoreBoard{scores: scores}
}

// Accumulate adds the trait deltas to the given dimension. Unknown
// dimensions are ignored.
func (b *ScoreBoard) Accumulate(dimension string, deltas map[string]float64) {
	traits, ok := b.scores[dimension]
	if !ok {
		return
	}

	for trait, delta := range deltas {
		if trait == "" || delta <= 0 {
			continue
		}
		traits[trait] += delta
	}
}

// DominantTrait returns the single highest-scoring trait across all
// dimensions. ok is false when no signal has been accumulated yet.
func (b *ScoreBoard) DominantTrait() (Trait, bool) {
	var best Trait
	found := false

	for _, dim := range Dimensions {
		for trait, score := range b.scores[dim] {
			// Ties across dimensions keep the earlier canonical
			// dimension; within one dimension the lexicographically
			// smaller trait wins, since map order is random.
			if !found || score > best.Score ||
				(score == best.Score && dim == best.Dimension && trait < best.Name) {
				best = Trait{Dimension: dim, Name: trait, Score: score}
				found = true
			}
		}
	}

	return best, found
}

// DominantIn returns the highest-scoring trait within one dimension.
func (b *ScoreBoard) DominantIn(dimension string) (Trait, bool) {
	var best Trait
	found := false

	for trait, score := range b.scores[dimension] {
		if !found || score > best.Score || (score == best.Score && trait < best.Name) {
			best = Trait{Dimension: dimension, Name: trait, Score: score}
			found = true
		}
	}

	return best, found
}

// Unresolved returns the first dimension, in canonical order, whose signal
// is not clear: either no trait scored at all, or the top two traits sit
// within the given relative margin of each other.
func (b *ScoreBoard) Unresolved(margin float64) (string, bool) {
	for _, dim := range Dimensions {
		top, second := b.topTwo(dim)
		if top == 0 {
			return dim, true
		}
		if second > 0 && (top-second)/top < margin {
			return dim, true
		}
	}

	return "", false
}

// LeastExplored returns the dimension with the lowest total accumulated
// score, used as the deterministic validation fallback when every dimension
// is resolved.
func (b *ScoreBoard) LeastExplored() string {
	best := Dimensions[0]
	bestTotal := b.total(best)

	for _, dim := range Dimensions[1:] {
		if total := b.total(dim); total < bestTotal {
			best = dim
			bestTotal = total
		}
	}

	return best
}

// Confidence reports how clearly the dominant trait separates from the
// runner-up, normalized to [0, 1]. It feeds final reports only, never
// sequencing decisions.
func (b *ScoreBoard) Confidence() float64 {
	dominant, ok := b.DominantTrait()
	if !ok || dominant.Score == 0 {
		return 0
	}

	second := 0.0
	for _, dim := range Dimensions {
		for trait, score := range b.scores[dim] {
			if dim == dominant.Dimension && trait == dominant.Name {
				continue
			}
			if score > second {
				second = score
			}
		}
	}

	return (dominant.Score - second) / dominant.Score
}

// Snapshot returns a deep copy of the accumulated scores.
func (b *ScoreBoard) Snapshot() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(b.scores))
	for dim, traits := range b.scores {
		copied := make(map[string]float64, len(traits))
		for trait, score := range traits {
			copied[trait] = score
		}
		out[dim] = copied
	}
	return out
}

func (b *ScoreBoard) topTwo(dimension string) (top, second float64) {
	for _, score := range b.scores[dimension] {
		switch {
		case score > top:
			second = top
			top = score
		case score > second:
			second = score
		}
	}
	return top, second
}

func (b *ScoreBoard) total(dimension string) float64 {
	total := 0.0
	for _, score := range b.scores[dimension] {
		total += score
	}
	return total
}
