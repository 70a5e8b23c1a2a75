package models

// PathBatch holds count simulated trajectories of steps+1 values each, row-major.
// A batch is produced fresh by every simulation call and owned by the caller.
type PathBatch struct {
	count  int
	steps  int
	values []float64
}

// NewPathBatch allocates a zeroed batch.
func NewPathBatch(count, steps int) *PathBatch {
	return &PathBatch{
		count:  count,
		steps:  steps,
		values: make([]float64, count*(steps+1)),
	}
}

// Count returns the number of paths.
func (b *PathBatch) Count() int { return b.count }

// Steps returns the number of time steps per path.
func (b *PathBatch) Steps() int { return b.steps }

// Path returns path i. The slice aliases the batch storage.
func (b *PathBatch) Path(i int) []float64 {
	width := b.steps + 1
	return b.values[i*width : (i+1)*width : (i+1)*width]
}

// Terminal returns the last value of path i.
func (b *PathBatch) Terminal(i int) float64 {
	return b.values[(i+1)*(b.steps+1)-1]
}

// Terminals returns a fresh slice with the last value of every path.
func (b *PathBatch) Terminals() []float64 {
	out := make([]float64, b.count)
	for i := range out {
		out[i] = b.Terminal(i)
	}
	return out
}

// Equal reports whether two batches hold bit-identical values.
func (b *PathBatch) Equal(other *PathBatch) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.count != other.count || b.steps != other.steps {
		return false
	}
	for i, v := range b.values {
		if v != other.values[i] {
			return false
		}
	}
	return true
}

// SensitivityWeights holds one scalar weight per path, aligned index-for-index
// with the PathBatch from the same simulation call.
type SensitivityWeights []float64

// Len returns the number of weights.
func (w SensitivityWeights) Len() int { return len(w) }

// EngineResult is the output of one engine call. Weight fields are nil when the
// engine was not asked for them.
type EngineResult struct {
	Paths        *PathBatch
	DeltaWeights *SensitivityWeights
	GammaWeights *SensitivityWeights
}

// HasWeights reports whether both weight arrays are present.
func (r *EngineResult) HasWeights() bool {
	return r.DeltaWeights != nil && r.GammaWeights != nil
}
