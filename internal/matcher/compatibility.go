package matcher

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"
)

// ScheduleCompatibility rates how well a teacher's availability fits the student's,
// from 0 (no overlap) to 1 (perfect fit).
type ScheduleCompatibility interface {
	Compatibility(teacherAvailability json.RawMessage, studentAvailability string) float64
}

// ConstantCompatibility returns the same rating for every pair.
type ConstantCompatibility float64

func (c ConstantCompatibility) Compatibility(json.RawMessage, string) float64 {
	return float64(c)
}

// RandomCompatibility is a placeholder that draws uniformly from [0.5, 1.0].
// It does not look at either availability.
type RandomCompatibility struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomCompatibility seeds the placeholder; seed 0 uses the current time.
func NewRandomCompatibility(seed int64) *RandomCompatibility {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomCompatibility{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomCompatibility) Compatibility(json.RawMessage, string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return 0.5 + r.rng.Float64()*0.5
}
