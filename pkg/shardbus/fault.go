package shardbus

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// FaultTrackerConfig configures fault tracking thresholds.
type FaultTrackerConfig struct {
	// Threshold is the number of faults before a pair is flagged.
	// Default: 3
	Threshold int

	// Window is how long fault counts are retained.
	// Default: 1 hour
	Window time.Duration

	// OnThreshold is called once per window when a pair reaches
	// Threshold.
	OnThreshold func(eventType, handler string, count int)
}

// DefaultFaultTrackerConfig provides reasonable defaults.
var DefaultFaultTrackerConfig = FaultTrackerConfig{
	Threshold: 3,
	Window:    1 * time.Hour,
}

// FaultTracker counts handler faults per (event type, handler) pair
// inside a sliding TTL window. A pair whose count reaches the
// threshold is flagged as faulty until its window entry expires,
// which spots handlers that fail the same event type repeatedly.
type FaultTracker struct {
	cfg    FaultTrackerConfig
	counts *gocache.Cache
}

// NewFaultTracker creates a tracker with the given configuration.
func NewFaultTracker(cfg FaultTrackerConfig) *FaultTracker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultFaultTrackerConfig.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultFaultTrackerConfig.Window
	}

	return &FaultTracker{
		cfg:    cfg,
		counts: gocache.New(cfg.Window, cfg.Window/2),
	}
}

// Record counts one fault and returns the running count for the pair.
func (t *FaultTracker) Record(eventType, handler string) int {
	key := faultKey(eventType, handler)

	count := 1
	if err := t.counts.Add(key, 1, gocache.DefaultExpiration); err != nil {
		n, incErr := t.counts.IncrementInt(key, 1)
		if incErr != nil {
			// Entry expired between Add and Increment; start a new
			// window.
			t.counts.Set(key, 1, gocache.DefaultExpiration)
		} else {
			count = n
		}
	}

	if count == t.cfg.Threshold && t.cfg.OnThreshold != nil {
		t.cfg.OnThreshold(eventType, handler, count)
	}
	return count
}

// Count returns the fault count for the pair within the current
// window, or 0 if the window expired.
func (t *FaultTracker) Count(eventType, handler string) int {
	v, ok := t.counts.Get(faultKey(eventType, handler))
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

// Faulty reports whether the pair has reached the threshold within the
// current window.
func (t *FaultTracker) Faulty(eventType, handler string) bool {
	return t.Count(eventType, handler) >= t.cfg.Threshold
}

// Reset clears the count for the pair.
func (t *FaultTracker) Reset(eventType, handler string) {
	t.counts.Delete(faultKey(eventType, handler))
}

func faultKey(eventType, handler string) string {
	return eventType + "|" + handler
}
