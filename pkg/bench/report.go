package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Verdicts of one cell.
const (
	VerdictPass = "PASS"
	VerdictFail = "FAIL"
)

// Measurement is one timed traversal.
type Measurement struct {
	Dataset    string        `json:"dataset"`
	Backend    string        `json:"backend"`
	Source     int           `json:"source"`
	Trial      int           `json:"trial"`
	Duration   time.Duration `json:"duration_ns"`
	DurationMs float64       `json:"duration_ms"`
	Visited    int           `json:"visited"`
	Levels     int           `json:"levels"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Summary aggregates the durations of one cell in milliseconds.
type Summary struct {
	Trials   int     `json:"trials"`
	MeanMs   float64 `json:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms"`
	MedianMs float64 `json:"median_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
}

// Cell is the outcome of one dataset x backend x source combination.
type Cell struct {
	Dataset   string  `json:"dataset"`
	Backend   string  `json:"backend"`
	Traverser string  `json:"traverser"`
	Source    int     `json:"source"`
	Reference string  `json:"reference"` // golden file path, or "sequential"
	Mode      string  `json:"mode"`
	Verdict   string  `json:"verdict"`
	Detail    string  `json:"detail,omitempty"`
	Summary   Summary `json:"summary"`
}

// Passed reports whether the cell verified.
func (c Cell) Passed() bool { return c.Verdict == VerdictPass }

// Report is everything one run produced.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Config    struct {
		Output  string `json:"output"`
		Compare string `json:"compare"`
		Trials  int    `json:"trials"`
		Warmup  int    `json:"warmup"`
	} `json:"config"`
	Cells        []Cell             `json:"cells"`
	Measurements []Measurement      `json:"measurements"`
	Counters     map[string]float64 `json:"counters"`
	Duration     time.Duration      `json:"total_duration_ns"`
	DurationMs   float64            `json:"total_duration_ms"`
}

// Passed reports whether every cell verified.
func (r *Report) Passed() bool {
	for _, c := range r.Cells {
		if !c.Passed() {
			return false
		}
	}
	return true
}

// Failed returns the number of failing cells.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Cells {
		if !c.Passed() {
			n++
		}
	}
	return n
}

// WriteJSON writes the report to path.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Summarize computes duration statistics. Fewer than two samples have a
// standard deviation of zero.
func Summarize(durations []time.Duration) Summary {
	s := Summary{Trials: len(durations)}
	if len(durations) == 0 {
		return s
	}

	ms := make([]float64, len(durations))
	for i, d := range durations {
		ms[i] = float64(d) / float64(time.Millisecond)
	}
	slices.Sort(ms)

	s.MeanMs = stat.Mean(ms, nil)
	if len(ms) > 1 {
		s.StdDevMs = stat.StdDev(ms, nil)
	}
	s.MedianMs = stat.Quantile(0.5, stat.Empirical, ms, nil)
	s.MinMs = floats.Min(ms)
	s.MaxMs = floats.Max(ms)
	return s
}
