package models

// LogLevel is the severity reported for a console entry.
type LogLevel string

const (
	LevelError   LogLevel = "error"
	LevelWarning LogLevel = "warning"
	LevelInfo    LogLevel = "info"
)

// Relevance separates signal telemetry from noise. Noise entries are
// retained but excluded from summary error counts.
type Relevance string

const (
	Relevant Relevance = "relevant"
	Noise    Relevance = "noise"
)

// LogEntry is one captured console message.
type LogEntry struct {
	Level     LogLevel  `json:"level"`
	Text      string    `json:"text"`
	Relevance Relevance `json:"relevance"`
	Category  string    `json:"category,omitempty"`
	Timestamp float64   `json:"timestamp"`
}

// NetworkEntry is one captured network event. Status is zero when the
// request never produced a response.
type NetworkEntry struct {
	URL       string  `json:"url"`
	Status    int     `json:"status,omitempty"`
	Failed    bool    `json:"failed"`
	Timestamp float64 `json:"timestamp"`
}

// RiskLevel classifies a memory sample against fixed thresholds.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk thresholds are global constants rather than per-customer
// configuration so cross-run comparisons stay meaningful.
const (
	RiskHighPercent   = 50.0
	RiskMediumPercent = 35.0
)

// ClassifyUsage maps a heap usage percentage to a risk level.
// Boundaries are inclusive on the upper band.
func ClassifyUsage(percent float64) RiskLevel {
	switch {
	case percent >= RiskHighPercent:
		return RiskHigh
	case percent >= RiskMediumPercent:
		return RiskMedium
	default:
		return RiskLow
	}
}

// MemorySample is one heap snapshot taken at a fixed point of an
// iteration. Phase records where in the iteration it was taken
// ("start", "after_step_N", "end").
type MemorySample struct {
	Phase        string    `json:"phase"`
	UsedBytes    int64     `json:"used_bytes"`
	LimitBytes   int64     `json:"limit_bytes"`
	UsagePercent float64   `json:"usage_percent"`
	Risk         RiskLevel `json:"risk"`
}

// NewMemorySample computes the usage percentage and risk level for a
// raw heap reading. A zero limit yields zero usage.
func NewMemorySample(phase string, usedBytes, limitBytes int64) MemorySample {
	percent := 0.0
	if limitBytes > 0 {
		percent = float64(usedBytes) / float64(limitBytes) * 100
	}
	return MemorySample{
		Phase:        phase,
		UsedBytes:    usedBytes,
		LimitBytes:   limitBytes,
		UsagePercent: percent,
		Risk:         ClassifyUsage(percent),
	}
}
