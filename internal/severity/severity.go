// Package severity classifies numeric finding scores into fixed severity levels.
package severity

import "fmt"

// Level is a severity bucket.
type Level string

const (
	Critical Level = "critical"
	High     Level = "high"
	Medium   Level = "medium"
	Low      Level = "low"
	Info     Level = "info"
)

// Levels lists every level from most to least severe.
var Levels = []Level{Critical, High, Medium, Low, Info}

// Score thresholds. A score belongs to the first level whose bound it reaches.
const (
	criticalThreshold = 9.0
	highThreshold     = 7.0
	mediumThreshold   = 4.0
)

// Classify maps a score to exactly one level. Anything not above zero,
// including NaN, is Info.
func Classify(score float64) Level {
	switch {
	case score >= criticalThreshold:
		return Critical
	case score >= highThreshold:
		return High
	case score >= mediumThreshold:
		return Medium
	case score > 0:
		return Low
	default:
		return Info
	}
}

// Distribution counts findings per level. It always serializes all five keys.
type Distribution struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Add increments the bucket for level.
func (d *Distribution) Add(level Level) {
	switch level {
	case Critical:
		d.Critical++
	case High:
		d.High++
	case Medium:
		d.Medium++
	case Low:
		d.Low++
	case Info:
		d.Info++
	default:
		panic(fmt.Sprintf("severity: unknown level %q", level))
	}
}

// Count returns the bucket for level.
func (d Distribution) Count(level Level) int {
	switch level {
	case Critical:
		return d.Critical
	case High:
		return d.High
	case Medium:
		return d.Medium
	case Low:
		return d.Low
	case Info:
		return d.Info
	default:
		return 0
	}
}

// Total returns the number of counted findings.
func (d Distribution) Total() int {
	return d.Critical + d.High + d.Medium + d.Low + d.Info
}
