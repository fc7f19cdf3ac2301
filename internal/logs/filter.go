package logs

import (
	"encoding/json"
	"strings"
)

// Filter selects log records. Zero values match everything.
type Filter struct {
	JobID    string
	MinLevel string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Match reports whether line passes the filter. Lines that are not JSON
// records only pass a filter without a job or level constraint.
func (f Filter) Match(line string) bool {
	jobID := strings.TrimSpace(f.JobID)
	minLevel := strings.ToLower(strings.TrimSpace(f.MinLevel))
	if jobID == "" && minLevel == "" {
		return true
	}

	var record struct {
		Level string `json:"level"`
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return false
	}
	if jobID != "" && record.JobID != jobID {
		return false
	}
	if minLevel != "" {
		want, ok := levelRank[minLevel]
		if !ok {
			return true
		}
		got, ok := levelRank[strings.ToLower(record.Level)]
		if !ok || got < want {
			return false
		}
	}
	return true
}

// Apply returns the lines that pass the filter.
func (f Filter) Apply(lines []string) []string {
	out := lines[:0:0]
	for _, line := range lines {
		if f.Match(line) {
			out = append(out, line)
		}
	}
	return out
}
