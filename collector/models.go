package collector

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// ProcessInfo describes one of the top CPU consumers at sampling time.
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
}

// Sample is a single snapshot of host resource usage.
type Sample struct {
	Timestamp    time.Time     // when the sample was taken
	CPU          float64       // system-wide CPU usage, percent
	RAM          float64       // virtual memory usage, percent
	TopProcesses []ProcessInfo // highest CPU consumers, descending
}

// EncodedSample is the storage form of a Sample: canonical timestamp text and
// the process list as an opaque JSON blob.
type EncodedSample struct {
	Timestamp    string
	CPU          float64
	RAM          float64
	TopProcesses string
}

// NewSample parses timestamp and builds a validated Sample. A nil procs is
// stored as an empty list.
func NewSample(timestamp string, cpu, ram float64, procs []ProcessInfo) (Sample, error) {
	ts, err := parseSampleTime(timestamp)
	if err != nil {
		return Sample{}, err
	}
	if procs == nil {
		procs = []ProcessInfo{}
	}
	s := Sample{Timestamp: ts, CPU: cpu, RAM: ram, TopProcesses: procs}
	if err := s.Validate(); err != nil {
		return Sample{}, err
	}
	return s, nil
}

func parseSampleTime(text string) (time.Time, error) {
	ts, err := ParseTimestamp(text)
	if err != nil {
		return time.Time{}, invalid("timestamp", err.Error())
	}
	return ts, nil
}

// Validate reports the first invalid field, checking timestamp, cpu, ram and
// top_processes in that order.
func (s Sample) Validate() error {
	_, err := s.Encode()
	return err
}

// Encode validates s and converts it to its storage form. The timestamp is
// normalized to UTC and truncated to whole microseconds.
func (s Sample) Encode() (EncodedSample, error) {
	if s.Timestamp.IsZero() {
		return EncodedSample{}, invalid("timestamp", "timestamp is required")
	}
	// TimestampLayout has a four-digit year; anything else breaks text order.
	if y := s.Timestamp.UTC().Year(); y < MinYear || y > MaxYear {
		return EncodedSample{}, invalid("timestamp",
			fmt.Sprintf("%s is outside years %04d..%04d in UTC", s.Timestamp.Format(time.RFC3339Nano), MinYear, MaxYear))
	}
	if !finite(s.CPU) {
		return EncodedSample{}, invalid("cpu", fmt.Sprintf("%v is not a number", s.CPU))
	}
	if !finite(s.RAM) {
		return EncodedSample{}, invalid("ram", fmt.Sprintf("%v is not a number", s.RAM))
	}
	blob, err := EncodeProcesses(s.TopProcesses)
	if err != nil {
		return EncodedSample{}, invalid("top_processes", err.Error())
	}
	return EncodedSample{
		Timestamp:    FormatTimestamp(s.Timestamp),
		CPU:          s.CPU,
		RAM:          s.RAM,
		TopProcesses: blob,
	}, nil
}

// EncodeProcesses serializes a process list. A nil list encodes as "[]".
func EncodeProcesses(procs []ProcessInfo) (string, error) {
	if procs == nil {
		procs = []ProcessInfo{}
	}
	for i, p := range procs {
		if !finite(p.CPUPercent) {
			return "", fmt.Errorf("process %d (pid %d): cpu_percent %v cannot be serialized", i, p.PID, p.CPUPercent)
		}
	}
	b, err := json.Marshal(procs)
	if err != nil {
		return "", fmt.Errorf("serialize processes: %w", err)
	}
	return string(b), nil
}

// DecodeProcesses parses a blob produced by EncodeProcesses.
func DecodeProcesses(blob string) ([]ProcessInfo, error) {
	procs := []ProcessInfo{}
	if blob == "" {
		return procs, nil
	}
	if err := json.Unmarshal([]byte(blob), &procs); err != nil {
		return nil, fmt.Errorf("decode processes: %w", err)
	}
	if procs == nil {
		procs = []ProcessInfo{}
	}
	return procs, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
