package collector

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("invalid sample")

// ValidationError names the sample field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid sample: %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation, or a *ValidationError naming the same field.
func (e *ValidationError) Is(other error) bool {
	if other == ErrValidation {
		return true
	}
	t, ok := other.(*ValidationError)
	return ok && t.Field == e.Field
}

// sampleJSON is the interchange shape used by export and import.
type sampleJSON struct {
	Timestamp    string        `json:"timestamp"`
	CPU          float64       `json:"cpu"`
	RAM          float64       `json:"ram"`
	TopProcesses []ProcessInfo `json:"top_processes"`
}

// MarshalJSON writes the sample with its canonical timestamp.
func (s Sample) MarshalJSON() ([]byte, error) {
	procs := s.TopProcesses
	if procs == nil {
		procs = []ProcessInfo{}
	}
	return json.Marshal(sampleJSON{
		Timestamp:    FormatTimestamp(s.Timestamp),
		CPU:          s.CPU,
		RAM:          s.RAM,
		TopProcesses: procs,
	})
}

// DecodeSample parses a loosely typed JSON document into a Sample. Field shapes
// are checked in the same order as Validate: timestamp must be an ISO-8601
// string, cpu and ram must be numbers, top_processes must be a list.
func DecodeSample(data []byte) (Sample, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Sample{}, invalid("sample", fmt.Sprintf("not a JSON object: %v", err))
	}

	field, ok := present(raw, "timestamp")
	if !ok {
		return Sample{}, invalid("timestamp", "timestamp is required")
	}
	var text string
	if err := json.Unmarshal(field, &text); err != nil {
		return Sample{}, invalid("timestamp", "timestamp must be a string")
	}
	if _, err := parseSampleTime(text); err != nil {
		return Sample{}, err
	}

	cpu, err := decodeNumber(raw, "cpu")
	if err != nil {
		return Sample{}, err
	}
	ram, err := decodeNumber(raw, "ram")
	if err != nil {
		return Sample{}, err
	}

	field, ok = present(raw, "top_processes")
	if !ok {
		return Sample{}, invalid("top_processes", "top_processes is required")
	}
	if field[0] != '[' {
		return Sample{}, invalid("top_processes", "top_processes must be a list")
	}
	procs := []ProcessInfo{}
	if err := json.Unmarshal(field, &procs); err != nil {
		return Sample{}, invalid("top_processes", fmt.Sprintf("malformed process entry: %v", err))
	}
	return NewSample(text, cpu, ram, procs)
}

// present returns the trimmed raw value of key, treating JSON null as absent.
func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	field, ok := raw[key]
	if !ok {
		return nil, false
	}
	field = bytes.TrimSpace(field)
	if len(field) == 0 || bytes.Equal(field, []byte("null")) {
		return nil, false
	}
	return field, true
}

func decodeNumber(raw map[string]json.RawMessage, key string) (float64, error) {
	field, ok := present(raw, key)
	if !ok {
		return 0, invalid(key, key+" is required")
	}
	var f float64
	if err := json.Unmarshal(field, &f); err != nil {
		return 0, invalid(key, fmt.Sprintf("%s is not a number", field))
	}
	return f, nil
}
