package streaming

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Record is one employee observation after defaulting: absent strings become
// UNKNOWN, absent numbers zero.
type Record struct {
	Department  string
	Region      string
	Status      string
	Salary      float64
	Bonus       float64
	HoursWorked float64
}

// ErrBadRecord marks a line that could not be parsed. The aggregator counts
// it and moves on.
var ErrBadRecord = errors.New("malformed record")

// Source yields records lazily. Next returns io.EOF at end of input and
// ErrBadRecord for an unparseable element.
type Source interface {
	Next() (*Record, error)
}

type rawRecord struct {
	Department string `json:"department"`
	Region     string `json:"region"`
	Status     string `json:"status"`
	Employee   struct {
		Salary float64 `json:"salary"`
		Bonus  float64 `json:"bonus"`
	} `json:"employee"`
	Metrics struct {
		HoursWorked float64 `json:"hoursWorked"`
	} `json:"metrics"`
}

// LineSource reads newline-delimited JSON. Blank lines are skipped, not
// counted as records.
type LineSource struct {
	scanner *bufio.Scanner
}

func NewLineSource(r io.Reader) *LineSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &LineSource{scanner: scanner}
}

func (s *LineSource) Next() (*Record, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		var raw rawRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, ErrBadRecord
		}
		return normalize(raw), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func normalize(raw rawRecord) *Record {
	rec := &Record{
		Department:  raw.Department,
		Region:      raw.Region,
		Status:      raw.Status,
		Salary:      raw.Employee.Salary,
		Bonus:       raw.Employee.Bonus,
		HoursWorked: raw.Metrics.HoursWorked,
	}
	if rec.Department == "" {
		rec.Department = "UNKNOWN"
	}
	if rec.Region == "" {
		rec.Region = "UNKNOWN"
	}
	if rec.Status == "" {
		rec.Status = "UNKNOWN"
	}
	return rec
}
