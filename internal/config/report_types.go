package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReportTypes is the YAML catalog of summary report types: which types
// exist, which roles may request them and how long each typically runs.
type ReportTypes struct {
	Types              []string          `yaml:"types"`
	DefaultType        string            `yaml:"defaultType"`
	RoleMappings       map[string]string `yaml:"roleMappings"`
	EstimatedDurations map[string]string `yaml:"estimatedDurations"`
}

func LoadReportTypes(path string) (*ReportTypes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report types: %w", err)
	}
	return ParseReportTypes(raw)
}

func ParseReportTypes(raw []byte) (*ReportTypes, error) {
	var rt ReportTypes
	if err := yaml.Unmarshal(raw, &rt); err != nil {
		return nil, fmt.Errorf("parse report types: %w", err)
	}
	if len(rt.Types) == 0 {
		return nil, fmt.Errorf("report types catalog declares no types")
	}
	if rt.DefaultType == "" {
		rt.DefaultType = rt.Types[0]
	}
	if !rt.IsValid(rt.DefaultType) {
		return nil, fmt.Errorf("default report type %q is not declared", rt.DefaultType)
	}
	return &rt, nil
}

// DefaultReportTypes is used when no catalog file is configured.
func DefaultReportTypes() *ReportTypes {
	return &ReportTypes{
		Types:       []string{"DAILY", "WEEKLY", "MONTHLY", "QUARTERLY"},
		DefaultType: "DAILY",
		EstimatedDurations: map[string]string{
			"DAILY":     "2m",
			"WEEKLY":    "10m",
			"MONTHLY":   "30m",
			"QUARTERLY": "60m",
		},
	}
}

func (rt *ReportTypes) IsValid(reportType string) bool {
	for _, t := range rt.Types {
		if t == reportType {
			return true
		}
	}
	return false
}

func (rt *ReportTypes) TypeForRole(role string) string {
	if t, ok := rt.RoleMappings[role]; ok && rt.IsValid(t) {
		return t
	}
	return rt.DefaultType
}
