package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Roles classifies dataset columns by the part they play in the pipeline.
// It is process-wide configuration: built once at startup and handed by
// value to every stage, never mutated afterwards.
//
// Field names mirror the JSON/YAML keys of a roles file:
//
//	identifier: UNIQUE KEY
//	geolocation: [LATITUDE, LONGITUDE]
//	injuries: [NUMBER OF PERSONS INJURED, ...]
//	borough: BOROUGH
//	text: [BOROUGH, CONTRIBUTING FACTOR VEHICLE 1, ...]
//	factors: [CONTRIBUTING FACTOR VEHICLE 1, ...]
//	date: CRASH DATE
//	time: CRASH TIME
//	year: YEAR
type Roles struct {
	Identifier  string   `json:"identifier" yaml:"identifier"`
	Geolocation []string `json:"geolocation" yaml:"geolocation"`
	// Injuries lists the injury-metric columns; the first one is primary.
	Injuries []string `json:"injuries" yaml:"injuries"`
	Borough  string   `json:"borough" yaml:"borough"`
	Text     []string `json:"text" yaml:"text"`
	// Factors lists the contributing-factor columns; the first is primary.
	Factors []string `json:"factors" yaml:"factors"`
	Date    string   `json:"date" yaml:"date"`
	Time    string   `json:"time" yaml:"time"`
	Year    string   `json:"year" yaml:"year"`

	// Unknown fills null primary contributing factors; Sentinel is the exact
	// literal replaced by null in every factor column; Focus is the borough
	// whose row count is reported by the aggregator.
	Unknown  string `json:"unknown_label" yaml:"unknown_label"`
	Sentinel string `json:"sentinel" yaml:"sentinel"`
	Focus    string `json:"focus_borough" yaml:"focus_borough"`
}

// DefaultRoles returns the column roles of the NYC Motor Vehicle Collisions
// "Crashes" export.
func DefaultRoles() Roles {
	factors := []string{
		"CONTRIBUTING FACTOR VEHICLE 1",
		"CONTRIBUTING FACTOR VEHICLE 2",
		"CONTRIBUTING FACTOR VEHICLE 3",
		"CONTRIBUTING FACTOR VEHICLE 4",
		"CONTRIBUTING FACTOR VEHICLE 5",
	}
	text := append([]string{"BOROUGH"}, factors...)
	text = append(text, "ON STREET NAME", "CROSS STREET NAME", "OFF STREET NAME")

	return Roles{
		Identifier:  "UNIQUE KEY",
		Geolocation: []string{"LATITUDE", "LONGITUDE"},
		Injuries: []string{
			"NUMBER OF PERSONS INJURED",
			"NUMBER OF PERSONS KILLED",
			"NUMBER OF PEDESTRIANS INJURED",
			"NUMBER OF PEDESTRIANS KILLED",
			"NUMBER OF CYCLIST INJURED",
			"NUMBER OF CYCLIST KILLED",
			"NUMBER OF MOTORIST INJURED",
			"NUMBER OF MOTORIST KILLED",
		},
		Borough:  "BOROUGH",
		Text:     text,
		Factors:  factors,
		Date:     "CRASH DATE",
		Time:     "CRASH TIME",
		Year:     "YEAR",
		Unknown:  "Unknown",
		Sentinel: "Unspecified",
		Focus:    "Manhattan",
	}
}

// PrimaryInjury returns the first injury column, or "" when none is set.
func (r Roles) PrimaryInjury() string {
	if len(r.Injuries) == 0 {
		return ""
	}
	return r.Injuries[0]
}

// PrimaryFactor returns the first contributing-factor column, or "".
func (r Roles) PrimaryFactor() string {
	if len(r.Factors) == 0 {
		return ""
	}
	return r.Factors[0]
}

// LoadRoles reads a roles file. Files ending in .yaml/.yml are decoded as
// YAML, everything else as JSON. Keys missing from the file keep their
// DefaultRoles value.
func LoadRoles(path string) (Roles, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Roles{}, fmt.Errorf("read roles %s: %w", path, err)
	}
	r := DefaultRoles()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &r); err != nil {
			return Roles{}, fmt.Errorf("decode roles %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &r); err != nil {
			return Roles{}, fmt.Errorf("decode roles %s: %w", path, err)
		}
	}
	return r, nil
}
