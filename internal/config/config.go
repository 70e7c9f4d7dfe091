// Package config defines the JSON-serializable configuration for the
// Harvest → Toggl converter. Every field has a default (see Default), so the
// converter runs as a plain stdin → stdout filter without any config file;
// a file only needs the keys a deployer wants to change.
//
// Example (trimmed):
//
//	{
//	  "email":         "jane@example.com",
//	  "tags":          "harvest import",
//	  "task_override": ["bind", "restricted"],
//	  "task_client":   { "bind": "Parallels", "restricted": "Xiag" },
//	  "archive":       { "kind": "sqlite", "dsn": "toggl.db", "table": "toggl_entries" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Minute rounding modes for the Duration column.
const (
	// RoundingRound rounds the fractional hour to the nearest minute.
	RoundingRound = "round"
	// RoundingTruncate drops the fractional minute after a float64 multiply,
	// so 8.7 hours reads 08:41:00 instead of 08:42:00.
	RoundingTruncate = "truncate"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job names the run for metrics labeling.
	Job string `json:"job"`

	// StartTime is written to every "Start time" cell; Harvest exports carry
	// no start time of their own.
	StartTime string `json:"start_time"`

	// Email and Tags are written verbatim to the "email" and "tags" columns.
	Email string `json:"email"`
	Tags  string `json:"tags"`

	// TaskOverride lists Harvest task names whose rows take the task name as
	// the Toggl project name.
	TaskOverride []string `json:"task_override"`

	// TaskClient maps a Harvest task name to the Toggl client it belongs to,
	// overriding the client column of the export.
	TaskClient map[string]string `json:"task_client"`

	// MinuteRounding is RoundingRound or RoundingTruncate.
	MinuteRounding string `json:"minute_rounding"`

	Input   Input   `json:"input"`
	Output  Output  `json:"output"`
	Archive Archive `json:"archive"`
	Metrics Metrics `json:"metrics"`
}

// Input configures how Harvest exports are read.
type Input struct {
	// Comma is the field delimiter; only the first rune is used.
	Comma string `json:"comma"`

	// Encoding is one of "utf-8", "utf-16", "windows-1252", "latin1".
	Encoding string `json:"encoding"`

	// HeaderPerFile skips the first row of every input instead of only the
	// first row of the concatenated stream.
	HeaderPerFile bool `json:"header_per_file"`

	// Sheet selects the worksheet of .xlsx inputs. Empty means the first sheet.
	Sheet string `json:"sheet"`
}

// Output configures the Toggl CSV writer.
type Output struct {
	Comma string `json:"comma"`
}

// Archive configures the optional database copy of converted rows. An empty
// Kind disables archiving.
type Archive struct {
	// Kind selects the storage backend: "sqlite", "postgres", "mssql", "mysql".
	Kind string `json:"kind"`

	// DSN is passed to the backend driver unchanged.
	DSN string `json:"dsn"`

	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table"`

	// AutoCreateTable creates the table when it does not exist.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	StatsdAddr     string `json:"statsd_addr"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		Job:            "harvest2toggl",
		StartTime:      "08:00:00",
		Email:          "nobody@example.com",
		Tags:           "harvest import",
		TaskOverride:   []string{},
		TaskClient:     map[string]string{},
		MinuteRounding: RoundingRound,
		Input: Input{
			Comma:    ",",
			Encoding: "utf-8",
		},
		Output: Output{Comma: ","},
		Archive: Archive{
			Table: "toggl_entries",
		},
		Metrics: Metrics{Backend: "none"},
	}
}

// Load reads the JSON config at path on top of Default, so keys missing from
// the file keep their default values. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if cfg.TaskClient == nil {
		cfg.TaskClient = map[string]string{}
	}
	return cfg, nil
}

// Rune returns the first rune of s, or def when s is empty. It is used for
// single-character settings such as CSV delimiters.
func Rune(s string, def rune) rune {
	if len(s) == 0 {
		return def
	}
	return []rune(s)[0]
}
