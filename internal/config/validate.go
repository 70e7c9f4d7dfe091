package config

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "archive.dsn",
// "task_client[bind]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned as an error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// StartTimeLayout is the layout Toggl expects in the "Start time" column.
const StartTimeLayout = "15:04:05"

// KnownEncodings lists the accepted input.encoding values.
var KnownEncodings = map[string]struct{}{
	"utf-8":        {},
	"utf-16":       {},
	"windows-1252": {},
	"latin1":       {},
}

// KnownArchiveKinds lists the storage backends built into the binary.
var KnownArchiveKinds = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
	"mssql":    {},
	"mysql":    {},
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateConfig performs static validation of c. It does not mutate c.
// Callers decide whether warnings are fatal; errors always are.
func ValidateConfig(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics for the run",
		})
	}
	if _, err := time.Parse(StartTimeLayout, c.StartTime); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "start_time",
			Message:  fmt.Sprintf("start_time %q is not a HH:MM:SS clock time", c.StartTime),
		})
	}
	issues = append(issues, validateEmail(c.Email)...)

	switch c.MinuteRounding {
	case RoundingRound, RoundingTruncate:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "minute_rounding",
			Message:  fmt.Sprintf("minute_rounding must be %q or %q, got %q", RoundingRound, RoundingTruncate, c.MinuteRounding),
		})
	}

	issues = append(issues, validateTaskOverride(c.TaskOverride)...)
	issues = append(issues, validateTaskClient(c.TaskClient)...)
	issues = append(issues, validateInput(c.Input)...)
	issues = append(issues, validateComma("output.comma", c.Output.Comma)...)
	issues = append(issues, validateArchive(c.Archive)...)
	issues = append(issues, validateMetrics(c.Metrics)...)

	return issues
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateEmail(email string) []Issue {
	if strings.TrimSpace(email) == "" {
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "email",
			Message:  "email is empty; Toggl assigns imported entries by email",
		}}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "email",
			Message:  fmt.Sprintf("email %q does not look like an address: %v", email, err),
		}}
	}
	return nil
}

func validateTaskOverride(tasks []string) []Issue {
	var issues []Issue
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		path := fmt.Sprintf("task_override[%d]", i)
		if t == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  "empty task name never matches a Harvest task",
			})
			continue
		}
		if _, dup := seen[t]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("duplicate task %q", t),
			})
		}
		seen[t] = struct{}{}
	}
	return issues
}

func validateTaskClient(m map[string]string) []Issue {
	var issues []Issue
	for task, client := range m {
		path := fmt.Sprintf("task_client[%s]", task)
		if task == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  "empty task name never matches a Harvest task",
			})
		}
		if strings.TrimSpace(client) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  "client is empty; matching rows are imported without a client",
			})
		}
	}
	return issues
}

func validateInput(in Input) []Issue {
	issues := validateComma("input.comma", in.Comma)
	if _, ok := KnownEncodings[strings.ToLower(in.Encoding)]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.encoding",
			Message:  fmt.Sprintf("unsupported encoding %q", in.Encoding),
		})
	}
	return issues
}

func validateComma(path, comma string) []Issue {
	if comma == "" {
		return nil
	}
	r, size := utf8.DecodeRuneInString(comma)
	switch {
	case size != len(comma):
		return []Issue{{
			Severity: SeverityError,
			Path:     path,
			Message:  fmt.Sprintf("delimiter must be a single character, got %q", comma),
		}}
	case r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError:
		return []Issue{{
			Severity: SeverityError,
			Path:     path,
			Message:  fmt.Sprintf("invalid delimiter %q", comma),
		}}
	}
	return nil
}

func validateArchive(a Archive) []Issue {
	if strings.TrimSpace(a.Kind) == "" {
		return nil
	}
	var issues []Issue
	if _, ok := KnownArchiveKinds[a.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "archive.kind",
			Message:  fmt.Sprintf("unknown archive kind %q; ensure a matching backend is registered", a.Kind),
		})
	}
	if strings.TrimSpace(a.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "archive.dsn",
			Message:  "archive requires a non-empty dsn",
		})
	}
	if !tableNameRe.MatchString(a.Table) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "archive.table",
			Message:  fmt.Sprintf("table %q must be an identifier, optionally schema-qualified", a.Table),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway_url is empty; the default or PUSHGATEWAY_URL is used",
			}}
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.statsd_addr",
				Message:  "statsd_addr is empty; the default or DD_AGENT_ADDR is used",
			}}
		}
	default:
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics are disabled", m.Backend),
		}}
	}
	return nil
}
