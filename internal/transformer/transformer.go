// Package transformer maps one Harvest export row onto one Toggl import row.
//
// The mapping is an ordered plan of output columns, each with a pure
// derivation function of the source row. The plan is compiled once from a
// Spec and is read-only afterwards, so Apply is safe to call from any number
// of goroutines and its result depends only on the row and the Spec.
package transformer

import (
	"fmt"

	"github.com/alcm-b/toggl-import/internal/schema"
)

// Spec carries every knob the derivation rules need. The caller builds it
// from configuration; this package never reads configuration itself.
type Spec struct {
	// StartTime fills the "Start time" column.
	StartTime string
	// Email fills the "email" column.
	Email string
	// Tags fills the "tags" column.
	Tags string
	// TaskOverride lists task names that replace the project name.
	TaskOverride []string
	// TaskClient maps a task name to the client it is billed to.
	TaskClient map[string]string
	// Rounding selects how fractional minutes are handled in Duration.
	Rounding Rounding
}

// DeriveFunc computes one output cell from a Harvest row. The row is
// guaranteed to hold at least schema.HarvestMinFields fields.
type DeriveFunc func(rec []string) (string, error)

// Column is one entry of the output plan.
type Column struct {
	Name   string
	Derive DeriveFunc
}

// Transformer applies a compiled column plan to Harvest rows.
type Transformer struct {
	columns []Column
}

// New compiles spec into a Transformer. The override set and client map are
// copied, so later changes to spec do not leak into the plan.
func New(spec Spec) *Transformer {
	override := make(map[string]struct{}, len(spec.TaskOverride))
	for _, task := range spec.TaskOverride {
		override[task] = struct{}{}
	}
	clients := make(map[string]string, len(spec.TaskClient))
	for task, client := range spec.TaskClient {
		clients[task] = client
	}
	rounding := spec.Rounding

	return &Transformer{columns: []Column{
		{Name: schema.TogglProject, Derive: projectName(override)},
		{Name: schema.TogglTask, Derive: field(schema.HarvestTask)},
		{Name: schema.TogglDescription, Derive: field(schema.HarvestNotes)},
		{Name: schema.TogglStartDate, Derive: field(schema.HarvestDate)},
		{Name: schema.TogglStartTime, Derive: constant(spec.StartTime)},
		{Name: schema.TogglDuration, Derive: func(rec []string) (string, error) {
			return Duration(rec[schema.HarvestHours], rounding)
		}},
		{Name: schema.TogglEmail, Derive: constant(spec.Email)},
		{Name: schema.TogglUser, Derive: userName},
		{Name: schema.TogglTags, Derive: constant(spec.Tags)},
		{Name: schema.TogglClient, Derive: clientName(clients)},
	}}
}

// Header returns the output column names in plan order.
func (t *Transformer) Header() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// Width is the number of output columns.
func (t *Transformer) Width() int { return len(t.columns) }

// Apply derives one Toggl row from rec. Rows narrower than
// schema.HarvestMinFields fail with ErrMalformedRow; an unparseable hours
// field fails with ErrInvalidHours. On error no partial row is returned.
func (t *Transformer) Apply(rec []string) ([]string, error) {
	if len(rec) < schema.HarvestMinFields {
		return nil, fmt.Errorf("%w: got %d fields, need at least %d", ErrMalformedRow, len(rec), schema.HarvestMinFields)
	}
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		v, err := c.Derive(rec)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

func field(i int) DeriveFunc {
	return func(rec []string) (string, error) { return rec[i], nil }
}

func constant(s string) DeriveFunc {
	return func([]string) (string, error) { return s, nil }
}

func userName(rec []string) (string, error) {
	return rec[schema.HarvestFirstName] + " " + rec[schema.HarvestLastName], nil
}

// projectName uses the task name as the project for tasks in override.
func projectName(override map[string]struct{}) DeriveFunc {
	return func(rec []string) (string, error) {
		if _, ok := override[rec[schema.HarvestTask]]; ok {
			return rec[schema.HarvestTask], nil
		}
		return rec[schema.HarvestProject], nil
	}
}

// clientName infers the client from the task name where one is mapped.
func clientName(clients map[string]string) DeriveFunc {
	return func(rec []string) (string, error) {
		if c, ok := clients[rec[schema.HarvestTask]]; ok {
			return c, nil
		}
		return rec[schema.HarvestClient], nil
	}
}
