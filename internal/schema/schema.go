// Package schema describes the two CSV layouts the converter sits between:
// the positional Harvest time report export and the named Toggl import
// columns.
package schema

// Harvest export field positions. Harvest writes a header row, but the
// converter addresses fields by position only.
const (
	HarvestDate = iota
	HarvestClient
	HarvestProject
	HarvestProjectCode
	HarvestTask
	HarvestNotes
	HarvestHours
	HarvestBillable
	HarvestInvoiced
	HarvestFirstName
	HarvestLastName
	HarvestDepartment
	HarvestEmployee
	HarvestHourlyRate
	HarvestBillableAmount
	HarvestCurrency

	// HarvestFields is the width of a complete Harvest export row.
	HarvestFields
)

// HarvestMinFields is the narrowest row the Toggl columns can be derived
// from: everything up to and including the last name.
const HarvestMinFields = HarvestLastName + 1

// HarvestHeader is the header Harvest writes, in field order.
var HarvestHeader = []string{
	"Date", "Client", "Project", "Project Code", "Task", "Notes", "Hours",
	"Billable?", "Invoiced?", "First Name", "Last Name", "Department",
	"Employee?", "Hourly Rate", "Billable Amount", "Currency",
}

// Toggl import column names, in the order the importer expects them.
const (
	TogglProject     = "Project"
	TogglTask        = "Task"
	TogglDescription = "Description"
	TogglStartDate   = "Start date"
	TogglStartTime   = "Start time"
	TogglDuration    = "Duration"
	TogglEmail       = "email"
	TogglUser        = "user"
	TogglTags        = "tags"
	TogglClient      = "client"
)

// TogglHeader is the output header row.
var TogglHeader = []string{
	TogglProject,
	TogglTask,
	TogglDescription,
	TogglStartDate,
	TogglStartTime,
	TogglDuration,
	TogglEmail,
	TogglUser,
	TogglTags,
	TogglClient,
}

// ColumnIdent maps a Toggl column name to a SQL-safe identifier used by the
// archive table. "user" is renamed because it is reserved in Postgres and
// SQL Server.
func ColumnIdent(name string) string {
	switch name {
	case TogglProject:
		return "project"
	case TogglTask:
		return "task"
	case TogglDescription:
		return "description"
	case TogglStartDate:
		return "start_date"
	case TogglStartTime:
		return "start_time"
	case TogglDuration:
		return "duration"
	case TogglEmail:
		return "email"
	case TogglUser:
		return "user_name"
	case TogglTags:
		return "tags"
	case TogglClient:
		return "client"
	}
	return ""
}
