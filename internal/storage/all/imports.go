// Package all wires every built-in archive backend into the storage factory.
//
// Importing it for side effects registers the "sqlite", "postgres", "mssql"
// and "mysql" kinds:
//
//	import _ "github.com/alcm-b/toggl-import/internal/storage/all"
//
// A binary that needs only a subset can import the backend packages
// directly instead.
package all

import (
	_ "github.com/alcm-b/toggl-import/internal/storage/mssql"
	_ "github.com/alcm-b/toggl-import/internal/storage/mysql"
	_ "github.com/alcm-b/toggl-import/internal/storage/postgres"
	_ "github.com/alcm-b/toggl-import/internal/storage/sqlite"
)
