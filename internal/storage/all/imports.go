// Package all wires every built-in storage backend into the storage factory.
//
// It exists for side effects only: a blank import runs each backend's init,
// which registers its factory. After importing it, storage.New accepts the
// kinds "mssql", "mysql", "postgres" and "sqlite".
//
//	import _ "csvaudit/internal/storage/all"
//
// A binary that needs fewer backends can import the backend packages
// directly instead.
package all

import (
	_ "csvaudit/internal/storage/mssql"
	_ "csvaudit/internal/storage/mysql"
	_ "csvaudit/internal/storage/postgres"
	_ "csvaudit/internal/storage/sqlite"
)
