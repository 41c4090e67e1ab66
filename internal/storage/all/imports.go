// Package all registers every built-in sink backend with the storage
// package. Import it for side effects:
//
//	import _ "crashwrangle/internal/storage/all"
//
// After that, storage.New and storage.Sink accept the kinds "sqlite",
// "postgres", "mysql" and "mssql".
package all

import (
	_ "crashwrangle/internal/storage/mssql"
	_ "crashwrangle/internal/storage/mysql"
	_ "crashwrangle/internal/storage/postgres"
	_ "crashwrangle/internal/storage/sqlite"
)
