// Package all wires every built-in warehouse backend into the storage
// factory. Import it for side effects:
//
//	import _ "musicetl/internal/storage/all"
//
// after which storage.New and storage.Export accept the kinds "postgres",
// "mssql", "mysql" and "sqlite".
package all

import (
	_ "musicetl/internal/storage/mssql"
	_ "musicetl/internal/storage/mysql"
	_ "musicetl/internal/storage/postgres"
	_ "musicetl/internal/storage/sqlite"
)
