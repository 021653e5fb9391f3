package sesh

import (
	// Registered under "postgres" for use with NewSQLStore + PostgresDialect{}.
	_ "github.com/lib/pq"
	// Registered under "sqlite" for use with NewSQLStore + SQLiteDialect{}.
	_ "modernc.org/sqlite"
)
