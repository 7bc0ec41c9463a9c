// Package database provides connection management, storage sessions over Bun,
// filter compilation, migrations, startup loading, configuration types,
// logging, and SQL error classification.
package database
