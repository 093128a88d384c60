// Package postgres provides a PostgreSQL storage implementation.
package postgres

// migrations contains the database schema migrations.
var migrations = []string{
	// Migration 1: Class definitions. The full definition lives in a
	// JSONB document; the columns exist for lookups and constraints.
	`CREATE TABLE IF NOT EXISTS classes (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		definition JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (name, kind)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_classes_name ON classes(name)`,
	`CREATE INDEX IF NOT EXISTS idx_classes_kind ON classes(kind)`,

	// Migration 2: Entities. Properties and archives are JSONB so a class
	// switch can replace the bag and append an archive in one statement.
	`CREATE TABLE IF NOT EXISTS entities (
		id VARCHAR(64) PRIMARY KEY,
		class_id VARCHAR(64) NOT NULL REFERENCES classes(id),
		kind VARCHAR(20) NOT NULL,
		properties JSONB NOT NULL DEFAULT '{}'::jsonb,
		labels JSONB,
		source_id VARCHAR(64),
		target_id VARCHAR(64),
		source_kinds JSONB,
		target_kinds JSONB,
		archives JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_entities_class_id ON entities(class_id)`,
}
