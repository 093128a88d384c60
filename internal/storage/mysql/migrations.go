// Package mysql provides a MySQL storage implementation.
package mysql

// migrations contains the database schema migrations.
var migrations = []string{
	// Migration 1: Class definitions. The full definition lives in a JSON
	// document; the columns exist for lookups and constraints.
	`CREATE TABLE IF NOT EXISTS classes (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		definition JSON NOT NULL,
		created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_classes_name_kind (name, kind),
		KEY idx_classes_name (name),
		KEY idx_classes_kind (kind)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// Migration 2: Entities. MySQL has no JSON array append in an UPDATE
	// that is concurrency-safe without locking, so switches run in a
	// transaction with a row lock.
	`CREATE TABLE IF NOT EXISTS entities (
		id VARCHAR(64) PRIMARY KEY,
		class_id VARCHAR(64) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		properties JSON NOT NULL,
		labels JSON,
		source_id VARCHAR(64),
		target_id VARCHAR(64),
		source_kinds JSON,
		target_kinds JSON,
		archives JSON NOT NULL,
		created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY idx_entities_class_id (class_id),
		CONSTRAINT fk_entities_class FOREIGN KEY (class_id) REFERENCES classes(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
