package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/storage"
)

// Config holds MySQL connection configuration.
type Config struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Database        string        `json:"database" yaml:"database"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"password" yaml:"password"`
	TLS             string        `json:"tls" yaml:"tls"` // true, false, skip-verify, preferred, or custom config name
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            3306,
		Database:        "class_registry",
		Username:        "root",
		Password:        "",
		TLS:             "false",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// DSN returns the connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.TLS,
	)
}

// Store implements the storage.Storage interface using MySQL.
type Store struct {
	db     *sql.DB
	config Config
}

// NewStore creates a new MySQL store.
func NewStore(config Config) (*Store, error) {
	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		db:     db,
		config: config,
	}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// CreateClass stores a new class definition.
func (s *Store) CreateClass(ctx context.Context, def *class.Definition) error {
	definition, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO classes (id, name, kind, active, definition, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.Name, def.Kind, def.Active, definition, now, now,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return storage.ErrClassExists
		}
		return fmt.Errorf("failed to insert class: %w", err)
	}
	def.CreatedAt = now
	def.UpdatedAt = now
	return nil
}

// GetClass resolves a class by ID or name. Names held by more than one
// kind cannot be resolved.
func (s *Store) GetClass(ctx context.Context, idOrName string) (*class.Definition, error) {
	def, err := scanClass(s.db.QueryRowContext(ctx,
		`SELECT definition, created_at, updated_at FROM classes WHERE id = ?`, idOrName))
	if err == nil {
		return def, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query class: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT definition, created_at, updated_at FROM classes WHERE name = ?`, idOrName)
	if err != nil {
		return nil, fmt.Errorf("failed to query class by name: %w", err)
	}
	defer rows.Close()

	var defs []*class.Definition
	for rows.Next() {
		d, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read classes: %w", err)
	}

	switch len(defs) {
	case 0:
		return nil, storage.ErrClassNotFound
	case 1:
		return defs[0], nil
	default:
		return nil, storage.ErrClassNameAmbiguous
	}
}

// ListClasses lists classes, optionally filtered by kind.
func (s *Store) ListClasses(ctx context.Context, kind class.Kind, includeInactive bool) ([]*class.Definition, error) {
	query := `SELECT definition, created_at, updated_at FROM classes WHERE 1=1`
	var args []interface{}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	if !includeInactive {
		query += " AND active"
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	var defs []*class.Definition
	for rows.Next() {
		d, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// ReplaceClass replaces a whole class definition.
func (s *Store) ReplaceClass(ctx context.Context, def *class.Definition) error {
	definition, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE classes SET name = ?, kind = ?, active = ?, definition = ?, updated_at = ?
		 WHERE id = ?`,
		def.Name, def.Kind, def.Active, definition, time.Now().UTC(), def.ID,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return storage.ErrClassExists
		}
		return fmt.Errorf("failed to update class: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		// RowsAffected is zero both for a missing row and for a no-op
		// update, so confirm the class is actually absent.
		if _, getErr := s.GetClass(ctx, def.ID); getErr != nil {
			return getErr
		}
	}
	return nil
}

// DeactivateClass logically deletes a class.
func (s *Store) DeactivateClass(ctx context.Context, idOrName string) error {
	def, err := s.GetClass(ctx, idOrName)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE classes SET active = FALSE, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), def.ID)
	if err != nil {
		return fmt.Errorf("failed to deactivate class: %w", err)
	}
	return nil
}

// DeleteClass physically removes a class unless entities reference it.
func (s *Store) DeleteClass(ctx context.Context, idOrName string) error {
	def, err := s.GetClass(ctx, idOrName)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var inUse int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE class_id = ?`, def.ID).Scan(&inUse); err != nil {
		return fmt.Errorf("failed to count referencing entities: %w", err)
	}
	if inUse > 0 {
		return storage.ErrClassInUse
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, def.ID); err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	return tx.Commit()
}

// CreateEntity stores a new entity.
func (s *Store) CreateEntity(ctx context.Context, entity *class.Entity) error {
	properties, err := json.Marshal(entity.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}
	labels, err := marshalNullable(entity.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}
	sourceKinds, err := marshalNullable(entity.SourceKinds)
	if err != nil {
		return fmt.Errorf("failed to marshal source kinds: %w", err)
	}
	targetKinds, err := marshalNullable(entity.TargetKinds)
	if err != nil {
		return fmt.Errorf("failed to marshal target kinds: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, class_id, kind, properties, labels, source_id, target_id, source_kinds, target_kinds, archives, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID, entity.ClassID, entity.Kind, properties, labels,
		nullString(entity.SourceID), nullString(entity.TargetID),
		sourceKinds, targetKinds, []byte("[]"), now, now,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return storage.ErrEntityExists
		}
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	entity.CreatedAt = now
	entity.UpdatedAt = now
	return nil
}

const entityColumns = `id, class_id, kind, properties, labels, source_id, target_id, source_kinds, target_kinds, archives, created_at, updated_at`

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(ctx context.Context, id string) (*class.Entity, error) {
	entity, err := scanEntity(s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	return entity, nil
}

// CommitSwitch atomically reassigns the entity's class, replaces its
// property bag, and appends the archive. The row is locked for the
// duration of the transaction so the archive append cannot race.
func (s *Store) CommitSwitch(ctx context.Context, id string, newClassID string, properties map[string]class.Value, archive *class.PropertyArchive) (*class.Entity, error) {
	props, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal properties: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entity, err := scanEntity(tx.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock entity: %w", err)
	}

	archives := entity.Archives
	if archive != nil {
		archives = append(archives, *archive)
	}
	archivesJSON, err := json.Marshal(archives)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal archives: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE entities SET class_id = ?, properties = ?, archives = ?, updated_at = ? WHERE id = ?`,
		newClassID, props, archivesJSON, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to commit switch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	entity.ClassID = newClassID
	entity.Properties = class.CloneProperties(properties)
	entity.Archives = archives
	entity.UpdatedAt = now
	return entity, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsHealthy returns true if the database connection is healthy.
func (s *Store) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

// Stats returns connection pool statistics.
func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClass(row rowScanner) (*class.Definition, error) {
	var definition []byte
	var createdAt, updatedAt time.Time
	if err := row.Scan(&definition, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var def class.Definition
	if err := json.Unmarshal(definition, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
	}
	def.CreatedAt = createdAt
	def.UpdatedAt = updatedAt
	return &def, nil
}

func scanEntity(row rowScanner) (*class.Entity, error) {
	var entity class.Entity
	var properties, archives []byte
	var labels, sourceKinds, targetKinds []byte
	var sourceID, targetID sql.NullString

	err := row.Scan(
		&entity.ID, &entity.ClassID, &entity.Kind,
		&properties, &labels, &sourceID, &targetID,
		&sourceKinds, &targetKinds, &archives,
		&entity.CreatedAt, &entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(properties, &entity.Properties); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	if err := json.Unmarshal(archives, &entity.Archives); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archives: %w", err)
	}
	if err := unmarshalNullable(labels, &entity.Labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
	}
	if err := unmarshalNullable(sourceKinds, &entity.SourceKinds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source kinds: %w", err)
	}
	if err := unmarshalNullable(targetKinds, &entity.TargetKinds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target kinds: %w", err)
	}
	entity.SourceID = sourceID.String
	entity.TargetID = targetID.String
	return &entity, nil
}

func marshalNullable(values []string) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return json.Marshal(values)
}

func unmarshalNullable(data []byte, target *[]string) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isDuplicateEntry checks if the error is a duplicate key violation.
func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	// MySQL error number for ER_DUP_ENTRY is 1062
	return strings.Contains(err.Error(), "Error 1062") || strings.Contains(err.Error(), "Duplicate entry")
}

// Ensure Store implements storage.Storage
var _ storage.Storage = (*Store)(nil)
