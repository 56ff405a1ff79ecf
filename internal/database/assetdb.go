package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/powerdisco/internal/model"
)

// AssetDB is the SQLite asset registry.
type AssetDB struct {
	db     *sql.DB
	dbPath string

	// agent is recorded as the creator of every asset.
	agent string
}

// Options configures AssetDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that `powerdisco assets` can
	// read while a campaign writes.
	EnableWAL bool

	// Agent is recorded as the creator of every asset.
	Agent string
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the registry file at dbPath.
func Open(dbPath string, opts Options) (*AssetDB, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; asset names are allocated inside a
	// transaction that relies on it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AssetDB{
		db:     db,
		dbPath: dbPath,
		agent:  opts.Agent,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Dial opens the registry at endpoint for a discovery campaign run by agent.
func Dial(ctx context.Context, endpoint, agent string) (*AssetDB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := DefaultOptions()
	opts.Agent = agent
	return Open(endpoint, opts)
}

// Path returns the database file path.
func (adb *AssetDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AssetDB) Close() error {
	return adb.db.Close()
}

func (adb *AssetDB) createTables() error {
	schema := `
	-- Assets and sensors created by discovery
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		subtype TEXT NOT NULL,
		status TEXT NOT NULL,
		priority INTEGER DEFAULT 0,
		parent TEXT,
		linked TEXT,
		ext TEXT,
		created_by TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assets_subtype ON assets(subtype);
	CREATE INDEX IF NOT EXISTS idx_assets_parent ON assets(parent);

	-- One summary per finished campaign
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		discovered INTEGER DEFAULT 0,
		addresses INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		stuck INTEGER DEFAULT 0,
		started_at DATETIME,
		finished_at DATETIME,
		record_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_campaigns_started ON campaigns(started_at);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// CreateAsset stores req and returns the name allocated to the asset,
// "<subtype>-<id>".
func (adb *AssetDB) CreateAsset(ctx context.Context, req model.CreateRequest) (string, error) {
	if req.Type == "" || req.Subtype == "" {
		return "", fmt.Errorf("%w: type and subtype are required", ErrInvalidAsset)
	}

	linkedJSON, err := json.Marshal(req.Linked)
	if err != nil {
		return "", fmt.Errorf("failed to serialize links: %w", err)
	}
	extJSON, err := json.Marshal(req.Ext)
	if err != nil {
		return "", fmt.Errorf("failed to serialize ext: %w", err)
	}

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if req.Parent != "" {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets WHERE name = ?", req.Parent).Scan(&n); err != nil {
			return "", fmt.Errorf("failed to check parent: %w", err)
		}
		if n == 0 {
			return "", fmt.Errorf("%w: %s", ErrParentNotFound, req.Parent)
		}
	}

	var next int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM assets").Scan(&next); err != nil {
		return "", fmt.Errorf("failed to allocate asset id: %w", err)
	}
	name := fmt.Sprintf("%s-%d", strings.ToLower(req.Subtype), next)

	query := `
	INSERT INTO assets (id, name, type, subtype, status, priority, parent, linked, ext, created_by, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		next,
		name,
		req.Type,
		req.Subtype,
		req.Status.String(),
		req.Priority,
		req.Parent,
		string(linkedJSON),
		string(extJSON),
		adb.agent,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert asset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit asset: %w", err)
	}
	return name, nil
}

// AssetFilter restricts ListAssets. Zero values match everything.
type AssetFilter struct {
	Subtype string
	Parent  string
	Limit   int
}

// ListAssets returns the stored assets, oldest first.
func (adb *AssetDB) ListAssets(ctx context.Context, filter AssetFilter) ([]model.Asset, error) {
	query := `
	SELECT id, name, type, subtype, status, priority, parent, linked, ext, created_at
	FROM assets
	WHERE 1=1
	`
	args := make([]any, 0)

	if filter.Subtype != "" {
		query += " AND subtype = ?"
		args = append(args, filter.Subtype)
	}
	if filter.Parent != "" {
		query += " AND parent = ?"
		args = append(args, filter.Parent)
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// GetAsset returns the asset called name, or nil if there is none.
func (adb *AssetDB) GetAsset(ctx context.Context, name string) (*model.Asset, error) {
	query := `
	SELECT id, name, type, subtype, status, priority, parent, linked, ext, created_at
	FROM assets
	WHERE name = ?
	`

	asset, err := scanAsset(adb.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (model.Asset, error) {
	var (
		asset      model.Asset
		status     string
		parent     sql.NullString
		linkedJSON sql.NullString
		extJSON    sql.NullString
		createdAt  string
	)

	err := row.Scan(
		&asset.ID,
		&asset.Name,
		&asset.Type,
		&asset.Subtype,
		&status,
		&asset.Priority,
		&parent,
		&linkedJSON,
		&extJSON,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return asset, err
	}
	if err != nil {
		return asset, fmt.Errorf("failed to scan asset: %w", err)
	}

	_ = asset.Status.UnmarshalText([]byte(status)) //nolint:errcheck // never fails
	asset.Parent = parent.String
	asset.CreatedAt = parseTimestamp(createdAt)

	if linkedJSON.Valid && linkedJSON.String != "" && linkedJSON.String != "null" {
		if err := json.Unmarshal([]byte(linkedJSON.String), &asset.Linked); err != nil {
			return asset, fmt.Errorf("failed to parse links of %s: %w", asset.Name, err)
		}
	}
	if extJSON.Valid && extJSON.String != "" && extJSON.String != "null" {
		if err := json.Unmarshal([]byte(extJSON.String), &asset.Ext); err != nil {
			return asset, fmt.Errorf("failed to parse ext of %s: %w", asset.Name, err)
		}
	}
	return asset, nil
}
