package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// App Operations
// =============================================================================

// appRow represents an app row in the database.
type appRow struct {
	ID               string            `db:"id"`
	VendorID         string            `db:"vendor_id"`
	Version          int               `db:"version"`
	Name             string            `db:"name"`
	Type             string            `db:"type"`
	Status           string            `db:"status"`
	ImageURL         string            `db:"image_url"`
	ImageTag         string            `db:"image_tag"`
	ShortDescription string            `db:"short_description"`
	LongDescription  string            `db:"long_description"`
	LicenseURL       string            `db:"license_url"`
	DocumentationURL string            `db:"documentation_url"`
	RepositoryURL    string            `db:"repository_url"`
	UIOptions        domain.StringList `db:"ui_options"`
	IsPublic         bool              `db:"is_public"`
	CreatedBy        string            `db:"created_by"`
	CreatedAt        string            `db:"created_at"`
	UpdatedAt        string            `db:"updated_at"`
}

func (s *SQLiteStore) CreateApp(ctx context.Context, app *domain.App) error {
	return createApp(ctx, s.db, app)
}

func (s *SQLiteStore) GetApp(ctx context.Context, id string) (*domain.App, error) {
	return getApp(ctx, s.db, id)
}

func (s *SQLiteStore) GetAppVersion(ctx context.Context, id string, version int) (*domain.App, error) {
	return getAppVersion(ctx, s.db, id, version)
}

// UpdateApp updates the app row, snapshots the new revision and appends a
// change record inside one transaction.
func (s *SQLiteStore) UpdateApp(ctx context.Context, app *domain.App, change *domain.AppChange) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.UpdateApp(ctx, app, change)
	})
}

func (s *SQLiteStore) ListApps(ctx context.Context, filter AppFilter, opts ListOptions) ([]domain.App, error) {
	return listApps(ctx, s.db, filter, opts)
}

func (s *SQLiteStore) ListAppsForVendor(ctx context.Context, vendorID string, opts ListOptions) ([]domain.App, error) {
	return listAppsForVendor(ctx, s.db, vendorID, opts)
}

func (s *SQLiteStore) ListPublishedApps(ctx context.Context, opts ListOptions) ([]domain.App, error) {
	return listPublishedApps(ctx, s.db, opts)
}

func (s *SQLiteStore) ListAppChanges(ctx context.Context, since, until time.Time) ([]domain.AppChange, error) {
	return listAppChanges(ctx, s.db, since, until)
}

// =============================================================================
// Vendor Operations
// =============================================================================

// vendorRow represents a vendor row in the database.
type vendorRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Address    string `db:"address"`
	Email      string `db:"email"`
	IsPublic   bool   `db:"is_public"`
	IsApproved bool   `db:"is_approved"`
	CreatedBy  string `db:"created_by"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

func (s *SQLiteStore) CreateVendor(ctx context.Context, vendor *domain.Vendor) error {
	return createVendor(ctx, s.db, vendor)
}

func (s *SQLiteStore) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	return getVendor(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateVendor(ctx context.Context, vendor *domain.Vendor) error {
	return updateVendor(ctx, s.db, vendor)
}

// RenameVendor rewrites the vendor id and every reference to it inside one
// transaction. App ids keep their original prefix; only ownership moves.
func (s *SQLiteStore) RenameVendor(ctx context.Context, oldID, newID string) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.RenameVendor(ctx, oldID, newID)
	})
}

func (s *SQLiteStore) ListVendors(ctx context.Context, opts ListOptions) ([]domain.Vendor, error) {
	return listVendors(ctx, s.db, opts)
}

// =============================================================================
// Invitation Operations
// =============================================================================

// invitationRow represents an invitation row in the database.
type invitationRow struct {
	VendorID  string `db:"vendor_id"`
	Email     string `db:"email"`
	Code      string `db:"code"`
	CreatedBy string `db:"created_by"`
	CreatedAt string `db:"created_at"`
}

func (s *SQLiteStore) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	return createInvitation(ctx, s.db, inv)
}

func (s *SQLiteStore) GetInvitation(ctx context.Context, vendorID, email, code string) (*domain.Invitation, error) {
	return getInvitation(ctx, s.db, vendorID, email, code)
}

func (s *SQLiteStore) DeleteInvitation(ctx context.Context, vendorID, email, code string) error {
	return deleteInvitation(ctx, s.db, vendorID, email, code)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreateApp(ctx context.Context, app *domain.App) error {
	return createApp(ctx, s.tx, app)
}

func (s *txSQLiteStore) GetApp(ctx context.Context, id string) (*domain.App, error) {
	return getApp(ctx, s.tx, id)
}

func (s *txSQLiteStore) GetAppVersion(ctx context.Context, id string, version int) (*domain.App, error) {
	return getAppVersion(ctx, s.tx, id, version)
}

func (s *txSQLiteStore) UpdateApp(ctx context.Context, app *domain.App, change *domain.AppChange) error {
	return updateApp(ctx, s.tx, app, change)
}

func (s *txSQLiteStore) ListApps(ctx context.Context, filter AppFilter, opts ListOptions) ([]domain.App, error) {
	return listApps(ctx, s.tx, filter, opts)
}

func (s *txSQLiteStore) ListAppsForVendor(ctx context.Context, vendorID string, opts ListOptions) ([]domain.App, error) {
	return listAppsForVendor(ctx, s.tx, vendorID, opts)
}

func (s *txSQLiteStore) ListPublishedApps(ctx context.Context, opts ListOptions) ([]domain.App, error) {
	return listPublishedApps(ctx, s.tx, opts)
}

func (s *txSQLiteStore) ListAppChanges(ctx context.Context, since, until time.Time) ([]domain.AppChange, error) {
	return listAppChanges(ctx, s.tx, since, until)
}

func (s *txSQLiteStore) CreateVendor(ctx context.Context, vendor *domain.Vendor) error {
	return createVendor(ctx, s.tx, vendor)
}

func (s *txSQLiteStore) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	return getVendor(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateVendor(ctx context.Context, vendor *domain.Vendor) error {
	return updateVendor(ctx, s.tx, vendor)
}

func (s *txSQLiteStore) RenameVendor(ctx context.Context, oldID, newID string) error {
	return renameVendor(ctx, s.tx, oldID, newID)
}

func (s *txSQLiteStore) ListVendors(ctx context.Context, opts ListOptions) ([]domain.Vendor, error) {
	return listVendors(ctx, s.tx, opts)
}

func (s *txSQLiteStore) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	return createInvitation(ctx, s.tx, inv)
}

func (s *txSQLiteStore) GetInvitation(ctx context.Context, vendorID, email, code string) (*domain.Invitation, error) {
	return getInvitation(ctx, s.tx, vendorID, email, code)
}

func (s *txSQLiteStore) DeleteInvitation(ctx context.Context, vendorID, email, code string) error {
	return deleteInvitation(ctx, s.tx, vendorID, email, code)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func appToRowArgs(app *domain.App) map[string]any {
	return map[string]any{
		"id":                app.ID,
		"vendor_id":         app.VendorID,
		"version":           app.Version,
		"name":              app.Name,
		"type":              app.Type,
		"status":            string(app.Status),
		"image_url":         app.ImageURL,
		"image_tag":         app.ImageTag,
		"short_description": app.ShortDescription,
		"long_description":  app.LongDescription,
		"license_url":       app.LicenseURL,
		"documentation_url": app.DocumentationURL,
		"repository_url":    app.RepositoryURL,
		"ui_options":        app.UIOptions,
		"is_public":         app.IsPublic,
		"created_by":        app.CreatedBy,
		"created_at":        app.CreatedAt.Format(time.RFC3339),
		"updated_at":        app.UpdatedAt.Format(time.RFC3339),
	}
}

func rowToApp(row *appRow) (*domain.App, error) {
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToApp", "app", row.ID, "invalid created_at timestamp", ErrInvalidData)
	}
	updatedAt, err := time.Parse(time.RFC3339, row.UpdatedAt)
	if err != nil {
		return nil, NewStoreError("rowToApp", "app", row.ID, "invalid updated_at timestamp", ErrInvalidData)
	}

	return &domain.App{
		ID:               row.ID,
		VendorID:         row.VendorID,
		Version:          row.Version,
		Name:             row.Name,
		Type:             row.Type,
		Status:           domain.AppStatus(row.Status),
		ImageURL:         row.ImageURL,
		ImageTag:         row.ImageTag,
		ShortDescription: row.ShortDescription,
		LongDescription:  row.LongDescription,
		LicenseURL:       row.LicenseURL,
		DocumentationURL: row.DocumentationURL,
		RepositoryURL:    row.RepositoryURL,
		UIOptions:        row.UIOptions,
		IsPublic:         row.IsPublic,
		CreatedBy:        row.CreatedBy,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}, nil
}

func createApp(ctx context.Context, exec executor, app *domain.App) error {
	query := `
		INSERT INTO apps (
			id, vendor_id, version, name, type, status,
			image_url, image_tag, short_description, long_description,
			license_url, documentation_url, repository_url, ui_options,
			is_public, created_by, created_at, updated_at
		) VALUES (
			:id, :vendor_id, :version, :name, :type, :status,
			:image_url, :image_tag, :short_description, :long_description,
			:license_url, :documentation_url, :repository_url, :ui_options,
			:is_public, :created_by, :created_at, :updated_at
		)`

	_, err := exec.NamedExecContext(ctx, query, appToRowArgs(app))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: apps.id") {
			return NewStoreError("CreateApp", "app", app.ID, "app with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateApp", "app", app.ID, err.Error(), err)
	}

	// Snapshot revision 1 so version lookups work from the start.
	return snapshotApp(ctx, exec, app)
}

// snapshotApp stores the full app payload under its current version number.
func snapshotApp(ctx context.Context, exec executor, app *domain.App) error {
	payload, err := json.Marshal(app)
	if err != nil {
		return NewStoreError("snapshotApp", "app", app.ID, "failed to serialize app payload", ErrInvalidData)
	}

	query := `
		INSERT INTO app_versions (app_id, version, payload, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = exec.ExecContext(ctx, query, app.ID, app.Version, string(payload), app.CreatedBy, app.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("snapshotApp", "app", app.ID, fmt.Sprintf("version %d already exists", app.Version), ErrDuplicateID)
		}
		return NewStoreError("snapshotApp", "app", app.ID, err.Error(), err)
	}

	return nil
}

func getApp(ctx context.Context, exec executor, id string) (*domain.App, error) {
	query := `SELECT * FROM apps WHERE id = ?`

	var row appRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetApp", "app", id, "app not found", ErrNotFound)
		}
		return nil, NewStoreError("GetApp", "app", id, err.Error(), err)
	}

	return rowToApp(&row)
}

func getAppVersion(ctx context.Context, exec executor, id string, version int) (*domain.App, error) {
	query := `SELECT payload FROM app_versions WHERE app_id = ? AND version = ?`

	var payload string
	err := exec.GetContext(ctx, &payload, query, id, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetAppVersion", "app", id, fmt.Sprintf("version %d not found", version), ErrNotFound)
		}
		return nil, NewStoreError("GetAppVersion", "app", id, err.Error(), err)
	}

	var app domain.App
	if err := json.Unmarshal([]byte(payload), &app); err != nil {
		return nil, NewStoreError("GetAppVersion", "app", id, "failed to deserialize app payload", ErrInvalidData)
	}

	return &app, nil
}

func updateApp(ctx context.Context, exec executor, app *domain.App, change *domain.AppChange) error {
	query := `
		UPDATE apps SET
			vendor_id = :vendor_id,
			version = :version,
			name = :name,
			type = :type,
			status = :status,
			image_url = :image_url,
			image_tag = :image_tag,
			short_description = :short_description,
			long_description = :long_description,
			license_url = :license_url,
			documentation_url = :documentation_url,
			repository_url = :repository_url,
			ui_options = :ui_options,
			is_public = :is_public,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, appToRowArgs(app))
	if err != nil {
		return NewStoreError("UpdateApp", "app", app.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateApp", "app", app.ID, "app not found", ErrNotFound)
	}

	if err := snapshotApp(ctx, exec, app); err != nil {
		return err
	}

	if change != nil {
		if err := insertAppChange(ctx, exec, change); err != nil {
			return err
		}
	}

	return nil
}

func insertAppChange(ctx context.Context, exec executor, change *domain.AppChange) error {
	diffJSON, err := json.Marshal(change.Diff)
	if err != nil {
		return NewStoreError("insertAppChange", "appChange", change.AppID, "failed to serialize diff", ErrInvalidData)
	}

	query := `
		INSERT INTO app_changes (app_id, version, changed_by, diff, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = exec.ExecContext(ctx, query, change.AppID, change.Version, change.ChangedBy, string(diffJSON), change.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return NewStoreError("insertAppChange", "appChange", change.AppID, err.Error(), err)
	}

	return nil
}

func listApps(ctx context.Context, exec executor, filter AppFilter, opts ListOptions) ([]domain.App, error) {
	opts = opts.Normalize()

	query := `SELECT * FROM apps`
	var conds []string
	var args []any

	if filter.Filter != "" {
		conds = append(conds, `(id LIKE ? OR vendor_id LIKE ? OR name LIKE ?)`)
		pattern := "%" + filter.Filter + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(filter.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	return selectApps(ctx, exec, "ListApps", query, args...)
}

func listAppsForVendor(ctx context.Context, exec executor, vendorID string, opts ListOptions) ([]domain.App, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM apps WHERE vendor_id = ? ORDER BY id LIMIT ? OFFSET ?`
	return selectApps(ctx, exec, "ListAppsForVendor", query, vendorID, opts.Limit, opts.Offset)
}

func listPublishedApps(ctx context.Context, exec executor, opts ListOptions) ([]domain.App, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM apps WHERE status = ? AND is_public = 1 ORDER BY id LIMIT ? OFFSET ?`
	return selectApps(ctx, exec, "ListPublishedApps", query, string(domain.StatusApproved), opts.Limit, opts.Offset)
}

func selectApps(ctx context.Context, exec executor, op, query string, args ...any) ([]domain.App, error) {
	var rows []appRow
	err := exec.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, NewStoreError(op, "app", "", err.Error(), err)
	}

	apps := make([]domain.App, 0, len(rows))
	for _, row := range rows {
		app, err := rowToApp(&row)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}

	return apps, nil
}

// appChangeRow represents an app change row in the database.
type appChangeRow struct {
	ID        int64  `db:"id"`
	AppID     string `db:"app_id"`
	Version   int    `db:"version"`
	ChangedBy string `db:"changed_by"`
	Diff      string `db:"diff"`
	CreatedAt string `db:"created_at"`
}

func listAppChanges(ctx context.Context, exec executor, since, until time.Time) ([]domain.AppChange, error) {
	query := `SELECT * FROM app_changes`
	var conds []string
	var args []any

	if !since.IsZero() {
		conds = append(conds, `created_at >= ?`)
		args = append(args, since.Format(time.RFC3339))
	}
	if !until.IsZero() {
		// The upper bound is a date, so include the whole day.
		conds = append(conds, `created_at < ?`)
		args = append(args, until.AddDate(0, 0, 1).Format(time.RFC3339))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at, id`

	var rows []appChangeRow
	err := exec.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, NewStoreError("ListAppChanges", "appChange", "", err.Error(), err)
	}

	changes := make([]domain.AppChange, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
		if err != nil {
			return nil, NewStoreError("ListAppChanges", "appChange", row.AppID, "invalid created_at timestamp", ErrInvalidData)
		}
		var diff map[string]domain.FieldChange
		if err := json.Unmarshal([]byte(row.Diff), &diff); err != nil {
			return nil, NewStoreError("ListAppChanges", "appChange", row.AppID, "failed to deserialize diff", ErrInvalidData)
		}
		changes = append(changes, domain.AppChange{
			AppID:     row.AppID,
			Version:   row.Version,
			ChangedBy: row.ChangedBy,
			CreatedAt: createdAt,
			Diff:      diff,
		})
	}

	return changes, nil
}

func vendorToRowArgs(vendor *domain.Vendor) map[string]any {
	return map[string]any{
		"id":          vendor.ID,
		"name":        vendor.Name,
		"address":     vendor.Address,
		"email":       vendor.Email,
		"is_public":   vendor.IsPublic,
		"is_approved": vendor.IsApproved,
		"created_by":  vendor.CreatedBy,
		"created_at":  vendor.CreatedAt.Format(time.RFC3339),
		"updated_at":  vendor.UpdatedAt.Format(time.RFC3339),
	}
}

func rowToVendor(row *vendorRow) (*domain.Vendor, error) {
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToVendor", "vendor", row.ID, "invalid created_at timestamp", ErrInvalidData)
	}
	updatedAt, err := time.Parse(time.RFC3339, row.UpdatedAt)
	if err != nil {
		return nil, NewStoreError("rowToVendor", "vendor", row.ID, "invalid updated_at timestamp", ErrInvalidData)
	}

	return &domain.Vendor{
		ID:         row.ID,
		Name:       row.Name,
		Address:    row.Address,
		Email:      row.Email,
		IsPublic:   row.IsPublic,
		IsApproved: row.IsApproved,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

func createVendor(ctx context.Context, exec executor, vendor *domain.Vendor) error {
	query := `
		INSERT INTO vendors (
			id, name, address, email, is_public, is_approved,
			created_by, created_at, updated_at
		) VALUES (
			:id, :name, :address, :email, :is_public, :is_approved,
			:created_by, :created_at, :updated_at
		)`

	_, err := exec.NamedExecContext(ctx, query, vendorToRowArgs(vendor))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: vendors.id") {
			return NewStoreError("CreateVendor", "vendor", vendor.ID, "vendor with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateVendor", "vendor", vendor.ID, err.Error(), err)
	}

	return nil
}

func getVendor(ctx context.Context, exec executor, id string) (*domain.Vendor, error) {
	query := `SELECT * FROM vendors WHERE id = ?`

	var row vendorRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetVendor", "vendor", id, "vendor not found", ErrNotFound)
		}
		return nil, NewStoreError("GetVendor", "vendor", id, err.Error(), err)
	}

	return rowToVendor(&row)
}

func updateVendor(ctx context.Context, exec executor, vendor *domain.Vendor) error {
	query := `
		UPDATE vendors SET
			name = :name,
			address = :address,
			email = :email,
			is_public = :is_public,
			is_approved = :is_approved,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, vendorToRowArgs(vendor))
	if err != nil {
		return NewStoreError("UpdateVendor", "vendor", vendor.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateVendor", "vendor", vendor.ID, "vendor not found", ErrNotFound)
	}

	return nil
}

func renameVendor(ctx context.Context, exec executor, oldID, newID string) error {
	// apps.vendor_id follows via ON UPDATE CASCADE; invitations carry no
	// foreign key and are moved by hand.
	result, err := exec.ExecContext(ctx, `UPDATE vendors SET id = ?, is_approved = 1 WHERE id = ?`, newID, oldID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: vendors.id") {
			return NewStoreError("RenameVendor", "vendor", newID, "vendor with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("RenameVendor", "vendor", oldID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("RenameVendor", "vendor", oldID, "vendor not found", ErrNotFound)
	}

	if _, err := exec.ExecContext(ctx, `UPDATE invitations SET vendor_id = ? WHERE vendor_id = ?`, newID, oldID); err != nil {
		return NewStoreError("RenameVendor", "vendor", oldID, err.Error(), err)
	}

	return nil
}

func listVendors(ctx context.Context, exec executor, opts ListOptions) ([]domain.Vendor, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM vendors ORDER BY id LIMIT ? OFFSET ?`

	var rows []vendorRow
	err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListVendors", "vendor", "", err.Error(), err)
	}

	vendors := make([]domain.Vendor, 0, len(rows))
	for _, row := range rows {
		vendor, err := rowToVendor(&row)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, *vendor)
	}

	return vendors, nil
}

func createInvitation(ctx context.Context, exec executor, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (vendor_id, email, code, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := exec.ExecContext(ctx, query, inv.VendorID, inv.Email, inv.Code, inv.CreatedBy, inv.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("CreateInvitation", "invitation", inv.Email, "invitation for this email already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateInvitation", "invitation", inv.Email, err.Error(), err)
	}

	return nil
}

func getInvitation(ctx context.Context, exec executor, vendorID, email, code string) (*domain.Invitation, error) {
	query := `SELECT * FROM invitations WHERE vendor_id = ? AND email = ? AND code = ?`

	var row invitationRow
	err := exec.GetContext(ctx, &row, query, vendorID, email, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetInvitation", "invitation", email, "invitation not found", ErrNotFound)
		}
		return nil, NewStoreError("GetInvitation", "invitation", email, err.Error(), err)
	}

	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("GetInvitation", "invitation", email, "invalid created_at timestamp", ErrInvalidData)
	}

	return &domain.Invitation{
		VendorID:  row.VendorID,
		Email:     row.Email,
		Code:      row.Code,
		CreatedBy: row.CreatedBy,
		CreatedAt: createdAt,
	}, nil
}

func deleteInvitation(ctx context.Context, exec executor, vendorID, email, code string) error {
	query := `DELETE FROM invitations WHERE vendor_id = ? AND email = ? AND code = ?`

	result, err := exec.ExecContext(ctx, query, vendorID, email, code)
	if err != nil {
		return NewStoreError("DeleteInvitation", "invitation", email, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteInvitation", "invitation", email, "invitation not found", ErrNotFound)
	}

	return nil
}
