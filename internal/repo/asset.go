package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/packrat-app/packrat/internal/models"
)

// ========================
// REPOSITORY STRUCT
// ========================

// AssetRepo persists user-scoped assets. Every query is bound to a user id;
// one user's assets are never visible to another user's session.
type AssetRepo struct {
	DB *sql.DB
}

func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{DB: db}
}

const assetColumns = `id, user_id, name, description, location, attachments, created_at, updated_at`

func scanAsset(row interface{ Scan(...any) error }) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Description,
		&a.Location,
		pq.Array(&a.Attachments),
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// ========================
// CREATE ASSET
// ========================

// Create inserts a new asset for userID. The id is generated here and never
// changes afterwards; created_at is set by the database.
func (r *AssetRepo) Create(ctx context.Context, userID string, fields models.AssetFields) (models.Asset, error) {
	name := ""
	if fields.Name != nil {
		name = *fields.Name
	}
	description := ""
	if fields.Description != nil {
		description = *fields.Description
	}
	location := ""
	if fields.Location != nil {
		location = *fields.Location
	}
	attachments := fields.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO assets (id, user_id, name, description, location, attachments)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+assetColumns,
		uuid.NewString(), userID, name, description, location, pq.Array(attachments),
	)
	return scanAsset(row)
}

// ========================
// GET ASSET BY ID
// ========================

// Get returns (nil, nil) when no asset with that id exists in the user's
// namespace, so callers can render an absent state without error handling.
func (r *AssetRepo) Get(ctx context.Context, userID, id string) (*models.Asset, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+assetColumns+`
		 FROM assets
		 WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ========================
// LIST ASSETS
// ========================

// List returns the user's full collection ordered by created_at then id,
// so emission order is stable across calls.
func (r *AssetRepo) List(ctx context.Context, userID string) ([]models.Asset, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+assetColumns+`
		 FROM assets
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// ========================
// UPDATE ASSET
// ========================

// Update merges the provided fields into the stored asset; nil fields are
// left untouched. updated_at is refreshed on every call. Returns (nil, nil)
// when the asset does not exist in the user's namespace.
func (r *AssetRepo) Update(ctx context.Context, userID, id string, fields models.AssetFields) (*models.Asset, error) {
	set := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if fields.Name != nil {
		set = append(set, "name = "+arg(*fields.Name))
	}
	if fields.Description != nil {
		set = append(set, "description = "+arg(*fields.Description))
	}
	if fields.Location != nil {
		set = append(set, "location = "+arg(*fields.Location))
	}
	if fields.Attachments != nil {
		set = append(set, "attachments = "+arg(pq.Array(fields.Attachments)))
	}
	set = append(set, "updated_at = "+arg(time.Now().UTC()))

	query := "UPDATE assets SET " + set[0]
	for _, s := range set[1:] {
		query += ", " + s
	}
	query += " WHERE user_id = " + arg(userID) + " AND id = " + arg(id)
	query += " RETURNING " + assetColumns

	a, err := scanAsset(r.DB.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ========================
// DELETE ASSET
// ========================

// Delete removes the asset unconditionally. Deleting an id that does not
// exist is treated as success, matching the backend convention.
func (r *AssetRepo) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM assets WHERE user_id = $1 AND id = $2",
		userID, id,
	)
	return err
}
