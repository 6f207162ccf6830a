package repository

import (
	"context"
	"database/sql"

	"github.com/maheshrc27/postflow/internal/models"
)

// MediaAssetRepository records uploaded media so the object key and size of
// every URL a post points at can be traced back to its owner.
type MediaAssetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

func (r *mediaAssetRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	query := `
		INSERT INTO media_assets (user_id, file_name, file_type, file_size, file_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return insertReturningID(ctx, r.db, tx, query, ma.UserID, ma.FileName, ma.FileType, ma.FileSize, ma.FileURL)
}
