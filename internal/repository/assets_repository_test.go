package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaAssetRepositoryCreateInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	asset := &models.MediaAsset{
		UserID:   3,
		FileName: "abc.png",
		FileType: "image/png",
		FileSize: 1024,
		FileURL:  "https://media.example.com/abc.png",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO media_assets`).
		WithArgs(asset.UserID, asset.FileName, asset.FileType, asset.FileSize, asset.FileURL).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	id, err := NewMediaAssetRepository(db).Create(context.Background(), tx, asset)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaAssetRepositoryCreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO media_assets`).WillReturnError(errors.New("constraint violation"))

	_, err = NewMediaAssetRepository(db).Create(context.Background(), nil, &models.MediaAsset{UserID: 3})
	assert.EqualError(t, err, "constraint violation")
}
