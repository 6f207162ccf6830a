package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
)

type SocialAccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	ListConnectedByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]*models.SocialAccount, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	SetToken(ctx context.Context, accountID int64, oldAccessToken string, sa *models.SocialAccount) error
	Remove(ctx context.Context, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const accountColumns = `id, user_id, platform, account_id, account_name, account_username,
	profile_picture_url, access_token, refresh_token, token_expires_at, account_status,
	created_at, updated_at`

func scanAccount(row rowScanner) (*models.SocialAccount, error) {
	var (
		sa           models.SocialAccount
		refreshToken sql.NullString
		expiresAt    sql.NullTime
	)
	err := row.Scan(&sa.ID, &sa.UserID, &sa.Platform, &sa.AccountID, &sa.AccountName,
		&sa.AccountUsername, &sa.ProfilePicture, &sa.AccessToken, &refreshToken,
		&expiresAt, &sa.AccountStatus, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sa.RefreshToken = refreshToken.String
	if expiresAt.Valid {
		t := expiresAt.Time
		sa.TokenExpiresAt = &t
	}
	return &sa, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE id = $1`

	sa, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.L().Info(err.Error())
		return nil, err
	}

	return sa, nil
}

// ListConnectedByUserIDs loads every connected account of the given users,
// grouped by owner. Accounts come back oldest first so the first match per
// platform is stable between sweeps.
func (r *socialAccountRepository) ListConnectedByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]*models.SocialAccount, error) {
	accounts := make(map[int64][]*models.SocialAccount, len(userIDs))
	if len(userIDs) == 0 {
		return accounts, nil
	}

	query := `SELECT ` + accountColumns + `
		FROM social_accounts
		WHERE user_id = ANY($1) AND account_status = $2
		ORDER BY user_id, created_at, id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs), models.AccountStatusConnected)
	if err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		sa, err := scanAccount(rows)
		if err != nil {
			logger.L().Info(err.Error())
			return nil, err
		}
		accounts[sa.UserID] = append(accounts[sa.UserID], sa)
	}
	if err := rows.Err(); err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

// ListExpiring returns connected accounts with a refresh token whose access
// token expires before the given time, including ones already expired.
func (r *socialAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM social_accounts
		WHERE account_status = $1
			AND refresh_token IS NOT NULL AND refresh_token <> ''
			AND token_expires_at < $2`

	rows, err := r.db.QueryContext(ctx, query, models.AccountStatusConnected, before)
	if err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var socialAccounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanAccount(rows)
		if err != nil {
			logger.L().Info(err.Error())
			return nil, err
		}
		socialAccounts = append(socialAccounts, sa)
	}

	if err := rows.Err(); err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}

	return socialAccounts, nil
}

func (r *socialAccountRepository) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	query := `SELECT id, platform, account_name, account_username, profile_picture_url, account_status, token_expires_at
		FROM social_accounts WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var socialAccounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		var expiresAt sql.NullTime
		err := rows.Scan(&sa.ID, &sa.Platform, &sa.AccountName, &sa.AccountUsername, &sa.ProfilePicture, &sa.AccountStatus, &expiresAt)
		if err != nil {
			logger.L().Info(err.Error())
			return nil, err
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			sa.TokenExpiresAt = &t
		}
		sa.UserID = userID
		socialAccounts = append(socialAccounts, &sa)
	}
	return socialAccounts, rows.Err()
}

func (r *socialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		logger.L().Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// SetToken stores refreshed credentials. The update only applies while the
// row still holds oldAccessToken, so two refreshers racing on the same
// account cannot overwrite each other's newer token.
func (r *socialAccountRepository) SetToken(ctx context.Context, accountID int64, oldAccessToken string, sa *models.SocialAccount) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		logger.L().Info(err.Error())
		return err
	}
	defer tx.Rollback()

	updateTokenQuery := `
		UPDATE social_accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2
	`
	result, err := tx.ExecContext(ctx, updateTokenQuery, accountID, oldAccessToken, sa.AccessToken, sa.RefreshToken, sa.TokenExpiresAt)
	if err != nil {
		logger.L().Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.L().Info(err.Error())
		return err
	}
	if affected != 1 {
		logger.L().Infof("token for account %d changed concurrently", accountID)
		return ErrTokenChanged
	}

	if err = tx.Commit(); err != nil {
		logger.L().Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		logger.L().Info(err.Error())
		return err
	}
	return nil
}
