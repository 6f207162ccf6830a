package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) (bool, error)

	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	Claim(ctx context.Context, postID, version int64, now time.Time) (bool, error)
	Complete(ctx context.Context, c *models.PostCompletion, now time.Time) error
	FailStale(ctx context.Context, before, now time.Time) (int64, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `p.id, p.user_id, p.content, p.media_url, p.platforms, p.status,
	p.scheduled_at, p.published_at, p.metrics, p.version, p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post        models.Post
		mediaURL    sql.NullString
		platforms   []string
		scheduledAt sql.NullTime
		publishedAt sql.NullTime
	)
	err := row.Scan(&post.ID, &post.UserID, &post.Content, &mediaURL, pq.Array(&platforms), &post.Status,
		&scheduledAt, &publishedAt, &post.Metrics, &post.Version, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.MediaURL = mediaURL.String
	post.Platforms = make([]models.Platform, 0, len(platforms))
	for _, p := range platforms {
		post.Platforms = append(post.Platforms, models.Platform(p))
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		post.ScheduledAt = &t
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	if post.Metrics == nil {
		post.Metrics = models.PostMetrics{}
	}
	return &post, nil
}

func platformStrings(platforms []models.Platform) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, string(p))
	}
	return out
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, content, media_url, platforms, status, scheduled_at, metrics)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING id
	`

	args := []interface{}{
		post.UserID,
		post.Content,
		post.MediaURL,
		pq.Array(platformStrings(post.Platforms)),
		post.Status,
		post.ScheduledAt,
		post.Metrics,
	}

	return insertReturningID(ctx, r.db, tx, query, args...)
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.L().Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.user_id = $1 ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			logger.L().Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		logger.L().Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// Remove deletes a post unless a sweep currently holds its claim.
func (r *postRepository) Remove(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM posts WHERE id = $1 AND status <> $2`
	result, err := r.db.ExecContext(ctx, query, id, models.PostStatusPublishing)
	if err != nil {
		logger.L().Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.L().Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// ListDue returns scheduled posts whose time has come, earliest first. The
// join drops posts whose owner no longer exists.
func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.status = $1
			AND p.scheduled_at IS NOT NULL
			AND p.scheduled_at <= $2
		ORDER BY p.scheduled_at ASC, p.id ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, now, limit)
	if err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// Claim moves a post from scheduled to publishing. It only succeeds for the
// caller that read the current version, so overlapping sweeps cannot both
// publish the same post.
func (r *postRepository) Claim(ctx context.Context, postID, version int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			version = version + 1,
			updated_at = $2
		WHERE id = $3 AND status = $4 AND version = $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, now, postID, models.PostStatusScheduled, version)
	if err != nil {
		logger.L().Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.L().Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// Complete writes a claimed post's terminal status and metrics in one update.
func (r *postRepository) Complete(ctx context.Context, c *models.PostCompletion, now time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			metrics = $2,
			published_at = $3,
			scheduled_at = NULL,
			version = version + 1,
			updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := r.db.ExecContext(ctx, query, c.Status, c.Metrics, c.PublishedAt, now, c.PostID, models.PostStatusPublishing)
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
		logger.L().Infof("post %d was not in publishing state", c.PostID)
		return ErrPostNotClaimed
	}
	return nil
}

// FailStale marks posts left in publishing since before the cutoff as failed.
// They are never re-published since the platform calls may have gone out.
func (r *postRepository) FailStale(ctx context.Context, before, now time.Time) (int64, error) {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_at = NULL,
			metrics = COALESCE((
				SELECT jsonb_object_agg(pl, jsonb_build_object('platform', pl, 'success', false, 'error', $5::text))
				FROM unnest(platforms) AS pl
			), '{}'::jsonb),
			version = version + 1,
			updated_at = $2
		WHERE status = $3 AND updated_at < $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, now, models.PostStatusPublishing, before, StaleClaimReason)
	if err != nil {
		logger.L().Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}
