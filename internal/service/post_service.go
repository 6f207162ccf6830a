package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MaxMediaSize caps a single uploaded media file.
const MaxMediaSize = 50 << 20

var allowedMediaTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {}, "mp4": {}, "mov": {},
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, file *multipart.FileHeader) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db       *sql.DB
	pr       repository.PostRepository
	ma       repository.MediaAssetRepository
	storage  MediaStorage
	validate *validator.Validate
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ma repository.MediaAssetRepository,
	storage MediaStorage,
	validate *validator.Validate) PostService {
	return &postService{
		db:       db,
		pr:       pr,
		ma:       ma,
		storage:  storage,
		validate: validate,
	}
}

// CreatePost stores a draft, or a scheduled post when a time is given. An
// attached file is uploaded first and its public URL becomes the media URL.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, file *multipart.FileHeader) (*models.Post, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}
	if pc == nil {
		return nil, fmt.Errorf("%w: post creation data is nil", ErrInvalidPost)
	}
	if err := s.validate.Struct(pc); err != nil {
		logger.L().Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidPost, err)
	}

	post := &models.Post{
		UserID:    userID,
		Content:   pc.Content,
		Platforms: make([]models.Platform, 0, len(pc.Platforms)),
		Status:    models.PostStatusDraft,
	}
	for _, p := range pc.Platforms {
		post.Platforms = append(post.Platforms, models.Platform(p))
	}
	post.Platforms = post.TargetPlatforms()

	if pc.ScheduledAt != "" {
		scheduledAt, err := time.Parse(time.RFC3339, pc.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid scheduled time format: %v", ErrInvalidPost, err)
		}
		scheduledAt = scheduledAt.UTC()
		post.ScheduledAt = &scheduledAt
		post.Status = models.PostStatusScheduled
	}

	var asset *models.MediaAsset
	if file != nil {
		var err error
		if asset, err = s.upload(ctx, userID, file); err != nil {
			return nil, err
		}
		post.MediaURL = asset.FileURL
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if asset != nil {
		if asset.ID, err = s.ma.Create(ctx, tx, asset); err != nil {
			return nil, fmt.Errorf("error saving media asset: %w", err)
		}
	}

	if post.ID, err = s.pr.Create(ctx, tx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return post, nil
}

func (s *postService) upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.MediaAsset, error) {
	if file.Size > MaxMediaSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidPost, MaxMediaSize)
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(f, MaxMediaSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, fmt.Errorf("%w: unsupported file type", ErrInvalidPost)
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("%w: file type %s is not allowed", ErrInvalidPost, fileType.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}
	key := id + "." + fileType.Extension

	url, err := s.storage.Upload(ctx, key, fileBytes, fileType.MIME.Value)
	if err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	return &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: fileType.MIME.Value,
		FileSize: int64(len(fileBytes)),
		FileURL:  url,
	}, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}
	if err := s.checkOwner(ctx, postID, userID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// Remove deletes a post unless the sweeper is publishing it right now.
func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if userID == 0 {
		return ErrInvalidUser
	}
	if err := s.checkOwner(ctx, postID, userID); err != nil {
		return err
	}

	removed, err := s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	if !removed {
		return ErrPostPublishing
	}
	return nil
}

func (s *postService) checkOwner(ctx context.Context, postID, userID int64) error {
	if postID == 0 {
		return ErrPostNotFound
	}
	owned, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !owned {
		logger.L().Infof("post %d not found for user %d", postID, userID)
		return ErrPostNotFound
	}
	return nil
}

// SplitPlatforms parses a comma separated platform list.
func SplitPlatforms(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPost) || errors.Is(err, ErrInvalidUser)
}
