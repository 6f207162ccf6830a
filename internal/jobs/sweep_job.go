package job

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/publisher"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sweeper publishes every post that is due.
type Sweeper interface {
	Sweep(ctx context.Context) (*models.SweepSummary, error)
}

type SweepJob struct {
	posts      repository.PostRepository
	accounts   repository.SocialAccountRepository
	tokens     service.TokenService
	publishers *publisher.Registry
	cfg        config.Sweep
	now        func() time.Time
	running    sync.Mutex
}

// CompleteTimeout bounds the terminal write of a claimed post. It runs
// detached from the sweep's cancellation.
const CompleteTimeout = 10 * time.Second

func NewSweepJob(
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	tokens service.TokenService,
	publishers *publisher.Registry,
	cfg config.Sweep,
	now func() time.Time) *SweepJob {
	if now == nil {
		now = time.Now
	}
	return &SweepJob{
		posts:      posts,
		accounts:   accounts,
		tokens:     tokens,
		publishers: publishers,
		cfg:        cfg,
		now:        now,
	}
}

// Sweep claims each due post, publishes it to its platforms and records one
// terminal status per post. Only failing to load the due batch is an error;
// everything after that is reported per post in the summary.
func (j *SweepJob) Sweep(ctx context.Context) (*models.SweepSummary, error) {
	now := j.now()
	summary := &models.SweepSummary{Results: []models.PostResult{}}

	if j.cfg.ClaimTTL > 0 {
		stale, err := j.posts.FailStale(ctx, now.Add(-j.cfg.ClaimTTL), now)
		if err != nil {
			logger.L().Warnf("failed to release stale claims: %v", err)
		} else if stale > 0 {
			logger.L().Warnf("marked %d stale publishing posts as failed", stale)
		}
	}

	due, err := j.posts.ListDue(ctx, now, j.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due posts: %w", err)
	}
	if len(due) == 0 {
		return summary, nil
	}

	accounts, err := j.accounts.ListConnectedByUserIDs(ctx, ownerIDs(due))
	if err != nil {
		return nil, fmt.Errorf("failed to load connected accounts: %w", err)
	}

	logger.L().Infof("sweep found %d due posts", len(due))

	results := make([]*models.PostResult, len(due))

	eg := new(errgroup.Group)
	eg.SetLimit(max(j.cfg.PostConcurrency, 1))
	for i, post := range due {
		i, post := i, post
		eg.Go(func() error {
			results[i] = j.processPost(ctx, post, accounts[post.UserID], now)
			return nil
		})
	}
	_ = eg.Wait()

	for _, r := range results {
		if r != nil {
			summary.Results = append(summary.Results, *r)
		}
	}
	summary.Processed = len(summary.Results)

	logger.L().Infof("sweep processed %d of %d due posts", summary.Processed, len(due))
	return summary, nil
}

// processPost returns nil when another sweep already owns the post.
func (j *SweepJob) processPost(ctx context.Context, post *models.Post, accounts []*models.SocialAccount, now time.Time) (result *models.PostResult) {
	entry := logger.L().WithField("post_id", post.ID)
	claimed := false

	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("panic while publishing post: %v\n%s", r, debug.Stack())
			if !claimed {
				result = &models.PostResult{PostID: post.ID, Status: post.Status, Platforms: []models.PublishOutcome{}, Error: fmt.Sprintf("unexpected error: %v", r)}
				return
			}
			result = j.failPost(ctx, post, fmt.Sprintf("unexpected error: %v", r), now)
		}
	}()

	ok, err := j.posts.Claim(ctx, post.ID, post.Version, now)
	if err != nil {
		entry.Errorf("failed to claim post: %v", err)
		return &models.PostResult{
			PostID:    post.ID,
			Status:    post.Status,
			Platforms: []models.PublishOutcome{},
			Error:     fmt.Sprintf("failed to claim post: %v", err),
		}
	}
	if !ok {
		entry.Info("post already claimed by another sweep, skipping")
		return nil
	}
	claimed = true

	outcomes := j.publishAll(ctx, post, accounts)
	return j.complete(ctx, post, outcomes, now)
}

func (j *SweepJob) publishAll(ctx context.Context, post *models.Post, accounts []*models.SocialAccount) []models.PublishOutcome {
	targets := post.TargetPlatforms()
	outcomes := make([]models.PublishOutcome, len(targets))

	eg := new(errgroup.Group)
	for i, platform := range targets {
		i, platform := i, platform
		eg.Go(func() error {
			outcomes[i] = j.publishTo(ctx, post, platform, accounts)
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

// publishTo never panics and always yields exactly one outcome.
func (j *SweepJob) publishTo(ctx context.Context, post *models.Post, platform models.Platform, accounts []*models.SocialAccount) (outcome models.PublishOutcome) {
	entry := logger.L().WithFields(log.Fields{"post_id": post.ID, "platform": platform})

	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("panic while publishing: %v\n%s", r, debug.Stack())
			outcome = models.Failed(platform, fmt.Sprintf("unexpected error: %v", r))
		}
		if !outcome.Success {
			entry.Warnf("publish failed: %s", outcome.Error)
		}
	}()

	pub, ok := j.publishers.Get(platform)
	if !ok {
		return models.Failed(platform, fmt.Sprintf("Platform %s is not supported", platform))
	}

	found := connectedAccount(accounts, platform)
	if found == nil {
		return models.Failed(platform, fmt.Sprintf("No connected account for %s", platform))
	}
	account := *found

	req := &publisher.Request{PostID: post.ID, Text: post.Content, MediaURL: post.MediaURL}
	if err := pub.Validate(req); err != nil {
		return models.Failed(platform, err.Error())
	}

	expired := j.tokens.Expired(&account)
	refreshCtx, cancel := j.callContext(ctx)
	creds, err := j.tokens.Ensure(refreshCtx, &account)
	cancel()
	if err != nil {
		if expired {
			return models.Failed(platform, fmt.Sprintf("token refresh failed: %v", err))
		}
		return models.Failed(platform, fmt.Sprintf("unexpected error: %v", err))
	}

	publishCtx, cancel := j.publishContext(ctx, pub)
	defer cancel()
	platformPostID, err := pub.Publish(publishCtx, creds, req)
	if err != nil {
		return models.Failed(platform, err.Error())
	}

	entry.WithField("platform_post_id", platformPostID).Info("published")
	return models.Succeeded(platform, platformPostID)
}

func (j *SweepJob) complete(ctx context.Context, post *models.Post, outcomes []models.PublishOutcome, now time.Time) *models.PostResult {
	status := models.DeriveStatus(outcomes)
	metrics := make(models.PostMetrics, len(outcomes))
	for _, o := range outcomes {
		metrics[o.Platform] = o
	}

	completion := &models.PostCompletion{PostID: post.ID, Status: status, Metrics: metrics}
	if status != models.PostStatusFailed {
		publishedAt := now
		completion.PublishedAt = &publishedAt
	}

	// the platforms have already answered; a canceled sweep must not drop the record
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CompleteTimeout)
	defer cancel()

	result := &models.PostResult{PostID: post.ID, Status: status, Platforms: outcomes}
	if err := j.posts.Complete(writeCtx, completion, now); err != nil {
		logger.L().WithField("post_id", post.ID).Errorf("failed to store publish result: %v", err)
		result.Error = fmt.Sprintf("failed to store publish result: %v", err)
	}
	return result
}

// failPost records every target platform as failed with reason.
func (j *SweepJob) failPost(ctx context.Context, post *models.Post, reason string, now time.Time) *models.PostResult {
	targets := post.TargetPlatforms()
	outcomes := make([]models.PublishOutcome, 0, len(targets))
	for _, platform := range targets {
		outcomes = append(outcomes, models.Failed(platform, reason))
	}
	result := j.complete(ctx, post, outcomes, now)
	if result.Error == "" {
		result.Error = reason
	}
	return result
}

func (j *SweepJob) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if j.cfg.PlatformCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, j.cfg.PlatformCallTimeout)
}

// publishContext lets a slow publisher, such as a video upload, replace the
// per-call timeout with its own.
func (j *SweepJob) publishContext(ctx context.Context, pub publisher.Publisher) (context.Context, context.CancelFunc) {
	if slow, ok := pub.(publisher.SlowPublisher); ok && slow.CallTimeout() > 0 {
		return context.WithTimeout(ctx, slow.CallTimeout())
	}
	return j.callContext(ctx)
}

// connectedAccount returns the first connected account for platform.
func connectedAccount(accounts []*models.SocialAccount, platform models.Platform) *models.SocialAccount {
	for _, a := range accounts {
		if a.Platform == platform && a.AccountStatus == models.AccountStatusConnected {
			return a
		}
	}
	return nil
}

func ownerIDs(posts []*models.Post) []int64 {
	seen := make(map[int64]struct{}, len(posts))
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}
	return ids
}

// RunScheduled runs a sweep for a timer tick, skipping the tick if the
// previous sweep in this process is still running.
func (j *SweepJob) RunScheduled(ctx context.Context) {
	if !j.running.TryLock() {
		logger.L().Warn("previous sweep still running, skipping tick")
		return
	}
	defer j.running.Unlock()

	if _, err := j.Sweep(ctx); err != nil {
		logger.L().Errorf("scheduled sweep failed: %v", err)
	}
}

// Drain blocks until a scheduled sweep in progress has finished.
func (j *SweepJob) Drain() {
	j.running.Lock()
	defer j.running.Unlock()
}
