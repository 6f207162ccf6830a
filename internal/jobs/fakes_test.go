package job

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/publisher"
	"github.com/maheshrc27/postflow/internal/repository"
)

type fakePostRepo struct {
	repository.PostRepository

	mu            sync.Mutex
	posts         map[int64]*models.Post
	listErr       error
	listBarrier   *sync.WaitGroup
	claimErr      map[int64]error
	claimPanic    map[int64]bool
	completeErr   error
	completePanic map[int64]bool // panics once on the next Complete for a post
	completes     map[int64]int
	staleBefore   time.Time
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	r := &fakePostRepo{
		posts:      map[int64]*models.Post{},
		claimErr:   map[int64]error{},
		claimPanic:    map[int64]bool{},
		completePanic: map[int64]bool{},
		completes:     map[int64]int{},
	}
	for _, p := range posts {
		cp := *p
		r.posts[p.ID] = &cp
	}
	return r
}

func (r *fakePostRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	r.mu.Lock()
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	var due []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now) {
			cp := *p
			due = append(due, &cp)
		}
	}
	r.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledAt.Equal(*due[j].ScheduledAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].ScheduledAt.Before(*due[j].ScheduledAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	if r.listBarrier != nil {
		r.listBarrier.Done()
		r.listBarrier.Wait()
	}
	return due, nil
}

func (r *fakePostRepo) Claim(ctx context.Context, postID, version int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimPanic[postID] {
		panic("claim exploded")
	}
	if err := r.claimErr[postID]; err != nil {
		return false, err
	}
	p := r.posts[postID]
	if p == nil || p.Status != models.PostStatusScheduled || p.Version != version {
		return false, nil
	}
	p.Status = models.PostStatusPublishing
	p.Version++
	p.UpdatedAt = now
	return true, nil
}

func (r *fakePostRepo) Complete(ctx context.Context, c *models.PostCompletion, now time.Time) error {
	// database/sql refuses to run on a done context
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completePanic[c.PostID] {
		delete(r.completePanic, c.PostID)
		panic("complete exploded")
	}
	if r.completeErr != nil {
		return r.completeErr
	}
	p := r.posts[c.PostID]
	if p == nil || p.Status != models.PostStatusPublishing {
		return repository.ErrPostNotClaimed
	}
	p.Status = c.Status
	p.Metrics = c.Metrics
	p.PublishedAt = c.PublishedAt
	p.ScheduledAt = nil
	p.Version++
	p.UpdatedAt = now
	r.completes[c.PostID]++
	return nil
}

func (r *fakePostRepo) FailStale(ctx context.Context, before, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleBefore = before
	return 0, nil
}

func (r *fakePostRepo) get(id int64) models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.posts[id]
}

type fakeAccountRepo struct {
	repository.SocialAccountRepository

	byUser   map[int64][]*models.SocialAccount
	listErr  error
	expiring []*models.SocialAccount
}

func (r *fakeAccountRepo) ListConnectedByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]*models.SocialAccount, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make(map[int64][]*models.SocialAccount, len(userIDs))
	for _, id := range userIDs {
		if accts, ok := r.byUser[id]; ok {
			out[id] = accts
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.expiring, nil
}

type fakeTokens struct {
	expired bool
	err     error

	ensures   int32
	refreshes int32
}

func (f *fakeTokens) Ensure(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error) {
	atomic.AddInt32(&f.ensures, 1)
	if f.err != nil {
		return models.Credentials{}, f.err
	}
	return models.Credentials{AccessToken: sa.AccessToken, AccountID: sa.AccountID}, nil
}

func (f *fakeTokens) Refresh(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error) {
	atomic.AddInt32(&f.refreshes, 1)
	if f.err != nil {
		return models.Credentials{}, f.err
	}
	return models.Credentials{AccessToken: "refreshed-" + sa.AccessToken, AccountID: sa.AccountID}, nil
}

func (f *fakeTokens) Expired(sa *models.SocialAccount) bool { return f.expired }

type fakePublisher struct {
	platform models.Platform
	validate func(req *publisher.Request) error
	publish  func(ctx context.Context, creds models.Credentials, req *publisher.Request) (string, error)
	calls    int32
}

func (p *fakePublisher) Platform() models.Platform { return p.platform }

func (p *fakePublisher) Validate(req *publisher.Request) error {
	if p.validate != nil {
		return p.validate(req)
	}
	return nil
}

func (p *fakePublisher) Publish(ctx context.Context, creds models.Credentials, req *publisher.Request) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.publish != nil {
		return p.publish(ctx, creds, req)
	}
	return string(p.platform) + "_post", nil
}

func okPublisher(platform models.Platform, id string) *fakePublisher {
	return &fakePublisher{
		platform: platform,
		publish: func(ctx context.Context, creds models.Credentials, req *publisher.Request) (string, error) {
			return id, nil
		},
	}
}
