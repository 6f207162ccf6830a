package models

import (
	"time"
)

type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTiktok    Platform = "tiktok"
	PlatformSnapchat  Platform = "snapchat"
	PlatformYoutube   Platform = "youtube"
)

// KnownPlatforms lists the platform names a post may target.
var KnownPlatforms = []Platform{
	PlatformTwitter,
	PlatformFacebook,
	PlatformInstagram,
	PlatformLinkedIn,
	PlatformTiktok,
	PlatformSnapchat,
	PlatformYoutube,
}

func (p Platform) Valid() bool {
	for _, known := range KnownPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

type PostStatus string

const (
	PostStatusDraft              PostStatus = "draft"
	PostStatusScheduled          PostStatus = "scheduled"
	PostStatusPublishing         PostStatus = "publishing"
	PostStatusPublished          PostStatus = "published"
	PostStatusPartiallyPublished PostStatus = "partially_published"
	PostStatusFailed             PostStatus = "failed"
)

type Post struct {
	ID          int64       `db:"id" json:"id"`
	UserID      int64       `db:"user_id" json:"user_id"`
	Content     string      `db:"content" json:"content"`
	MediaURL    string      `db:"media_url" json:"media_url,omitempty"`
	Platforms   []Platform  `db:"platforms" json:"platforms"`
	Status      PostStatus  `db:"status" json:"status"`
	ScheduledAt *time.Time  `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt *time.Time  `db:"published_at" json:"published_at,omitempty"`
	Metrics     PostMetrics `db:"metrics" json:"metrics"`
	Version     int64       `db:"version" json:"-"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// TargetPlatforms returns the post's platforms with duplicates removed, in
// their original order.
func (p *Post) TargetPlatforms() []Platform {
	seen := make(map[Platform]struct{}, len(p.Platforms))
	targets := make([]Platform, 0, len(p.Platforms))
	for _, platform := range p.Platforms {
		if _, ok := seen[platform]; ok {
			continue
		}
		seen[platform] = struct{}{}
		targets = append(targets, platform)
	}
	return targets
}

// PostCompletion is the single terminal write the sweeper makes for a claimed post.
type PostCompletion struct {
	PostID      int64
	Status      PostStatus
	Metrics     PostMetrics
	PublishedAt *time.Time
}

type MediaAsset struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	FileSize  int64     `db:"file_size"`
	FileURL   string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}
