package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PublishOutcome is the result of one publish attempt on one platform. Build
// it with Succeeded or Failed so that a success always carries the
// platform's post id and a failure always carries a reason.
type PublishOutcome struct {
	Platform       Platform `json:"platform"`
	Success        bool     `json:"success"`
	PlatformPostID string   `json:"platformPostId,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func Succeeded(platform Platform, platformPostID string) PublishOutcome {
	return PublishOutcome{Platform: platform, Success: true, PlatformPostID: platformPostID}
}

func Failed(platform Platform, reason string) PublishOutcome {
	if reason == "" {
		reason = "unknown error"
	}
	return PublishOutcome{Platform: platform, Success: false, Error: reason}
}

// PostMetrics maps each targeted platform to its latest publish outcome.
// It is stored as a JSONB document on the post row.
type PostMetrics map[Platform]PublishOutcome

func (m PostMetrics) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *PostMetrics) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = PostMetrics{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metrics type %T", src)
	}

	metrics := PostMetrics{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &metrics); err != nil {
			return fmt.Errorf("invalid metrics document: %w", err)
		}
	}
	for platform, outcome := range metrics {
		if outcome.Platform == "" {
			outcome.Platform = platform
			metrics[platform] = outcome
		}
	}
	*m = metrics
	return nil
}

// DeriveStatus folds the per-platform outcomes into the post's terminal status.
func DeriveStatus(outcomes []PublishOutcome) PostStatus {
	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		}
	}
	switch {
	case succeeded == 0:
		return PostStatusFailed
	case succeeded == len(outcomes):
		return PostStatusPublished
	default:
		return PostStatusPartiallyPublished
	}
}

// PostResult is one post's entry in the sweep summary.
type PostResult struct {
	PostID    int64            `json:"postId"`
	Status    PostStatus       `json:"status"`
	Platforms []PublishOutcome `json:"platforms"`
	Error     string           `json:"error,omitempty"`
}

// SweepSummary is what one sweep returns to its trigger.
type SweepSummary struct {
	Processed int          `json:"processed"`
	Results   []PostResult `json:"results"`
}
