package stats

import (
	"context"
	"fmt"

	"github.com/inkwell-social/inkwell/internal/models"
	"gorm.io/gorm"
)

// Aggregator batch-fetches engagement counts and viewer-interaction flags
// for sets of posts in a handful of grouped queries instead of per-post reads.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates a new stats aggregator
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// TagRef is the tag shape embedded in post payloads
type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PostStats holds per-post engagement counts, tags, and viewer flags for a
// batch of post ids. Missing keys mean zero / false.
type PostStats struct {
	LikeCounts    map[string]int
	CommentCounts map[string]int
	ReblogCounts  map[string]int
	Tags          map[string][]TagRef
	ViewerLiked   map[string]bool
	ViewerComment map[string]bool
	ViewerReblog  map[string]bool
}

type countRow struct {
	PostID string
	Count  int
}

type tagRow struct {
	PostID  string
	TagID   string
	TagName string
}

// PostStats fetches engagement snapshots for postIDs in one round trip.
// The grouped-count queries and the viewer-flag queries are independent and
// run concurrently; the first error aborts the batch.
func (a *Aggregator) PostStats(ctx context.Context, postIDs []string, viewerID string) (*PostStats, error) {
	result := &PostStats{
		LikeCounts:    make(map[string]int),
		CommentCounts: make(map[string]int),
		ReblogCounts:  make(map[string]int),
		Tags:          make(map[string][]TagRef),
		ViewerLiked:   make(map[string]bool),
		ViewerComment: make(map[string]bool),
		ViewerReblog:  make(map[string]bool),
	}
	if len(postIDs) == 0 {
		return result, nil
	}

	type fetchResult struct {
		name string
		err  error
	}
	resultsChan := make(chan fetchResult, 7)

	go func() {
		var rows []countRow
		err := a.db.WithContext(ctx).Model(&models.Like{}).
			Select("post_id, COUNT(*) as count").
			Where("post_id IN ?", postIDs).
			Group("post_id").
			Scan(&rows).Error
		for _, r := range rows {
			result.LikeCounts[r.PostID] = r.Count
		}
		resultsChan <- fetchResult{name: "like_counts", err: err}
	}()

	go func() {
		var rows []countRow
		err := a.db.WithContext(ctx).Model(&models.Comment{}).
			Select("post_id, COUNT(*) as count").
			Where("post_id IN ? AND is_deleted = ?", postIDs, false).
			Group("post_id").
			Scan(&rows).Error
		for _, r := range rows {
			result.CommentCounts[r.PostID] = r.Count
		}
		resultsChan <- fetchResult{name: "comment_counts", err: err}
	}()

	go func() {
		var rows []countRow
		err := a.db.WithContext(ctx).Model(&models.Reblog{}).
			Select("original_post_id as post_id, COUNT(*) as count").
			Where("original_post_id IN ?", postIDs).
			Group("original_post_id").
			Scan(&rows).Error
		for _, r := range rows {
			result.ReblogCounts[r.PostID] = r.Count
		}
		resultsChan <- fetchResult{name: "reblog_counts", err: err}
	}()

	go func() {
		var rows []tagRow
		err := a.db.WithContext(ctx).Model(&models.PostTag{}).
			Select("post_tags.post_id, tags.id as tag_id, tags.name as tag_name").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("post_tags.post_id IN ?", postIDs).
			Scan(&rows).Error
		for _, r := range rows {
			result.Tags[r.PostID] = append(result.Tags[r.PostID], TagRef{ID: r.TagID, Name: r.TagName})
		}
		resultsChan <- fetchResult{name: "tags", err: err}
	}()

	go func() {
		var ids []string
		err := a.db.WithContext(ctx).Model(&models.Like{}).
			Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
			Pluck("post_id", &ids).Error
		for _, id := range ids {
			result.ViewerLiked[id] = true
		}
		resultsChan <- fetchResult{name: "viewer_likes", err: err}
	}()

	go func() {
		var ids []string
		err := a.db.WithContext(ctx).Model(&models.Comment{}).
			Distinct("post_id").
			Where("user_id = ? AND post_id IN ? AND is_deleted = ?", viewerID, postIDs, false).
			Pluck("post_id", &ids).Error
		for _, id := range ids {
			result.ViewerComment[id] = true
		}
		resultsChan <- fetchResult{name: "viewer_comments", err: err}
	}()

	go func() {
		var ids []string
		err := a.db.WithContext(ctx).Model(&models.Reblog{}).
			Where("user_id = ? AND original_post_id IN ?", viewerID, postIDs).
			Pluck("original_post_id", &ids).Error
		for _, id := range ids {
			result.ViewerReblog[id] = true
		}
		resultsChan <- fetchResult{name: "viewer_reblogs", err: err}
	}()

	for i := 0; i < 7; i++ {
		r := <-resultsChan
		if r.err != nil {
			return nil, fmt.Errorf("stats fetch %s: %w", r.name, r.err)
		}
	}

	return result, nil
}

// AuthorFollowerCounts returns follower counts for the given author ids.
// Authors with no followers are absent from the map.
func (a *Aggregator) AuthorFollowerCounts(ctx context.Context, authorIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(authorIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		FollowingID string
		Count       int
	}
	err := a.db.WithContext(ctx).Model(&models.Follow{}).
		Select("following_id, COUNT(*) as count").
		Where("following_id IN ?", authorIDs).
		Group("following_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("follower counts: %w", err)
	}

	for _, r := range rows {
		counts[r.FollowingID] = r.Count
	}
	return counts, nil
}
