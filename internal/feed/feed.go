package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/stats"
	"github.com/inkwell-social/inkwell/internal/util"
	"gorm.io/gorm"
)

// ErrUnauthorized is returned when Rank is called without a viewer
var ErrUnauthorized = errors.New("feed: viewer not authenticated")

// DefaultLimit is the page size used when the caller does not specify one
const DefaultLimit = 20

// Service generates personalized, ranked feeds. It is a pure read path:
// one invocation issues batched reads against the store, scores the
// candidates in memory, and returns a page. No state survives the call.
type Service struct {
	db    *gorm.DB
	stats *stats.Aggregator
}

// NewService creates a new feed ranking service
func NewService(db *gorm.DB, aggregator *stats.Aggregator) *Service {
	return &Service{db: db, stats: aggregator}
}

// RankOptions controls pagination of the ranked feed
type RankOptions struct {
	Limit  int
	Offset int
}

// RankedPost is a scored post shaped for the feed response
type RankedPost struct {
	ID          string               `json:"id"`
	AuthorID    string               `json:"author_id"`
	Author      models.AuthorSummary `json:"author"`
	PostType    models.PostType      `json:"post_type"`
	Content     string               `json:"content"`
	IsSensitive bool                 `json:"is_sensitive"`
	IsPinned    bool                 `json:"is_pinned"`
	IsOwn       bool                 `json:"is_own"`
	CreatedAt   string               `json:"created_at"`   // humanized relative time
	PublishedAt string               `json:"published_at"` // RFC 3339

	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
	ReblogCount  int `json:"reblog_count"`

	HasLiked     bool `json:"has_liked"`
	HasCommented bool `json:"has_commented"`
	HasReblogged bool `json:"has_reblogged"`

	Tags   []stats.TagRef `json:"tags"`
	Score  float64        `json:"score"`
	Reason Reason         `json:"reason"`
}

// RankMeta reports how many candidates each source contributed
type RankMeta struct {
	TaggedCount   int `json:"tagged_count"`
	FollowedCount int `json:"followed_count"`
	PopularCount  int `json:"popular_count"`
}

// RankResult is the outcome of one ranking invocation
type RankResult struct {
	Posts   []RankedPost `json:"posts"`
	HasMore bool         `json:"has_more"`
	Meta    RankMeta     `json:"meta"`
}

// preferences is the viewer state gathered in phase 1
type preferences struct {
	followedTagIDs  []string
	likedPostIDs    []string // most recent first
	followedUserIDs []string
	showSensitive   bool
}

// candidate is the per-invocation working state for one post
type candidate struct {
	post             models.Post
	reason           Reason
	tagRelevance     float64
	fromFollowedUser bool
	score            float64

	// filled from the engagement snapshot in phase 4
	likeCount    int
	commentCount int
	reblogCount  int
	hasLiked     bool
	hasCommented bool
	hasReblogged bool
	tags         []stats.TagRef
}

// Rank produces a deduplicated, diversified, score-ordered page of
// recommended posts for the viewer. Any upstream failure aborts the whole
// computation; a partially computed ranking is never returned.
func (s *Service) Rank(ctx context.Context, viewerID string, opts RankOptions) (*RankResult, error) {
	if viewerID == "" {
		return nil, ErrUnauthorized
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	now := time.Now()

	// Phase 1: viewer preferences
	prefs, err := s.gatherPreferences(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("gather preferences: %w", err)
	}

	// Phase 2: interest tags derived from recent likes
	interestWeights, taggedPostTags, err := s.deriveInterests(ctx, prefs)
	if err != nil {
		return nil, fmt.Errorf("derive interests: %w", err)
	}

	// Phase 3: candidate sourcing with dedup precedence
	candidates, meta, err := s.collectCandidates(ctx, viewerID, prefs, interestWeights, taggedPostTags)
	if err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}
	if len(candidates) == 0 {
		return &RankResult{Posts: []RankedPost{}, HasMore: false, Meta: meta}, nil
	}

	// Phase 4: engagement snapshot and scoring
	if err := s.scoreCandidates(ctx, viewerID, prefs, candidates, now); err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}

	// Phase 5: diversity and pagination
	posts, hasMore := diversify(candidates, opts)

	return &RankResult{Posts: posts, HasMore: hasMore, Meta: meta}, nil
}

// gatherPreferences runs the four independent preference reads concurrently
func (s *Service) gatherPreferences(ctx context.Context, viewerID string) (*preferences, error) {
	prefs := &preferences{}

	type prefResult struct {
		name string
		err  error
	}
	resultsChan := make(chan prefResult, 4)

	go func() {
		err := s.db.WithContext(ctx).Model(&models.TagFollow{}).
			Where("user_id = ?", viewerID).
			Pluck("tag_id", &prefs.followedTagIDs).Error
		resultsChan <- prefResult{name: "followed_tags", err: err}
	}()

	go func() {
		err := s.db.WithContext(ctx).Model(&models.Like{}).
			Where("user_id = ?", viewerID).
			Order("created_at DESC").
			Limit(likeHistoryLimit).
			Pluck("post_id", &prefs.likedPostIDs).Error
		resultsChan <- prefResult{name: "recent_likes", err: err}
	}()

	go func() {
		err := s.db.WithContext(ctx).Model(&models.Follow{}).
			Where("follower_id = ?", viewerID).
			Pluck("following_id", &prefs.followedUserIDs).Error
		resultsChan <- prefResult{name: "followed_users", err: err}
	}()

	go func() {
		var viewer models.User
		err := s.db.WithContext(ctx).Select("show_sensitive_posts").
			First(&viewer, "id = ?", viewerID).Error
		prefs.showSensitive = viewer.ShowSensitivePosts
		resultsChan <- prefResult{name: "viewer_settings", err: err}
	}()

	for i := 0; i < 4; i++ {
		r := <-resultsChan
		if r.err != nil {
			return nil, fmt.Errorf("%s: %w", r.name, r.err)
		}
	}

	return prefs, nil
}

// deriveInterests builds the interest-tag weights from the viewer's recent
// likes and the post→tags mapping covering every followed or interest tag.
func (s *Service) deriveInterests(ctx context.Context, prefs *preferences) (map[string]float64, map[string][]string, error) {
	interestWeights := make(map[string]float64)
	taggedPostTags := make(map[string][]string)

	type memberRow struct {
		PostID string
		TagID  string
	}

	// Tag memberships of the liked posts and of the followed tags are
	// independent reads.
	var likedRows, followedRows []memberRow

	type fetchResult struct {
		name string
		err  error
	}
	resultsChan := make(chan fetchResult, 2)

	go func() {
		var err error
		if len(prefs.likedPostIDs) > 0 {
			err = s.db.WithContext(ctx).Model(&models.PostTag{}).
				Select("post_id, tag_id").
				Where("post_id IN ?", prefs.likedPostIDs).
				Scan(&likedRows).Error
		}
		resultsChan <- fetchResult{name: "liked_post_tags", err: err}
	}()

	go func() {
		var err error
		if len(prefs.followedTagIDs) > 0 {
			err = s.db.WithContext(ctx).Model(&models.PostTag{}).
				Select("post_id, tag_id").
				Where("tag_id IN ?", prefs.followedTagIDs).
				Scan(&followedRows).Error
		}
		resultsChan <- fetchResult{name: "followed_tag_posts", err: err}
	}()

	for i := 0; i < 2; i++ {
		r := <-resultsChan
		if r.err != nil {
			return nil, nil, fmt.Errorf("%s: %w", r.name, r.err)
		}
	}

	// Each liking event contributes its recency weight to every tag the
	// liked post carries; a tag liked via several posts accumulates.
	likeIndex := make(map[string]int, len(prefs.likedPostIDs))
	for i, id := range prefs.likedPostIDs {
		likeIndex[id] = i
	}
	for _, row := range likedRows {
		if i, ok := likeIndex[row.PostID]; ok {
			interestWeights[row.TagID] += likeWeight(i)
		}
	}

	for _, row := range followedRows {
		taggedPostTags[row.PostID] = append(taggedPostTags[row.PostID], row.TagID)
	}

	// Interest tags that are not already followed need their own post
	// memberships merged in.
	followedTagSet := make(map[string]bool, len(prefs.followedTagIDs))
	for _, id := range prefs.followedTagIDs {
		followedTagSet[id] = true
	}
	var interestOnly []string
	for tagID := range interestWeights {
		if !followedTagSet[tagID] {
			interestOnly = append(interestOnly, tagID)
		}
	}
	if len(interestOnly) > 0 {
		var interestRows []memberRow
		err := s.db.WithContext(ctx).Model(&models.PostTag{}).
			Select("post_id, tag_id").
			Where("tag_id IN ?", interestOnly).
			Scan(&interestRows).Error
		if err != nil {
			return nil, nil, fmt.Errorf("interest_tag_posts: %w", err)
		}
		for _, row := range interestRows {
			taggedPostTags[row.PostID] = append(taggedPostTags[row.PostID], row.TagID)
		}
	}

	return interestWeights, taggedPostTags, nil
}

// collectCandidates issues the three candidate queries concurrently and
// merges them in fixed precedence order: tagged, then followed-user, then
// popular. A post id seen by an earlier source is skipped in later ones.
func (s *Service) collectCandidates(
	ctx context.Context,
	viewerID string,
	prefs *preferences,
	interestWeights map[string]float64,
	taggedPostTags map[string][]string,
) ([]*candidate, RankMeta, error) {
	var taggedPosts, followedPosts, popularPosts []models.Post

	type sourceResult struct {
		name string
		err  error
	}
	resultsChan := make(chan sourceResult, 3)

	go func() {
		var err error
		if len(taggedPostTags) > 0 {
			ids := make([]string, 0, len(taggedPostTags))
			for id := range taggedPostTags {
				ids = append(ids, id)
				if len(ids) == maxTaggedPostIDs {
					break
				}
			}
			cutoff := time.Now().AddDate(0, 0, -taggedWindowDays)
			err = s.db.WithContext(ctx).Preload("User").
				Where("id IN ? AND status = ? AND user_id != ? AND published_at > ?",
					ids, models.PostStatusPublished, viewerID, cutoff).
				Order("published_at DESC").
				Find(&taggedPosts).Error
		}
		resultsChan <- sourceResult{name: "tagged", err: err}
	}()

	go func() {
		var err error
		if len(prefs.followedUserIDs) > 0 {
			err = s.db.WithContext(ctx).Preload("User").
				Where("user_id IN ? AND user_id != ? AND status = ?",
					prefs.followedUserIDs, viewerID, models.PostStatusPublished).
				Order("published_at DESC").
				Limit(followedUserLimit).
				Find(&followedPosts).Error
		}
		resultsChan <- sourceResult{name: "followed", err: err}
	}()

	go func() {
		err := s.db.WithContext(ctx).Preload("User").
			Where("status = ? AND user_id != ?", models.PostStatusPublished, viewerID).
			Order("published_at DESC").
			Limit(popularLimit).
			Find(&popularPosts).Error
		resultsChan <- sourceResult{name: "popular", err: err}
	}()

	for i := 0; i < 3; i++ {
		r := <-resultsChan
		if r.err != nil {
			return nil, RankMeta{}, fmt.Errorf("%s posts: %w", r.name, r.err)
		}
	}

	followedTagSet := make(map[string]bool, len(prefs.followedTagIDs))
	for _, id := range prefs.followedTagIDs {
		followedTagSet[id] = true
	}
	followedUserSet := make(map[string]bool, len(prefs.followedUserIDs))
	for _, id := range prefs.followedUserIDs {
		followedUserSet[id] = true
	}

	seen := make(map[string]bool)
	var candidates []*candidate
	meta := RankMeta{}

	admit := func(post models.Post, reason Reason, tagRelevance float64) {
		if seen[post.ID] {
			return
		}
		seen[post.ID] = true
		if post.IsSensitive && !prefs.showSensitive {
			return
		}
		candidates = append(candidates, &candidate{
			post:             post,
			reason:           reason,
			tagRelevance:     tagRelevance,
			fromFollowedUser: followedUserSet[post.UserID],
		})
	}

	for _, post := range taggedPosts {
		reason := ReasonSimilarInterest
		relevance := 0.0
		hasFollowedTag := false
		for _, tagID := range taggedPostTags[post.ID] {
			if followedTagSet[tagID] {
				hasFollowedTag = true
			}
			relevance += interestWeights[tagID]
		}
		if hasFollowedTag {
			reason = ReasonFollowedTag
			relevance = followedTagRelevance
		}
		admit(post, reason, relevance)
		meta.TaggedCount++
	}

	for _, post := range followedPosts {
		admit(post, ReasonFollowedUser, 0)
		meta.FollowedCount++
	}

	for _, post := range popularPosts {
		admit(post, ReasonPopular, 0)
		meta.PopularCount++
	}

	return candidates, meta, nil
}

// scoreCandidates fetches the engagement snapshot and author follower
// counts concurrently, then applies the scoring formula to every candidate.
func (s *Service) scoreCandidates(
	ctx context.Context,
	viewerID string,
	prefs *preferences,
	candidates []*candidate,
	now time.Time,
) error {
	postIDs := make([]string, len(candidates))
	authorSet := make(map[string]bool)
	for i, c := range candidates {
		postIDs[i] = c.post.ID
		authorSet[c.post.UserID] = true
	}
	authorIDs := make([]string, 0, len(authorSet))
	for id := range authorSet {
		authorIDs = append(authorIDs, id)
	}

	var (
		snapshot       *stats.PostStats
		followerCounts map[string]int
	)

	type fetchResult struct {
		name string
		err  error
	}
	resultsChan := make(chan fetchResult, 2)

	go func() {
		var err error
		snapshot, err = s.stats.PostStats(ctx, postIDs, viewerID)
		resultsChan <- fetchResult{name: "post_stats", err: err}
	}()

	go func() {
		var err error
		followerCounts, err = s.stats.AuthorFollowerCounts(ctx, authorIDs)
		resultsChan <- fetchResult{name: "follower_counts", err: err}
	}()

	for i := 0; i < 2; i++ {
		r := <-resultsChan
		if r.err != nil {
			return fmt.Errorf("%s: %w", r.name, r.err)
		}
	}

	followedTagSet := make(map[string]bool, len(prefs.followedTagIDs))
	for _, id := range prefs.followedTagIDs {
		followedTagSet[id] = true
	}

	for _, c := range candidates {
		id := c.post.ID
		c.likeCount = snapshot.LikeCounts[id]
		c.commentCount = snapshot.CommentCounts[id]
		c.reblogCount = snapshot.ReblogCounts[id]
		c.hasLiked = snapshot.ViewerLiked[id]
		c.hasCommented = snapshot.ViewerComment[id]
		c.hasReblogged = snapshot.ViewerReblog[id]
		c.tags = snapshot.Tags[id]

		// A post that carries a followed tag may have arrived through the
		// followed-user or popular source; upgrade its reason before scoring.
		if c.reason != ReasonFollowedTag {
			for _, tag := range c.tags {
				if followedTagSet[tag.ID] {
					c.reason = ReasonFollowedTag
					break
				}
			}
		}

		c.score = score(scoreInputs{
			likes:            c.likeCount,
			comments:         c.commentCount,
			reblogs:          c.reblogCount,
			hoursOld:         hoursSince(c.post.EffectivePublishedAt(), now),
			reason:           c.reason,
			tagRelevance:     c.tagRelevance,
			authorFollowers:  followerCounts[c.post.UserID],
			fromFollowedUser: c.fromFollowedUser,
			viewerInteracted: c.hasLiked || c.hasCommented || c.hasReblogged,
		})
	}

	return nil
}

// diversify sorts candidates by score, caps posts per author, and cuts the
// requested page. The walk stops a lookahead past the page end so HasMore
// can be answered without diversifying the entire pool.
func diversify(candidates []*candidate, opts RankOptions) ([]RankedPost, bool) {
	// Stable sort keeps source-merge order for equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	target := opts.Offset + opts.Limit + hasMoreLookahead
	authorCounts := make(map[string]int)
	diverse := make([]*candidate, 0, target)

	for _, c := range candidates {
		if authorCounts[c.post.UserID] >= maxPostsPerAuthor {
			continue
		}
		authorCounts[c.post.UserID]++
		diverse = append(diverse, c)
		if len(diverse) >= target {
			break
		}
	}

	hasMore := len(diverse) > opts.Offset+opts.Limit

	start := opts.Offset
	if start > len(diverse) {
		start = len(diverse)
	}
	end := opts.Offset + opts.Limit
	if end > len(diverse) {
		end = len(diverse)
	}

	page := diverse[start:end]
	posts := make([]RankedPost, len(page))
	for i, c := range page {
		posts[i] = c.rankedPost()
	}
	return posts, hasMore
}

// rankedPost shapes a scored candidate for the API response
func (c *candidate) rankedPost() RankedPost {
	tags := c.tags
	if tags == nil {
		tags = []stats.TagRef{}
	}
	return RankedPost{
		ID:           c.post.ID,
		AuthorID:     c.post.UserID,
		Author:       c.post.User.Summary(),
		PostType:     c.post.PostType,
		Content:      c.post.Content,
		IsSensitive:  c.post.IsSensitive,
		IsPinned:     c.post.IsPinned,
		IsOwn:        false,
		CreatedAt:    util.RelativeTime(c.post.CreatedAt),
		PublishedAt:  c.post.EffectivePublishedAt().UTC().Format(time.RFC3339),
		LikeCount:    c.likeCount,
		CommentCount: c.commentCount,
		ReblogCount:  c.reblogCount,
		HasLiked:     c.hasLiked,
		HasCommented: c.hasCommented,
		HasReblogged: c.hasReblogged,
		Tags:         tags,
		Score:        c.score,
		Reason:       c.reason,
	}
}
