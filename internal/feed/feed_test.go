package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/stats"
	"github.com/inkwell-social/inkwell/internal/testutil"
)

type FeedTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *Service
	viewer  *models.User
}

func TestFeedTestSuite(t *testing.T) {
	suite.Run(t, new(FeedTestSuite))
}

func (suite *FeedTestSuite) SetupTest() {
	suite.db = testutil.OpenDB(suite.T())
	suite.service = NewService(suite.db, stats.NewAggregator(suite.db))
	suite.viewer = suite.createUser("viewer")
}

func (suite *FeedTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       fmt.Sprintf("%s@test.com", username),
		Username:    username,
		DisplayName: username,
	}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	return user
}

func (suite *FeedTestSuite) createPost(author *models.User, publishedAgo time.Duration) *models.Post {
	publishedAt := time.Now().Add(-publishedAgo)
	post := &models.Post{
		UserID:      author.ID,
		PostType:    models.PostTypeText,
		Content:     "post content",
		Status:      models.PostStatusPublished,
		PublishedAt: &publishedAt,
	}
	require.NoError(suite.T(), suite.db.Create(post).Error)
	return post
}

func (suite *FeedTestSuite) createTag(name string) *models.Tag {
	tag := &models.Tag{Name: name, LastUsedAt: time.Now()}
	require.NoError(suite.T(), suite.db.Create(tag).Error)
	return tag
}

func (suite *FeedTestSuite) tagPost(post *models.Post, tag *models.Tag) {
	require.NoError(suite.T(), suite.db.Create(&models.PostTag{PostID: post.ID, TagID: tag.ID}).Error)
}

func (suite *FeedTestSuite) follow(follower, following *models.User) {
	require.NoError(suite.T(), suite.db.Create(&models.Follow{
		FollowerID:  follower.ID,
		FollowingID: following.ID,
	}).Error)
}

func (suite *FeedTestSuite) followTag(user *models.User, tag *models.Tag) {
	require.NoError(suite.T(), suite.db.Create(&models.TagFollow{UserID: user.ID, TagID: tag.ID}).Error)
}

func (suite *FeedTestSuite) like(user *models.User, post *models.Post) {
	require.NoError(suite.T(), suite.db.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error)
}

func (suite *FeedTestSuite) rank(opts RankOptions) *RankResult {
	result, err := suite.service.Rank(context.Background(), suite.viewer.ID, opts)
	require.NoError(suite.T(), err)
	return result
}

func (suite *FeedTestSuite) TestRankRequiresViewer() {
	_, err := suite.service.Rank(context.Background(), "", RankOptions{})
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)
}

func (suite *FeedTestSuite) TestEmptyDatabaseYieldsEmptyFeed() {
	result := suite.rank(RankOptions{Limit: 20})

	assert.Empty(suite.T(), result.Posts)
	assert.False(suite.T(), result.HasMore)
}

func (suite *FeedTestSuite) TestOwnPostsExcluded() {
	suite.createPost(suite.viewer, time.Hour)
	other := suite.createUser("other")
	theirPost := suite.createPost(other, time.Hour)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.Equal(suite.T(), theirPost.ID, result.Posts[0].ID)
}

func (suite *FeedTestSuite) TestUnpublishedPostsExcluded() {
	author := suite.createUser("author")
	published := suite.createPost(author, time.Hour)

	draft := &models.Post{UserID: author.ID, Content: "draft", Status: models.PostStatusDraft}
	require.NoError(suite.T(), suite.db.Create(draft).Error)
	queued := &models.Post{UserID: author.ID, Content: "queued", Status: models.PostStatusQueued}
	require.NoError(suite.T(), suite.db.Create(queued).Error)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.Equal(suite.T(), published.ID, result.Posts[0].ID)
}

func (suite *FeedTestSuite) TestSensitivePostsHiddenByDefault() {
	author := suite.createUser("author")
	safe := suite.createPost(author, time.Hour)
	sensitive := suite.createPost(author, time.Hour)
	require.NoError(suite.T(), suite.db.Model(sensitive).Update("is_sensitive", true).Error)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.Equal(suite.T(), safe.ID, result.Posts[0].ID)
}

func (suite *FeedTestSuite) TestSensitivePostsShownWhenOptedIn() {
	require.NoError(suite.T(), suite.db.Model(suite.viewer).Update("show_sensitive_posts", true).Error)

	author := suite.createUser("author")
	sensitive := suite.createPost(author, time.Hour)
	require.NoError(suite.T(), suite.db.Model(sensitive).Update("is_sensitive", true).Error)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.True(suite.T(), result.Posts[0].IsSensitive)
}

func (suite *FeedTestSuite) TestFollowedUserReason() {
	followed := suite.createUser("followed")
	suite.follow(suite.viewer, followed)
	suite.createPost(followed, time.Hour)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.Equal(suite.T(), ReasonFollowedUser, result.Posts[0].Reason)
	assert.Equal(suite.T(), followed.Username, result.Posts[0].Author.Username)
}

func (suite *FeedTestSuite) TestFollowedTagReason() {
	author := suite.createUser("author")
	tag := suite.createTag("poetry")
	suite.followTag(suite.viewer, tag)

	post := suite.createPost(author, time.Hour)
	suite.tagPost(post, tag)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.Equal(suite.T(), ReasonFollowedTag, result.Posts[0].Reason)
	require.Len(suite.T(), result.Posts[0].Tags, 1)
	assert.Equal(suite.T(), "poetry", result.Posts[0].Tags[0].Name)
}

func (suite *FeedTestSuite) TestSimilarInterestReason() {
	author := suite.createUser("author")
	tag := suite.createTag("gardening")

	// Viewer liked an older post carrying the tag; a new post with the same
	// tag should surface as a similar-interest recommendation.
	likedPost := suite.createPost(author, 48*time.Hour)
	suite.tagPost(likedPost, tag)
	suite.like(suite.viewer, likedPost)

	fresh := suite.createPost(author, time.Hour)
	suite.tagPost(fresh, tag)

	result := suite.rank(RankOptions{Limit: 20})

	reasons := make(map[string]Reason)
	for _, p := range result.Posts {
		reasons[p.ID] = p.Reason
	}
	assert.Equal(suite.T(), ReasonSimilarInterest, reasons[fresh.ID])
}

func (suite *FeedTestSuite) TestReasonUpgradedForFollowedTag() {
	// A post arriving through the followed-user source still reports
	// followed_tag when it carries a tag the viewer follows.
	followed := suite.createUser("followed")
	suite.follow(suite.viewer, followed)

	tag := suite.createTag("essays")
	suite.followTag(suite.viewer, tag)

	post := suite.createPost(followed, time.Hour)
	suite.tagPost(post, tag)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.Equal(suite.T(), ReasonFollowedTag, result.Posts[0].Reason)
}

func (suite *FeedTestSuite) TestDuplicateSourcesYieldOnePost() {
	// Followed user whose post also carries a followed tag: one entry only
	followed := suite.createUser("followed")
	suite.follow(suite.viewer, followed)
	tag := suite.createTag("photography")
	suite.followTag(suite.viewer, tag)

	post := suite.createPost(followed, time.Hour)
	suite.tagPost(post, tag)

	result := suite.rank(RankOptions{Limit: 20})

	assert.Len(suite.T(), result.Posts, 1)
	assert.GreaterOrEqual(suite.T(), result.Meta.TaggedCount, 1)
	assert.GreaterOrEqual(suite.T(), result.Meta.FollowedCount, 1)
}

func (suite *FeedTestSuite) TestAuthorDiversityCap() {
	prolific := suite.createUser("prolific")
	suite.follow(suite.viewer, prolific)
	for i := 0; i < 6; i++ {
		suite.createPost(prolific, time.Duration(i+1)*time.Hour)
	}

	quiet := suite.createUser("quiet")
	suite.createPost(quiet, time.Hour)

	result := suite.rank(RankOptions{Limit: 20})

	perAuthor := make(map[string]int)
	for _, p := range result.Posts {
		perAuthor[p.AuthorID]++
	}
	assert.Equal(suite.T(), 2, perAuthor[prolific.ID])
	assert.Equal(suite.T(), 1, perAuthor[quiet.ID])
}

func (suite *FeedTestSuite) TestInteractedPostsRankLower() {
	authorA := suite.createUser("author_a")
	authorB := suite.createUser("author_b")
	publishedAt := time.Now().Add(-2 * time.Hour)

	seen := suite.createPost(authorA, 0)
	fresh := suite.createPost(authorB, 0)
	// identical timestamps so only the interaction flag differs
	require.NoError(suite.T(), suite.db.Model(seen).Update("published_at", publishedAt).Error)
	require.NoError(suite.T(), suite.db.Model(fresh).Update("published_at", publishedAt).Error)

	suite.like(suite.viewer, seen)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 2)
	assert.Equal(suite.T(), fresh.ID, result.Posts[0].ID)
	assert.Equal(suite.T(), seen.ID, result.Posts[1].ID)
	assert.True(suite.T(), result.Posts[1].HasLiked)
	assert.Greater(suite.T(), result.Posts[0].Score, result.Posts[1].Score)
}

func (suite *FeedTestSuite) TestNewerPostsRankHigher() {
	authorA := suite.createUser("author_a")
	authorB := suite.createUser("author_b")

	older := suite.createPost(authorA, 200*time.Hour)
	newer := suite.createPost(authorB, time.Hour)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 2)
	assert.Equal(suite.T(), newer.ID, result.Posts[0].ID)
	assert.Equal(suite.T(), older.ID, result.Posts[1].ID)
}

func (suite *FeedTestSuite) TestPagination() {
	for i := 0; i < 8; i++ {
		author := suite.createUser(fmt.Sprintf("author%d", i))
		suite.createPost(author, time.Duration(i+1)*time.Hour)
	}

	first := suite.rank(RankOptions{Limit: 5, Offset: 0})
	require.Len(suite.T(), first.Posts, 5)
	assert.True(suite.T(), first.HasMore)

	second := suite.rank(RankOptions{Limit: 5, Offset: 5})
	require.Len(suite.T(), second.Posts, 3)
	assert.False(suite.T(), second.HasMore)

	// The two pages must not overlap
	seen := make(map[string]bool)
	for _, p := range first.Posts {
		seen[p.ID] = true
	}
	for _, p := range second.Posts {
		assert.False(suite.T(), seen[p.ID], "post %s appeared on both pages", p.ID)
	}
}

func (suite *FeedTestSuite) TestOffsetPastEndIsEmpty() {
	author := suite.createUser("author")
	suite.createPost(author, time.Hour)

	result := suite.rank(RankOptions{Limit: 20, Offset: 100})

	assert.Empty(suite.T(), result.Posts)
	assert.False(suite.T(), result.HasMore)
}

func (suite *FeedTestSuite) TestEngagementCountsReturned() {
	author := suite.createUser("author")
	commenter := suite.createUser("commenter")
	post := suite.createPost(author, time.Hour)

	suite.like(commenter, post)
	require.NoError(suite.T(), suite.db.Create(&models.Comment{
		PostID:  post.ID,
		UserID:  commenter.ID,
		Content: "nice one",
	}).Error)
	require.NoError(suite.T(), suite.db.Create(&models.Reblog{
		UserID:         commenter.ID,
		OriginalPostID: post.ID,
	}).Error)

	result := suite.rank(RankOptions{Limit: 20})

	require.Len(suite.T(), result.Posts, 1)
	assert.Equal(suite.T(), 1, result.Posts[0].LikeCount)
	assert.Equal(suite.T(), 1, result.Posts[0].CommentCount)
	assert.Equal(suite.T(), 1, result.Posts[0].ReblogCount)
	assert.False(suite.T(), result.Posts[0].HasLiked)
}

func (suite *FeedTestSuite) TestDefaultLimitApplied() {
	for i := 0; i < 25; i++ {
		author := suite.createUser(fmt.Sprintf("author%d", i))
		suite.createPost(author, time.Duration(i+1)*time.Minute)
	}

	result := suite.rank(RankOptions{})

	assert.Len(suite.T(), result.Posts, DefaultLimit)
}
