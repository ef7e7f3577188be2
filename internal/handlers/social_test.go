package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/stats"
	"github.com/inkwell-social/inkwell/internal/testutil"
)

// SocialTestSuite contains like, reblog, follow and block handler tests
type SocialTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	viewer   *models.User
	author   *models.User
	post     *models.Post
}

func TestSocialSuite(t *testing.T) {
	suite.Run(t, new(SocialTestSuite))
}

func (suite *SocialTestSuite) SetupTest() {
	suite.db = testutil.OpenDB(suite.T())
	database.DB = suite.db
	suite.handlers = NewHandlers(nil, nil, stats.NewAggregator(suite.db), nil)
	suite.viewer = suite.createUser("viewer")
	suite.author = suite.createUser("author")
	suite.post = suite.createPost(suite.author, models.PostStatusPublished)

	suite.router = gin.New()
	api := suite.router.Group("/api/v1")
	api.Use(mockAuth)
	api.POST("/posts/:id/like", suite.handlers.LikePost)
	api.DELETE("/posts/:id/like", suite.handlers.UnlikePost)
	api.POST("/posts/:id/reblog", suite.handlers.ReblogPost)
	api.DELETE("/posts/:id/reblog", suite.handlers.UnreblogPost)
	api.POST("/users/:id/follow", suite.handlers.FollowUser)
	api.DELETE("/users/:id/follow", suite.handlers.UnfollowUser)
	api.GET("/users/:id/followers", suite.handlers.GetFollowers)
	api.GET("/users/:id/following", suite.handlers.GetFollowing)
	api.POST("/users/:id/block", suite.handlers.BlockUser)
	api.DELETE("/users/:id/block", suite.handlers.UnblockUser)
}

func (suite *SocialTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       fmt.Sprintf("%s@test.com", username),
		Username:    username,
		DisplayName: username,
	}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	return user
}

func (suite *SocialTestSuite) createPost(author *models.User, status models.PostStatus) *models.Post {
	now := time.Now()
	post := &models.Post{
		UserID:      author.ID,
		PostType:    models.PostTypeText,
		Content:     "post content",
		Status:      status,
		PublishedAt: &now,
	}
	require.NoError(suite.T(), suite.db.Create(post).Error)
	return post
}

// =============================================================================
// LIKES
// =============================================================================

func (suite *SocialTestSuite) TestLikePost() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/like", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "post_liked", decodeBody(w)["message"])

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 1, post.LikeCount)

	var notification models.Notification
	err := suite.db.Where("user_id = ? AND actor_id = ?", suite.author.ID, suite.viewer.ID).
		First(&notification).Error
	require.NoError(t, err)
	assert.Equal(t, models.NotificationLike, notification.Type)
}

func (suite *SocialTestSuite) TestLikePostTwiceIsNoop() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/like", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/like", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_liked", decodeBody(w)["message"])

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 1, post.LikeCount)
}

func (suite *SocialTestSuite) TestLikeOwnPostSkipsNotification() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/like", nil, suite.author.ID)
	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	suite.db.Model(&models.Notification{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func (suite *SocialTestSuite) TestLikeDraftPostNotFound() {
	draft := suite.createPost(suite.author, models.PostStatusDraft)
	w := doJSON(suite.router, "POST", "/api/v1/posts/"+draft.ID+"/like", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *SocialTestSuite) TestUnlikePost() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/like", nil, suite.viewer.ID)
	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+suite.post.ID+"/like", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 0, post.LikeCount)
}

func (suite *SocialTestSuite) TestUnlikeNotLiked() {
	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+suite.post.ID+"/like", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// =============================================================================
// REBLOGS
// =============================================================================

func (suite *SocialTestSuite) TestReblogPost() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/reblog", map[string]interface{}{
		"comment": "this deserves a wider audience",
	}, suite.viewer.ID)
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(w)
	assert.Equal(t, "this deserves a wider audience", response["comment"])

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 1, post.ReblogCount)
}

func (suite *SocialTestSuite) TestReblogWithoutBody() {
	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/reblog", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
}

func (suite *SocialTestSuite) TestReblogTwiceConflicts() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/reblog", nil, suite.viewer.ID)
	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/reblog", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusConflict, w.Code)

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 1, post.ReblogCount)
}

func (suite *SocialTestSuite) TestUnreblogPost() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/reblog", nil, suite.viewer.ID)
	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+suite.post.ID+"/reblog", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 0, post.ReblogCount)
}

func (suite *SocialTestSuite) TestUnreblogNotReblogged() {
	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+suite.post.ID+"/reblog", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// =============================================================================
// FOLLOWS
// =============================================================================

func (suite *SocialTestSuite) TestFollowUser() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusCreated, w.Code)

	var author, viewer models.User
	suite.db.First(&author, "id = ?", suite.author.ID)
	suite.db.First(&viewer, "id = ?", suite.viewer.ID)
	assert.Equal(t, 1, author.FollowerCount)
	assert.Equal(t, 1, viewer.FollowingCount)

	var notification models.Notification
	err := suite.db.Where("user_id = ?", suite.author.ID).First(&notification).Error
	require.NoError(t, err)
	assert.Equal(t, models.NotificationFollow, notification.Type)
}

func (suite *SocialTestSuite) TestFollowSelf() {
	w := doJSON(suite.router, "POST", "/api/v1/users/"+suite.viewer.ID+"/follow", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *SocialTestSuite) TestFollowTwiceIsNoop() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	w := doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_following", decodeBody(w)["message"])

	var author models.User
	suite.db.First(&author, "id = ?", suite.author.ID)
	assert.Equal(t, 1, author.FollowerCount)
}

func (suite *SocialTestSuite) TestFollowBlockedUser() {
	t := suite.T()
	require.NoError(t, suite.db.Create(&models.UserBlock{
		BlockerID: suite.author.ID,
		BlockedID: suite.viewer.ID,
	}).Error)

	w := doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *SocialTestSuite) TestUnfollowUser() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	w := doJSON(suite.router, "DELETE", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var author, viewer models.User
	suite.db.First(&author, "id = ?", suite.author.ID)
	suite.db.First(&viewer, "id = ?", suite.viewer.ID)
	assert.Equal(t, 0, author.FollowerCount)
	assert.Equal(t, 0, viewer.FollowingCount)
}

func (suite *SocialTestSuite) TestUnfollowNotFollowing() {
	w := doJSON(suite.router, "DELETE", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *SocialTestSuite) TestGetFollowers() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	w := doJSON(suite.router, "GET", "/api/v1/users/"+suite.author.ID+"/followers", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	users := decodeBody(w)["users"].([]interface{})
	require.Len(t, users, 1)
	follower := users[0].(map[string]interface{})
	assert.Equal(t, suite.viewer.Username, follower["username"])
}

func (suite *SocialTestSuite) TestGetFollowing() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	w := doJSON(suite.router, "GET", "/api/v1/users/"+suite.viewer.ID+"/following", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	users := decodeBody(w)["users"].([]interface{})
	require.Len(t, users, 1)
	followed := users[0].(map[string]interface{})
	assert.Equal(t, suite.author.Username, followed["username"])
}

// =============================================================================
// BLOCKS
// =============================================================================

func (suite *SocialTestSuite) TestBlockSeversFollows() {
	t := suite.T()

	// Mutual follows before the block
	doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/follow", nil, suite.viewer.ID)
	doJSON(suite.router, "POST", "/api/v1/users/"+suite.viewer.ID+"/follow", nil, suite.author.ID)

	w := doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/block", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	suite.db.Model(&models.Follow{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func (suite *SocialTestSuite) TestBlockSelf() {
	w := doJSON(suite.router, "POST", "/api/v1/users/"+suite.viewer.ID+"/block", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *SocialTestSuite) TestBlockTwiceIsNoop() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/block", nil, suite.viewer.ID)
	w := doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/block", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_blocked", decodeBody(w)["message"])
}

func (suite *SocialTestSuite) TestUnblockUser() {
	t := suite.T()

	doJSON(suite.router, "POST", "/api/v1/users/"+suite.author.ID+"/block", nil, suite.viewer.ID)
	w := doJSON(suite.router, "DELETE", "/api/v1/users/"+suite.author.ID+"/block", nil, suite.viewer.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.UserBlock{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func (suite *SocialTestSuite) TestUnblockNotBlocked() {
	w := doJSON(suite.router, "DELETE", "/api/v1/users/"+suite.author.ID+"/block", nil, suite.viewer.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}
