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

// CommentTestSuite contains comment handler tests
type CommentTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	author   *models.User
	post     *models.Post
}

func TestCommentSuite(t *testing.T) {
	suite.Run(t, new(CommentTestSuite))
}

func (suite *CommentTestSuite) SetupTest() {
	suite.db = testutil.OpenDB(suite.T())
	database.DB = suite.db
	suite.handlers = NewHandlers(nil, nil, stats.NewAggregator(suite.db), nil)
	suite.author = suite.createUser("author")

	now := time.Now()
	suite.post = &models.Post{
		UserID:      suite.author.ID,
		PostType:    models.PostTypeText,
		Content:     "post content",
		Status:      models.PostStatusPublished,
		PublishedAt: &now,
	}
	require.NoError(suite.T(), suite.db.Create(suite.post).Error)

	suite.router = gin.New()
	api := suite.router.Group("/api/v1")
	api.Use(mockAuth)
	api.POST("/posts/:id/comments", suite.handlers.CreateComment)
	api.GET("/posts/:id/comments", suite.handlers.GetPostComments)
	api.GET("/comments/:id/replies", suite.handlers.GetCommentReplies)
	api.PUT("/comments/:id", suite.handlers.UpdateComment)
	api.DELETE("/comments/:id", suite.handlers.DeleteComment)
	api.POST("/comments/:id/like", suite.handlers.LikeComment)
	api.DELETE("/comments/:id/like", suite.handlers.UnlikeComment)
}

func (suite *CommentTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       fmt.Sprintf("%s@test.com", username),
		Username:    username,
		DisplayName: username,
	}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	return user
}

func (suite *CommentTestSuite) createComment(author *models.User, parentID *string) *models.Comment {
	comment := &models.Comment{
		PostID:   suite.post.ID,
		UserID:   author.ID,
		Content:  "a comment",
		ParentID: parentID,
	}
	require.NoError(suite.T(), suite.db.Create(comment).Error)
	return comment
}

func (suite *CommentTestSuite) TestCreateComment() {
	t := suite.T()
	commenter := suite.createUser("commenter")

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/comments", map[string]interface{}{
		"content": "lovely post",
	}, commenter.ID)

	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(w)
	assert.Equal(t, "lovely post", response["content"])
	assert.Equal(t, suite.post.ID, response["post_id"])

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 1, post.CommentCount)

	// Post author gets notified
	var notification models.Notification
	err := suite.db.Where("user_id = ? AND actor_id = ?", suite.author.ID, commenter.ID).
		First(&notification).Error
	require.NoError(t, err)
	assert.Equal(t, models.NotificationComment, notification.Type)
}

func (suite *CommentTestSuite) TestCreateCommentOnMissingPost() {
	w := doJSON(suite.router, "POST", "/api/v1/posts/00000000-0000-0000-0000-000000000000/comments",
		map[string]interface{}{"content": "hello"}, suite.author.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *CommentTestSuite) TestCreateCommentEmptyContent() {
	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/comments",
		map[string]interface{}{"content": ""}, suite.author.ID)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *CommentTestSuite) TestCreateCommentMentionsNotify() {
	t := suite.T()
	mentioned := suite.createUser("wordsmith")
	commenter := suite.createUser("commenter")

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/comments", map[string]interface{}{
		"content": "you should see this @wordsmith",
	}, commenter.ID)
	assert.Equal(t, http.StatusCreated, w.Code)

	var notification models.Notification
	err := suite.db.Where("user_id = ? AND type = ?", mentioned.ID, models.NotificationMention).
		First(&notification).Error
	require.NoError(t, err)
	assert.Equal(t, commenter.ID, notification.ActorID)
}

func (suite *CommentTestSuite) TestReplyNestsOneLevel() {
	t := suite.T()
	parent := suite.createComment(suite.author, nil)
	child := suite.createComment(suite.author, &parent.ID)

	// Replying to a reply attaches to the top-level parent
	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/comments", map[string]interface{}{
		"content":   "grandchild",
		"parent_id": child.ID,
	}, suite.author.ID)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, parent.ID, decodeBody(w)["parent_id"])
}

func (suite *CommentTestSuite) TestReplyToMissingParent() {
	w := doJSON(suite.router, "POST", "/api/v1/posts/"+suite.post.ID+"/comments", map[string]interface{}{
		"content":   "orphan reply",
		"parent_id": "00000000-0000-0000-0000-000000000000",
	}, suite.author.ID)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *CommentTestSuite) TestGetPostComments() {
	t := suite.T()
	parent := suite.createComment(suite.author, nil)
	suite.createComment(suite.author, &parent.ID)
	suite.createComment(suite.author, &parent.ID)

	w := doJSON(suite.router, "GET", "/api/v1/posts/"+suite.post.ID+"/comments", nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	comments := decodeBody(w)["comments"].([]interface{})
	require.Len(t, comments, 1)

	top := comments[0].(map[string]interface{})
	assert.Equal(t, parent.ID, top["id"])
	assert.Equal(t, float64(2), top["reply_count"])
}

func (suite *CommentTestSuite) TestGetCommentReplies() {
	t := suite.T()
	parent := suite.createComment(suite.author, nil)
	suite.createComment(suite.author, &parent.ID)
	suite.createComment(suite.author, &parent.ID)

	w := doJSON(suite.router, "GET", "/api/v1/comments/"+parent.ID+"/replies", nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	replies := decodeBody(w)["replies"].([]interface{})
	assert.Len(t, replies, 2)
}

func (suite *CommentTestSuite) TestUpdateComment() {
	t := suite.T()
	comment := suite.createComment(suite.author, nil)

	w := doJSON(suite.router, "PUT", "/api/v1/comments/"+comment.ID, map[string]interface{}{
		"content": "revised thought",
	}, suite.author.ID)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(w)
	assert.Equal(t, "revised thought", response["content"])
	assert.Equal(t, true, response["is_edited"])
}

func (suite *CommentTestSuite) TestUpdateCommentNotOwner() {
	t := suite.T()
	comment := suite.createComment(suite.author, nil)
	other := suite.createUser("other")

	w := doJSON(suite.router, "PUT", "/api/v1/comments/"+comment.ID, map[string]interface{}{
		"content": "hijacked",
	}, other.ID)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *CommentTestSuite) TestDeleteCommentLeavesPlaceholder() {
	t := suite.T()
	comment := suite.createComment(suite.author, nil)
	suite.db.Model(suite.post).Update("comment_count", 1)

	w := doJSON(suite.router, "DELETE", "/api/v1/comments/"+comment.ID, nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	// The thread keeps a placeholder instead of dropping the comment
	w = doJSON(suite.router, "GET", "/api/v1/posts/"+suite.post.ID+"/comments", nil, suite.author.ID)
	comments := decodeBody(w)["comments"].([]interface{})
	require.Len(t, comments, 1)
	removed := comments[0].(map[string]interface{})
	assert.Equal(t, "[removed]", removed["content"])
	assert.Equal(t, true, removed["is_deleted"])

	var post models.Post
	suite.db.First(&post, "id = ?", suite.post.ID)
	assert.Equal(t, 0, post.CommentCount)
}

func (suite *CommentTestSuite) TestPostOwnerCanDeleteComment() {
	t := suite.T()
	commenter := suite.createUser("commenter")
	comment := suite.createComment(commenter, nil)

	w := doJSON(suite.router, "DELETE", "/api/v1/comments/"+comment.ID, nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *CommentTestSuite) TestStrangerCannotDeleteComment() {
	t := suite.T()
	comment := suite.createComment(suite.author, nil)
	other := suite.createUser("other")

	w := doJSON(suite.router, "DELETE", "/api/v1/comments/"+comment.ID, nil, other.ID)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *CommentTestSuite) TestLikeComment() {
	t := suite.T()
	comment := suite.createComment(suite.author, nil)
	liker := suite.createUser("liker")

	w := doJSON(suite.router, "POST", "/api/v1/comments/"+comment.ID+"/like", nil, liker.ID)
	assert.Equal(t, http.StatusCreated, w.Code)

	var found models.Comment
	suite.db.First(&found, "id = ?", comment.ID)
	assert.Equal(t, 1, found.LikeCount)
}

func (suite *CommentTestSuite) TestLikeDeletedComment() {
	t := suite.T()
	comment := suite.createComment(suite.author, nil)
	suite.db.Model(comment).Update("is_deleted", true)

	w := doJSON(suite.router, "POST", "/api/v1/comments/"+comment.ID+"/like", nil, suite.author.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *CommentTestSuite) TestUnlikeComment() {
	t := suite.T()
	comment := suite.createComment(suite.author, nil)
	liker := suite.createUser("liker")

	doJSON(suite.router, "POST", "/api/v1/comments/"+comment.ID+"/like", nil, liker.ID)
	w := doJSON(suite.router, "DELETE", "/api/v1/comments/"+comment.ID+"/like", nil, liker.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var found models.Comment
	suite.db.First(&found, "id = ?", comment.ID)
	assert.Equal(t, 0, found.LikeCount)
}
