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

// PostTestSuite contains post CRUD handler tests
type PostTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	author   *models.User
}

func TestPostSuite(t *testing.T) {
	suite.Run(t, new(PostTestSuite))
}

func (suite *PostTestSuite) SetupTest() {
	suite.db = testutil.OpenDB(suite.T())
	database.DB = suite.db
	suite.handlers = NewHandlers(nil, nil, stats.NewAggregator(suite.db), nil)
	suite.author = suite.createUser("author")

	suite.router = gin.New()
	posts := suite.router.Group("/api/v1/posts")
	posts.Use(mockAuth)
	posts.POST("", suite.handlers.CreatePost)
	posts.GET("/:id", suite.handlers.GetPost)
	posts.PUT("/:id", suite.handlers.UpdatePost)
	posts.DELETE("/:id", suite.handlers.DeletePost)
	posts.POST("/:id/pin", suite.handlers.PinPost)
	posts.DELETE("/:id/pin", suite.handlers.UnpinPost)
}

func (suite *PostTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       fmt.Sprintf("%s@test.com", username),
		Username:    username,
		DisplayName: username,
	}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	return user
}

func (suite *PostTestSuite) createPost(author *models.User, status models.PostStatus) *models.Post {
	post := &models.Post{
		UserID:   author.ID,
		PostType: models.PostTypeText,
		Content:  "post content",
		Status:   status,
	}
	if status == models.PostStatusPublished {
		now := time.Now()
		post.PublishedAt = &now
	}
	require.NoError(suite.T(), suite.db.Create(post).Error)
	return post
}

func (suite *PostTestSuite) TestCreateTextPost() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "text",
		"title":     "Hello",
		"content":   "First post on my new blog",
		"tags":      []string{"Introductions", "hello world"},
	}, suite.author.ID)

	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(w)
	assert.Equal(t, "text", response["post_type"])
	assert.Equal(t, "First post on my new blog", response["content"])
	assert.Equal(t, "published", response["status"])
	assert.Equal(t, true, response["is_own"])

	tags := response["tags"].([]interface{})
	assert.Len(t, tags, 2)

	var author models.User
	suite.db.First(&author, "id = ?", suite.author.ID)
	assert.Equal(t, 1, author.PostCount)
}

func (suite *PostTestSuite) TestCreatePostNormalizesTags() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "text",
		"content":   "tagged",
		"tags":      []string{"  Hello World  ", "#Hello World"},
	}, suite.author.ID)

	assert.Equal(t, http.StatusCreated, w.Code)

	// Both spellings normalize to the same tag
	var count int64
	suite.db.Model(&models.Tag{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func (suite *PostTestSuite) TestCreateTextPostRequiresContent() {
	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "text",
	}, suite.author.ID)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *PostTestSuite) TestCreateLinkPostRequiresURL() {
	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "link",
		"content":   "check this out",
	}, suite.author.ID)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *PostTestSuite) TestCreatePhotoPost() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "photo",
		"media_url": "https://example.com/cat.jpg",
		"content":   "my cat",
	}, suite.author.ID)

	assert.Equal(t, http.StatusCreated, w.Code)
	response := decodeBody(w)
	assert.Equal(t, "https://example.com/cat.jpg", response["media_url"])
}

func (suite *PostTestSuite) TestCreatePostInvalidType() {
	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "video",
		"content":   "not a real type",
	}, suite.author.ID)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *PostTestSuite) TestCreateDraftDoesNotBumpPostCount() {
	t := suite.T()

	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "text",
		"content":   "work in progress",
		"status":    "draft",
	}, suite.author.ID)

	assert.Equal(t, http.StatusCreated, w.Code)

	var author models.User
	suite.db.First(&author, "id = ?", suite.author.ID)
	assert.Equal(t, 0, author.PostCount)
}

func (suite *PostTestSuite) TestCreatePostUnauthorized() {
	w := doJSON(suite.router, "POST", "/api/v1/posts", map[string]interface{}{
		"post_type": "text",
		"content":   "anonymous",
	}, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *PostTestSuite) TestGetPostNotFound() {
	w := doJSON(suite.router, "GET", "/api/v1/posts/00000000-0000-0000-0000-000000000000", nil, suite.author.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *PostTestSuite) TestDraftHiddenFromOthers() {
	t := suite.T()
	draft := suite.createPost(suite.author, models.PostStatusDraft)
	other := suite.createUser("other")

	w := doJSON(suite.router, "GET", "/api/v1/posts/"+draft.ID, nil, other.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(suite.router, "GET", "/api/v1/posts/"+draft.ID, nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *PostTestSuite) TestPublishDraftSetsPublishedAt() {
	t := suite.T()
	draft := suite.createPost(suite.author, models.PostStatusDraft)

	w := doJSON(suite.router, "PUT", "/api/v1/posts/"+draft.ID, map[string]interface{}{
		"status": "published",
	}, suite.author.ID)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(w)
	assert.Equal(t, "published", response["status"])
	assert.NotEmpty(t, response["published_at"])

	var author models.User
	suite.db.First(&author, "id = ?", suite.author.ID)
	assert.Equal(t, 1, author.PostCount)
}

func (suite *PostTestSuite) TestPublishedPostCannotBeUnpublished() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)

	w := doJSON(suite.router, "PUT", "/api/v1/posts/"+post.ID, map[string]interface{}{
		"status": "draft",
	}, suite.author.ID)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *PostTestSuite) TestUpdatePostNotOwner() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)
	other := suite.createUser("other")

	w := doJSON(suite.router, "PUT", "/api/v1/posts/"+post.ID, map[string]interface{}{
		"content": "hijacked",
	}, other.ID)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *PostTestSuite) TestUpdatePostNoFields() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)

	w := doJSON(suite.router, "PUT", "/api/v1/posts/"+post.ID, map[string]interface{}{}, suite.author.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *PostTestSuite) TestDeletePostByAuthor() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)
	suite.db.Model(&models.User{}).Where("id = ?", suite.author.ID).Update("post_count", 1)

	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+post.ID, nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var found models.Post
	err := suite.db.First(&found, "id = ?", post.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var author models.User
	suite.db.First(&author, "id = ?", suite.author.ID)
	assert.Equal(t, 0, author.PostCount)
}

func (suite *PostTestSuite) TestDeletePostByModerator() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)

	moderator := suite.createUser("moderator")
	suite.db.Model(&models.User{}).Where("id = ?", moderator.ID).Update("role", models.RoleModerator)

	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+post.ID, nil, moderator.ID)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *PostTestSuite) TestDeletePostByStranger() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)
	other := suite.createUser("other")

	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+post.ID, nil, other.ID)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *PostTestSuite) TestPinReplacesExistingPin() {
	t := suite.T()
	first := suite.createPost(suite.author, models.PostStatusPublished)
	second := suite.createPost(suite.author, models.PostStatusPublished)

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+first.ID+"/pin", nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(suite.router, "POST", "/api/v1/posts/"+second.ID+"/pin", nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	// Only one pinned post per blog
	var pinned []models.Post
	suite.db.Where("user_id = ? AND is_pinned = ?", suite.author.ID, true).Find(&pinned)
	require.Len(t, pinned, 1)
	assert.Equal(t, second.ID, pinned[0].ID)
}

func (suite *PostTestSuite) TestUnpinPost() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)
	suite.db.Model(post).Update("is_pinned", true)

	w := doJSON(suite.router, "DELETE", "/api/v1/posts/"+post.ID+"/pin", nil, suite.author.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var found models.Post
	suite.db.First(&found, "id = ?", post.ID)
	assert.False(t, found.IsPinned)
}

func (suite *PostTestSuite) TestPinPostNotOwner() {
	t := suite.T()
	post := suite.createPost(suite.author, models.PostStatusPublished)
	other := suite.createUser("other")

	w := doJSON(suite.router, "POST", "/api/v1/posts/"+post.ID+"/pin", nil, other.ID)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
