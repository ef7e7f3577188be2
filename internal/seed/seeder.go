package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

var tagNames = []string{
	"photography", "poetry", "writing", "art", "aesthetic", "dark academia",
	"studyblr", "fandom", "music", "film", "books", "illustration", "fashion",
	"travel", "cats", "nature", "history", "cooking", "gaming", "diy",
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(100)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating tags...")
	tags, err := s.seedTags()
	if err != nil {
		return fmt.Errorf("failed to seed tags: %w", err)
	}

	log("Creating posts...")
	posts, err := s.seedPosts(users, tags, 500)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log("Creating follows...")
	if err := s.seedFollows(users, 400); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	log("Creating tag follows...")
	if err := s.seedTagFollows(users, tags); err != nil {
		return fmt.Errorf("failed to seed tag follows: %w", err)
	}

	log("Creating likes...")
	if err := s.seedLikes(users, posts); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	log("Creating comments...")
	if err := s.seedComments(users, posts, 800); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating reblogs...")
	if err := s.seedReblogs(users, posts, 200); err != nil {
		return fmt.Errorf("failed to seed reblogs: %w", err)
	}

	log("Creating conversations...")
	if err := s.seedConversations(users, 60); err != nil {
		return fmt.Errorf("failed to seed conversations: %w", err)
	}

	return nil
}

// SeedTest seeds the test database with a small fixed cast of users
func (s *Seeder) SeedTest() error {
	testUserSpecs := []struct {
		username    string
		email       string
		displayName string
	}{
		{"alice", "alice@example.com", "Alice Smith"},
		{"bob", "bob@example.com", "Bob Johnson"},
		{"charlie", "charlie@example.com", "Charlie Brown"},
		{"diana", "diana@example.com", "Diana Prince"},
		{"eve", "eve@example.com", "Eve Wilson"},
	}

	var users []models.User
	for _, spec := range testUserSpecs {
		var user models.User
		err := s.db.Where("username = ? OR email = ?", spec.username, spec.email).First(&user).Error
		if err == nil {
			users = append(users, user)
			continue
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hashedPasswordStr := string(hashedPassword)

		user = models.User{
			Email:        spec.email,
			Username:     spec.username,
			DisplayName:  spec.displayName,
			PasswordHash: &hashedPasswordStr,
			AvatarURL:    fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", spec.username),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.username, err)
		}
		users = append(users, user)
	}

	tags, err := s.seedTags()
	if err != nil {
		return fmt.Errorf("failed to seed tags: %w", err)
	}

	posts, err := s.seedPosts(users, tags, 20)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	if err := s.seedComments(users, posts, 30); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	return nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean() error {
	// Delete in reverse order of dependencies
	tables := []string{
		"messages", "conversation_participants", "conversations",
		"reports", "user_blocks", "notifications",
		"comment_likes", "likes", "tag_follows", "follows",
		"reblogs", "comments", "post_tags", "tags", "posts", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

// seedUsers creates users with realistic data
func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	var users []models.User

	// Skip creation if we already have enough seed users
	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&seedUserCount)
	if seedUserCount >= int64(count) {
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing users, skipping creation",
			zap.Int("total_users", len(users)))
		return users, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedPasswordStr := string(hashedPassword)

	for i := 0; i < count; i++ {
		username := gofakeit.Username()
		email := fmt.Sprintf("%s%d@example.com", username, i)

		// Ensure unique username
		var existingUser models.User
		for {
			if err := s.db.Where("username = ?", username).First(&existingUser).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = gofakeit.Username()
		}

		user := models.User{
			Email:              email,
			Username:           username,
			DisplayName:        gofakeit.Name(),
			Bio:                gofakeit.Sentence(10),
			PasswordHash:       &hashedPasswordStr,
			AvatarURL:          fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			ShowSensitivePosts: rand.Float32() < 0.3,
		}

		lastActive := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		user.LastActiveAt = &lastActive

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	logger.Log.Info("Created seed users", zap.Int("count", len(users)))
	return users, nil
}

// seedTags creates the tag vocabulary used by posts and tag follows
func (s *Seeder) seedTags() ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		var tag models.Tag
		if err := s.db.Where("name = ?", name).First(&tag).Error; err == gorm.ErrRecordNotFound {
			tag = models.Tag{Name: name, LastUsedAt: time.Now()}
			if err := s.db.Create(&tag).Error; err != nil {
				return nil, fmt.Errorf("failed to create tag: %w", err)
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// seedPosts creates typed posts with a power-law author distribution:
// a few prolific blogs, many moderate ones, and a tail of lurkers.
func (s *Seeder) seedPosts(users []models.User, tags []models.Tag, totalCount int) ([]models.Post, error) {
	var posts []models.Post
	if len(users) == 0 {
		return posts, nil
	}

	createPost := func(user models.User) error {
		post := models.Post{
			UserID:      user.ID,
			Status:      models.PostStatusPublished,
			IsSensitive: rand.Float32() < 0.08,
		}

		switch rand.Intn(4) {
		case 0:
			post.PostType = models.PostTypeText
			post.Title = gofakeit.Sentence(4)
			post.Content = gofakeit.Paragraph(1, 3, 12, " ")
		case 1:
			post.PostType = models.PostTypePhoto
			post.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.Word())
			post.Content = gofakeit.Sentence(8)
		case 2:
			post.PostType = models.PostTypeQuote
			post.Content = gofakeit.Sentence(12)
			post.QuoteSource = gofakeit.Name()
		default:
			post.PostType = models.PostTypeLink
			post.LinkURL = gofakeit.URL()
			post.Content = gofakeit.Sentence(6)
		}

		publishedAt := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		post.PublishedAt = &publishedAt
		post.CreatedAt = publishedAt
		post.UpdatedAt = publishedAt

		if err := s.db.Create(&post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}

		// Each post gets 1-3 tags
		tagCount := rand.Intn(3) + 1
		used := make(map[string]bool)
		for i := 0; i < tagCount; i++ {
			tag := tags[rand.Intn(len(tags))]
			if used[tag.ID] {
				continue
			}
			used[tag.ID] = true
			if err := s.db.Create(&models.PostTag{PostID: post.ID, TagID: tag.ID}).Error; err != nil {
				return fmt.Errorf("failed to link tag: %w", err)
			}
			s.db.Model(&models.Tag{}).Where("id = ?", tag.ID).Updates(map[string]interface{}{
				"post_count":   gorm.Expr("post_count + 1"),
				"last_used_at": publishedAt,
			})
		}

		posts = append(posts, post)
		s.db.Model(&user).Update("post_count", gorm.Expr("post_count + 1"))
		return nil
	}

	// 10% of users are prolific (10-30 posts), 40% moderate (2-8),
	// the rest are lurkers (0-2)
	shuffled := make([]models.User, len(users))
	copy(shuffled, users)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	prolificCount := len(shuffled) / 10
	moderateCount := len(shuffled) * 4 / 10

	created := 0
	for idx, user := range shuffled {
		if created >= totalCount {
			break
		}
		var n int
		switch {
		case idx < prolificCount:
			n = 10 + rand.Intn(21)
		case idx < prolificCount+moderateCount:
			n = 2 + rand.Intn(7)
		default:
			n = rand.Intn(3)
		}
		for j := 0; j < n && created < totalCount; j++ {
			if err := createPost(user); err != nil {
				return nil, err
			}
			created++
		}
	}

	// Fill any remainder randomly
	for created < totalCount {
		if err := createPost(shuffled[rand.Intn(len(shuffled))]); err != nil {
			return nil, err
		}
		created++
	}

	logger.Log.Info("Created posts", zap.Int("count", len(posts)))
	return posts, nil
}

// seedFollows creates follow edges between random user pairs
func (s *Seeder) seedFollows(users []models.User, count int) error {
	if len(users) < 2 {
		return nil
	}

	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		follower := users[rand.Intn(len(users))]
		following := users[rand.Intn(len(users))]
		if follower.ID == following.ID {
			continue
		}

		var existing models.Follow
		if err := s.db.Where("follower_id = ? AND following_id = ?", follower.ID, following.ID).
			First(&existing).Error; err == nil {
			continue
		}

		if err := s.db.Create(&models.Follow{
			FollowerID:  follower.ID,
			FollowingID: following.ID,
		}).Error; err != nil {
			return fmt.Errorf("failed to create follow: %w", err)
		}
		s.db.Model(&models.User{}).Where("id = ?", following.ID).
			Update("follower_count", gorm.Expr("follower_count + 1"))
		s.db.Model(&models.User{}).Where("id = ?", follower.ID).
			Update("following_count", gorm.Expr("following_count + 1"))
		created++
	}

	logger.Log.Info("Created follows", zap.Int("count", created))
	return nil
}

// seedTagFollows gives every user a few followed tags
func (s *Seeder) seedTagFollows(users []models.User, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	created := 0
	for _, user := range users {
		n := rand.Intn(4) + 1
		used := make(map[string]bool)
		for i := 0; i < n; i++ {
			tag := tags[rand.Intn(len(tags))]
			if used[tag.ID] {
				continue
			}
			used[tag.ID] = true

			var existing models.TagFollow
			if err := s.db.Where("user_id = ? AND tag_id = ?", user.ID, tag.ID).
				First(&existing).Error; err == nil {
				continue
			}
			if err := s.db.Create(&models.TagFollow{UserID: user.ID, TagID: tag.ID}).Error; err != nil {
				return fmt.Errorf("failed to create tag follow: %w", err)
			}
			created++
		}
	}

	logger.Log.Info("Created tag follows", zap.Int("count", created))
	return nil
}

// seedLikes gives each post a random set of likers and keeps the cached
// like_count in step with the rows
func (s *Seeder) seedLikes(users []models.User, posts []models.Post) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	total := 0
	for _, post := range posts {
		likers := rand.Intn(len(users) / 4)
		if likers == 0 {
			continue
		}

		shuffled := make([]models.User, len(users))
		copy(shuffled, users)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		for i := 0; i < likers; i++ {
			if shuffled[i].ID == post.UserID {
				continue
			}
			if err := s.db.Create(&models.Like{UserID: shuffled[i].ID, PostID: post.ID}).Error; err != nil {
				return fmt.Errorf("failed to create like: %w", err)
			}
			total++
		}
		s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			Update("like_count", gorm.Expr("like_count + ?", likers))
	}

	logger.Log.Info("Created likes", zap.Int("count", total))
	return nil
}

// seedComments creates comments on random posts
func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	commentTemplates := []string{
		"this is beautiful",
		"reblogging immediately",
		"oh this is so good",
		"saving this for later",
		"the tags on this post",
		"no thoughts just this post",
		"where did you find this??",
		"adding this to my collection",
	}

	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		post := posts[rand.Intn(len(posts))]

		var content string
		if rand.Float32() < 0.5 {
			content = commentTemplates[rand.Intn(len(commentTemplates))]
		} else {
			content = gofakeit.Sentence(8)
		}

		comment := models.Comment{
			PostID:   post.ID,
			UserID:   user.ID,
			Content:  content,
			IsEdited: rand.Float32() < 0.1,
		}

		createdAt := gofakeit.DateRange(post.CreatedAt, time.Now())
		comment.CreatedAt = createdAt
		comment.UpdatedAt = createdAt
		if comment.IsEdited {
			editedAt := gofakeit.DateRange(createdAt, time.Now())
			comment.EditedAt = &editedAt
		}

		if err := s.db.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			Update("comment_count", gorm.Expr("comment_count + 1"))
	}

	logger.Log.Info("Created comments", zap.Int("count", count))
	return nil
}

// seedReblogs reshares random posts, some with commentary
func (s *Seeder) seedReblogs(users []models.User, posts []models.Post, count int) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		user := users[rand.Intn(len(users))]
		post := posts[rand.Intn(len(posts))]
		if user.ID == post.UserID {
			continue
		}

		var existing models.Reblog
		if err := s.db.Where("user_id = ? AND original_post_id = ?", user.ID, post.ID).
			First(&existing).Error; err == nil {
			continue
		}

		reblog := models.Reblog{UserID: user.ID, OriginalPostID: post.ID}
		if rand.Float32() < 0.4 {
			reblog.Comment = gofakeit.Sentence(6)
		}
		if err := s.db.Create(&reblog).Error; err != nil {
			return fmt.Errorf("failed to create reblog: %w", err)
		}
		s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			Update("reblog_count", gorm.Expr("reblog_count + 1"))
		created++
	}

	logger.Log.Info("Created reblogs", zap.Int("count", created))
	return nil
}

// seedConversations creates direct message threads between random pairs
func (s *Seeder) seedConversations(users []models.User, count int) error {
	if len(users) < 2 {
		return nil
	}

	openers := []string{
		"hey! loved your last post",
		"do you have a source for that photo?",
		"your blog is one of my favorites",
		"did you see what they posted today",
	}

	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		a := users[rand.Intn(len(users))]
		b := users[rand.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}

		conversation := models.Conversation{}
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&conversation).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.ConversationParticipant{
				ConversationID: conversation.ID, UserID: a.ID,
			}).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.ConversationParticipant{
				ConversationID: conversation.ID, UserID: b.ID,
			}).Error; err != nil {
				return err
			}

			// A short back-and-forth
			messageCount := rand.Intn(5) + 1
			var lastAt time.Time
			for i := 0; i < messageCount; i++ {
				sender := a
				if i%2 == 1 {
					sender = b
				}
				var content string
				if i == 0 {
					content = openers[rand.Intn(len(openers))]
				} else {
					content = gofakeit.Sentence(6)
				}
				message := models.Message{
					ConversationID: conversation.ID,
					SenderID:       sender.ID,
					Content:        content,
				}
				if err := tx.Create(&message).Error; err != nil {
					return err
				}
				lastAt = message.CreatedAt
			}
			return tx.Model(&conversation).Update("last_message_at", lastAt).Error
		})
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		created++
	}

	logger.Log.Info("Created conversations", zap.Int("count", created))
	return nil
}
