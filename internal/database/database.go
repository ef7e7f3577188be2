package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/inkwell-social/inkwell/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "inkwell")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	// Configure GORM logger
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Enable UUID extension for PostgreSQL
	err := DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
	if err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	err = DB.AutoMigrate(AllModels()...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// AllModels lists every model registered for auto-migration.
// Shared with the sqlite-backed test setup.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.PostTag{},
		&models.Follow{},
		&models.TagFollow{},
		&models.Like{},
		&models.CommentLike{},
		&models.Comment{},
		&models.Reblog{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Report{},
		&models.UserBlock{},
		&models.Notification{},
	}
}

// createIndexes creates performance indexes
func createIndexes() error {
	// User indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")

	// Post indexes for feed queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_user_published ON posts (user_id, published_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_status_published ON posts (status, published_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_sensitive ON posts (is_sensitive) WHERE is_sensitive = true")

	// Tag indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_tags_name ON tags (name)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_tags_post_count ON tags (post_count DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_post_tags_post ON post_tags (post_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_post_tags_tag ON post_tags (tag_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_post_tags_unique ON post_tags (post_id, tag_id)")

	// Follow edges
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_follows_unique ON follows (follower_id, following_id) WHERE deleted_at IS NULL")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_tag_follows_unique ON tag_follows (user_id, tag_id)")

	// Likes - one like per user per post/comment, and recency lookups
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_likes_unique ON likes (user_id, post_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_likes_user_created ON likes (user_id, created_at DESC)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_comment_likes_unique ON comment_likes (user_id, comment_id)")

	// Comment indexes for efficient retrieval
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments (parent_id) WHERE parent_id IS NOT NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_post_not_deleted ON comments (post_id, created_at DESC) WHERE is_deleted = false")

	// Reblogs - one reblog per user per post
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_reblogs_unique ON reblogs (user_id, original_post_id) WHERE deleted_at IS NULL")

	// Messaging indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_conversation_participants_user ON conversation_participants (user_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_conversation_participants_unique ON conversation_participants (conversation_id, user_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages (conversation_id, created_at DESC)")

	// Report indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reports_reporter ON reports (reporter_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reports_target ON reports (target_type, target_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_unique ON reports (reporter_id, target_type, target_id) WHERE deleted_at IS NULL")

	// User block indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_user_blocks_blocker ON user_blocks (blocker_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_user_blocks_blocked ON user_blocks (blocked_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_user_blocks_unique ON user_blocks (blocker_id, blocked_id) WHERE deleted_at IS NULL")

	// Notification indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications (user_id) WHERE is_read = false")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
