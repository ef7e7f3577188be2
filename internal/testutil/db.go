// Package testutil provides shared test fixtures. It must only be imported
// from _test.go files.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB creates an in-memory SQLite database with the full schema.
// Tables are created with raw SQLite-compatible DDL because AutoMigrate
// emits PostgreSQL-specific defaults like gen_random_uuid().
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	// A second connection to :memory: would see a different empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, ddl := range schema {
		require.NoError(t, db.Exec(ddl).Error)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		username TEXT NOT NULL,
		display_name TEXT NOT NULL,
		bio TEXT,
		password_hash TEXT,
		role TEXT DEFAULT 'member',
		avatar_url TEXT,
		show_sensitive_posts INTEGER DEFAULT 0,
		follower_count INTEGER DEFAULT 0,
		following_count INTEGER DEFAULT 0,
		post_count INTEGER DEFAULT 0,
		last_active_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE posts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		post_type TEXT DEFAULT 'text',
		title TEXT,
		content TEXT,
		media_url TEXT,
		quote_source TEXT,
		link_url TEXT,
		is_sensitive INTEGER DEFAULT 0,
		is_pinned INTEGER DEFAULT 0,
		status TEXT DEFAULT 'published',
		published_at DATETIME,
		like_count INTEGER DEFAULT 0,
		comment_count INTEGER DEFAULT 0,
		reblog_count INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		post_count INTEGER DEFAULT 0,
		last_used_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE post_tags (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE comments (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		parent_id TEXT,
		like_count INTEGER DEFAULT 0,
		is_edited INTEGER DEFAULT 0,
		edited_at DATETIME,
		is_deleted INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE reblogs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		original_post_id TEXT NOT NULL,
		comment TEXT,
		created_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE follows (
		id TEXT PRIMARY KEY,
		follower_id TEXT NOT NULL,
		following_id TEXT NOT NULL,
		created_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE tag_follows (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE likes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE comment_likes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		comment_id TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		type TEXT NOT NULL,
		post_id TEXT,
		comment_id TEXT,
		is_read INTEGER DEFAULT 0,
		is_seen INTEGER DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE conversations (
		id TEXT PRIMARY KEY,
		last_message_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE conversation_participants (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		last_read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE reports (
		id TEXT PRIMARY KEY,
		reporter_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		target_user_id TEXT,
		reason TEXT NOT NULL,
		description TEXT,
		status TEXT DEFAULT 'pending',
		moderator_id TEXT,
		action_taken TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE user_blocks (
		id TEXT PRIMARY KEY,
		blocker_id TEXT NOT NULL,
		blocked_id TEXT NOT NULL,
		created_at DATETIME,
		deleted_at DATETIME
	)`,
}
