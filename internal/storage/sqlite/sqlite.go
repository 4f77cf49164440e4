// Package sqlite is the GORM-backed SQLite implementation of
// storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sdfgeoff/ndscore/internal/config"
	"github.com/sdfgeoff/ndscore/internal/storage"
)

// Dates are stored as fixed-width UTC strings so lexicographic order is
// chronological order, which the expiry sweep relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a GORM-backed SQLite implementation of storage.Store.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewStore opens a SQLite database at the configured path.
func NewStore(cfg config.DatabaseConfig, log *zap.SugaredLogger) (*Store, error) {
	log.Infow("opening_db", "path", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A single connection keeps every transaction serializable and, for
	// in-memory databases, keeps all callers on the same database.
	sqlDB.SetMaxOpenConns(1)

	return &Store{db: db, log: log}, nil
}

func dsn(path string) string {
	if strings.Contains(path, ":memory:") {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return path + "?_pragma=foreign_keys(1)"
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type userRecord struct {
	UserID   int64  `gorm:"column:user_id"`
	UserName string `gorm:"column:user_name"`
	Secret   []byte `gorm:"column:secret"`
	Color    string `gorm:"column:color"`
}

func (r userRecord) toData() storage.UserData {
	color, err := storage.ParseColor(r.Color)
	if err != nil {
		color = storage.DefaultColor
	}
	return storage.UserData{ID: r.UserID, Name: r.UserName, Secret: r.Secret, Color: color}
}

// CreateUser inserts a new account and returns its id.
func (s *Store) CreateUser(ctx context.Context, name string, secret []byte, color storage.Color) (int64, error) {
	var id int64
	err := s.db.WithContext(ctx).Raw(
		"INSERT INTO user (user_name, secret, color) VALUES (?, ?, ?) RETURNING user_id",
		name, secret, color.String(),
	).Scan(&id).Error
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("create user %q: %w", name, storage.ErrUsernameTaken)
		}
		return 0, err
	}
	return id, nil
}

// UsersByIDs fetches the users whose ids are listed.
func (s *Store) UsersByIDs(ctx context.Context, ids []int64) ([]storage.UserData, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []userRecord
	err := s.db.WithContext(ctx).Raw(
		"SELECT user_id, user_name, secret, color FROM user WHERE user_id IN ?", ids,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}

	users := make([]storage.UserData, 0, len(records))
	for _, r := range records {
		users = append(users, r.toData())
	}
	return users, nil
}

// UserByName returns the user with the given name, or nil.
func (s *Store) UserByName(ctx context.Context, name string) (*storage.UserData, error) {
	var record userRecord
	tx := s.db.WithContext(ctx).Raw(
		"SELECT user_id, user_name, secret, color FROM user WHERE user_name = ?", name,
	).Scan(&record)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}
	user := record.toData()
	return &user, nil
}

// UpdateUser overwrites name, secret and color of an existing user.
func (s *Store) UpdateUser(ctx context.Context, user storage.UserData) error {
	tx := s.db.WithContext(ctx).Exec(
		"UPDATE user SET user_name = ?, secret = ?, color = ? WHERE user_id = ?",
		user.Name, user.Secret, user.Color.String(), user.ID,
	)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return fmt.Errorf("rename user to %q: %w", user.Name, storage.ErrUsernameTaken)
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("update user %d: %w", user.ID, storage.ErrUnknownUser)
	}
	return nil
}

// CreateSession persists a session row.
func (s *Store) CreateSession(ctx context.Context, session storage.SessionData) error {
	err := s.db.WithContext(ctx).Exec(
		"INSERT INTO session (user_id, session_key, creation_date, expiry_date) VALUES (?, ?, ?, ?)",
		session.UserID, session.Key, formatTime(session.CreatedAt), formatTime(session.ExpiresAt),
	).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("session for user %d: %w", session.UserID, storage.ErrUnknownUser)
		}
		return err
	}
	return nil
}

type sessionRecord struct {
	UserID       int64  `gorm:"column:user_id"`
	SessionKey   string `gorm:"column:session_key"`
	CreationDate string `gorm:"column:creation_date"`
	ExpiryDate   string `gorm:"column:expiry_date"`
}

// SessionByKey returns the session with the given key, or nil.
func (s *Store) SessionByKey(ctx context.Context, key string) (*storage.SessionData, error) {
	var record sessionRecord
	tx := s.db.WithContext(ctx).Raw(
		"SELECT user_id, session_key, creation_date, expiry_date FROM session WHERE session_key = ?", key,
	).Scan(&record)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}

	created, err := parseTime(record.CreationDate)
	if err != nil {
		return nil, fmt.Errorf("session creation_date: %w", err)
	}
	expires, err := parseTime(record.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("session expiry_date: %w", err)
	}
	return &storage.SessionData{
		UserID:    record.UserID,
		Key:       record.SessionKey,
		CreatedAt: created,
		ExpiresAt: expires,
	}, nil
}

// DeleteSessionByKey removes a session. Deleting a missing key is a no-op.
func (s *Store) DeleteSessionByKey(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Exec(
		"DELETE FROM session WHERE session_key = ?", key,
	).Error
}

// ClearSessionsExpiredBefore bulk-deletes sessions expiring strictly
// before the cutoff.
func (s *Store) ClearSessionsExpiredBefore(ctx context.Context, cutoff time.Time) error {
	return s.db.WithContext(ctx).Exec(
		"DELETE FROM session WHERE expiry_date < ?", formatTime(cutoff),
	).Error
}

// CreateThread atomically inserts the thread row and its opening post
// at ordering 0.
func (s *Store) CreateThread(ctx context.Context, at time.Time, userID int64, title, openingContent string) (int64, error) {
	var threadID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(
			"INSERT INTO thread (title) VALUES (?) RETURNING thread_id", title,
		).Scan(&threadID).Error; err != nil {
			return err
		}

		postID, err := insertPost(tx, userID, at, openingContent)
		if err != nil {
			return err
		}
		return tx.Exec(
			"INSERT INTO post_thread (post_id, thread_id, ordering) VALUES (?, ?, 0)",
			postID, threadID,
		).Error
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("thread by user %d: %w", userID, storage.ErrUnknownUser)
		}
		return 0, err
	}
	return threadID, nil
}

// CreatePost appends a post at max(ordering)+1. The read and the insert
// share one transaction so concurrent writers cannot duplicate or gap
// the ordering.
func (s *Store) CreatePost(ctx context.Context, userID, threadID int64, at time.Time, content string) (int64, error) {
	var postID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrdering sql.NullInt64
		if err := tx.Raw(
			"SELECT MAX(ordering) AS m FROM post_thread WHERE thread_id = ?", threadID,
		).Scan(&maxOrdering).Error; err != nil {
			return err
		}
		if !maxOrdering.Valid {
			return fmt.Errorf("thread %d: %w", threadID, storage.ErrUnknownThread)
		}

		id, err := insertPost(tx, userID, at, content)
		if err != nil {
			return err
		}
		postID = id
		return tx.Exec(
			"INSERT INTO post_thread (post_id, thread_id, ordering) VALUES (?, ?, ?)",
			postID, threadID, maxOrdering.Int64+1,
		).Error
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("post by user %d: %w", userID, storage.ErrUnknownUser)
		}
		return 0, err
	}
	return postID, nil
}

func insertPost(tx *gorm.DB, userID int64, at time.Time, content string) (int64, error) {
	var postID int64
	if err := tx.Raw(
		"INSERT INTO post (content, post_date, edit_date) VALUES (?, ?, NULL) RETURNING post_id",
		content, formatTime(at),
	).Scan(&postID).Error; err != nil {
		return 0, err
	}
	if err := tx.Exec(
		"INSERT INTO post_user (user_id, post_id) VALUES (?, ?)", userID, postID,
	).Error; err != nil {
		return 0, err
	}
	return postID, nil
}

// A thread's author and creation date are those of its ordering-0 post,
// so every thread read joins through post_thread.
const threadSelect = `
SELECT
	thread.thread_id, thread.title, user.user_id, user.user_name, post.post_date
FROM thread
JOIN post_thread ON post_thread.thread_id = thread.thread_id AND post_thread.ordering = 0
JOIN post ON post.post_id = post_thread.post_id
JOIN post_user ON post_user.post_id = post.post_id
JOIN user ON user.user_id = post_user.user_id`

type threadRecord struct {
	ThreadID int64  `gorm:"column:thread_id"`
	Title    string `gorm:"column:title"`
	UserID   int64  `gorm:"column:user_id"`
	UserName string `gorm:"column:user_name"`
	PostDate string `gorm:"column:post_date"`
}

func (r threadRecord) toData() (storage.ThreadData, error) {
	created, err := parseTime(r.PostDate)
	if err != nil {
		return storage.ThreadData{}, fmt.Errorf("thread %d post_date: %w", r.ThreadID, err)
	}
	return storage.ThreadData{
		ID:         r.ThreadID,
		Title:      r.Title,
		AuthorID:   r.UserID,
		AuthorName: r.UserName,
		CreatedAt:  created,
	}, nil
}

// Threads lists a page of threads ascending by id.
func (s *Store) Threads(ctx context.Context, limit, offset int) ([]storage.ThreadData, error) {
	var records []threadRecord
	err := s.db.WithContext(ctx).Raw(
		threadSelect+" ORDER BY thread.thread_id ASC LIMIT ? OFFSET ?", limit, offset,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}

	threads := make([]storage.ThreadData, 0, len(records))
	for _, r := range records {
		thread, err := r.toData()
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// ThreadByID returns one thread, or nil when it does not exist.
func (s *Store) ThreadByID(ctx context.Context, id int64) (*storage.ThreadData, error) {
	var record threadRecord
	tx := s.db.WithContext(ctx).Raw(
		threadSelect+" WHERE thread.thread_id = ?", id,
	).Scan(&record)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}

	thread, err := record.toData()
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

type postRecord struct {
	PostID   int64          `gorm:"column:post_id"`
	UserID   int64          `gorm:"column:user_id"`
	Content  string         `gorm:"column:content"`
	PostDate string         `gorm:"column:post_date"`
	EditDate sql.NullString `gorm:"column:edit_date"`
	Ordering int            `gorm:"column:ordering"`
}

// PostsByThreadID lists a page of a thread's posts ascending by ordering.
func (s *Store) PostsByThreadID(ctx context.Context, threadID int64, limit, offset int) ([]storage.PostData, error) {
	var records []postRecord
	err := s.db.WithContext(ctx).Raw(`
SELECT
	post.post_id, post_user.user_id, post.content, post.post_date, post.edit_date, post_thread.ordering
FROM post_thread
JOIN post ON post.post_id = post_thread.post_id
JOIN post_user ON post_user.post_id = post.post_id
WHERE post_thread.thread_id = ?
ORDER BY post_thread.ordering ASC
LIMIT ? OFFSET ?`, threadID, limit, offset,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}

	posts := make([]storage.PostData, 0, len(records))
	for _, r := range records {
		posted, err := parseTime(r.PostDate)
		if err != nil {
			return nil, fmt.Errorf("post %d post_date: %w", r.PostID, err)
		}
		post := storage.PostData{
			ID:       r.PostID,
			ThreadID: threadID,
			AuthorID: r.UserID,
			Content:  r.Content,
			PostedAt: posted,
			Ordering: r.Ordering,
		}
		if r.EditDate.Valid {
			edited, err := parseTime(r.EditDate.String)
			if err != nil {
				return nil, fmt.Errorf("post %d edit_date: %w", r.PostID, err)
			}
			post.EditedAt = edited
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrForeignKeyViolated) ||
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
