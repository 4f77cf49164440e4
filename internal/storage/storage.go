// Package storage defines the persisted forum entities and the Store
// interface every other component goes through. Storage owns all
// mutation; callers never touch the database directly.
package storage

import (
	"context"
	"errors"
	"time"
)

// Closed set of failures handlers are expected to branch on. Anything
// else coming out of a Store is an internal fault.
var (
	// ErrUsernameTaken reports a create or rename collision on user_name.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUnknownUser reports a reference to a user_id that does not exist.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnknownThread reports a reference to a thread with no posts.
	ErrUnknownThread = errors.New("unknown thread")
)

// UserData is a persisted account record.
type UserData struct {
	ID     int64
	Name   string
	Secret []byte
	Color  Color
}

// SessionData is a persisted login session addressed by its opaque key.
type SessionData struct {
	UserID    int64
	Key       string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ThreadData is a thread joined to its opening post. A thread has no
// author or date columns of its own: both are derived from the post at
// ordering 0, which is created atomically with the thread.
type ThreadData struct {
	ID         int64
	Title      string
	AuthorID   int64
	AuthorName string
	CreatedAt  time.Time
}

// PostData is a single post within a thread. Ordering is gapless from 0
// upward in creation order; 0 is the opening post.
type PostData struct {
	ID       int64
	ThreadID int64
	AuthorID int64
	Content  string
	PostedAt time.Time
	EditedAt time.Time // zero until the post is edited
	Ordering int
}

// Store defines the persistence operations used by the server.
type Store interface {
	Close() error
	// Migrate walks the schema from whatever version is stored up to
	// current. Safe to call against an already-current store.
	Migrate(ctx context.Context) error

	// CreateUser inserts a new account and returns its id.
	// Fails with ErrUsernameTaken when the name is in use.
	CreateUser(ctx context.Context, name string, secret []byte, color Color) (int64, error)
	// UsersByIDs fetches the users whose ids are listed; missing ids are
	// simply absent from the result.
	UsersByIDs(ctx context.Context, ids []int64) ([]UserData, error)
	// UserByName returns the user with the given name, or nil.
	UserByName(ctx context.Context, name string) (*UserData, error)
	// UpdateUser overwrites name, secret and color of an existing user.
	// Fails with ErrUsernameTaken on a rename collision.
	UpdateUser(ctx context.Context, user UserData) error

	// CreateSession persists a session row.
	// Fails with ErrUnknownUser when the owner does not exist.
	CreateSession(ctx context.Context, session SessionData) error
	// SessionByKey returns the session with the given key, or nil.
	SessionByKey(ctx context.Context, key string) (*SessionData, error)
	DeleteSessionByKey(ctx context.Context, key string) error
	// ClearSessionsExpiredBefore bulk-deletes sessions whose expiry is
	// strictly before the cutoff. Deleting none is not an error.
	ClearSessionsExpiredBefore(ctx context.Context, cutoff time.Time) error

	// CreateThread atomically inserts the thread row and its opening
	// post at ordering 0, returning the new thread id.
	CreateThread(ctx context.Context, at time.Time, userID int64, title, openingContent string) (int64, error)
	// CreatePost appends a post at max(ordering)+1 within one
	// transaction. Fails with ErrUnknownThread when the thread has no
	// existing posts (which covers a nonexistent thread).
	CreatePost(ctx context.Context, userID, threadID int64, at time.Time, content string) (int64, error)
	// Threads lists a page of threads ascending by id, each joined to
	// its opening post's author and date.
	Threads(ctx context.Context, limit, offset int) ([]ThreadData, error)
	// ThreadByID returns one thread joined as in Threads, or nil.
	ThreadByID(ctx context.Context, id int64) (*ThreadData, error)
	// PostsByThreadID lists a page of a thread's posts ascending by
	// ordering.
	PostsByThreadID(ctx context.Context, threadID int64, limit, offset int) ([]PostData, error)
}
