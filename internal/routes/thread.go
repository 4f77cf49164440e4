package routes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/router"
	"github.com/sdfgeoff/ndscore/internal/storage"
)

// postPageLimit bounds how many posts a single thread page renders.
const postPageLimit = 500

const displayTimeLayout = "2006-01-02 15:04:05"

// Thread returns the thread viewing and posting routes.
func Thread() []router.Route {
	return []router.Route{
		router.NewRoute("/threads/new.html", handleNewThreadPage),
		router.NewRoute("/threads/create.html", handleCreateThread),
		router.NewRoute(`/threads/(?P<thread_id>\d+)/`, handleViewThread),
		router.NewRoute(`/threads/(?P<thread_id>\d+)/reply.html`, handleReply),
	}
}

func handleNewThreadPage(_ context.Context, rc *router.RequestContext) (httpd.Response, error) {
	if rc.Session == nil {
		return httpd.Redirect("/403.html"), nil
	}
	return page(200, wrapContent(rc, "CREATE THREAD", fragment("new_thread.html"))), nil
}

func handleCreateThread(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	if rc.Request.Method != httpd.MethodPost {
		return httpd.Text(400, "expected POST"), nil
	}
	if rc.Session == nil {
		return httpd.Redirect("/403.html"), nil
	}

	form := httpd.ParseForm(rc.Request.Body)
	title, content := form["title"], form["content"]
	if title == "" || content == "" {
		return httpd.Text(400, "missing title or content"), nil
	}

	threadID, err := rc.Store.CreateThread(ctx, time.Now(), rc.Session.UserID, title, content)
	if err != nil {
		return httpd.Response{}, err
	}
	return httpd.Redirect(fmt.Sprintf("/threads/%d/", threadID)), nil
}

func handleViewThread(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	threadID, err := strconv.ParseInt(rc.Captures["thread_id"], 10, 64)
	if err != nil {
		return httpd.Redirect("/404.html"), nil
	}

	thread, err := rc.Store.ThreadByID(ctx, threadID)
	if err != nil {
		return httpd.Response{}, err
	}
	if thread == nil {
		return httpd.Redirect("/404.html"), nil
	}

	posts, err := rc.Store.PostsByThreadID(ctx, threadID, postPageLimit, 0)
	if err != nil {
		return httpd.Response{}, err
	}
	authors, err := postAuthors(ctx, rc.Store, posts)
	if err != nil {
		return httpd.Response{}, err
	}

	rendered := make([]string, 0, len(posts))
	for _, post := range posts {
		name, color := "unknown", storage.DefaultColor
		if author, ok := authors[post.AuthorID]; ok {
			name, color = author.Name, author.Color
		}
		rendered = append(rendered, fill(fragment("post.html"),
			"AUTHOR", escape(name),
			"COLOR", color.String(),
			"DATE", post.PostedAt.Format(displayTimeLayout),
			"CONTENT", escape(post.Content),
		))
	}

	replyArea := ""
	if rc.Session != nil {
		replyArea = fill(fragment("reply_form.html"),
			"THREAD_ID", strconv.FormatInt(threadID, 10))
	}

	content := fill(fragment("thread.html"),
		"THREAD_TITLE", escape(thread.Title),
		"POSTS", strings.Join(rendered, "\n"),
		"REPLY_AREA", replyArea,
	)
	return page(200, wrapContent(rc, thread.Title, content)), nil
}

func handleReply(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	if rc.Request.Method != httpd.MethodPost {
		return httpd.Text(400, "expected POST"), nil
	}
	if rc.Session == nil {
		return httpd.Redirect("/403.html"), nil
	}

	threadID, err := strconv.ParseInt(rc.Captures["thread_id"], 10, 64)
	if err != nil {
		return httpd.Redirect("/404.html"), nil
	}

	form := httpd.ParseForm(rc.Request.Body)
	content := form["content"]
	if content == "" {
		return httpd.Text(400, "missing content"), nil
	}

	_, err = rc.Store.CreatePost(ctx, rc.Session.UserID, threadID, time.Now(), content)
	if err != nil {
		if errors.Is(err, storage.ErrUnknownThread) {
			return httpd.Redirect("/404.html"), nil
		}
		return httpd.Response{}, err
	}
	return httpd.Redirect(fmt.Sprintf("/threads/%d/", threadID)), nil
}

func postAuthors(ctx context.Context, store storage.Store, posts []storage.PostData) (map[int64]storage.UserData, error) {
	seen := make(map[int64]bool)
	ids := make([]int64, 0, len(posts))
	for _, post := range posts {
		if !seen[post.AuthorID] {
			seen[post.AuthorID] = true
			ids = append(ids, post.AuthorID)
		}
	}

	users, err := store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	authors := make(map[int64]storage.UserData, len(users))
	for _, user := range users {
		authors[user.ID] = user
	}
	return authors, nil
}
