package routes

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sdfgeoff/ndscore/internal/config"
	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/router"
	"github.com/sdfgeoff/ndscore/internal/session"
	"github.com/sdfgeoff/ndscore/internal/storage/sqlite"
)

// forum wires a full registry against an in-memory store, so tests
// drive the same dispatch path the server does.
type forum struct {
	t        *testing.T
	registry *router.Registry
}

func setupForum(t *testing.T) *forum {
	t.Helper()
	log := zap.NewNop().Sugar()

	store, err := sqlite.NewStore(config.DatabaseConfig{Path: ":memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	sessions := session.NewManager(store, config.SessionConfig{
		CookieName: "nds_core_auth",
		TTL:        24 * time.Hour,
	}, log)

	registry := router.NewRegistry(store, sessions, StaticFS, log,
		Simple(),
		User(),
		Thread(),
		Index(2),
	)
	return &forum{t: t, registry: registry}
}

func (f *forum) get(path, cookie string) httpd.Response {
	f.t.Helper()
	raw := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: test\r\n", path)
	if cookie != "" {
		raw += "Cookie: " + cookie + "\r\n"
	}
	raw += "\r\n"

	req, err := httpd.ParseRequest([]byte(raw))
	require.NoError(f.t, err)
	return f.registry.Handle(context.Background(), req)
}

func (f *forum) post(path, cookie string, form map[string]string) httpd.Response {
	f.t.Helper()
	values := url.Values{}
	for name, value := range form {
		values.Set(name, value)
	}
	body := values.Encode()

	raw := fmt.Sprintf("POST %s HTTP/1.1\r\nHost: test\r\nContent-Length: %d\r\n", path, len(body))
	if cookie != "" {
		raw += "Cookie: " + cookie + "\r\n"
	}
	raw += "\r\n" + body

	req, err := httpd.ParseRequest([]byte(raw))
	require.NoError(f.t, err)
	return f.registry.Handle(context.Background(), req)
}

// signUp registers an account and returns the session cookie.
func (f *forum) signUp(name, password string) string {
	f.t.Helper()
	resp := f.post("/user/create.html", "", map[string]string{
		"user_name": name, "password": password,
	})
	require.Equal(f.t, 200, resp.StatusCode, string(resp.Body))
	return cookieOf(f.t, resp)
}

func cookieOf(t *testing.T, resp httpd.Response) string {
	t.Helper()
	for _, h := range resp.Headers {
		if h.Name == "Set-Cookie" {
			value, _, _ := strings.Cut(h.Value, ";")
			return value
		}
	}
	t.Fatal("response carries no Set-Cookie header")
	return ""
}

func location(resp httpd.Response) string {
	for _, h := range resp.Headers {
		if h.Name == "Location" {
			return h.Value
		}
	}
	return ""
}

func TestRootRedirectsToIndex(t *testing.T) {
	f := setupForum(t)

	resp := f.get("/", "")
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/index.html", location(resp))
}

func TestIndex_Anonymous(t *testing.T) {
	f := setupForum(t)

	resp := f.get("/index.html", "")
	require.Equal(t, 200, resp.StatusCode)
	body := string(resp.Body)
	assert.Contains(t, body, "No threads yet.")
	assert.Contains(t, body, "/login.html")
	assert.NotContains(t, body, "/threads/new.html")
}

func TestUnknownPathRedirectsTo404(t *testing.T) {
	f := setupForum(t)

	resp := f.get("/no/such/page.html", "")
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/404.html", location(resp))

	resp = f.get("/404.html", "")
	assert.Equal(t, 404, resp.StatusCode)
}

func TestStaticStylesheet(t *testing.T) {
	f := setupForum(t)

	resp := f.get("/style.css", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Headers, httpd.Header{Name: "Cache-Control", Value: "max-age=3600"})
}

func TestCreateUser(t *testing.T) {
	f := setupForum(t)

	resp := f.post("/user/create.html", "", map[string]string{
		"user_name": "alice", "password": "hunter2",
	})
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Created User 1", string(resp.Body))
	assert.NotEmpty(t, cookieOf(t, resp))
}

func TestCreateUser_Validation(t *testing.T) {
	f := setupForum(t)

	resp := f.get("/user/create.html", "")
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "expected POST", string(resp.Body))

	resp = f.post("/user/create.html", "", map[string]string{"user_name": "alice"})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "missing username or password", string(resp.Body))

	f.signUp("alice", "hunter2")
	resp = f.post("/user/create.html", "", map[string]string{
		"user_name": "alice", "password": "other",
	})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "username already taken", string(resp.Body))
}

func TestLogin(t *testing.T) {
	f := setupForum(t)
	f.signUp("alice", "hunter2")

	resp := f.post("/user/login.html", "", map[string]string{
		"user_name": "alice", "password": "wrong",
	})
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/403.html", location(resp))

	resp = f.post("/user/login.html", "", map[string]string{
		"user_name": "nobody", "password": "hunter2",
	})
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/403.html", location(resp), "unknown name must look like a bad password")

	resp = f.post("/user/login.html", "", map[string]string{
		"user_name": "alice", "password": "hunter2",
	})
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/index.html", location(resp))
	cookie := cookieOf(t, resp)

	// the cookie is a live session
	profile := f.get("/user/profile.html", cookie)
	assert.Equal(t, 200, profile.StatusCode)
	assert.Contains(t, string(profile.Body), "alice")
}

func TestLogout(t *testing.T) {
	f := setupForum(t)
	cookie := f.signUp("alice", "hunter2")

	resp := f.get("/user/logout.html", "")
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "not signed in", string(resp.Body))

	resp = f.get("/user/logout.html", cookie)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/index.html", location(resp))

	// the session is gone, so the profile turns the caller away
	resp = f.get("/user/profile.html", cookie)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/403.html", location(resp))
}

func TestUpdateProfile(t *testing.T) {
	f := setupForum(t)
	cookie := f.signUp("alice", "hunter2")

	resp := f.post("/user/update.html", cookie, map[string]string{"color": "#ff0000"})
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/user/profile.html", location(resp))

	profile := f.get("/user/profile.html", cookie)
	body := string(profile.Body)
	assert.Contains(t, body, "#ff0000")
	assert.Contains(t, body, "alice", "empty fields keep their value")

	resp = f.post("/user/update.html", cookie, map[string]string{"color": "red"})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "malformed color", string(resp.Body))

	// password change invalidates the old credential
	resp = f.post("/user/update.html", cookie, map[string]string{"password": "better horse battery"})
	assert.Equal(t, 302, resp.StatusCode)

	resp = f.post("/user/login.html", "", map[string]string{
		"user_name": "alice", "password": "hunter2",
	})
	assert.Equal(t, "/403.html", location(resp))

	resp = f.post("/user/login.html", "", map[string]string{
		"user_name": "alice", "password": "better horse battery",
	})
	assert.Equal(t, "/index.html", location(resp))
}

func TestUpdateProfile_RenameCollision(t *testing.T) {
	f := setupForum(t)
	f.signUp("alice", "pw")
	cookie := f.signUp("bob", "pw")

	resp := f.post("/user/update.html", cookie, map[string]string{"user_name": "alice"})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "username already taken", string(resp.Body))
}

func TestThreadLifecycle(t *testing.T) {
	f := setupForum(t)
	cookie := f.signUp("alice", "hunter2")

	// anonymous callers cannot open the composer
	resp := f.get("/threads/new.html", "")
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/403.html", location(resp))

	resp = f.get("/threads/new.html", cookie)
	assert.Equal(t, 200, resp.StatusCode)

	resp = f.post("/threads/create.html", cookie, map[string]string{
		"title": "Hello <world>", "content": "first & post",
	})
	require.Equal(t, 302, resp.StatusCode)
	threadPath := location(resp)
	assert.Equal(t, "/threads/1/", threadPath)

	view := f.get(threadPath, cookie)
	require.Equal(t, 200, view.StatusCode)
	body := string(view.Body)
	assert.Contains(t, body, "Hello &lt;world&gt;", "titles are escaped")
	assert.Contains(t, body, "first &amp; post", "content is escaped")
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "/threads/1/reply.html")

	// anonymous view has no reply form
	anon := f.get(threadPath, "")
	assert.Equal(t, 200, anon.StatusCode)
	assert.NotContains(t, string(anon.Body), "/threads/1/reply.html")

	resp = f.post("/threads/1/reply.html", cookie, map[string]string{"content": "second post"})
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, threadPath, location(resp))

	view = f.get(threadPath, cookie)
	assert.Contains(t, string(view.Body), "second post")

	// the index now lists the thread for everyone
	index := f.get("/index.html", "")
	assert.Contains(t, string(index.Body), "Hello &lt;world&gt;")
}

func TestCreateThread_Validation(t *testing.T) {
	f := setupForum(t)
	cookie := f.signUp("alice", "hunter2")

	resp := f.post("/threads/create.html", "", map[string]string{
		"title": "t", "content": "c",
	})
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/403.html", location(resp))

	resp = f.post("/threads/create.html", cookie, map[string]string{"title": "t"})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "missing title or content", string(resp.Body))
}

func TestViewThread_Missing(t *testing.T) {
	f := setupForum(t)

	resp := f.get("/threads/999/", "")
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/404.html", location(resp))
}

func TestReply_MissingThread(t *testing.T) {
	f := setupForum(t)
	cookie := f.signUp("alice", "hunter2")

	resp := f.post("/threads/999/reply.html", cookie, map[string]string{"content": "into the void"})
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/404.html", location(resp))
}

func TestIndex_Pagination(t *testing.T) {
	f := setupForum(t) // page size 2
	cookie := f.signUp("alice", "hunter2")

	for i := 1; i <= 3; i++ {
		resp := f.post("/threads/create.html", cookie, map[string]string{
			"title":   fmt.Sprintf("Thread number %d", i),
			"content": "opening",
		})
		require.Equal(t, 302, resp.StatusCode)
	}

	first := string(f.get("/index.html", "").Body)
	assert.Contains(t, first, "Thread number 1")
	assert.Contains(t, first, "Thread number 2")
	assert.NotContains(t, first, "Thread number 3")

	second := string(f.get("/index.html?page=1", "").Body)
	assert.Contains(t, second, "Thread number 3")
	assert.NotContains(t, second, "Thread number 1")
}

func TestSignedInChrome(t *testing.T) {
	f := setupForum(t)
	cookie := f.signUp("alice", "hunter2")

	index := string(f.get("/index.html", cookie).Body)
	assert.Contains(t, index, "/user/profile.html")
	assert.Contains(t, index, "/threads/new.html")
	assert.NotContains(t, index, "/login.html")
}
