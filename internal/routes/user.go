package routes

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdfgeoff/ndscore/internal/auth"
	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/router"
	"github.com/sdfgeoff/ndscore/internal/storage"
)

// User returns the account and session routes.
func User() []router.Route {
	return []router.Route{
		router.NewRoute("/login.html", handleLoginPage),
		router.NewRoute("/user/create.html", handleCreateUser),
		router.NewRoute("/user/login.html", handleLogin),
		router.NewRoute("/user/logout.html", handleLogout),
		router.NewRoute("/user/profile.html", handleProfilePage),
		router.NewRoute("/user/update.html", handleUpdateProfile),
	}
}

func handleLoginPage(_ context.Context, rc *router.RequestContext) (httpd.Response, error) {
	return page(200, wrapContent(rc, "LOG IN", fragment("login_dialog.html"))), nil
}

func handleCreateUser(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	if rc.Request.Method != httpd.MethodPost {
		return httpd.Text(400, "expected POST"), nil
	}

	form := httpd.ParseForm(rc.Request.Body)
	userName, password := form["user_name"], form["password"]
	if userName == "" || password == "" {
		return httpd.Text(400, "missing username or password"), nil
	}

	bundle, err := auth.EncodePassword([]byte(password))
	if err != nil {
		return httpd.Response{}, err
	}

	userID, err := rc.Store.CreateUser(ctx, userName, bundle, storage.DefaultColor)
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return httpd.Text(400, "username already taken"), nil
		}
		return httpd.Response{}, err
	}

	cookie, _, err := rc.Sessions.Issue(ctx, userID)
	if err != nil {
		return httpd.Response{}, err
	}

	resp := httpd.Text(200, fmt.Sprintf("Created User %d", userID))
	resp.Headers = append(resp.Headers, cookie)
	return resp, nil
}

func handleLogin(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	if rc.Request.Method != httpd.MethodPost {
		return httpd.Text(400, "expected POST"), nil
	}

	form := httpd.ParseForm(rc.Request.Body)
	userName, password := form["user_name"], form["password"]
	if userName == "" || password == "" {
		return httpd.Text(400, "missing username or password"), nil
	}

	user, err := rc.Store.UserByName(ctx, userName)
	if err != nil {
		return httpd.Response{}, err
	}
	if user == nil {
		// Unknown name and bad password look identical to the caller.
		return httpd.Redirect("/403.html"), nil
	}
	if !auth.VerifyPassword([]byte(password), user.Secret) {
		return httpd.Redirect("/403.html"), nil
	}

	cookie, _, err := rc.Sessions.Issue(ctx, user.ID)
	if err != nil {
		return httpd.Response{}, err
	}

	resp := httpd.Redirect("/index.html")
	resp.Headers = append(resp.Headers, cookie)
	return resp, nil
}

func handleLogout(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	if rc.Session == nil {
		return httpd.Text(400, "not signed in"), nil
	}
	if err := rc.Store.DeleteSessionByKey(ctx, rc.Session.Key); err != nil {
		return httpd.Response{}, err
	}
	return httpd.Redirect("/index.html"), nil
}

func handleProfilePage(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	user, resp, err := sessionUser(ctx, rc)
	if user == nil {
		return resp, err
	}

	content := fill(fragment("profile.html"),
		"USER_NAME", escape(user.Name),
		"COLOR", user.Color.String(),
	)
	return page(200, wrapContent(rc, "PROFILE", content)), nil
}

func handleUpdateProfile(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
	if rc.Request.Method != httpd.MethodPost {
		return httpd.Text(400, "expected POST"), nil
	}

	user, resp, err := sessionUser(ctx, rc)
	if user == nil {
		return resp, err
	}

	// Omitted or empty fields keep their current value.
	form := httpd.ParseForm(rc.Request.Body)
	updated := *user
	if name := form["user_name"]; name != "" {
		updated.Name = name
	}
	if password := form["password"]; password != "" {
		bundle, err := auth.EncodePassword([]byte(password))
		if err != nil {
			return httpd.Response{}, err
		}
		updated.Secret = bundle
	}
	if raw := form["color"]; raw != "" {
		color, err := storage.ParseColor(raw)
		if err != nil {
			return httpd.Text(400, "malformed color"), nil
		}
		updated.Color = color
	}

	if err := rc.Store.UpdateUser(ctx, updated); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return httpd.Text(400, "username already taken"), nil
		}
		return httpd.Response{}, err
	}
	return httpd.Redirect("/user/profile.html"), nil
}

// sessionUser loads the signed-in caller's account. A nil user means
// the accompanying response (or error) should be returned as-is.
func sessionUser(ctx context.Context, rc *router.RequestContext) (*storage.UserData, httpd.Response, error) {
	if rc.Session == nil {
		return nil, httpd.Redirect("/403.html"), nil
	}
	users, err := rc.Store.UsersByIDs(ctx, []int64{rc.Session.UserID})
	if err != nil {
		return nil, httpd.Response{}, err
	}
	if len(users) == 0 {
		return nil, httpd.Redirect("/403.html"), nil
	}
	return &users[0], httpd.Response{}, nil
}
