// Package routes holds the endpoint handlers and the embedded page
// fragments they render.
package routes

import (
	"embed"
	"html"
	"io/fs"
	"strings"

	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/router"
)

const siteName = "NDS Core 12"

//go:embed fragments
var fragmentFiles embed.FS

//go:embed static
var staticFiles embed.FS

// StaticFS is the static-file fallback directory the router serves
// after dynamic routes miss.
var StaticFS = mustSub(staticFiles, "static")

func mustSub(fsys embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// fragment returns an embedded HTML fragment. Fragments are compiled
// into the binary, so a missing name is a programmer error.
func fragment(name string) string {
	data, err := fragmentFiles.ReadFile("fragments/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// fill substitutes {{TOKEN}} placeholders in a fragment. Values that
// came from users must be escaped by the caller.
func fill(template string, pairs ...string) string {
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{{"+pairs[i]+"}}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}

func escape(s string) string {
	return html.EscapeString(s)
}

// wrapContent drops rendered content into the page chrome, switching
// the header button on whether the caller is signed in.
func wrapContent(rc *router.RequestContext, title, content string) []byte {
	settingsButton := fragment("sign_in_button.html")
	if rc.Session != nil {
		settingsButton = fragment("user_profile_button.html")
	}
	return []byte(fill(fragment("root.html"),
		"TITLE", escape(siteName+": "+title),
		"SETTINGS_BUTTON", settingsButton,
		"CONTENT", content,
	))
}

func page(status int, body []byte) httpd.Response {
	return httpd.Response{StatusCode: status, Body: body}
}
