package console

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdfgeoff/ndscore/internal/httpd"
)

func TestEncodeRequest(t *testing.T) {
	raw := encodeRequest("localhost:8080", httpd.MethodGet, "/index.html", nil, "")
	assert.Equal(t, "GET /index.html HTTP/1.1\r\nHost: localhost:8080\r\n\r\n", raw)
}

func TestEncodeRequest_FormAndCookie(t *testing.T) {
	raw := encodeRequest("localhost:8080", httpd.MethodPost, "/user/login.html",
		map[string]string{"user_name": "alice", "password": "p w"}, "nds_core_auth=abc")

	head, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, head, "Cookie: nds_core_auth=abc")
	assert.Contains(t, head, "Content-Type: application/x-www-form-urlencoded")

	form := httpd.ParseForm([]byte(body))
	assert.Equal(t, "alice", form["user_name"])
	assert.Equal(t, "p w", form["password"])
}

func TestParseResponse(t *testing.T) {
	raw := "HTTP/1.1 302 Found\r\n" +
		"Location: /index.html\r\n" +
		"Set-Cookie: nds_core_auth=secret-key; SameSite=Strict; Path=/\r\n" +
		"\r\n" +
		"body text"

	exch, err := parseResponse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 302 Found", exch.StatusLine)
	assert.Equal(t, "body text", exch.Body)
	assert.Len(t, exch.Headers, 2)
	assert.Equal(t, "nds_core_auth=secret-key", exch.SetCookie())
}

func TestParseResponse_NoCookie(t *testing.T) {
	exch, err := parseResponse([]byte("HTTP/1.1 200 OK\r\n\r\nhi"))
	require.NoError(t, err)
	assert.Equal(t, "", exch.SetCookie())
}

func TestParseResponse_Malformed(t *testing.T) {
	_, err := parseResponse([]byte("no terminator here"))
	assert.Error(t, err)

	_, err = parseResponse([]byte("HTTP/1.1 200 OK\r\nbroken header\r\n\r\n"))
	assert.Error(t, err)
}
