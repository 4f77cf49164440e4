package httpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_Get(t *testing.T) {
	raw := "GET /hello.htm HTTP/1.1\r\n" +
		"User-Agent: Mozilla/4.0 (compatible; MSIE5.01; Windows NT)\r\n" +
		"Host: www.tutorialspoint.com\r\n" +
		"Accept-Language: en-us\r\n" +
		"Accept-Encoding: gzip, deflate\r\n" +
		"Connection: Keep-Alive\r\n" +
		"\r\n"

	req, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, MethodGet, req.Method)
	assert.Equal(t, "/hello.htm", req.URL)
	assert.Equal(t, "/hello.htm", req.Path)
	assert.Empty(t, req.Query)
	assert.Empty(t, req.Body)

	require.Len(t, req.Headers, 5)
	assert.Equal(t, Header{Name: "Host", Value: "www.tutorialspoint.com"}, req.Headers[1])
}

func TestParseRequest_PostWithBody(t *testing.T) {
	raw := "POST /user/login.html HTTP/1.1\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: 34\r\n" +
		"\r\n" +
		"user_name=alice&password=hunter%32"

	req, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, MethodPost, req.Method)
	assert.Equal(t, "/user/login.html", req.Path)
	assert.Equal(t, []byte("user_name=alice&password=hunter%32"), req.Body)

	form := ParseForm(req.Body)
	assert.Equal(t, "alice", form["user_name"])
	assert.Equal(t, "hunter2", form["password"])
}

func TestParseRequest_QueryString(t *testing.T) {
	req, err := ParseRequest([]byte("GET /index.html?page=2&tag=a%20b HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "/index.html", req.Path)
	assert.Equal(t, "/index.html?page=2&tag=a%20b", req.URL)
	assert.Equal(t, "2", req.Query["page"])
	assert.Equal(t, "a b", req.Query["tag"])
}

func TestParseRequest_DuplicateHeadersPreserved(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n" +
		"Cookie: a=1\r\n" +
		"Cookie: b=2\r\n" +
		"\r\n"

	req, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	require.Len(t, req.Headers, 2)
	assert.Equal(t, "a=1", req.Headers[0].Value)
	assert.Equal(t, "b=2", req.Headers[1].Value)
}

func TestParseRequest_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "garbage", raw: "not a request at all"},
		{name: "binary noise", raw: "\x00\x01\x02\x03"},
		{name: "unknown method", raw: "BREW /pot HTTP/1.1\r\n\r\n"},
		{name: "missing protocol", raw: "GET /index.html\r\n\r\n"},
		{name: "bad protocol tag", raw: "GET /index.html SPDY/1\r\n\r\n"},
		{name: "colonless header", raw: "GET / HTTP/1.1\r\nNonsense header line\r\n\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseForm_SkipsUndecodablePairs(t *testing.T) {
	form := ParseForm([]byte("good=1&bad=%zz&also=fine"))
	assert.Equal(t, map[string]string{"good": "1", "also": "fine"}, form)
}

func TestParseForm_ValuelessKey(t *testing.T) {
	form := ParseForm([]byte("flag&name=v"))
	assert.Equal(t, "", form["flag"])
	assert.Equal(t, "v", form["name"])
}

func TestResponseEncode(t *testing.T) {
	resp := Response{
		StatusCode: 200,
		Headers:    []Header{{Name: "Set-Cookie", Value: "auth=abc; Path=/"}},
		Body:       []byte("hello"),
	}
	want := "HTTP/1.1 200 OK\r\nSet-Cookie: auth=abc; Path=/\r\n\r\nhello"
	assert.Equal(t, want, string(resp.Encode()))
}

func TestRedirect(t *testing.T) {
	resp := Redirect("/index.html")
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "HTTP/1.1 302 Found\r\nLocation: /index.html\r\n\r\n", string(resp.Encode()))
}

func TestStatusText_Unknown(t *testing.T) {
	assert.Equal(t, "Unknown", StatusText(299))
}
