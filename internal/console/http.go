package console

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/sdfgeoff/ndscore/internal/httpd"
)

const dialTimeout = 5 * time.Second

// Exchange is a single request/response pair captured by the console.
type Exchange struct {
	Method     httpd.Method
	Target     string
	StatusLine string
	Headers    []httpd.Header
	Body       string
	Elapsed    time.Duration
}

// SetCookie returns the value of the first Set-Cookie header, trimmed of
// attributes, or "" when the response set none.
func (e Exchange) SetCookie() string {
	for _, h := range e.Headers {
		if !strings.EqualFold(h.Name, "Set-Cookie") {
			continue
		}
		value, _, _ := strings.Cut(h.Value, ";")
		return strings.TrimSpace(value)
	}
	return ""
}

// do performs one HTTP exchange over a fresh TCP connection. The server
// closes the connection after its response, so the body is read to EOF.
func do(ctx context.Context, addr string, method httpd.Method, target string, form map[string]string, cookie string) (Exchange, error) {
	started := time.Now()

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Exchange{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Exchange{}, err
		}
	}

	raw := encodeRequest(addr, method, target, form, cookie)
	if _, err := conn.Write([]byte(raw)); err != nil {
		return Exchange{}, err
	}

	data, err := io.ReadAll(conn)
	if err != nil && len(data) == 0 {
		return Exchange{}, err
	}

	exch, err := parseResponse(data)
	if err != nil {
		return Exchange{}, err
	}
	exch.Method = method
	exch.Target = target
	exch.Elapsed = time.Since(started)
	return exch, nil
}

func encodeRequest(host string, method httpd.Method, target string, form map[string]string, cookie string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, target)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	if cookie != "" {
		fmt.Fprintf(&b, "Cookie: %s\r\n", cookie)
	}

	body := encodeForm(form)
	if len(form) > 0 {
		b.WriteString("Content-Type: application/x-www-form-urlencoded\r\n")
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

func encodeForm(form map[string]string) string {
	values := url.Values{}
	for name, value := range form {
		values.Set(name, value)
	}
	return values.Encode()
}

func parseResponse(data []byte) (Exchange, error) {
	head, body, found := strings.Cut(string(data), "\r\n\r\n")
	if !found {
		return Exchange{}, fmt.Errorf("response missing header terminator")
	}

	lines := strings.Split(head, "\r\n")
	exch := Exchange{StatusLine: lines[0], Body: body}
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return Exchange{}, fmt.Errorf("malformed response header %q", line)
		}
		exch.Headers = append(exch.Headers, httpd.Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return exch, nil
}
