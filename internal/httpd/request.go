// Package httpd is the raw-socket HTTP transport: it accepts one
// connection at a time, parses the request bytes itself, and writes the
// encoded response back with paced sends. It is intentionally not a
// general HTTP/1.1 implementation: no keep-alive, no chunked transfer,
// one request per connection.
package httpd

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
)

// Method is one of the request methods the server understands.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
)

// Header is a single name/value pair. Order is preserved and duplicate
// names are allowed, which cookie scanning relies on.
type Header struct {
	Name  string
	Value string
}

// Request is a parsed inbound request.
type Request struct {
	Method  Method
	URL     string // the raw request target, for logging
	Path    string
	Query   map[string]string
	Headers []Header
	Body    []byte
}

// ParseRequest extracts a request from raw bytes. The head and body are
// split on the blank-line boundary; the request line must carry exactly
// a known method, a target and a protocol tag.
func ParseRequest(raw []byte) (*Request, error) {
	head, body, _ := bytes.Cut(raw, []byte("\r\n\r\n"))
	lines := strings.Split(string(head), "\r\n")

	fields := strings.Split(strings.TrimSpace(lines[0]), " ")
	if len(fields) != 3 {
		return nil, fmt.Errorf("malformed request line %q", lines[0])
	}
	method, err := parseMethod(fields[0])
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(fields[2], "HTTP/") {
		return nil, fmt.Errorf("malformed protocol %q", fields[2])
	}

	headers := make([]Header, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		headers = append(headers, Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	path, query := splitTarget(fields[1])
	return &Request{
		Method:  method,
		URL:     fields[1],
		Path:    path,
		Query:   query,
		Headers: headers,
		Body:    body,
	}, nil
}

func parseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodGet, MethodPost, MethodDelete:
		return Method(raw), nil
	}
	return "", fmt.Errorf("unknown method %q", raw)
}

func splitTarget(target string) (string, map[string]string) {
	path, rawQuery, found := strings.Cut(target, "?")
	if !found {
		return path, map[string]string{}
	}
	return path, ParseForm([]byte(rawQuery))
}

// ParseForm splits a URL-encoded key/value blob on '&' and then the
// first '=' of each pair, percent-decoding both halves. Pairs that fail
// to decode are skipped. The same splitter handles query strings and
// POST form bodies.
func ParseForm(raw []byte) map[string]string {
	values := make(map[string]string)
	for _, pair := range strings.Split(string(raw), "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			continue
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		values[decodedName] = decodedValue
	}
	return values
}
