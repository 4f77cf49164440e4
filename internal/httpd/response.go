package httpd

import (
	"bytes"
	"fmt"
)

// Response is an outbound response prior to encoding.
type Response struct {
	StatusCode int
	Headers    []Header
	Body       []byte
}

// Text builds a plain-text response.
func Text(status int, body string) Response {
	return Response{StatusCode: status, Body: []byte(body)}
}

// Redirect builds a 302 pointing at location.
func Redirect(location string) Response {
	return Response{
		StatusCode: 302,
		Headers:    []Header{{Name: "Location", Value: location}},
	}
}

// Encode serializes the response as status line, headers, blank line,
// body.
func (r Response) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.StatusCode, StatusText(r.StatusCode))
	for _, h := range r.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}

// StatusText returns the reason phrase for a status code.
func StatusText(code int) string {
	if reason, ok := statusReason[code]; ok {
		return reason
	}
	return "Unknown"
}

var statusReason = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Time-out",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Large",
	415: "Unsupported Media Type",
	416: "Requested range not satisfiable",
	417: "Expectation Failed",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Time-out",
	505: "HTTP Version not supported",
}
