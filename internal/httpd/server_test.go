package httpd

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sdfgeoff/ndscore/internal/config"
)

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{
		AcceptPoll:      2 * time.Second,
		BufferSendDelay: time.Millisecond,
		ClientTimeout:   2 * time.Second,
		ReadBufferBytes: 4096,
		SendChunkBytes:  8,
	}
}

func exchange(t *testing.T, addr net.Addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(data)
}

func TestServeOnce_RoundTrip(t *testing.T) {
	server, err := Listen("127.0.0.1:0", testHTTPConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer server.Close()

	handler := func(_ context.Context, req *Request) Response {
		return Text(200, "you asked for "+req.Path)
	}

	done := make(chan error, 1)
	go func() { done <- server.ServeOnce(context.Background(), handler) }()

	got := exchange(t, server.Addr(), "GET /hello.html HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, <-done)

	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n"), got)
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nyou asked for /hello.html"), got)
}

func TestServeOnce_ChunkedSendReassembles(t *testing.T) {
	server, err := Listen("127.0.0.1:0", testHTTPConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer server.Close()

	body := strings.Repeat("abcdefgh", 40)
	handler := func(_ context.Context, _ *Request) Response {
		return Text(200, body)
	}

	done := make(chan error, 1)
	go func() { done <- server.ServeOnce(context.Background(), handler) }()

	got := exchange(t, server.Addr(), "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, <-done)
	assert.True(t, strings.HasSuffix(got, body))
}

func TestServeOnce_DropsUnparseableRequest(t *testing.T) {
	server, err := Listen("127.0.0.1:0", testHTTPConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer server.Close()

	called := false
	handler := func(_ context.Context, _ *Request) Response {
		called = true
		return Text(200, "never")
	}

	done := make(chan error, 1)
	go func() { done <- server.ServeOnce(context.Background(), handler) }()

	// no answer of any kind, just a closed connection
	got := exchange(t, server.Addr(), "complete nonsense\r\n\r\n")
	require.NoError(t, <-done)
	assert.Empty(t, got)
	assert.False(t, called)
}

func TestServeOnce_NoPendingConnection(t *testing.T) {
	cfg := testHTTPConfig()
	cfg.AcceptPoll = 20 * time.Millisecond

	server, err := Listen("127.0.0.1:0", cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer server.Close()

	handler := func(_ context.Context, _ *Request) Response { return Text(200, "") }
	require.NoError(t, server.ServeOnce(context.Background(), handler))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := testHTTPConfig()
	cfg.AcceptPoll = 10 * time.Millisecond

	server, err := Listen("127.0.0.1:0", cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, func(_ context.Context, _ *Request) Response {
			return Text(200, "")
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
