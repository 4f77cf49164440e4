package httpd

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sdfgeoff/ndscore/internal/config"
)

// Handler turns a parsed request into a response. Handlers never see
// the socket and never fail at this level; error pages are the
// dispatcher's job.
type Handler func(ctx context.Context, req *Request) Response

// Server owns the listening socket and the one-request-at-a-time serve
// loop.
type Server struct {
	cfg      config.HTTPConfig
	log      *zap.SugaredLogger
	listener *net.TCPListener
}

// Listen opens the TCP listening socket.
func Listen(addr string, cfg config.HTTPConfig, log *zap.SugaredLogger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		listener: listener.(*net.TCPListener),
	}, nil
}

// Addr reports the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close shuts the listening socket.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Run services requests until the context is canceled. One request is
// fully handled before the next connection is accepted; the accept poll
// deadline supplies the idle pacing.
func (s *Server) Run(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := s.ServeOnce(ctx, handler); err != nil {
			return err
		}
	}
}

// ServeOnce accepts at most one pending connection and services a
// single request on it. The absence of a pending connection within the
// poll window is not an error.
func (s *Server) ServeOnce(ctx context.Context, handler Handler) error {
	if err := s.listener.SetDeadline(time.Now().Add(s.cfg.AcceptPoll)); err != nil {
		return err
	}

	conn, err := s.listener.Accept()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil
		}
		return err
	}
	defer conn.Close()

	s.serveConn(ctx, conn, handler)
	return nil
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	log := s.log.With("request_id", uuid.NewString())
	log.Infow("client_connected", "addr", conn.RemoteAddr().String())

	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ClientTimeout)); err != nil {
		return
	}
	buf := make([]byte, s.cfg.ReadBufferBytes)
	n, err := conn.Read(buf)
	if err != nil {
		log.Warnw("client_recv_err", "error", err)
		return
	}

	req, err := ParseRequest(buf[:n])
	if err != nil {
		// Unparseable requests are dropped without an answer.
		log.Warnw("failed_parsing_request", "error", err)
		return
	}

	s.send(conn, handler(ctx, req).Encode(), log)
}

// send writes the encoded page in paced chunks. A client that does not
// keep up within the write deadline is abandoned; the failure is logged
// and never retried.
func (s *Server) send(conn net.Conn, page []byte, log *zap.SugaredLogger) {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.ClientTimeout)); err != nil {
		return
	}

	for len(page) > 0 {
		chunk := page
		if len(chunk) > s.cfg.SendChunkBytes {
			chunk = chunk[:s.cfg.SendChunkBytes]
		}
		sent, err := conn.Write(chunk)
		if err != nil {
			log.Warnw("client_timed_out", "error", err)
			return
		}
		page = page[sent:]
		if len(page) > 0 {
			time.Sleep(s.cfg.BufferSendDelay)
		}
	}
}
