package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	residentHost    = "127.0.0.1"
	pingRequest     = "PING\n"
	pongResponse    = "PONG\n"
	successResponse = "SUCCESS\n"
	errorResponse   = "ERROR\n"

	// maxPayload bounds the text a client may send with NOTIFY.
	maxPayload = 64 << 10

	// ErrPayloadTooLarge is the resident's reply to a NOTIFY over the payload limit.
	ErrPayloadTooLarge = "text too large"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("singleinstance: server closed")

// Option configures a server.
type Option func(*tcpServer)

// WithPorts sets the range whose first port the server binds.
func WithPorts(ports Ports) Option {
	return func(s *tcpServer) { s.ports = ports }
}

// WithLogger sets the server logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *tcpServer) { s.log = log }
}

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	mu       sync.Mutex
	lis      net.Listener
	incoming chan *tcpConn
	done     chan struct{}
	port     int
	ports    Ports
	log      *zap.SugaredLogger
}

func newTcpServer(opts ...Option) *tcpServer {
	s := &tcpServer{
		incoming: make(chan *tcpConn, 8),
		done:     make(chan struct{}),
		log:      zap.NewNop().Sugar(),
		ports:    DefaultPorts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ports = s.ports.Normalize()
	return s
}

// Start binds ONLY the start port of the configured range. If occupied, fail.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	start := s.ports.Start
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Warnw("singleinstance: bind failed", "addr", addr, "error", err)
		return fmt.Errorf("singleinstance: bind %s: %w", addr, err)
	}
	s.lis = lis
	s.port = start
	s.log.Infow("singleinstance: listening", "addr", addr)
	go s.acceptLoop(ctx, lis)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		tc, ok := s.handshake(c)
		if !ok {
			continue
		}
		select {
		case s.incoming <- tc:
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-s.done:
			_ = c.Close()
			return
		}
	}
}

// handshake answers PING inline and parses any other request.
func (s *tcpServer) handshake(c net.Conn) (*tcpConn, bool) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		return nil, false
	}
	if line == pingRequest {
		s.log.Debugw("singleinstance: PING -> PONG", "remote", remote)
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	}

	req := Request{Command: Command(strings.TrimSpace(line))}
	switch req.Command {
	case Notify:
		payload, err := io.ReadAll(io.LimitReader(br, maxPayload+1))
		if err != nil {
			s.log.Warnw("singleinstance: read payload failed", "remote", remote, "error", err)
			_ = c.Close()
			return nil, false
		}
		if len(payload) > maxPayload {
			s.log.Warnw("singleinstance: payload too large", "remote", remote, "limit", maxPayload)
			// Drain so the reply is not lost to a reset.
			_, _ = io.Copy(io.Discard, br)
			_, _ = bw.WriteString(errorResponse + ErrPayloadTooLarge)
			_ = bw.Flush()
			_ = c.Close()
			return nil, false
		}
		req.Text = string(payload)
	case Dismiss:
	default:
		s.log.Warnw("singleinstance: unknown request", "remote", remote, "command", req.Command)
		_, _ = bw.WriteString(errorResponse + "unknown command")
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	}
	_ = c.SetDeadline(time.Time{})
	s.log.Infow("singleinstance: request", "remote", remote, "command", req.Command, "chars", len(req.Text))
	return &tcpConn{c: c, r: req, w: bw}, true
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	if s.lis != nil {
		_ = s.lis.Close()
		s.lis = nil
	}
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess() error {
	if _, err := tc.w.WriteString(successResponse); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorResponse + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
