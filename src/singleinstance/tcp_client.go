package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

type tcpClient struct {
	ports Ports
}

func newTcpClient(ports Ports) Client { return &tcpClient{ports: ports} }

func (c *tcpClient) TrySend(ctx context.Context, req Request) (bool, error) {
	timeout := timeoutFor(ctx, 2*time.Second)
	addr, _, ok := findResident(ctx, c.ports, timeout)
	if !ok {
		return false, ctx.Err()
	}
	return true, send(addr, req, timeout)
}

func send(addr string, req Request, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("singleinstance: dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(req.Command) + "\n"); err != nil {
		return err
	}
	if req.Command == Notify {
		if _, err := w.WriteString(req.Text); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	// The payload runs until EOF on our side of the stream.
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return err
		}
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("singleinstance: read status: %w", err)
	}
	switch status {
	case successResponse:
		return nil
	case errorResponse:
		msg, _ := io.ReadAll(br)
		return &RejectedError{Msg: string(msg)}
	default:
		return fmt.Errorf("singleinstance: unexpected status %q", status)
	}
}

// RejectedError is returned by TrySend when the resident answered ERROR.
type RejectedError struct{ Msg string }

func (e *RejectedError) Error() string { return e.Msg }
