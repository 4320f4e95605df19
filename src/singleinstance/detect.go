package singleinstance

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"time"
)

const detectTimeout = 300 * time.Millisecond

// DetectResidentPort reports the port of a resident running in ports, if any.
func DetectResidentPort(ctx context.Context, ports Ports) (int, bool) {
	_, port, ok := findResident(ctx, ports, timeoutFor(ctx, detectTimeout))
	return port, ok
}

// findResident walks the port range and returns the first listener that
// answers the handshake.
func findResident(ctx context.Context, ports Ports, timeout time.Duration) (string, int, bool) {
	ports = ports.Normalize()
	for port := ports.Start; port <= ports.End; port++ {
		if ctx.Err() != nil {
			return "", 0, false
		}
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if handshake(ctx, addr, timeout) {
			return addr, port, true
		}
	}
	return "", 0, false
}

func timeoutFor(ctx context.Context, fallback time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return fallback
}

func handshake(ctx context.Context, addr string, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
