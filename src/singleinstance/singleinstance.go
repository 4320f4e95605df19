package singleinstance

// This file defines the API for single-instance ownership and --notify delegation.

import (
	"context"
)

// Server owns the TCP endpoint and answers delegated requests.
type Server interface {
	// Start begins listening on the first port of the configured range and accepting clients.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess acknowledges the request.
	RespondSuccess() error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Command names what a delegated request asks the resident to do.
type Command string

const (
	// Notify presents Request.Text as if it had just been selected.
	Notify Command = "NOTIFY"
	// Dismiss closes the live notification.
	Dismiss Command = "DISMISS"
)

// Request represents a single delegated client request.
type Request struct {
	Command Command
	Text    string
}

// Client attempts to delegate a request to a resident server.
type Client interface {
	// TrySend scans the configured TCP range, performs the PING handshake and
	// delegates req to the resident. If no resident is found it returns
	// delegated=false, err=nil.
	TrySend(ctx context.Context, req Request) (delegated bool, err error)
}

// NewServer returns TCP implementation.
func NewServer(opts ...Option) Server { return newTcpServer(opts...) }

// NewClient returns TCP implementation.
func NewClient(ports Ports) Client { return newTcpClient(ports) }
