package broker

import (
	"context"
	"io"

	"github.com/craysiii/SSHttp/internal/credentials"
)

// Transport is one authenticated connection to a remote host. The broker
// consumes it but does not implement it; see internal/sshclient for the SSH
// implementation. A Transport is owned by exactly one Session and released
// exactly once.
type Transport interface {
	// Exec runs a single command to completion and returns its combined
	// output. It has no timeout of its own; it is bounded only by the remote
	// command's termination.
	Exec(command string) (string, error)

	// OpenShell opens an interactive duplex shell with line-buffered output.
	OpenShell() (ShellStream, error)

	// OpenTerminal opens a raw pty-backed shell, independent of any
	// ShellStream on the same connection.
	OpenTerminal() (Terminal, error)

	// OpenFileTransfer opens a file-transfer channel on the connection.
	OpenFileTransfer() (FileTransfer, error)

	Close() error
}

// ShellStream is an interactive shell whose output is collected into a
// buffer of whole lines.
type ShellStream interface {
	// WriteLine sends one command line to the shell.
	WriteLine(line string) error
	// Buffered reports whether at least one output line is ready.
	Buffered() bool
	// ReadLine returns the next buffered line without blocking. ok is false
	// when nothing is buffered.
	ReadLine() (line string, ok bool)
	Close() error
}

// Terminal is a raw interactive shell stream used by the websocket attach
// bridge.
type Terminal interface {
	io.Reader
	io.Writer
	Resize(cols, rows uint16) error
	Close() error
}

// FileTransfer moves files to and from the remote host.
type FileTransfer interface {
	Download(path string) (io.ReadCloser, error)
	Upload(path string, r io.Reader) error
	Close() error
}

// Dialer opens authenticated Transports.
type Dialer interface {
	Dial(ctx context.Context, host string, port int, username string, methods []credentials.Method) (Transport, error)
}
