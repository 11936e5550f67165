package sshclient

import (
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// terminal is a raw PTY shell for the websocket attach bridge. Unlike
// shellStream its output is not line-buffered; bytes pass straight through so
// full-screen programs render correctly.
type terminal struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func openTerminal(client *ssh.Client) (*terminal, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open ssh session: %w", err)
	}

	if err := session.RequestPty("xterm-256color", 24, 80, terminalModes); err != nil {
		session.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	return &terminal{session: session, stdin: stdin, stdout: stdout}, nil
}

func (t *terminal) Read(p []byte) (int, error) {
	return t.stdout.Read(p)
}

func (t *terminal) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// Resize changes the PTY dimensions.
func (t *terminal) Resize(cols, rows uint16) error {
	return t.session.WindowChange(int(rows), int(cols))
}

// Close terminates the terminal channel. The session's other channels are
// unaffected.
func (t *terminal) Close() error {
	t.stdin.Close()
	return t.session.Close()
}
