package sshclient

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"sync"

	"golang.org/x/crypto/ssh"
)

// shellBufferLines caps how many output lines the reader goroutine holds for
// the consumer. When the buffer is full the oldest unread output is dropped
// rather than blocking the reader.
const shellBufferLines = 1024

// terminalModes matches the PTY settings used for all interactive channels.
var terminalModes = ssh.TerminalModes{
	ssh.ECHO:          1,
	ssh.TTY_OP_ISPEED: 14400,
	ssh.TTY_OP_OSPEED: 14400,
}

// shellStream is a PTY-backed login shell whose output a background goroutine
// collects into a line buffer. It implements broker.ShellStream.
type shellStream struct {
	session *ssh.Session
	stdin   io.WriteCloser

	lines chan string

	closeOnce sync.Once
}

func openShell(client *ssh.Client) (*shellStream, error) {
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

	s := &shellStream{
		session: session,
		stdin:   stdin,
		lines:   make(chan string, shellBufferLines),
	}
	go s.collect(stdout)
	return s, nil
}

// collect reads shell output line by line into the buffer until the channel
// closes. On overflow the line is dropped; the shell must never be able to
// stall the reader.
func (s *shellStream) collect(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		default:
			log.Printf("[sshclient] shell output buffer full, dropping line")
		}
	}
	close(s.lines)
}

// WriteLine sends one command line to the shell.
func (s *shellStream) WriteLine(line string) error {
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return fmt.Errorf("write to shell: %w", err)
	}
	return nil
}

// Buffered reports whether at least one output line is ready.
func (s *shellStream) Buffered() bool {
	return len(s.lines) > 0
}

// ReadLine pops the next buffered line. ok is false when nothing is buffered
// or the shell has closed.
func (s *shellStream) ReadLine() (string, bool) {
	select {
	case line, open := <-s.lines:
		if !open {
			return "", false
		}
		return line, true
	default:
		return "", false
	}
}

// Close terminates the shell channel. The collector goroutine exits when its
// stdout reader returns EOF.
func (s *shellStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.stdin.Close()
		err = s.session.Close()
	})
	return err
}
