// Package sshclient implements the broker's transport over SSH.
//
// It wraps golang.org/x/crypto/ssh: one multiplexed client connection per
// session, a fresh exec channel per one-shot command, a PTY-backed shell for
// interactive use, and an SFTP subsystem channel for file transfer.
package sshclient

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/craysiii/SSHttp/internal/broker"
	"github.com/craysiii/SSHttp/internal/credentials"
)

// DefaultConnectTimeout bounds the TCP dial and SSH handshake at creation.
const DefaultConnectTimeout = 30 * time.Second

// Dialer opens SSH connections. It implements broker.Dialer.
type Dialer struct {
	// Timeout bounds connection establishment. Zero means
	// DefaultConnectTimeout.
	Timeout time.Duration
}

// Dial connects to host:port and authenticates with the negotiated methods,
// tried in order. Host keys are not verified; the service connects to hosts
// named by its callers, not to a fixed fleet.
func (d *Dialer) Dial(ctx context.Context, host string, port int, username string, methods []credentials.Method) (broker.Transport, error) {
	auth, err := authMethods(methods)
	if err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	dialer := net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}

	return &Connection{client: ssh.NewClient(sshConn, chans, reqs)}, nil
}

// authMethods converts negotiated credential methods into ssh.AuthMethods,
// preserving order. Key files are read and parsed here so a bad key fails
// before any network traffic.
func authMethods(methods []credentials.Method) ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod
	for _, m := range methods {
		switch m.Kind {
		case credentials.KindPassword:
			auth = append(auth, ssh.Password(m.Password))
		case credentials.KindPrivateKey:
			pemBytes, err := os.ReadFile(m.KeyPath)
			if err != nil {
				return nil, fmt.Errorf("read private key %s: %w", m.KeyPath, err)
			}
			var signer ssh.Signer
			if m.Passphrase != "" {
				signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(m.Passphrase))
			} else {
				signer, err = ssh.ParsePrivateKey(pemBytes)
			}
			if err != nil {
				return nil, fmt.Errorf("parse private key %s: %w", m.KeyPath, err)
			}
			auth = append(auth, ssh.PublicKeys(signer))
		default:
			return nil, fmt.Errorf("unknown credential kind %d", m.Kind)
		}
	}
	return auth, nil
}

// Connection is one authenticated SSH client connection. SSH multiplexes
// channels over the single TCP connection, so exec sessions, the interactive
// shell, terminal attaches, and SFTP all share it.
type Connection struct {
	client *ssh.Client
}

// Exec runs cmd on a fresh SSH session and returns combined stdout and
// stderr. A non-zero remote exit status is not an error; only transport and
// channel failures are.
func (c *Connection) Exec(cmd string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open ssh session: %w", err)
	}
	defer session.Close()

	var buf bytes.Buffer
	session.Stdout = &buf
	session.Stderr = &buf

	if runErr := session.Run(cmd); runErr != nil {
		if _, ok := runErr.(*ssh.ExitError); !ok {
			return buf.String(), runErr
		}
	}
	return buf.String(), nil
}

// OpenShell starts the session's long-lived interactive shell.
func (c *Connection) OpenShell() (broker.ShellStream, error) {
	return openShell(c.client)
}

// OpenTerminal starts an independent raw PTY shell on the same connection.
func (c *Connection) OpenTerminal() (broker.Terminal, error) {
	return openTerminal(c.client)
}

// OpenFileTransfer opens an SFTP channel on the connection.
func (c *Connection) OpenFileTransfer() (broker.FileTransfer, error) {
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, fmt.Errorf("open sftp channel: %w", err)
	}
	return &fileTransfer{client: client}, nil
}

// Close tears down the underlying TCP connection, ending every channel on it.
func (c *Connection) Close() error {
	return c.client.Close()
}
