package broker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/craysiii/SSHttp/internal/credentials"
)

// fakeShell is an in-memory ShellStream. Lines pushed with push become
// readable; written command lines are recorded.
type fakeShell struct {
	mu       sync.Mutex
	lines    []string
	written  []string
	writeErr error
	closed   atomic.Int32

	// onWrite, when set, runs after each WriteLine. Used to simulate the
	// remote shell responding to a command.
	onWrite func(line string)
}

func (f *fakeShell) push(lines ...string) {
	f.mu.Lock()
	f.lines = append(f.lines, lines...)
	f.mu.Unlock()
}

func (f *fakeShell) WriteLine(line string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	f.written = append(f.written, line)
	f.mu.Unlock()
	if f.onWrite != nil {
		f.onWrite(line)
	}
	return nil
}

func (f *fakeShell) Buffered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines) > 0
}

func (f *fakeShell) ReadLine() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lines) == 0 {
		return "", false
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, true
}

func (f *fakeShell) Close() error {
	f.closed.Add(1)
	return nil
}

// fakeTransport is an in-memory Transport with scripted Exec results.
type fakeTransport struct {
	shell    *fakeShell
	execOut  string
	execErr  error
	shellErr error
	closed   atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{shell: &fakeShell{}}
}

func (f *fakeTransport) Exec(command string) (string, error) {
	return f.execOut, f.execErr
}

func (f *fakeTransport) OpenShell() (ShellStream, error) {
	if f.shellErr != nil {
		return nil, f.shellErr
	}
	return f.shell, nil
}

func (f *fakeTransport) OpenTerminal() (Terminal, error) {
	return nil, fmt.Errorf("not supported by fake")
}

func (f *fakeTransport) OpenFileTransfer() (FileTransfer, error) {
	return nil, fmt.Errorf("not supported by fake")
}

func (f *fakeTransport) Close() error {
	f.closed.Add(1)
	return nil
}

var _ io.Closer = (*fakeTransport)(nil)

// fakeDialer hands out transports in order, or fails with dialErr.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	dialErr    error
	dials      int
	methods    []credentials.Method
}

func (f *fakeDialer) Dial(ctx context.Context, host string, port int, username string, methods []credentials.Method) (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	f.methods = methods
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	if len(f.transports) == 0 {
		f.transports = append(f.transports, newFakeTransport())
	}
	tr := f.transports[0]
	if len(f.transports) > 1 {
		f.transports = f.transports[1:]
	}
	return tr, nil
}
