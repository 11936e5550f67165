// Package broker creates, stores, expires, and mediates all interaction with
// live remote-shell sessions.
//
// Many HTTP handler goroutines and one background reaper share the Store.
// The broker recovers every failure into a typed error value (ValidationError,
// ConnectError, NotFoundError, ExecutionError); nothing unwinds past it.
package broker

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/craysiii/SSHttp/internal/credentials"
)

const (
	// DefaultReapInterval is the expiry scan period.
	DefaultReapInterval = time.Second
	// DefaultBannerDelay is how long Create waits before draining the
	// post-login banner.
	DefaultBannerDelay = 500 * time.Millisecond

	// maxInsertAttempts bounds identifier-collision retries at creation.
	// Collisions are vanishingly rare with uuid identifiers; the bound only
	// rules out a theoretical livelock.
	maxInsertAttempts = 5
)

// Recorder receives best-effort audit notifications. Implementations must
// never block for long or panic; recording failures do not affect broker
// results.
type Recorder interface {
	SessionStarted(s *Session)
	SessionEnded(sessionID, reason string)
	CommandExecuted(sessionID, mode, command string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(*Session)                      {}
func (nopRecorder) SessionEnded(string, string)                  {}
func (nopRecorder) CommandExecuted(string, string, string, bool) {}

// CreateRequest is a validated session creation request.
type CreateRequest struct {
	Host                  string
	Port                  int
	Username              string
	Password              string
	CertificatePath       string
	CertificatePassphrase string
	TimeoutSeconds        int
}

// CreateResult is the successful outcome of Create.
type CreateResult struct {
	SessionID string
	Banner    string
	Expiry    time.Time
}

// Options configures a Broker.
type Options struct {
	CertificateRoot string
	ReapInterval    time.Duration
	BannerDelay     time.Duration
	Recorder        Recorder
}

// Broker is the façade coordinating the Store, the reaper, and the dialer.
type Broker struct {
	dialer       Dialer
	store        *Store
	recorder     Recorder
	certRoot     string
	reapInterval time.Duration
	bannerDelay  time.Duration

	stop chan struct{}
	done chan struct{}
}

// New creates a Broker. Call Start to launch the expiry reaper and Shutdown
// to stop it and release every remaining session.
func New(dialer Dialer, opts Options) *Broker {
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = DefaultReapInterval
	}
	if opts.BannerDelay <= 0 {
		opts.BannerDelay = DefaultBannerDelay
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Broker{
		dialer:       dialer,
		store:        NewStore(),
		recorder:     opts.Recorder,
		certRoot:     opts.CertificateRoot,
		reapInterval: opts.ReapInterval,
		bannerDelay:  opts.BannerDelay,
	}
}

// Create negotiates credentials, connects, opens the session's interactive
// shell, captures the post-login banner, and registers the new session.
func (b *Broker) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	methods, err := credentials.Negotiate(credentials.Request{
		Password:              req.Password,
		CertificatePath:       req.CertificatePath,
		CertificatePassphrase: req.CertificatePassphrase,
	}, b.certRoot)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	transport, err := b.dialer.Dial(ctx, req.Host, req.Port, req.Username, methods)
	if err != nil {
		return nil, &ConnectError{Reason: err.Error()}
	}

	shell, err := transport.OpenShell()
	if err != nil {
		_ = transport.Close()
		return nil, &ConnectError{Reason: err.Error()}
	}

	banner := b.readBanner(shell)
	timeout := time.Duration(req.TimeoutSeconds) * time.Second

	var sess *Session
	inserted := false
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		sess = newSession(uuid.NewString(), req.Host, req.Port, req.Username, transport, shell, timeout)
		sess.Banner = banner
		if insErr := b.store.Insert(sess); insErr == nil {
			inserted = true
			break
		}
	}
	if !inserted {
		_ = shell.Close()
		_ = transport.Close()
		return nil, &ExecutionError{Reason: "could not allocate a unique session identifier"}
	}

	b.recorder.SessionStarted(sess)
	log.Printf("[broker] session %s created for %s@%s:%d (timeout %ds)",
		sess.ID, req.Username, req.Host, req.Port, req.TimeoutSeconds)

	return &CreateResult{SessionID: sess.ID, Banner: banner, Expiry: sess.ExpiresAt()}, nil
}

// readBanner waits a fixed short delay then drains whatever the shell has
// buffered. Best effort: a quiet host yields an empty banner.
func (b *Broker) readBanner(shell ShellStream) string {
	time.Sleep(b.bannerDelay)
	var lines []string
	for shell.Buffered() {
		line, ok := shell.ReadLine()
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ExecuteOnce runs command to completion on a fresh one-shot channel and
// splits the captured output by delimiter. The expiry clock is refreshed on
// success and on failure; on failure the partial output is returned beside
// the ExecutionError.
func (b *Broker) ExecuteOnce(id, command, delimiter string) ([]string, error) {
	sess, ok := b.store.Get(id)
	if !ok {
		return nil, &NotFoundError{SessionID: id}
	}
	defer sess.Touch()

	out, err := sess.transport.Exec(command)
	lines := splitOutput(out, delimiter)
	b.recorder.CommandExecuted(id, "one-shot", command, err == nil)
	if err != nil {
		return lines, &ExecutionError{Reason: err.Error()}
	}
	return lines, nil
}

// ExecuteInteractive writes command to the session's shell, suspends for
// exactly wait, then drains the lines buffered so far. The wait is fixed,
// not adaptive: output arriving later is left for the next call, and output
// finishing early still costs the full wait.
func (b *Broker) ExecuteInteractive(id, command string, wait time.Duration) (string, error) {
	sess, ok := b.store.Get(id)
	if !ok {
		return "", &NotFoundError{SessionID: id}
	}
	defer sess.Touch()

	if err := sess.shell.WriteLine(command); err != nil {
		b.recorder.CommandExecuted(id, "interactive", command, false)
		return "", &ExecutionError{Reason: err.Error()}
	}

	time.Sleep(wait)

	var sb strings.Builder
	for sess.shell.Buffered() {
		line, ok := sess.shell.ReadLine()
		if !ok {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	b.recorder.CommandExecuted(id, "interactive", command, true)
	return sb.String(), nil
}

// Remove disconnects and drops the session. The removal is atomic with
// respect to the reaper: whichever path wins, the other sees not-found.
func (b *Broker) Remove(id string) error {
	sess, ok := b.store.Remove(id)
	if !ok {
		return &NotFoundError{SessionID: id}
	}
	sess.release()
	b.recorder.SessionEnded(id, "removed")
	log.Printf("[broker] session %s removed", id)
	return nil
}

// Lookup returns the live session for id, for collaborators that open their
// own channels on its connection.
func (b *Broker) Lookup(id string) (*Session, error) {
	sess, ok := b.store.Get(id)
	if !ok {
		return nil, &NotFoundError{SessionID: id}
	}
	return sess, nil
}

// Sessions returns a snapshot of the live sessions.
func (b *Broker) Sessions() []*Session {
	return b.store.Snapshot()
}

// splitOutput splits captured command output into lines. A single trailing
// delimiter is not counted as an extra empty line.
func splitOutput(out, delimiter string) []string {
	if delimiter == "" {
		if out == "" {
			return nil
		}
		return []string{out}
	}
	out = strings.TrimSuffix(out, delimiter)
	if out == "" {
		return nil
	}
	return strings.Split(out, delimiter)
}
