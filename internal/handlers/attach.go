package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// attachRateLimit caps terminal input messages per second per connection.
const attachRateLimit = 200

// attachRateBurst is the token bucket burst size, allowing short bursts of
// rapid input (e.g. paste operations) before rate limiting kicks in.
const attachRateBurst = 200

// maxInputMessageSize caps a single terminal input message.
const maxInputMessageSize = 64 * 1024 // 64 KB

// maxResizeCols and maxResizeRows bound terminal resize requests.
const (
	maxResizeCols uint16 = 500
	maxResizeRows uint16 = 500
)

type termResizeMsg struct {
	Type string `json:"type"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// AttachTerminal handles GET /api/v1/sessions/{sessionID}/attach. It upgrades
// to a websocket and bridges it to a raw PTY shell opened on the session's
// connection. Binary messages carry terminal bytes both ways; text messages
// carry resize requests. Attaching does not refresh the session's expiry.
func AttachTerminal(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := Sessions.Lookup(sessionID)
	if err != nil {
		writeBrokerError(w, err)
		return
	}

	clientConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[handlers] failed to accept terminal websocket: %v", err)
		return
	}
	defer clientConn.CloseNow()

	term, err := sess.Transport().OpenTerminal()
	if err != nil {
		log.Printf("[handlers] terminal open failed for session %s: %v", sessionID, err)
		clientConn.Close(4500, "failed to start shell")
		return
	}
	defer term.Close()

	log.Printf("[handlers] terminal attached to session %s", sessionID)

	clientConn.SetReadLimit(1024 * 1024)

	relayCtx, relayCancel := context.WithCancel(r.Context())
	defer relayCancel()

	// Shell stdout -> client
	go func() {
		defer relayCancel()
		buf := make([]byte, 32*1024)
		for {
			n, err := term.Read(buf)
			if n > 0 {
				if werr := clientConn.Write(relayCtx, websocket.MessageBinary, buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	limiter := newTokenBucket(attachRateBurst, attachRateLimit)

	// Client -> shell stdin
	for {
		msgType, data, err := clientConn.Read(relayCtx)
		if err != nil {
			break
		}

		if !limiter.allow() {
			continue
		}

		if msgType == websocket.MessageBinary {
			if len(data) > maxInputMessageSize {
				log.Printf("[handlers] terminal input too large: session=%s size=%d", sessionID, len(data))
				continue
			}
			if _, err := term.Write(data); err != nil {
				break
			}
			continue
		}

		var msg termResizeMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "resize" && msg.Cols > 0 && msg.Rows > 0 {
			cols := msg.Cols
			rows := msg.Rows
			if cols > maxResizeCols {
				cols = maxResizeCols
			}
			if rows > maxResizeRows {
				rows = maxResizeRows
			}
			term.Resize(cols, rows)
		}
	}

	clientConn.Close(websocket.StatusNormalClosure, "")
	log.Printf("[handlers] terminal detached from session %s", sessionID)
}

// tokenBucket is a simple token bucket rate limiter for terminal messages.
type tokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens added per second
	lastRefill time.Time
}

func newTokenBucket(maxTokens, refillRate int) *tokenBucket {
	return &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// allow checks if a message is allowed and consumes a token.
func (tb *tokenBucket) allow() bool {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tb.lastRefill = now

	tb.tokens += int(elapsed.Seconds() * float64(tb.refillRate))
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}

	if tb.tokens <= 0 {
		return false
	}
	tb.tokens--
	return true
}
