// Package handlers implements the HTTP surface of the session broker.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/craysiii/SSHttp/internal/broker"
)

// Sessions is set from main.go during init.
var Sessions *broker.Broker

type createSessionRequest struct {
	Host                  string `json:"host"`
	Port                  int    `json:"port"`
	Username              string `json:"username"`
	Password              string `json:"password"`
	CertificatePath       string `json:"certificatePath"`
	CertificatePassphrase string `json:"certificatePassphrase"`
	TimeoutSeconds        int    `json:"timeoutSeconds"`
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	Banner    string    `json:"banner"`
	Expiry    time.Time `json:"expiry"`
}

// CreateSession handles POST /api/v1/sessions.
func CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var problems []string
	if req.Host == "" {
		problems = append(problems, "host is required")
	}
	if req.Username == "" {
		problems = append(problems, "username is required")
	}
	if req.TimeoutSeconds <= 0 {
		problems = append(problems, "timeoutSeconds must be positive")
	}
	if len(problems) > 0 {
		writeErrors(w, http.StatusBadRequest, problems...)
		return
	}
	if req.Port <= 0 {
		req.Port = 22
	}

	res, err := Sessions.Create(r.Context(), broker.CreateRequest{
		Host:                  req.Host,
		Port:                  req.Port,
		Username:              req.Username,
		Password:              req.Password,
		CertificatePath:       req.CertificatePath,
		CertificatePassphrase: req.CertificatePassphrase,
		TimeoutSeconds:        req.TimeoutSeconds,
	})
	if err != nil {
		writeBrokerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: res.SessionID,
		Banner:    res.Banner,
		Expiry:    res.Expiry,
	})
}

type sessionSummary struct {
	SessionID string    `json:"sessionId"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Expiry    time.Time `json:"expiry"`
}

// ListSessions handles GET /api/v1/sessions.
func ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := Sessions.Sessions()
	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{
			SessionID: s.ID,
			Host:      s.Host,
			Port:      s.Port,
			Username:  s.Username,
			Expiry:    s.ExpiresAt(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": out})
}

type executeRequest struct {
	Command       string `json:"command"`
	LineDelimiter string `json:"lineDelimiter"`
}

// ExecuteCommand handles POST /api/v1/sessions/{sessionID}/execute. The
// command runs on a fresh one-shot channel; the interactive shell is
// untouched.
func ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Command == "" {
		writeErrors(w, http.StatusBadRequest, "command is required")
		return
	}
	if req.LineDelimiter == "" {
		req.LineDelimiter = "\n"
	}

	lines, err := Sessions.ExecuteOnce(sessionID, req.Command, req.LineDelimiter)
	if err != nil {
		var eErr *broker.ExecutionError
		if errors.As(err, &eErr) {
			// Partial output travels with the error.
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"errors": []string{err.Error()},
				"lines":  lines,
			})
			return
		}
		writeBrokerError(w, err)
		return
	}

	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

type interactiveRequest struct {
	Command     string `json:"command"`
	WaitSeconds int    `json:"waitSeconds"`
}

// ExecuteInteractive handles POST /api/v1/sessions/{sessionID}/interactive.
// The command goes to the session's long-lived shell; after a fixed wait the
// buffered output is returned.
func ExecuteInteractive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req interactiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Command == "" {
		writeErrors(w, http.StatusBadRequest, "command is required")
		return
	}
	if req.WaitSeconds < 0 {
		writeErrors(w, http.StatusBadRequest, "waitSeconds must not be negative")
		return
	}

	output, err := Sessions.ExecuteInteractive(sessionID, req.Command, time.Duration(req.WaitSeconds)*time.Second)
	if err != nil {
		writeBrokerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"output": output})
}

// RemoveSession handles DELETE /api/v1/sessions/{sessionID}.
func RemoveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := Sessions.Remove(sessionID); err != nil {
		writeBrokerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
