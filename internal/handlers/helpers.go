package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/craysiii/SSHttp/internal/broker"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, msgs ...string) {
	writeJSON(w, status, map[string][]string{"errors": msgs})
}

// writeBrokerError maps the broker's typed errors onto HTTP statuses.
func writeBrokerError(w http.ResponseWriter, err error) {
	var (
		vErr  *broker.ValidationError
		cErr  *broker.ConnectError
		nfErr *broker.NotFoundError
		eErr  *broker.ExecutionError
	)
	switch {
	case errors.As(err, &vErr):
		writeErrors(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &nfErr):
		writeErrors(w, http.StatusNotFound, err.Error())
	case errors.As(err, &cErr):
		writeErrors(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &eErr):
		writeErrors(w, http.StatusInternalServerError, err.Error())
	default:
		writeErrors(w, http.StatusInternalServerError, err.Error())
	}
}
