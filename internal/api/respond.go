package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gbcatalog/internal/observability"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, short, message string) {
	writeJSON(w, status, ErrorBody{Error: short, Message: message})
}

// serverError logs err against the request and writes a generic 500.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.logger.Error(message,
		zap.String("request_id", observability.RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "server error", message)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// recoverPanics turns a handler panic into a logged 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.Error("handler panic",
					zap.String("request_id", observability.RequestID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Any("panic", v),
				)
				writeError(w, http.StatusInternalServerError, "server error", "an unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
