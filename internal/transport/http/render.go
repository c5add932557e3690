package http

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strings"

	"contest-quiz-service/internal/domain"
)

// Page carries what the layout needs; each screen embeds it.
type Page struct {
	Title  string
	Role   string
	Error  string
	Notice string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("unknown page %q", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDuplicateRegistration), errors.Is(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStudentNotFound), errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuizNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the inline text shown for err. Unexpected errors are logged
// and replaced with a generic message.
func messageFor(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) && len(verr.Problems) > 0 {
		return strings.Join(verr.Problems, "; ")
	}
	if statusFor(err) == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		return "Something went wrong, please try again."
	}
	return err.Error()
}
