package http

import (
	"context"
	"net/http"

	"contest-quiz-service/internal/auth"
)

type ctxKey int

const studentIDKey ctxKey = iota

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.verifyCookie(r, adminCookie, auth.RoleAdmin); err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireStudent puts the student id from the cookie into the request context.
func (s *Server) requireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.verifyCookie(r, studentCookie, auth.RoleStudent)
		if err != nil {
			if websocketRequest(r) {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/student/register", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), studentIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func studentID(r *http.Request) string {
	id, _ := r.Context().Value(studentIDKey).(string)
	return id
}

func (s *Server) verifyCookie(r *http.Request, name, role string) (*auth.Claims, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return nil, err
	}
	return s.tokens.Verify(c.Value, role)
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	s.setCookie(w, name, "", -1)
}

func websocketRequest(r *http.Request) bool {
	return r.Header.Get("Upgrade") != ""
}
