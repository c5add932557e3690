package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/auth"
	"contest-quiz-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	adminCookie   = "contest_admin"
	studentCookie = "contest_student"

	// Long enough to read the result page the next day.
	studentTokenTTL = 24 * time.Hour
)

// Options tune the HTTP layer; zero values fall back to defaults.
type Options struct {
	AdminTokenTTL time.Duration
	TickInterval  time.Duration
	SecureCookies bool
}

// Server renders the admin and student screens and serves the countdown socket.
type Server struct {
	admin    *app.AdminService
	students *app.StudentService
	tokens   *auth.Issuer
	pages    map[string]*template.Template
	upgrader websocket.Upgrader
	opts     Options
}

func NewServer(admin *app.AdminService, students *app.StudentService, tokens *auth.Issuer, opts Options) (*Server, error) {
	if opts.AdminTokenTTL <= 0 {
		opts.AdminTokenTTL = 12 * time.Hour
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{
		admin:    admin,
		students: students,
		tokens:   tokens,
		pages:    pages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		opts: opts,
	}, nil
}

// Handler wires every route onto a gorilla/mux router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/", s.home).Methods(http.MethodGet)

	r.HandleFunc("/admin/login", s.adminLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/admin/login", s.adminLogin).Methods(http.MethodPost)
	r.HandleFunc("/admin/logout", s.adminLogout).Methods(http.MethodPost)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("", s.adminDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/questions", s.addQuestion).Methods(http.MethodPost)
	admin.HandleFunc("/results.csv", s.exportResults).Methods(http.MethodGet)

	r.HandleFunc("/student/register", s.registerForm).Methods(http.MethodGet)
	r.HandleFunc("/student/register", s.register).Methods(http.MethodPost)
	student := r.PathPrefix("/student").Subrouter()
	student.Use(s.requireStudent)
	student.HandleFunc("/quiz", s.quiz).Methods(http.MethodGet)
	student.HandleFunc("/quiz/answers", s.saveAnswers).Methods(http.MethodPost)
	student.HandleFunc("/quiz/submit", s.submit).Methods(http.MethodPost)
	student.HandleFunc("/quiz/timer", s.ServeTimer).Methods(http.MethodGet)
	student.HandleFunc("/result", s.result).Methods(http.MethodGet)
	return r
}

var pageNames = []string{"home", "admin_login", "admin_dashboard", "student_register", "quiz", "result"}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"minutes": func(d time.Duration) int {
			return int(d / time.Minute)
		},
		"when": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04 MST")
		},
		"stateLabel": func(state domain.SessionState) string {
			return strings.ReplaceAll(string(state), "_", " ")
		},
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}
