package http

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/auth"
	"contest-quiz-service/internal/domain"
)

type homePage struct {
	Page
	AdminSignedIn   bool
	StudentSignedIn bool
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	_, adminErr := s.verifyCookie(r, adminCookie, auth.RoleAdmin)
	_, studentErr := s.verifyCookie(r, studentCookie, auth.RoleStudent)
	s.render(w, http.StatusOK, "home", homePage{
		Page:            Page{Title: "Welcome"},
		AdminSignedIn:   adminErr == nil,
		StudentSignedIn: studentErr == nil,
	})
}

type loginPage struct {
	Page
	Username string
}

func (s *Server) adminLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "admin_login", loginPage{Page: Page{Title: "Admin login", Role: auth.RoleAdmin}})
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	if !s.admin.Login(username, r.PostFormValue("password")) {
		s.render(w, http.StatusUnauthorized, "admin_login", loginPage{
			Page:     Page{Title: "Admin login", Role: auth.RoleAdmin, Error: domain.ErrInvalidCredentials.Error()},
			Username: username,
		})
		return
	}
	token, err := s.tokens.Issue(auth.RoleAdmin, username, s.opts.AdminTokenTTL)
	if err != nil {
		s.render(w, http.StatusInternalServerError, "admin_login", loginPage{
			Page: Page{Title: "Admin login", Role: auth.RoleAdmin, Error: messageFor(err)},
		})
		return
	}
	s.setCookie(w, adminCookie, token, int(s.opts.AdminTokenTTL.Seconds()))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) adminLogout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, adminCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// questionForm echoes the add-question form back after a validation error.
type questionForm struct {
	Type          string
	Text          string
	Options       []string
	CorrectIndex  string
	CorrectAnswer string
	Explanation   string
	SampleInput   string
	SampleOutput  string
}

type dashboardPage struct {
	Page
	Stats     domain.QuestionStats
	Settings  app.QuizSettings
	Questions []domain.Question
	Results   []domain.ResultView
	Students  []domain.StudentStatus
	Form      questionForm
}

func (s *Server) adminDashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardPage{Page: Page{Title: "Admin dashboard", Role: auth.RoleAdmin}}
	if r.URL.Query().Get("added") != "" {
		data.Notice = "Question added."
	}
	s.renderDashboard(w, r, http.StatusOK, data)
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, data dashboardPage) {
	ctx := r.Context()
	var err error
	if data.Stats, err = s.admin.Stats(ctx); err == nil {
		if data.Questions, err = s.admin.ListQuestions(ctx); err == nil {
			if data.Results, err = s.admin.ListResults(ctx); err == nil {
				data.Students, err = s.students.Roster(ctx)
			}
		}
	}
	if err != nil {
		status = statusFor(err)
		data.Error = messageFor(err)
	}
	data.Settings = s.students.Settings()
	for len(data.Form.Options) < domain.MCQOptionCount {
		data.Form.Options = append(data.Form.Options, "")
	}
	s.render(w, status, "admin_dashboard", data)
}

func (s *Server) addQuestion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := questionForm{
		Type:          r.PostFormValue("type"),
		Text:          r.PostFormValue("text"),
		Options:       r.PostForm["option"],
		CorrectIndex:  r.PostFormValue("correct_index"),
		CorrectAnswer: r.PostFormValue("correct_answer"),
		Explanation:   r.PostFormValue("explanation"),
		SampleInput:   r.PostFormValue("sample_input"),
		SampleOutput:  r.PostFormValue("sample_output"),
	}
	in := app.QuestionInput{
		Type:          form.Type,
		Text:          form.Text,
		CorrectAnswer: form.CorrectAnswer,
		Explanation:   form.Explanation,
		SampleInput:   form.SampleInput,
		SampleOutput:  form.SampleOutput,
	}
	// Blank option boxes are dropped so a short list is reported as such.
	for _, o := range form.Options {
		if strings.TrimSpace(o) != "" {
			in.Options = append(in.Options, o)
		}
	}
	if form.CorrectIndex != "" {
		idx, err := strconv.Atoi(form.CorrectIndex)
		if err != nil {
			idx = -1
		}
		in.CorrectIndex = idx
	}

	if _, err := s.admin.AddQuestion(r.Context(), in); err != nil {
		s.renderDashboard(w, r, statusFor(err), dashboardPage{
			Page: Page{Title: "Admin dashboard", Role: auth.RoleAdmin, Error: messageFor(err)},
			Form: form,
		})
		return
	}
	http.Redirect(w, r, "/admin?added=1", http.StatusSeeOther)
}

func (s *Server) exportResults(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.admin.ExportResultsCSV(r.Context(), &buf); err != nil {
		http.Error(w, messageFor(err), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="quiz_results.csv"`)
	_, _ = buf.WriteTo(w)
}
