package http

import (
	"errors"
	"net/http"
	"strings"

	"contest-quiz-service/internal/auth"
	"contest-quiz-service/internal/domain"
)

const answerField = "answer_"

type registerPage struct {
	Page
	Name  string
	Email string
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	if claims, err := s.verifyCookie(r, studentCookie, auth.RoleStudent); err == nil {
		state, err := s.students.State(r.Context(), claims.Subject)
		switch {
		case err != nil:
		case state == domain.StateSubmitted:
			http.Redirect(w, r, "/student/result", http.StatusSeeOther)
			return
		case state != domain.StateUnregistered:
			http.Redirect(w, r, "/student/quiz", http.StatusSeeOther)
			return
		default:
			s.clearCookie(w, studentCookie)
		}
	}
	s.render(w, http.StatusOK, "student_register", registerPage{Page: Page{Title: "Register", Role: auth.RoleStudent}})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name, email := r.PostFormValue("name"), r.PostFormValue("email")
	student, err := s.students.Register(r.Context(), name, email)
	if err == nil {
		var token string
		if token, err = s.tokens.Issue(auth.RoleStudent, student.ID, studentTokenTTL); err == nil {
			s.setCookie(w, studentCookie, token, int(studentTokenTTL.Seconds()))
			http.Redirect(w, r, "/student/quiz", http.StatusSeeOther)
			return
		}
	}
	s.render(w, statusFor(err), "student_register", registerPage{
		Page:  Page{Title: "Register", Role: auth.RoleStudent, Error: messageFor(err)},
		Name:  name,
		Email: email,
	})
}

type quizPage struct {
	Page
	Email     string
	MCQ       []domain.Question
	Coding    []domain.Question
	Answers   map[string]string
	Remaining int
	Deadline  int64
}

func (s *Server) quiz(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	active, err := s.students.StartQuiz(r.Context(), id)
	if err != nil {
		s.quizError(w, r, err)
		return
	}
	remaining, res, err := s.students.Tick(r.Context(), id)
	if err != nil {
		s.quizError(w, r, err)
		return
	}
	if res != nil {
		http.Redirect(w, r, "/student/result", http.StatusSeeOther)
		return
	}

	data := quizPage{
		Page:      Page{Title: "Quiz", Role: auth.RoleStudent},
		Email:     active.Session.Email,
		MCQ:       active.Questions.MCQ,
		Coding:    active.Questions.Coding,
		Answers:   active.Session.Answers,
		Remaining: remaining,
		Deadline:  active.Session.Deadline.UnixMilli(),
	}
	if r.URL.Query().Get("saved") != "" {
		data.Notice = "Answers saved."
	}
	s.render(w, http.StatusOK, "quiz", data)
}

func (s *Server) quizError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadySubmitted):
		http.Redirect(w, r, "/student/result", http.StatusSeeOther)
	case errors.Is(err, domain.ErrStudentNotFound):
		s.clearCookie(w, studentCookie)
		http.Redirect(w, r, "/student/register", http.StatusSeeOther)
	default:
		s.render(w, statusFor(err), "quiz", quizPage{
			Page: Page{Title: "Quiz", Role: auth.RoleStudent, Error: messageFor(err)},
		})
	}
}

func (s *Server) saveAnswers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if _, err := s.students.SaveAnswers(r.Context(), studentID(r), formAnswers(r)); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Redirect(w, r, "/student/quiz", http.StatusSeeOther)
			return
		}
		s.quizError(w, r, err)
		return
	}
	http.Redirect(w, r, "/student/quiz?saved=1", http.StatusSeeOther)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := studentID(r)
	_, err := s.students.Submit(r.Context(), id, formAnswers(r))
	switch {
	case err == nil:
		http.Redirect(w, r, "/student/result", http.StatusSeeOther)
	case errors.Is(err, domain.ErrAlreadySubmitted):
		res, rerr := s.students.ResultFor(r.Context(), id)
		if rerr != nil {
			s.quizError(w, r, rerr)
			return
		}
		s.render(w, http.StatusConflict, "result", resultPage{
			Page:   Page{Title: "Result", Role: auth.RoleStudent, Error: messageFor(err)},
			Result: res,
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Redirect(w, r, "/student/quiz", http.StatusSeeOther)
	default:
		s.quizError(w, r, err)
	}
}

type resultPage struct {
	Page
	Result domain.Result
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	res, err := s.students.ResultFor(r.Context(), studentID(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Redirect(w, r, "/student/quiz", http.StatusSeeOther)
			return
		}
		s.render(w, statusFor(err), "result", resultPage{
			Page: Page{Title: "Result", Role: auth.RoleStudent, Error: messageFor(err)},
		})
		return
	}
	s.render(w, http.StatusOK, "result", resultPage{
		Page:   Page{Title: "Result", Role: auth.RoleStudent},
		Result: res,
	})
}

// formAnswers collects answer_<questionID> fields.
func formAnswers(r *http.Request) map[string]string {
	answers := make(map[string]string)
	for key, values := range r.PostForm {
		if !strings.HasPrefix(key, answerField) || len(values) == 0 {
			continue
		}
		answers[strings.TrimPrefix(key, answerField)] = values[0]
	}
	return answers
}
