package app

import (
	"context"
	"errors"
	"log"
	"time"

	"contest-quiz-service/internal/domain"
)

// ActiveQuiz is a started session with its questions in display order.
type ActiveQuiz struct {
	Session   domain.Session
	Questions domain.QuestionSet
}

// StudentService drives a student through
// Unregistered -> Registered -> InProgress -> Submitted.
type StudentService struct {
	students  StudentRepository
	results   ResultRepository
	questions QuestionRepository
	sessions  SessionRepository
	sets      QuestionSetSource
	settings  QuizSettings
	now       func() time.Time
}

func NewStudentService(store Store, sessions SessionRepository, sets QuestionSetSource, settings QuizSettings) *StudentService {
	return &StudentService{
		students:  store,
		results:   store,
		questions: store,
		sessions:  sessions,
		sets:      sets,
		settings:  settings,
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *StudentService) WithClock(now func() time.Time) *StudentService {
	s.now = now
	return s
}

// Settings exposes the quiz parameters to the transport layer.
func (s *StudentService) Settings() QuizSettings {
	return s.settings
}

// Register creates a student. An email that already has a student or a result
// is refused with domain.ErrDuplicateRegistration.
func (s *StudentService) Register(ctx context.Context, name, email string) (domain.Student, error) {
	in := RegistrationInput{Name: name, Email: email}.normalized()
	if err := validate.Struct(in); err != nil {
		return domain.Student{}, toValidationError(err)
	}

	set, err := s.sets.QuestionSet(ctx)
	if err != nil {
		return domain.Student{}, err
	}
	if set.Empty() {
		return domain.Student{}, domain.ErrQuizNotReady
	}

	if _, err := s.students.FindStudentByEmail(ctx, in.Email); err == nil {
		return domain.Student{}, domain.ErrDuplicateRegistration
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Student{}, err
	}
	if _, err := s.results.FindResultByEmail(ctx, in.Email); err == nil {
		return domain.Student{}, domain.ErrDuplicateRegistration
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Student{}, err
	}

	student := domain.Student{
		Name:         in.Name,
		Email:        in.Email,
		RegisteredAt: s.now().UTC(),
	}
	id, err := s.students.InsertStudent(ctx, student)
	if err != nil {
		return domain.Student{}, err
	}
	student.ID = id
	return student, nil
}

// State reports where the student is in the quiz lifecycle.
func (s *StudentService) State(ctx context.Context, studentID string) (domain.SessionState, error) {
	if _, err := s.results.FindResultByStudent(ctx, studentID); err == nil {
		return domain.StateSubmitted, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if _, err := s.sessions.Get(ctx, studentID); err == nil {
		return domain.StateInProgress, nil
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return "", err
	}
	if _, err := s.students.FindStudent(ctx, studentID); err == nil {
		return domain.StateRegistered, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	return domain.StateUnregistered, nil
}

// Roster lists every registered student with their state, earliest
// registration first. It is the batch form of State.
func (s *StudentService) Roster(ctx context.Context) ([]domain.StudentStatus, error) {
	students, err := s.students.FindStudents(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.results.FindResults(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	submitted := make(map[string]struct{}, len(results))
	for _, r := range results {
		submitted[r.StudentID] = struct{}{}
	}
	open := make(map[string]struct{}, len(sessions))
	for _, sess := range sessions {
		open[sess.StudentID] = struct{}{}
	}

	roster := make([]domain.StudentStatus, 0, len(students))
	for _, st := range students {
		state := domain.StateRegistered
		if _, ok := submitted[st.ID]; ok {
			state = domain.StateSubmitted
		} else if _, ok := open[st.ID]; ok {
			state = domain.StateInProgress
		}
		roster = append(roster, domain.StudentStatus{Student: st, State: state})
	}
	return roster, nil
}

// StartQuiz opens the session and starts the timer, or resumes an open one.
// A session past its grace window is auto-submitted and reported as
// domain.ErrAlreadySubmitted.
func (s *StudentService) StartQuiz(ctx context.Context, studentID string) (ActiveQuiz, error) {
	if _, err := s.results.FindResultByStudent(ctx, studentID); err == nil {
		return ActiveQuiz{}, domain.ErrAlreadySubmitted
	} else if !errors.Is(err, domain.ErrNotFound) {
		return ActiveQuiz{}, err
	}

	session, err := s.sessions.Get(ctx, studentID)
	switch {
	case err == nil:
		if session.Closed(s.now()) {
			if _, err := s.autoSubmit(ctx, session); err != nil {
				return ActiveQuiz{}, err
			}
			return ActiveQuiz{}, domain.ErrAlreadySubmitted
		}
		set, err := s.loadSet(ctx, session.QuestionIDs)
		if err != nil {
			return ActiveQuiz{}, err
		}
		return ActiveQuiz{Session: session, Questions: set}, nil
	case !errors.Is(err, domain.ErrSessionNotFound):
		return ActiveQuiz{}, err
	}

	student, err := s.students.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ActiveQuiz{}, domain.ErrStudentNotFound
		}
		return ActiveQuiz{}, err
	}
	set, err := s.sets.QuestionSet(ctx)
	if err != nil {
		return ActiveQuiz{}, err
	}
	if set.Empty() {
		return ActiveQuiz{}, domain.ErrQuizNotReady
	}

	now := s.now().UTC()
	session = domain.Session{
		StudentID:   student.ID,
		Email:       student.Email,
		QuestionIDs: set.IDs(),
		Answers:     map[string]string{},
		StartedAt:   now,
		Deadline:    now.Add(s.settings.Duration),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return ActiveQuiz{}, err
	}
	return ActiveQuiz{Session: session, Questions: set}, nil
}

// Tick returns the seconds left. At zero the page is expected to post its
// form; once the grace window has passed the held answers are auto-submitted
// and the stored result is returned alongside.
func (s *StudentService) Tick(ctx context.Context, studentID string) (int, *domain.Result, error) {
	session, err := s.sessions.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			if res, rerr := s.results.FindResultByStudent(ctx, studentID); rerr == nil {
				return 0, &res, nil
			}
		}
		return 0, nil, err
	}

	now := s.now()
	remaining := RemainingSeconds(session.StartedAt, now, s.settings.Duration)
	if remaining > 0 || !session.Closed(now) {
		return remaining, nil, nil
	}
	res, err := s.autoSubmit(ctx, session)
	if err != nil {
		return 0, nil, err
	}
	return 0, &res, nil
}

// SaveAnswers merges answers into the open session. Answers for questions
// outside the session are ignored. Once the grace window has passed the held
// answers are auto-submitted and domain.ErrAlreadySubmitted is returned.
func (s *StudentService) SaveAnswers(ctx context.Context, studentID string, answers map[string]string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, studentID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Closed(s.now()) {
		if _, err := s.autoSubmit(ctx, session); err != nil {
			return domain.Session{}, err
		}
		return domain.Session{}, domain.ErrAlreadySubmitted
	}
	mergeAnswers(&session, answers)
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Submit grades and stores the one result for the student.
func (s *StudentService) Submit(ctx context.Context, studentID string, answers map[string]string) (domain.Result, error) {
	if _, err := s.results.FindResultByStudent(ctx, studentID); err == nil {
		return domain.Result{}, domain.ErrAlreadySubmitted
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Result{}, err
	}

	session, err := s.sessions.Get(ctx, studentID)
	if err != nil {
		return domain.Result{}, err
	}
	now := s.now()
	if !session.Closed(now) {
		mergeAnswers(&session, answers)
	}
	return s.submitSession(ctx, session, session.Expired(now))
}

// ResultFor returns the stored result for a student.
func (s *StudentService) ResultFor(ctx context.Context, studentID string) (domain.Result, error) {
	return s.results.FindResultByStudent(ctx, studentID)
}

// SubmitExpired auto-submits every session past its grace window and returns
// how many results were written.
func (s *StudentService) SubmitExpired(ctx context.Context) (int, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	submitted := 0
	for _, session := range sessions {
		if !session.Closed(now) {
			continue
		}
		_, err := s.submitSession(ctx, session, true)
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, domain.ErrAlreadySubmitted):
		default:
			return submitted, err
		}
	}
	return submitted, nil
}

// autoSubmit submits held answers; losing a race to another submit returns
// the winner's result.
func (s *StudentService) autoSubmit(ctx context.Context, session domain.Session) (domain.Result, error) {
	res, err := s.submitSession(ctx, session, true)
	if errors.Is(err, domain.ErrAlreadySubmitted) {
		return s.results.FindResultByStudent(ctx, session.StudentID)
	}
	return res, err
}

func (s *StudentService) submitSession(ctx context.Context, session domain.Session, auto bool) (domain.Result, error) {
	questions, err := s.loadQuestions(ctx, session.QuestionIDs)
	if err != nil {
		return domain.Result{}, err
	}
	answers := make(map[string]string, len(questions))
	for _, q := range questions {
		if a, ok := session.Answers[q.ID]; ok {
			answers[q.ID] = a
		}
	}
	score, total, attempts := Score(questions, answers)

	res := domain.Result{
		StudentID:     session.StudentID,
		StudentEmail:  session.Email,
		Answers:       answers,
		Attempts:      attempts,
		Score:         score,
		MaxScore:      total,
		StartedAt:     session.StartedAt,
		SubmittedAt:   s.now().UTC(),
		AutoSubmitted: auto,
	}
	id, err := s.results.InsertResult(ctx, res)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			_ = s.sessions.Delete(ctx, session.StudentID)
		}
		return domain.Result{}, err
	}
	res.ID = id
	if err := s.sessions.Delete(ctx, session.StudentID); err != nil {
		log.Printf("drop session %s after submit: %v", session.StudentID, err)
	}
	return res, nil
}

// loadQuestions fetches questions by id, keeping the given order.
func (s *StudentService) loadQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.questions.FindQuestions(ctx, domain.QuestionFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	ordered := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (s *StudentService) loadSet(ctx context.Context, ids []string) (domain.QuestionSet, error) {
	questions, err := s.loadQuestions(ctx, ids)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	var set domain.QuestionSet
	for _, q := range questions {
		if q.Type == domain.QuestionCoding {
			set.Coding = append(set.Coding, q)
		} else {
			set.MCQ = append(set.MCQ, q)
		}
	}
	return set, nil
}

func mergeAnswers(session *domain.Session, answers map[string]string) {
	if session.Answers == nil {
		session.Answers = map[string]string{}
	}
	allowed := make(map[string]struct{}, len(session.QuestionIDs))
	for _, id := range session.QuestionIDs {
		allowed[id] = struct{}{}
	}
	for id, answer := range answers {
		if _, ok := allowed[id]; ok {
			session.Answers[id] = answer
		}
	}
}
