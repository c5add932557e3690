package domain

import "time"

// QuestionType distinguishes multiple-choice from coding questions.
type QuestionType string

const (
	QuestionMCQ    QuestionType = "mcq"
	QuestionCoding QuestionType = "coding"
)

const (
	// MCQOptionCount is the exact number of choices an MCQ carries.
	MCQOptionCount = 4
	// MCQMarks is awarded for a correct multiple-choice answer.
	MCQMarks = 1
	// CodingMarks is awarded for an exact coding answer.
	CodingMarks = 5
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == QuestionMCQ || t == QuestionCoding
}

// MarksFor returns the fixed marks for a question type.
func MarksFor(t QuestionType) int {
	if t == QuestionCoding {
		return CodingMarks
	}
	return MCQMarks
}

// Question is immutable once created by the admin.
type Question struct {
	ID            string       `json:"id" bson:"_id"`
	Type          QuestionType `json:"type" bson:"type"`
	Text          string       `json:"text" bson:"text"`
	Options       []string     `json:"options,omitempty" bson:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer" bson:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty" bson:"explanation,omitempty"`
	SampleInput   string       `json:"sampleInput,omitempty" bson:"sample_input,omitempty"`
	SampleOutput  string       `json:"sampleOutput,omitempty" bson:"sample_output,omitempty"`
	Marks         int          `json:"marks" bson:"marks"`
	CreatedAt     time.Time    `json:"createdAt" bson:"created_at"`
}

// QuestionFilter narrows find_many over questions. Zero values match everything.
type QuestionFilter struct {
	Type  QuestionType
	IDs   []string
	Limit int
}

// Student is created once at registration and never mutated.
type Student struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	RegisteredAt time.Time `json:"registeredAt" bson:"registered_at"`
}

// Attempt is the per-question breakdown stored with a result.
type Attempt struct {
	QuestionID string       `json:"questionId" bson:"question_id"`
	Type       QuestionType `json:"type" bson:"type"`
	Answer     string       `json:"answer" bson:"answer"`
	Correct    bool         `json:"correct" bson:"correct"`
	Awarded    int          `json:"awarded" bson:"awarded"`
	Marks      int          `json:"marks" bson:"marks"`
}

// Result is one student's completed attempt. At most one exists per student.
type Result struct {
	ID            string            `json:"id" bson:"_id"`
	StudentID     string            `json:"studentId" bson:"student_id"`
	StudentEmail  string            `json:"studentEmail" bson:"student_email"`
	Answers       map[string]string `json:"answers" bson:"answers"`
	Attempts      []Attempt         `json:"attempts" bson:"attempts"`
	Score         int               `json:"score" bson:"score"`
	MaxScore      int               `json:"maxScore" bson:"max_score"`
	StartedAt     time.Time         `json:"startedAt" bson:"started_at"`
	SubmittedAt   time.Time         `json:"submittedAt" bson:"submitted_at"`
	AutoSubmitted bool              `json:"autoSubmitted" bson:"auto_submitted"`
}

// MCQCorrect counts correctly answered multiple-choice questions.
func (r Result) MCQCorrect() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Type == QuestionMCQ && a.Correct {
			n++
		}
	}
	return n
}

// Duration is the time between quiz start and submission.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.SubmittedAt.Before(r.StartedAt) {
		return 0
	}
	return r.SubmittedAt.Sub(r.StartedAt)
}

// ResultView joins a result with the student's name and email for the admin.
type ResultView struct {
	Result
	StudentName string `json:"studentName"`
}

// QuestionSet is the fixed quiz served to every student.
type QuestionSet struct {
	MCQ    []Question `json:"mcq"`
	Coding []Question `json:"coding"`
}

// All returns the questions in display order: MCQs first, then coding.
func (s QuestionSet) All() []Question {
	out := make([]Question, 0, len(s.MCQ)+len(s.Coding))
	out = append(out, s.MCQ...)
	return append(out, s.Coding...)
}

// IDs returns the ids of All.
func (s QuestionSet) IDs() []string {
	all := s.All()
	ids := make([]string, len(all))
	for i, q := range all {
		ids[i] = q.ID
	}
	return ids
}

// Empty reports whether there is nothing to serve.
func (s QuestionSet) Empty() bool {
	return len(s.MCQ) == 0 && len(s.Coding) == 0
}

// SessionState tracks a student through the quiz.
type SessionState string

const (
	StateUnregistered SessionState = "unregistered"
	StateRegistered   SessionState = "registered"
	StateInProgress   SessionState = "in_progress"
	StateSubmitted    SessionState = "submitted"
)

// Session is the in-progress quiz for one student, keyed by student id.
type Session struct {
	StudentID   string            `json:"studentId"`
	Email       string            `json:"email"`
	QuestionIDs []string          `json:"questionIds"`
	Answers     map[string]string `json:"answers"`
	StartedAt   time.Time         `json:"startedAt"`
	Deadline    time.Time         `json:"deadline"`
}

// SubmitGrace accepts answers posted just after the deadline, which is how
// the page delivers its final submit once the timer reaches zero.
const SubmitGrace = 30 * time.Second

// Expired reports whether the deadline has been reached at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// Closed reports whether the grace window after the deadline has passed.
// Only closed sessions are submitted by the server on the student's behalf.
func (s Session) Closed(now time.Time) bool {
	return !now.Before(s.Deadline.Add(SubmitGrace))
}

// StudentStatus is one roster row: the student and where they are in the quiz.
type StudentStatus struct {
	Student Student
	State   SessionState
}

// QuestionStats summarizes the question bank.
type QuestionStats struct {
	MCQ    int  `json:"mcq"`
	Coding int  `json:"coding"`
	Ready  bool `json:"ready"`
}
