package app

import (
	"errors"
	"fmt"
	"strings"

	"contest-quiz-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(questionInputRules, QuestionInput{})
}

// QuestionInput is the admin's add-question payload. For MCQs the correct
// answer may be given as the option text or as a 1-based CorrectIndex.
type QuestionInput struct {
	Type          string   `validate:"required,oneof=mcq coding"`
	Text          string   `validate:"required,max=4000"`
	Options       []string `validate:"omitempty,dive,required"`
	CorrectAnswer string
	CorrectIndex  int `validate:"gte=0,lte=4"`
	Explanation   string
	SampleInput   string
	SampleOutput  string
}

func (in QuestionInput) normalized() QuestionInput {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Text = strings.TrimSpace(in.Text)
	opts := make([]string, 0, len(in.Options))
	for _, o := range in.Options {
		opts = append(opts, strings.TrimSpace(o))
	}
	in.Options = opts
	if in.Type == string(domain.QuestionMCQ) {
		in.CorrectAnswer = strings.TrimSpace(in.CorrectAnswer)
	}
	if in.Type == string(domain.QuestionMCQ) && in.CorrectAnswer == "" &&
		in.CorrectIndex >= 1 && in.CorrectIndex <= len(in.Options) {
		in.CorrectAnswer = in.Options[in.CorrectIndex-1]
	}
	return in
}

func questionInputRules(sl validator.StructLevel) {
	in := sl.Current().Interface().(QuestionInput)
	switch domain.QuestionType(in.Type) {
	case domain.QuestionMCQ:
		if len(in.Options) != domain.MCQOptionCount {
			sl.ReportError(in.Options, "Options", "Options", "mcq_options", "")
			return
		}
		seen := make(map[string]struct{}, len(in.Options))
		for _, o := range in.Options {
			if _, dup := seen[o]; dup {
				sl.ReportError(in.Options, "Options", "Options", "unique_options", "")
				return
			}
			seen[o] = struct{}{}
		}
		if _, ok := seen[in.CorrectAnswer]; !ok || in.CorrectAnswer == "" {
			sl.ReportError(in.CorrectAnswer, "CorrectAnswer", "CorrectAnswer", "mcq_correct", "")
		}
	case domain.QuestionCoding:
		if len(in.Options) > 0 {
			sl.ReportError(in.Options, "Options", "Options", "coding_options", "")
		}
		if strings.TrimSpace(in.CorrectAnswer) == "" {
			sl.ReportError(in.CorrectAnswer, "CorrectAnswer", "CorrectAnswer", "coding_expected", "")
		}
	}
}

// RegistrationInput is the student registration form.
type RegistrationInput struct {
	Name  string `validate:"required,max=120"`
	Email string `validate:"required,email,max=254"`
}

func (in RegistrationInput) normalized() RegistrationInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	return in
}

// NormalizeEmail is the canonical form used as the uniqueness key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var problemMessages = map[string]string{
	"mcq_options":     "multiple-choice questions need exactly 4 options",
	"unique_options":  "options must be distinct",
	"mcq_correct":     "the correct answer must be one of the options",
	"coding_options":  "coding questions do not take options",
	"coding_expected": "coding questions need an expected answer",
	"oneof":           "must be mcq or coding",
	"email":           "must be a valid email address",
}

// toValidationError flattens validator output into a domain.ValidationError.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := problemMessages[fe.Tag()]; ok {
			if strings.Contains(fe.Tag(), "_") {
				problems = append(problems, msg)
			} else {
				problems = append(problems, fmt.Sprintf("%s %s", strings.ToLower(fe.Field()), msg))
			}
			continue
		}
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return domain.NewValidationError(problems...)
}
