package take

import "github.com/abhisek/finwell/internal/survey"

// sessionReadyMsg carries the resumed or newly started session.
type sessionReadyMsg struct {
	session *survey.Session
	resumed bool
}

// answerSavedMsg is sent once an answer has been written to the session.
type answerSavedMsg struct {
	step int
}

// submitResultMsg carries the outcome of submitting the questionnaire.
type submitResultMsg struct {
	record *survey.ScoreRecord
	err    error
}
