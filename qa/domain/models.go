package domain

import "time"

// Participant is any chat identity the relay tracks, asker or speaker.
// PendingQuestionID is the single-slot mailbox naming the question the
// participant is expected to answer next.
type Participant struct {
	TelegramID        string    `db:"telegram_id"`
	FullName          *string   `db:"full_name"`
	Username          *string   `db:"username"`
	PendingQuestionID *string   `db:"pending_question_id"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Speaker is a conference speaker reachable through the bot.
// TelegramID may be numeric or an @handle and may be absent.
type Speaker struct {
	ID         string  `db:"id"`
	Name       string  `db:"name"`
	TelegramID *string `db:"telegram_id"`
}

// Question is a question addressed to a speaker. The answer fields are set
// together, once.
type Question struct {
	ID               string     `db:"id"`
	SpeakerID        string     `db:"speaker_id"`
	EventID          *string    `db:"event_id"`
	SessionID        *string    `db:"session_id"`
	Text             string     `db:"text"`
	AuthorName       *string    `db:"author_name"`
	AuthorUsername   *string    `db:"author_username"`
	AuthorTelegramID *string    `db:"author_telegram_id"`
	IsAnonymous      bool       `db:"is_anonymous"`
	IsApproved       bool       `db:"is_approved"`
	AnswerText       *string    `db:"answer_text"`
	AnsweredAt       *time.Time `db:"answered_at"`
	IsAnswered       bool       `db:"is_answered"`
	CreatedAt        time.Time  `db:"created_at"`
}

// QuestionDetails is a question joined with its speaker's display name.
type QuestionDetails struct {
	Question
	SpeakerName string `db:"speaker_name"`
}
