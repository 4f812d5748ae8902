package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/qarelay/qa/domain"
)

var _ Store = (*Postgres)(nil)

// Postgres implements Store over sqlx and lib/pq.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func persistErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

func (p *Postgres) SetPendingQuestion(ctx context.Context, telegramID, questionID string) error {
	const q = `
INSERT INTO participants (telegram_id, pending_question_id)
VALUES ($1, $2)
ON CONFLICT (telegram_id) DO UPDATE SET pending_question_id = EXCLUDED.pending_question_id, updated_at = NOW();`
	if _, err := p.db.ExecContext(ctx, q, telegramID, questionID); err != nil {
		return persistErr("set pending question", err)
	}
	return nil
}

func (p *Postgres) PendingQuestion(ctx context.Context, telegramID string) (string, bool, error) {
	const q = `SELECT pending_question_id FROM participants WHERE telegram_id = $1;`
	var pending sql.NullString
	if err := p.db.GetContext(ctx, &pending, q, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, persistErr("pending question", err)
	}
	if !pending.Valid || pending.String == "" {
		return "", false, nil
	}
	return pending.String, true, nil
}

func (p *Postgres) ClearPendingQuestion(ctx context.Context, telegramID string) error {
	const q = `UPDATE participants SET pending_question_id = NULL, updated_at = NOW() WHERE telegram_id = $1;`
	if _, err := p.db.ExecContext(ctx, q, telegramID); err != nil {
		return persistErr("clear pending question", err)
	}
	return nil
}

func (p *Postgres) ClearPendingQuestionIf(ctx context.Context, telegramID, questionID string) (bool, error) {
	const q = `
UPDATE participants SET pending_question_id = NULL, updated_at = NOW()
WHERE telegram_id = $1 AND pending_question_id = $2;`
	res, err := p.db.ExecContext(ctx, q, telegramID, questionID)
	if err != nil {
		return false, persistErr("clear pending question if", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("clear pending question if", err)
	}
	return n > 0, nil
}

func (p *Postgres) UpsertProfile(ctx context.Context, part domain.Participant) error {
	const q = `
INSERT INTO participants (telegram_id, full_name, username)
VALUES ($1, $2, $3)
ON CONFLICT (telegram_id) DO UPDATE SET full_name = EXCLUDED.full_name, username = EXCLUDED.username, updated_at = NOW();`
	if _, err := p.db.ExecContext(ctx, q, part.TelegramID, part.FullName, part.Username); err != nil {
		return persistErr("upsert profile", err)
	}
	return nil
}

func (p *Postgres) Participant(ctx context.Context, telegramID string) (domain.Participant, error) {
	const q = `
SELECT telegram_id, full_name, username, pending_question_id, created_at, updated_at
FROM participants WHERE telegram_id = $1;`
	var part domain.Participant
	if err := p.db.GetContext(ctx, &part, q, telegramID); err != nil {
		return domain.Participant{}, persistErr("participant", err)
	}
	return part, nil
}

func (p *Postgres) Speaker(ctx context.Context, id string) (domain.Speaker, error) {
	const q = `SELECT id, name, telegram_id FROM speakers WHERE id = $1;`
	var s domain.Speaker
	if err := p.db.GetContext(ctx, &s, q, id); err != nil {
		return domain.Speaker{}, persistErr("speaker", err)
	}
	return s, nil
}

func (p *Postgres) UpsertSpeaker(ctx context.Context, s domain.Speaker) error {
	const q = `
INSERT INTO speakers (id, name, telegram_id)
VALUES (:id, :name, :telegram_id)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, telegram_id = EXCLUDED.telegram_id;`
	if _, err := p.db.NamedExecContext(ctx, q, s); err != nil {
		return persistErr("upsert speaker", err)
	}
	return nil
}

func (p *Postgres) CreateQuestion(ctx context.Context, qn *domain.Question) error {
	if qn.CreatedAt.IsZero() {
		qn.CreatedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO questions (
  id, speaker_id, event_id, session_id, text, author_name, author_username, author_telegram_id,
  is_anonymous, is_approved, created_at
) VALUES (
  :id, :speaker_id, :event_id, :session_id, :text, :author_name, :author_username, :author_telegram_id,
  :is_anonymous, :is_approved, :created_at
);`
	if _, err := p.db.NamedExecContext(ctx, q, qn); err != nil {
		return persistErr("create question", err)
	}
	return nil
}

const questionColumns = `
q.id, q.speaker_id, q.event_id, q.session_id, q.text, q.author_name, q.author_username,
q.author_telegram_id, q.is_anonymous, q.is_approved, q.answer_text, q.answered_at, q.is_answered, q.created_at`

func (p *Postgres) Question(ctx context.Context, id string) (domain.Question, error) {
	q := `SELECT ` + questionColumns + ` FROM questions q WHERE q.id = $1;`
	var qn domain.Question
	if err := p.db.GetContext(ctx, &qn, q, id); err != nil {
		return domain.Question{}, persistErr("question", err)
	}
	return qn, nil
}

func (p *Postgres) QuestionDetails(ctx context.Context, id string) (domain.QuestionDetails, error) {
	q := `SELECT ` + questionColumns + `, s.name AS speaker_name
FROM questions q
JOIN speakers s ON s.id = q.speaker_id
WHERE q.id = $1;`
	var d domain.QuestionDetails
	if err := p.db.GetContext(ctx, &d, q, id); err != nil {
		return domain.QuestionDetails{}, persistErr("question details", err)
	}
	return d, nil
}

func (p *Postgres) MarkAnswered(ctx context.Context, id, text string, at time.Time) error {
	const q = `
UPDATE questions SET answer_text = $2, answered_at = $3, is_answered = TRUE
WHERE id = $1 AND is_answered = FALSE;`
	res, err := p.db.ExecContext(ctx, q, id, text, at)
	if err != nil {
		return persistErr("mark answered", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("mark answered", err)
	}
	if n > 0 {
		return nil
	}

	const exists = `SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1);`
	var found bool
	if err := p.db.GetContext(ctx, &found, exists, id); err != nil {
		return persistErr("mark answered", err)
	}
	if found {
		return fmt.Errorf("mark answered %s: %w", id, domain.ErrAlreadyAnswered)
	}
	return fmt.Errorf("mark answered %s: %w", id, domain.ErrNotFound)
}
