package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/qa/domain"
	"github.com/m3rciful/qarelay/qa/store"
)

type sent struct {
	chatID string
	text   string
	markup *tele.ReplyMarkup
}

type ack struct {
	id   string
	text string
}

// recorder is a Gateway that remembers every call.
type recorder struct {
	sent    []sent
	acks    []ack
	failFor map[string]error
}

func (r *recorder) SendMessage(_ context.Context, chatID, text string, markup *tele.ReplyMarkup) error {
	if err, ok := r.failFor[chatID]; ok {
		return err
	}
	r.sent = append(r.sent, sent{chatID: chatID, text: text, markup: markup})
	return nil
}

func (r *recorder) AnswerCallback(_ context.Context, id, text string) error {
	r.acks = append(r.acks, ack{id: id, text: text})
	return nil
}

func (r *recorder) to(chatID string) []sent {
	var out []sent
	for _, s := range r.sent {
		if s.chatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

var msk = time.FixedZone("MSK", 3*60*60)

func testFormatter() Formatter {
	return Formatter{Location: msk, EventName: "GoConf"}
}

func strPtr(s string) *string { return &s }

// fixture seeds speaker s1 (@jdoe, chat "555") and question q1 from asker 777.
func fixture(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	if err := m.UpsertSpeaker(ctx, domain.Speaker{ID: "s1", Name: "Jane Doe", TelegramID: strPtr("@jdoe")}); err != nil {
		t.Fatalf("seed speaker: %v", err)
	}
	if err := m.UpsertSpeaker(ctx, domain.Speaker{ID: "s2", Name: "No Chat"}); err != nil {
		t.Fatalf("seed speaker: %v", err)
	}
	q := &domain.Question{
		ID:               "q1",
		SpeakerID:        "s1",
		Text:             "What is <b>Go</b>?",
		AuthorName:       strPtr("Ann"),
		AuthorTelegramID: strPtr("777"),
		CreatedAt:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := m.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return m
}

func addQuestion(t *testing.T, m *store.Memory, id string, author *string) {
	t.Helper()
	q := &domain.Question{ID: id, SpeakerID: "s1", Text: fmt.Sprintf("question %s", id), AuthorTelegramID: author}
	if err := m.CreateQuestion(context.Background(), q); err != nil {
		t.Fatalf("add question %s: %v", id, err)
	}
}

func callbackUpdate(userID int64, data string) *tele.Update {
	return &tele.Update{ID: 1, Callback: &tele.Callback{
		ID:     "cb-1",
		Sender: &tele.User{ID: userID},
		Data:   data,
	}}
}

func textUpdate(userID int64, text string) *tele.Update {
	return &tele.Update{ID: 2, Message: &tele.Message{
		ID:     10,
		Sender: &tele.User{ID: userID, FirstName: "Jane", LastName: "Doe", Username: "jdoe"},
		Chat:   &tele.Chat{ID: userID},
		Text:   text,
	}}
}
