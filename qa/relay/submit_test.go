package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/qarelay/qa/domain"
)

func newTestSubmitter(t *testing.T, gw *recorder) (*Submitter, Store) {
	t.Helper()
	m := fixture(t)
	s := NewSubmitter(m, NewNotifier(m, gw, testFormatter()))
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC) }
	s.newID = func() string { return "q-new" }
	return s, m
}

func TestSubmitStoresAndNotifies(t *testing.T) {
	gw := &recorder{}
	s, m := newTestSubmitter(t, gw)
	ctx := context.Background()

	res, err := s.Submit(ctx, SubmitInput{
		SpeakerID:        "s1",
		Text:             "  How fast is it?  ",
		AuthorName:       "Ann",
		AuthorUsername:   "@ann",
		AuthorTelegramID: "777",
		EventID:          "ev1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.QuestionID != "q-new" || !res.Delivered || res.ErrCode != "" {
		t.Fatalf("result = %+v", res)
	}
	q, err := m.QuestionDetails(ctx, "q-new")
	if err != nil {
		t.Fatalf("stored question: %v", err)
	}
	if q.Text != "How fast is it?" || q.IsAnswered || q.SessionID != nil ||
		*q.AuthorUsername != "ann" || *q.EventID != "ev1" || *q.AuthorTelegramID != "777" {
		t.Fatalf("stored = %+v", q.Question)
	}
	if len(gw.sent) != 1 || !strings.Contains(gw.sent[0].text, "01.05.2024 12:15") {
		t.Fatalf("notification = %+v", gw.sent)
	}
}

func TestSubmitAnonymousDropsAuthorName(t *testing.T) {
	gw := &recorder{}
	s, m := newTestSubmitter(t, gw)
	ctx := context.Background()

	if _, err := s.Submit(ctx, SubmitInput{SpeakerID: "s1", Text: "hi", AuthorName: "Ann", AuthorTelegramID: "777", Anonymous: true}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q, _ := m.QuestionDetails(ctx, "q-new")
	if q.AuthorName != nil || q.AuthorTelegramID == nil || !q.IsAnonymous {
		t.Fatalf("stored = %+v", q.Question)
	}
}

func TestSubmitKeepsRowWhenDeliveryFails(t *testing.T) {
	gw := &recorder{failFor: map[string]error{"jdoe": domain.ErrChatResolutionFailed}}
	s, m := newTestSubmitter(t, gw)

	res, err := s.Submit(context.Background(), SubmitInput{SpeakerID: "s1", Text: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Delivered || res.ErrCode != "CHAT_RESOLUTION_FAILED" {
		t.Fatalf("result = %+v", res)
	}
	if _, err := m.QuestionDetails(context.Background(), "q-new"); err != nil {
		t.Fatalf("row must survive a failed notification: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	s, _ := newTestSubmitter(t, &recorder{})
	cases := map[string]struct {
		in   SubmitInput
		want error
	}{
		"no speaker":      {SubmitInput{Text: "hi"}, domain.ErrInvalidInput},
		"blank text":      {SubmitInput{SpeakerID: "s1", Text: "   "}, domain.ErrInvalidInput},
		"too long":        {SubmitInput{SpeakerID: "s1", Text: strings.Repeat("я", MaxQuestionLength+1)}, domain.ErrInvalidInput},
		"unknown speaker": {SubmitInput{SpeakerID: "nope", Text: "hi"}, domain.ErrSpeakerNotFound},
	}
	for name, tc := range cases {
		if _, err := s.Submit(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", name, err, tc.want)
		}
	}
}
