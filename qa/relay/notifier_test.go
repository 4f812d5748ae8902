package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/qarelay/qa/domain"
)

func TestNotifyDeliversToNormalizedChat(t *testing.T) {
	m := fixture(t)
	gw := &recorder{}
	n := NewNotifier(m, gw, testFormatter())

	err := n.Notify(context.Background(), NewQuestion{
		QuestionID:    "q1",
		SpeakerID:     "s1",
		Text:          "Why <script>?",
		AskerName:     "Ann & Co",
		AskerUsername: "@ann",
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(gw.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(gw.sent))
	}
	msg := gw.sent[0]
	if msg.chatID != "jdoe" {
		t.Fatalf("chat id = %q, want jdoe", msg.chatID)
	}
	for _, want := range []string{
		"<i>Jane Doe</i>",
		"Ann &amp; Co (<code>@ann</code>)",
		"01.05.2024 13:00",
		"Why &lt;script&gt;?",
	} {
		if !strings.Contains(msg.text, want) {
			t.Errorf("message missing %q:\n%s", want, msg.text)
		}
	}
	if msg.markup == nil || len(msg.markup.InlineKeyboard) != 1 || len(msg.markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("expected a single answer button, got %+v", msg.markup)
	}
	if btn := msg.markup.InlineKeyboard[0][0]; btn.Data != "answer:q1" || btn.Text != answerButtonText {
		t.Fatalf("button = %+v", btn)
	}
}

func TestNotifyAnonymousHidesAuthor(t *testing.T) {
	gw := &recorder{}
	n := NewNotifier(fixture(t), gw, testFormatter())

	err := n.Notify(context.Background(), NewQuestion{
		QuestionID: "q1", SpeakerID: "s1", Text: "hi",
		AskerName: "Ann", AskerUsername: "ann", Anonymous: true,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	text := gw.sent[0].text
	if !strings.Contains(text, anonymousAuthor) || strings.Contains(text, "Ann") || strings.Contains(text, "@ann") {
		t.Fatalf("anonymous message leaks author:\n%s", text)
	}
}

func TestNotifyFailures(t *testing.T) {
	cases := []struct {
		name    string
		q       NewQuestion
		failFor map[string]error
		want    error
	}{
		{name: "unknown speaker", q: NewQuestion{QuestionID: "q1", SpeakerID: "missing", Text: "x"}, want: domain.ErrSpeakerNotFound},
		{name: "speaker without chat", q: NewQuestion{QuestionID: "q1", SpeakerID: "s2", Text: "x"}, want: domain.ErrSpeakerNotFound},
		{name: "missing ids", q: NewQuestion{Text: "x"}, want: domain.ErrInvalidInput},
		{name: "oversized id", q: NewQuestion{QuestionID: strings.Repeat("q", 80), SpeakerID: "s1", Text: "x"}, want: domain.ErrInvalidInput},
		{
			name:    "chat not found",
			q:       NewQuestion{QuestionID: "q1", SpeakerID: "s1", Text: "x"},
			failFor: map[string]error{"jdoe": domain.ErrChatResolutionFailed},
			want:    domain.ErrChatResolutionFailed,
		},
		{
			name:    "delivery",
			q:       NewQuestion{QuestionID: "q1", SpeakerID: "s1", Text: "x"},
			failFor: map[string]error{"jdoe": fmt.Errorf("sendMessage: 502: %w", domain.ErrDeliveryFailed)},
			want:    domain.ErrDeliveryFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &recorder{failFor: tc.failFor}
			err := NewNotifier(fixture(t), gw, testFormatter()).Notify(context.Background(), tc.q)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if len(gw.sent) != 0 {
				t.Fatalf("nothing should be delivered, got %+v", gw.sent)
			}
		})
	}
}

func TestNormalizeChatID(t *testing.T) {
	cases := map[string]string{
		"@jdoe":      "jdoe",
		"  12345 ":   "12345",
		" @@double ": "@double",
		"":           "",
	}
	for in, want := range cases {
		if got := NormalizeChatID(in); got != want {
			t.Errorf("NormalizeChatID(%q) = %q, want %q", in, got, want)
		}
	}
}
