package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m3rciful/qarelay/qa/store"
)

const speakersYAML = `
speakers:
  - id: s1
    name: Jane Doe
    telegram_id: "@jdoe"
  - id: s2
    name: "  John Roe "
`

func TestParseSpeakers(t *testing.T) {
	got, err := ParseSpeakers([]byte(speakersYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].TelegramID == nil || *got[0].TelegramID != "@jdoe" {
		t.Fatalf("s1 = %+v", got[0])
	}
	if got[1].Name != "John Roe" || got[1].TelegramID != nil {
		t.Fatalf("s2 = %+v", got[1])
	}
}

func TestParseSpeakersRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"missing name": "speakers:\n  - id: s1\n",
		"duplicate":    "speakers:\n  - {id: s1, name: A}\n  - {id: s1, name: B}\n",
		"not yaml":     "speakers: [",
	}
	for name, in := range cases {
		if _, err := ParseSpeakers([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSpeakersSeederUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speakers.yaml")
	if err := os.WriteFile(path, []byte(speakersYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	m := store.NewMemory()
	if err := Speakers(path).Seed(context.Background(), m); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := m.Speaker(context.Background(), "s2")
	if err != nil || s.Name != "John Roe" {
		t.Fatalf("speaker s2 = %+v, %v", s, err)
	}

	err = Speakers(path).Seed(context.Background(), struct{}{})
	if err == nil || !strings.Contains(err.Error(), "cannot write speakers") {
		t.Fatalf("err = %v", err)
	}
}
