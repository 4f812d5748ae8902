package format

import (
	"testing"
	"time"
)

func TestEscapeHTML(t *testing.T) {
	got := EscapeHTML(`<b>"Tom" & Jerry</b>`)
	want := "&lt;b&gt;&quot;Tom&quot; &amp; Jerry&lt;/b&gt;"
	if got != want {
		t.Fatalf("EscapeHTML = %q, want %q", got, want)
	}
	if got := EscapeHTML("&amp;"); got != "&amp;amp;" {
		t.Fatalf("ampersand must be escaped first, got %q", got)
	}
}

func TestTimestamp(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	ts := time.Date(2025, 5, 20, 21, 30, 0, 0, time.UTC)
	if got := Timestamp(ts, loc); got != "21.05.2025 00:30" {
		t.Fatalf("Timestamp = %q", got)
	}
	if got := Timestamp(ts, nil); got != "20.05.2025 21:30" {
		t.Fatalf("Timestamp(nil loc) = %q", got)
	}
}

func TestPointers(t *testing.T) {
	name := "Ann"
	if Deref(&name, "x") != "Ann" || Deref[string](nil, "x") != "x" {
		t.Fatal("Deref mismatch")
	}
	if Deref[int](nil, 7) != 7 {
		t.Fatal("Deref should work for any type")
	}
	if StringPtr(" ") != nil {
		t.Fatal("StringPtr should drop blanks")
	}
	if p := StringPtr(" a "); p == nil || *p != "a" {
		t.Fatal("StringPtr should trim")
	}
}
