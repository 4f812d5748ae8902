package logger

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
)

// gatedSink blocks every write until release is closed.
type gatedSink struct {
	release chan struct{}
	mu      sync.Mutex
	buf     bytes.Buffer
}

func (g *gatedSink) Write(p []byte) (int, error) {
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Write(p)
}

func TestAsyncWriterDropsWhenFull(t *testing.T) {
	sink := &gatedSink{release: make(chan struct{})}
	aw := newAsyncWriter([]io.Writer{sink}, 1024)

	line := []byte(strings.Repeat("x", 99) + "\n")
	for i := 0; i < queueDepth+200; i++ {
		if err := aw.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if aw.Dropped() == 0 {
		t.Fatal("expected dropped lines while the sink is stalled")
	}

	close(sink.release)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(sink.buf.String(), "logger: dropped") {
		t.Fatal("close should report dropped lines")
	}
	if err := aw.Write(line); err == nil {
		t.Fatal("write after close should fail")
	}
}

func TestAsyncWriterFlushDeliversQueued(t *testing.T) {
	var a, b bytes.Buffer
	aw := newAsyncWriter([]io.Writer{&a, &b}, 0)
	for _, s := range []string{"one\n", "two\n"} {
		_ = aw.Write([]byte(s))
	}
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if a.String() != "one\ntwo\n" || b.String() != a.String() {
		t.Fatalf("sinks = %q / %q", a.String(), b.String())
	}
	_ = aw.Close()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
}

func TestParseRatioSpecForms(t *testing.T) {
	cases := map[string][2]int{
		"1/50":  {1, 50},
		" 3/4 ": {3, 4},
		"20":    {1, 20},
		"2%":    {1, 50},
		"100%":  {1, 1},
		"0":     {0, 0},
		"-1/2":  {0, 0},
		"bogus": {0, 0},
	}
	for in, want := range cases {
		if num, den := parseRatioSpec(in); num != want[0] || den != want[1] {
			t.Errorf("parseRatioSpec(%q) = %d/%d, want %d/%d", in, num, den, want[0], want[1])
		}
	}
}
