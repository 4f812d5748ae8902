package logger

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio is num events out of every den; a zero ratio disables sampling.
type ratio struct {
	num, den uint64
}

// ratioSampler lets num of every den calls through. It is safe for
// concurrent webhook requests without a lock.
type ratioSampler struct {
	cfg     atomic.Pointer[ratio]
	counter atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the cycle. Non-positive values disable sampling.
func (s *ratioSampler) Set(num, den int) {
	r := &ratio{}
	if num > 0 && den > 0 {
		r.num, r.den = uint64(min(num, den)), uint64(den)
	}
	s.cfg.Store(r)
	s.counter.Store(0)
}

// Allow reports whether this call passes. With sampling disabled everything passes.
func (s *ratioSampler) Allow() bool {
	r := s.cfg.Load()
	if r == nil || r.den == 0 {
		return true
	}
	return (s.counter.Add(1)-1)%r.den < r.num
}

// parseRatioSpec accepts "n/d", a plain "d" meaning 1/d, or a percentage
// such as "2%". Anything unparseable or non-positive yields 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return 0, 0
	case strings.HasSuffix(spec, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(spec, "%")), 64)
		if err != nil || pct <= 0 {
			return 0, 0
		}
		if pct >= 100 {
			return 1, 1
		}
		return 1, int(math.Round(100 / pct))
	case strings.Contains(spec, "/"):
		n, d, _ := strings.Cut(spec, "/")
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
			return 0, 0
		}
		return num, den
	}
	v, err := strconv.Atoi(spec)
	if err != nil || v <= 0 {
		return 0, 0
	}
	return 1, v
}
