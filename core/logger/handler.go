package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// field is one normalized key/value pair of a log line.
type field struct {
	key string
	val any
}

// record collects the fields of one line. Later writes to a key win.
type record struct {
	fields []field
	index  map[string]int
}

func newRecord(capacity int) *record {
	return &record{fields: make([]field, 0, capacity), index: make(map[string]int, capacity)}
}

func (r *record) set(key string, val any) {
	if i, ok := r.index[key]; ok {
		r.fields[i].val = val
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, field{key: key, val: val})
}

func (r *record) setDefault(key string, val any) {
	if _, ok := r.index[key]; !ok {
		r.set(key, val)
	}
}

func (r *record) str(key string) string {
	i, ok := r.index[key]
	if !ok {
		return ""
	}
	switch v := r.fields[i].val.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// compact drops empty values and the given keys in one pass.
func (r *record) compact(drop map[string]bool) {
	out := r.fields[:0]
	for _, f := range r.fields {
		if drop[f.key] || isEmpty(f.val) {
			continue
		}
		out = append(out, f)
	}
	r.fields = out
	r.index = nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case fmt.Stringer:
		return x.String() == ""
	}
	return false
}

type structuredHandler struct {
	cfg  handlerConfig
	rank map[string]int
	// preset holds attributes bound through WithAttrs, already normalized.
	preset []field
	prefix string
}

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

// Enabled reports whether level passes the configured minimum.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle renders r as one line and queues it on the writer.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	isJSON := h.cfg.format == formatJSON

	rec := newRecord(16 + len(h.preset))
	ts := r.Time.UTC()
	rec.set("ts", ts.Truncate(time.Millisecond).Format(timeFormatMillis))
	rec.set("level", normalizeLevel(r.Level.String()))
	if isJSON {
		rec.set("ts_unix_nano", ts.UnixNano())
	}
	for _, f := range h.preset {
		rec.set(f.key, f.val)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(rec, h.prefix, a)
		return true
	})
	addContextFields(ctx, rec)

	drop := map[string]bool{}
	if rid := rec.str("rid"); rid != "" {
		if short := ShortRID(rid); short != rid {
			rec.set("rid", short)
			if isJSON {
				rec.setDefault("rid_full", rid)
			}
		}
	}
	if !isJSON {
		drop["rid_full"] = true
	}
	if rec.str("event") == "" {
		event := r.Message
		if event == "" {
			event = "unknown"
		}
		rec.set("event", event)
	}
	if rec.str("component") == "" {
		rec.set("component", "app")
	}
	normalizeEnumerations(rec, drop)
	rec.compact(drop)
	h.sortFields(rec.fields)

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	var err error
	if isJSON {
		err = encodeJSON(buf, rec.fields)
	} else {
		encodeKV(buf, rec.fields)
	}
	if err != nil {
		return err
	}
	buf.WriteByte('\n')
	return h.cfg.writer.Write(buf.Bytes())
}

// WithAttrs binds attrs to a copy of the handler.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	tmp := newRecord(len(h.preset) + len(attrs))
	for _, f := range h.preset {
		tmp.set(f.key, f.val)
	}
	for _, a := range attrs {
		h.addAttr(tmp, h.prefix, a)
	}
	clone := *h
	clone.preset = tmp.fields
	return &clone
}

// WithGroup nests later attributes under name using dotted keys.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *structuredHandler) addAttr(rec *record, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		// An unnamed group is inlined.
		p := prefix
		if a.Key != "" {
			p = joinKey(prefix, a.Key)
		}
		for _, child := range a.Value.Group() {
			h.addAttr(rec, p, child)
		}
		return
	}
	key := joinKey(prefix, a.Key)
	if key == "" {
		return
	}
	if k, v, ok := normalizeValue(key, a.Value); ok {
		rec.set(k, v)
	}
}

// sortFields puts known keys in configured order and the rest alphabetically after them.
func (h *structuredHandler) sortFields(fields []field) {
	sort.SliceStable(fields, func(i, j int) bool {
		ri, iKnown := h.rank[fields[i].key]
		rj, jKnown := h.rank[fields[j].key]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		}
		return fields[i].key < fields[j].key
	})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func normalizeValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// durationKey renames duration attributes so the unit is part of the key.
func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_duration"):
		return strings.TrimSuffix(key, "_duration") + "_duration_ms"
	case !strings.HasSuffix(key, "_ms"):
		return key + "_ms"
	}
	return key
}

// normalizeEnumerations drops unknown outcomes; unknown statuses are kept lower-cased.
func normalizeEnumerations(rec *record, drop map[string]bool) {
	if s := rec.str("status"); s != "" {
		normalized, _ := normalizeEnum(s, knownStatus)
		rec.set("status", normalized)
	}
	if o := rec.str("outcome"); o != "" {
		if normalized, known := normalizeEnum(o, knownOutcome); known {
			rec.set("outcome", normalized)
		} else {
			drop["outcome"] = true
		}
	}
}

func encodeJSON(buf *bytes.Buffer, fields []field) error {
	buf.WriteByte('{')
	for i, f := range fields {
		data, err := json.Marshal(f.val)
		if err != nil {
			return fmt.Errorf("logger: encode %s: %w", f.key, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(f.key))
		buf.WriteByte(':')
		buf.Write(data)
	}
	buf.WriteByte('}')
	return nil
}

func encodeKV(buf *bytes.Buffer, fields []field) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(kvValue(f.val))
	}
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s = fmt.Sprint(x)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"' || !unicode.IsPrint(r)
}

func addContextFields(ctx context.Context, rec *record) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		rec.setDefault("rid", rid)
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		rec.setDefault("update_id", id)
	}
	if id := UserIDFrom(ctx); id != 0 {
		rec.setDefault("user_id", id)
	}
	if id := ChatIDFrom(ctx); id != 0 {
		rec.setDefault("chat_id", id)
	}
	if h := HandlerFrom(ctx); h != "" {
		rec.setDefault("handler", h)
	}
}
