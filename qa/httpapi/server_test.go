package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/telegram"
	"github.com/m3rciful/qarelay/qa/domain"
	"github.com/m3rciful/qarelay/qa/relay"
)

type fakeDispatcher struct {
	got    *tele.Update
	status relay.Status
	err    error
	panic  bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, upd *tele.Update) (relay.Status, error) {
	if f.panic {
		panic("boom")
	}
	f.got = upd
	return f.status, f.err
}

type fakeNotifier struct {
	got relay.NewQuestion
	err error
}

func (f *fakeNotifier) Notify(_ context.Context, q relay.NewQuestion) error {
	f.got = q
	return f.err
}

type fakeSubmitter struct {
	got relay.SubmitInput
	res relay.SubmitResult
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, in relay.SubmitInput) (relay.SubmitResult, error) {
	f.got = in
	return f.res, f.err
}

type fixture struct {
	disp   *fakeDispatcher
	notify *fakeNotifier
	submit *fakeSubmitter
	h      http.Handler
}

func newFixture(secret string) *fixture {
	f := &fixture{
		disp:   &fakeDispatcher{status: relay.StatusAnswerProcessed},
		notify: &fakeNotifier{},
		submit: &fakeSubmitter{},
	}
	srv := NewServer(Deps{
		Dispatcher:    f.disp,
		Notifier:      f.notify,
		Submitter:     f.submit,
		WebhookSecret: secret,
		CORSOrigins:   "*",
		Location:      time.FixedZone("MSK", 3*60*60),
		Version:       "v1.2.3",
	})
	f.h = srv.Routes()
	return f
}

func (f *fixture) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

const callbackJSON = `{"update_id":42,"callback_query":{"id":"cb1","from":{"id":555,"first_name":"Jane"},"data":"answer:q1"}}`

func TestWebhookDispatchesUpdate(t *testing.T) {
	f := newFixture("")
	rec := f.do(http.MethodPost, "/webhook", callbackJSON, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "answer_processed" {
		t.Fatalf("body = %v", body)
	}
	if f.disp.got == nil || f.disp.got.ID != 42 || f.disp.got.Callback == nil ||
		f.disp.got.Callback.Data != "answer:q1" || f.disp.got.Callback.Sender.ID != 555 {
		t.Fatalf("dispatched = %+v", f.disp.got)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("response should carry a request id")
	}
}

func TestWebhookSecret(t *testing.T) {
	f := newFixture("s3cret")

	if rec := f.do(http.MethodPost, "/webhook", callbackJSON, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret: code = %d", rec.Code)
	}
	if f.disp.got != nil {
		t.Fatal("unauthorized update must not be dispatched")
	}
	rec := f.do(http.MethodPost, "/webhook", callbackJSON, map[string]string{telegram.SecretHeader: "s3cret"})
	if rec.Code != http.StatusOK || f.disp.got == nil {
		t.Fatalf("valid secret: code = %d dispatched=%v", rec.Code, f.disp.got != nil)
	}
}

func TestWebhookFailuresStillAcknowledge(t *testing.T) {
	t.Run("dispatch error", func(t *testing.T) {
		f := newFixture("")
		f.disp.err = domain.ErrPersistence
		rec := f.do(http.MethodPost, "/webhook", callbackJSON, nil)
		if rec.Code != http.StatusOK || decode(t, rec)["error"] == nil {
			t.Fatalf("code = %d", rec.Code)
		}
	})
	t.Run("bad json", func(t *testing.T) {
		f := newFixture("")
		rec := f.do(http.MethodPost, "/webhook", "{not json", nil)
		if rec.Code != http.StatusOK || decode(t, rec)["error"] == nil {
			t.Fatalf("code = %d", rec.Code)
		}
	})
	t.Run("panic", func(t *testing.T) {
		f := newFixture("")
		f.disp.panic = true
		rec := f.do(http.MethodPost, "/webhook", callbackJSON, nil)
		if rec.Code != http.StatusOK || decode(t, rec)["error"] == nil {
			t.Fatalf("code = %d", rec.Code)
		}
	})
}

func TestNotify(t *testing.T) {
	f := newFixture("")
	body := `{"speaker_id":"s1","question_id":"q1","text":"hi","asker_name":"Ann","asker_username":"ann","is_anonymous":false,"timestamp":"2024-05-01T10:00:00Z"}`

	rec := f.do(http.MethodPost, "/notify", body, nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("code = %d", rec.Code)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if f.notify.got.QuestionID != "q1" || f.notify.got.AskerUsername != "ann" || !f.notify.got.CreatedAt.Equal(want) {
		t.Fatalf("notified = %+v", f.notify.got)
	}
}

func TestNotifyErrors(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "bad json", body: "[", wantCode: http.StatusBadRequest},
		{name: "bad timestamp", body: `{"speaker_id":"s1","question_id":"q1","timestamp":"yesterday"}`, wantCode: http.StatusBadRequest},
		{name: "invalid input", body: `{}`, err: domain.ErrInvalidInput, wantCode: http.StatusBadRequest, wantErr: "INVALID_INPUT"},
		{name: "speaker", body: `{"speaker_id":"x","question_id":"q1"}`, err: domain.ErrSpeakerNotFound, wantCode: http.StatusInternalServerError, wantErr: "SPEAKER_NOT_FOUND"},
		{name: "delivery", body: `{"speaker_id":"s1","question_id":"q1"}`, err: errors.Join(errors.New("502"), domain.ErrDeliveryFailed), wantCode: http.StatusInternalServerError, wantErr: "DELIVERY_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture("")
			f.notify.err = tc.err
			rec := f.do(http.MethodPost, "/notify", tc.body, nil)
			if rec.Code != tc.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			body := decode(t, rec)
			if body["error"] == nil {
				t.Fatalf("body = %v", body)
			}
			if tc.wantErr != "" && body["code"] != tc.wantErr {
				t.Fatalf("code field = %v, want %s", body["code"], tc.wantErr)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture("")
	f.submit.res = relay.SubmitResult{QuestionID: "q9", Delivered: false, ErrCode: "DELIVERY_FAILED"}
	body := `{"speaker_id":"s1","text":"hi","author_telegram_id":"777","is_anonymous":true}`

	rec := f.do(http.MethodPost, "/questions", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d", rec.Code)
	}
	got := decode(t, rec)
	if got["question_id"] != "q9" || got["delivered"] != false || got["error_code"] != "DELIVERY_FAILED" {
		t.Fatalf("body = %v", got)
	}
	if !f.submit.got.Anonymous || f.submit.got.AuthorTelegramID != "777" {
		t.Fatalf("submitted = %+v", f.submit.got)
	}

	f.submit.err = domain.ErrSpeakerNotFound
	if rec := f.do(http.MethodPost, "/questions", body, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown speaker: code = %d", rec.Code)
	}
}

func TestPreflightAndHealth(t *testing.T) {
	f := newFixture("")

	rec := f.do(http.MethodOptions, "/notify", "", map[string]string{"Origin": "https://app.example"})
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight: code = %d headers = %v", rec.Code, rec.Header())
	}

	rec = f.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["version"] != "v1.2.3" {
		t.Fatalf("healthz: code = %d", rec.Code)
	}
}

func TestCORSAllowList(t *testing.T) {
	h := CORS("https://a.example, https://b.example")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for origin, want := range map[string]string{
		"https://b.example":    "https://b.example",
		"https://evil.example": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: allow = %q, want %q", origin, got, want)
		}
	}
}
