package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"promptgate/internal/config"
	domainllm "promptgate/internal/domain/services/llm"
)

const testToken = "human"

// scriptedGenerator answers by echoing the user text and returns a fixed
// reply for suggestion calls
type scriptedGenerator struct {
	mu          sync.Mutex
	answerErr   error
	emptyAnswer bool
	suggestions string
	calls       int
}

func (g *scriptedGenerator) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++

	if strings.Contains(req.System, "follow-up actions") {
		return g.suggestions, nil
	}
	if g.answerErr != nil {
		return "", g.answerErr
	}
	if g.emptyAnswer {
		return "  \n", nil
	}
	return "answer: " + req.User, nil
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestApp(t *testing.T, gen domainllm.Generator) *App {
	t.Helper()
	cfg := &config.Config{
		Environment:      "test",
		CORSOrigins:      "*",
		HumanToken:       testToken,
		RateLimitWindow:  time.Minute,
		FreeQueryLimit:   2,
		PaidQueryLimit:   5,
		PaymentURL:       "https://pay.example/first",
		PaymentRound2URL: "https://pay.example/next",
	}
	app, err := Setup(cfg, gen, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return app
}

func post(t *testing.T, app *App, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	app.Handler.ServeHTTP(rec, r)
	return rec
}

func askBody(session, prompt string) string {
	b, _ := json.Marshal(map[string]string{
		"humanToken": testToken,
		"sessionId":  session,
		"prompt":     prompt,
	})
	return string(b)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAsk_AnswersWithSuggestions(t *testing.T) {
	gen := &scriptedGenerator{
		suggestions: "```json\n[{\"label\":\"Shorter\",\"action\":\"custom:shorter\"},{\"label\":\"Docs\",\"action\":\"https://docs.example.com\"}]\n```",
	}
	app := newTestApp(t, gen)

	rec := post(t, app, "/ask", askBody("s1", "hello"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	body := decode(t, rec)
	if body["response"] != "answer: hello" {
		t.Errorf("response = %v", body["response"])
	}
	suggestions, _ := body["suggestions"].([]interface{})
	if len(suggestions) != 1 {
		t.Fatalf("suggestions = %v, want 1 entry", body["suggestions"])
	}
	if s := suggestions[0].(map[string]interface{}); s["action"] != "custom:shorter" {
		t.Errorf("suggestion = %v", s)
	}
}

func TestAsk_ActionSkipsSuggestions(t *testing.T) {
	gen := &scriptedGenerator{suggestions: `[{"label":"x","action":"y"}]`}
	app := newTestApp(t, gen)

	b, _ := json.Marshal(map[string]string{
		"humanToken": testToken,
		"sessionId":  "s1",
		"prompt":     "hello",
		"action":     "shakespeare",
	})
	rec := post(t, app, "/ask", string(b))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if suggestions, _ := decode(t, rec)["suggestions"].([]interface{}); len(suggestions) != 0 {
		t.Errorf("suggestions = %v, want none", suggestions)
	}
	if gen.Calls() != 1 {
		t.Errorf("generator calls = %d, want 1", gen.Calls())
	}
}

func TestAsk_RateLimited(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{suggestions: "[]"})

	if rec := post(t, app, "/ask", askBody("s1", "one")); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec := post(t, app, "/ask", askBody("s1", "two"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if body := decode(t, rec); !strings.Contains(body["error"].(string), "one request per minute") {
		t.Errorf("error = %v", body["error"])
	}

	// The refused request never reached the quota
	sess, err := app.Sessions.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.FreeQueriesUsed != 1 {
		t.Errorf("FreeQueriesUsed = %d, want 1", sess.FreeQueriesUsed)
	}

	// Another identity is unaffected
	if rec := post(t, app, "/ask", askBody("s2", "one")); rec.Code != http.StatusOK {
		t.Errorf("other identity status = %d", rec.Code)
	}
}

func TestFollowUp_NotRateLimitedButQuotaChecked(t *testing.T) {
	gen := &scriptedGenerator{suggestions: `[{"label":"x","action":"y"}]`}
	app := newTestApp(t, gen)

	for i := 0; i < 2; i++ {
		rec := post(t, app, "/followup", askBody("s1", "more"))
		if rec.Code != http.StatusOK {
			t.Fatalf("followup %d status = %d", i+1, rec.Code)
		}
		body := decode(t, rec)
		if body["response"] != "answer: more" {
			t.Errorf("followup %d response = %v", i+1, body["response"])
		}
		if suggestions, _ := body["suggestions"].([]interface{}); len(suggestions) != 0 {
			t.Errorf("followup %d got suggestions", i+1)
		}
	}

	rec := post(t, app, "/followup", askBody("s1", "more"))
	if rec.Code != http.StatusOK {
		t.Fatalf("locked followup status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "locked" {
		t.Errorf("status = %v, want locked", body["status"])
	}
	if _, ok := body["response"]; ok {
		t.Error("locked response carries generated text")
	}
	cta, _ := body["cta"].(map[string]interface{})
	if cta["url"] != "https://pay.example/first" || cta["payment_round"] != float64(1) {
		t.Errorf("cta = %v", cta)
	}
	if gen.Calls() != 2 {
		t.Errorf("generator calls = %d, want 2", gen.Calls())
	}
}

func TestAsk_BotGateRejectsBeforeAnyState(t *testing.T) {
	gen := &scriptedGenerator{}
	app := newTestApp(t, gen)

	bodies := []string{
		`{"sessionId":"s1","prompt":"hi"}`,
		`{"humanToken":"wrong","sessionId":"s1","prompt":"hi"}`,
		`not json`,
		``,
	}
	for _, b := range bodies {
		if rec := post(t, app, "/ask", b); rec.Code != http.StatusForbidden {
			t.Errorf("body %q: status = %d, want 403", b, rec.Code)
		}
		if rec := post(t, app, "/followup", b); rec.Code != http.StatusForbidden {
			t.Errorf("followup body %q: status = %d, want 403", b, rec.Code)
		}
	}

	if app.Sessions.Len() != 0 {
		t.Errorf("sessions created: %d", app.Sessions.Len())
	}
	if app.Limiter.Len() != 0 {
		t.Errorf("rate limiter entries: %d", app.Limiter.Len())
	}
	if gen.Calls() != 0 {
		t.Errorf("generator calls = %d", gen.Calls())
	}
}

func TestAsk_MissingPrompt(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{})

	rec := post(t, app, "/ask", `{"humanToken":"human","sessionId":"s1","prompt":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if sess, err := app.Sessions.Get(context.Background(), "s1"); err == nil && sess.FreeQueriesUsed != 0 {
		t.Errorf("invalid request spent quota: %+v", sess)
	}
}

func TestAsk_BackendFailure(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{answerErr: errors.New("upstream exploded")})

	rec := post(t, app, "/ask", askBody("s1", "hello"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "upstream exploded" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestAsk_EmptyAnswerIsBackendFailure(t *testing.T) {
	gen := &scriptedGenerator{emptyAnswer: true, suggestions: "[]"}
	app := newTestApp(t, gen)

	rec := post(t, app, "/ask", askBody("s1", "hello"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body = %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); !strings.Contains(body["error"].(string), "empty answer") {
		t.Errorf("error = %v", body["error"])
	}
	// No suggestion call for a failed answer
	if gen.Calls() != 1 {
		t.Errorf("generator calls = %d, want 1", gen.Calls())
	}
}

func TestAsk_AnsweredBodyAlwaysCarriesResponse(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{suggestions: "[]"})

	body := decode(t, post(t, app, "/ask", askBody("s1", "hello")))
	if _, ok := body["response"]; !ok {
		t.Fatalf("response key missing: %v", body)
	}
	if _, ok := body["suggestions"]; !ok {
		t.Errorf("suggestions key missing: %v", body)
	}
	if _, ok := body["status"]; ok {
		t.Errorf("answered body carries status: %v", body)
	}
}

func TestAsk_UnparsableSuggestionsStillAnswer(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{suggestions: "Here are three ideas: ..."})

	rec := post(t, app, "/ask", askBody("s1", "hello"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["response"] != "answer: hello" {
		t.Errorf("response = %v", body["response"])
	}
	suggestions, ok := body["suggestions"].([]interface{})
	if !ok || len(suggestions) != 0 {
		t.Errorf("suggestions = %v, want []", body["suggestions"])
	}
}

func TestPaymentRounds(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{suggestions: "[]"})

	for i := 0; i < 2; i++ {
		post(t, app, "/followup", askBody("s1", "free"))
	}

	rec := post(t, app, "/confirm_payment", `{"sessionId":"s1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm_payment status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "payment_confirmed" {
		t.Errorf("status = %v", body["status"])
	}

	for i := 0; i < 5; i++ {
		rec := post(t, app, "/followup", askBody("s1", "paid"))
		if _, ok := decode(t, rec)["response"]; !ok {
			t.Fatalf("paid request %d not answered: %s", i+1, rec.Body.String())
		}
	}

	body = decode(t, post(t, app, "/followup", askBody("s1", "paid")))
	if body["status"] != "locked_round2" {
		t.Fatalf("status = %v, want locked_round2", body["status"])
	}
	cta, _ := body["cta"].(map[string]interface{})
	if cta["url"] != "https://pay.example/next" || cta["payment_round"] != float64(2) {
		t.Errorf("cta = %v", cta)
	}

	// Legacy field name is accepted
	rec = post(t, app, "/confirm_payment_round2", `{"session_id":"s1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm_payment_round2 status = %d", rec.Code)
	}
	session, _ := decode(t, rec)["session"].(map[string]interface{})
	if session["current_payment_round"] != float64(2) || session["paid_query_count"] != float64(0) {
		t.Errorf("session = %v", session)
	}

	if _, ok := decode(t, post(t, app, "/followup", askBody("s1", "again")))["response"]; !ok {
		t.Error("request after round 2 payment not answered")
	}
}

func TestConfirmPayment_Errors(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown session", "/confirm_payment", `{"sessionId":"ghost"}`, http.StatusNotFound},
		{"unknown session round 2", "/confirm_payment_round2", `{"sessionId":"ghost"}`, http.StatusNotFound},
		{"missing session id", "/confirm_payment", `{}`, http.StatusBadRequest},
		{"malformed body", "/confirm_payment", `nope`, http.StatusBadRequest},
		{"empty body", "/confirm_payment_round2", ``, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(t, app, tt.path, tt.body); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	if app.Sessions.Len() != 0 {
		t.Errorf("payment confirmation created %d sessions", app.Sessions.Len())
	}
}

func TestGetSession(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{suggestions: "[]"})
	post(t, app, "/ask", askBody("s1", "hello"))

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["state"] != "free" || body["free_queries_used"] != float64(1) {
		t.Errorf("session = %v", body)
	}

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

func TestIndexAndHealth(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{})

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "POST /ask") {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /ask = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, &scriptedGenerator{suggestions: "[]"})
	post(t, app, "/ask", askBody("s1", "hello"))
	post(t, app, "/ask", askBody("s1", "hello"))

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		`promptgate_requests_total{outcome="answered",route="POST /ask"} 1`,
		`promptgate_requests_total{outcome="rate_limited",route="POST /ask"} 1`,
		"promptgate_quota_decisions_total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
