package http_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerotobillion/teapot-server/adapters/clock"
	"github.com/zerotobillion/teapot-server/adapters/email"
	teapothttp "github.com/zerotobillion/teapot-server/adapters/http"
	"github.com/zerotobillion/teapot-server/adapters/idgen"
	"github.com/zerotobillion/teapot-server/adapters/memory"
	"github.com/zerotobillion/teapot-server/app"
)

const testHome = "<html><body>I'm a teapot</body></html>"

func newTestRouter(t *testing.T) (http.Handler, *email.MockNotifier) {
	t.Helper()

	fake := clock.NewFake(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	notifier := email.NewMockNotifier()

	service := app.NewBrewService(
		app.BrewDeps{
			State:    memory.NewBrewStateStore(memory.BrewStateConfig{}),
			Traffic:  memory.NewTrafficWindow(fake),
			Notifier: notifier,
			Clock:    fake,
			IDGen:    idgen.NewSequential("evt"),
			Logger:   zerolog.Nop(),
		},
		app.BrewConfig{
			ContentType:  "message/teapot",
			Variants:     []string{"english-breakfast", "earl-grey"},
			GatedVariant: "earl-grey",
			MinTraffic:   3,
		},
	)

	handler := teapothttp.NewBrewHandler(service, []byte(testHome), zerolog.Nop())
	health := teapothttp.NewHealthHandler(nil)
	return teapothttp.NewRouter(handler, health, zerolog.Nop()), notifier
}

func doBrew(t *testing.T, router http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("BREW", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "message/teapot")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetServesHome(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	got, _ := io.ReadAll(rec.Body)
	if string(got) != testHome {
		t.Errorf("body = %q", got)
	}
}

func TestBrewRootReturnsAlternates(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doBrew(t, router, "/", "start", nil)
	if rec.Code != 300 {
		t.Fatalf("status = %d, want 300", rec.Code)
	}
	want := `{"/english-breakfast" {type message/teapot}}, {"/earl-grey" {type message/teapot}}`
	if got := rec.Header().Get("Alternates"); got != want {
		t.Errorf("Alternates = %q, want %q", got, want)
	}
}

func TestBrewWrongContentType(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("BREW", "/english-breakfast", strings.NewReader("start"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if rec.Header().Get("Alternates") == "" {
		t.Error("expected Alternates header")
	}
}

func TestBrewUnknownVariant(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doBrew(t, router, "/coffee", "start", nil)
	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if body := rec.Body.String(); body != `"coffee" is not supported for this pot` {
		t.Errorf("body = %q", body)
	}
}

func TestBrewStartStopLifecycle(t *testing.T) {
	router, notifier := newTestRouter(t)

	rec := doBrew(t, router, "/english-breakfast", "start", nil)
	if rec.Code != 202 || rec.Body.String() != "Brewing" {
		t.Fatalf("start: %d %q", rec.Code, rec.Body.String())
	}

	// Second start is refused
	rec = doBrew(t, router, "/english-breakfast", "start", nil)
	if rec.Code != 503 || rec.Body.String() != "Pot is busy" {
		t.Fatalf("second start: %d %q", rec.Code, rec.Body.String())
	}

	// Stop without Email header
	rec = doBrew(t, router, "/english-breakfast", "stop", nil)
	if rec.Code != 400 {
		t.Fatalf("stop without email: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Email" header`) {
		t.Errorf("body = %q", rec.Body.String())
	}

	// Stop with Email header
	rec = doBrew(t, router, "/english-breakfast", "stop", map[string]string{"Email": "tea@example.com"})
	if rec.Code != 201 || rec.Body.String() != "Finished" {
		t.Fatalf("stop: %d %q", rec.Code, rec.Body.String())
	}

	if sent := notifier.Sent(); len(sent) != 1 {
		t.Errorf("notifications = %d, want 1", len(sent))
	}
}

func TestBrewStopIdlePot(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doBrew(t, router, "/earl-grey", "stop", map[string]string{"Email": "tea@example.com"})
	if rec.Code != 400 || rec.Body.String() != "No beverage is being brewed by this pot" {
		t.Fatalf("stop idle: %d %q", rec.Code, rec.Body.String())
	}
}

func TestBrewGatedVariantNeedsTraffic(t *testing.T) {
	router, _ := newTestRouter(t)

	// Threshold is 3; first two attempts see counts 1 and 2.
	for i := 1; i <= 2; i++ {
		rec := doBrew(t, router, "/earl-grey", "start", nil)
		if rec.Code != 424 {
			t.Fatalf("attempt %d: status = %d, want 424", i, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Traffic too low") {
			t.Errorf("attempt %d: body = %q", i, rec.Body.String())
		}
	}

	rec := doBrew(t, router, "/earl-grey", "start", nil)
	if rec.Code != 202 {
		t.Fatalf("attempt at threshold: %d %q", rec.Code, rec.Body.String())
	}
}

func TestClientsArePartitionedByAddress(t *testing.T) {
	router, _ := newTestRouter(t)

	// RealIP rewrites RemoteAddr to the bare forwarded address, so two
	// IPv6 clients must still resolve to distinct pots.
	rec := doBrew(t, router, "/english-breakfast", "start", map[string]string{"X-Real-IP": "2001:db8::1"})
	if rec.Code != 202 {
		t.Fatalf("first client: %d %q", rec.Code, rec.Body.String())
	}

	rec = doBrew(t, router, "/english-breakfast", "start", map[string]string{"X-Real-IP": "2001:db8::2"})
	if rec.Code != 202 {
		t.Fatalf("second client: %d %q", rec.Code, rec.Body.String())
	}

	// The first client's pot is still its own to stop.
	rec = doBrew(t, router, "/english-breakfast", "stop", map[string]string{
		"X-Real-IP": "2001:db8::1",
		"Email":     "tea@example.com",
	})
	if rec.Code != 201 {
		t.Fatalf("first client stop: %d %q", rec.Code, rec.Body.String())
	}
}

func TestBrewMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doBrew(t, router, "/english-breakfast", "make me tea", nil)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUnsupportedMethod(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/english-breakfast", strings.NewReader("start"))
		req.Header.Set("Content-Type", "message/teapot")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != 405 {
			t.Errorf("%s: status = %d, want 405", method, rec.Code)
		}
	}
}

func TestNestedPathIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doBrew(t, router, "/earl-grey/extra", "start", nil)
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}
