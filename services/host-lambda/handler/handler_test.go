package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/xuri/excelize/v2"

	"github.com/checkin-web/common/apiclient"
	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/jwt"
	"github.com/checkin-web/common/jwt/jwttest"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/scanguard"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/host-lambda/models"
	"github.com/checkin-web/services/host-lambda/repository"
	"github.com/checkin-web/services/host-lambda/usecase"
)

var secret = []byte("host-secret")

const statusJSON = `{"eventId":5,"eventCode":"spring","title":"Spring Concert","schedules":[
	{"scheduleId":1,"startTime":"2026-05-02T14:00:00","endTime":"2026-05-02T16:00:00","capacity":10,"reservedCount":2,
	 "reservations":[
		{"reservationId":100,"guestName":"Kim","phoneNumber":"01012345678","status":"CONFIRMED","answers":[{"question":"동반 인원","answer":"2"}]},
		{"reservationId":101,"guestName":"Lee","phoneNumber":"01099998888","status":"CHECKED_IN","checkedInAt":"2026-05-02T13:50:00"}
	 ]}
]}`

// fakeAPI plays the host endpoints and counts what it was asked.
type fakeAPI struct {
	mu sync.Mutex

	failStatus int // answered to every call when set
	checkins   int
	lastQR     string
	patches    []string
	auth       string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = r.Header.Get("Authorization")

	if r.Method == http.MethodPost && r.URL.Path == "/api/host/checkin" {
		f.checkins++
		var body models.CheckinRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastQR = body.QRToken
	}
	if r.Method == http.MethodPatch {
		f.patches = append(f.patches, r.URL.Path)
	}

	if f.failStatus != 0 {
		w.WriteHeader(f.failStatus)
		_, _ = w.Write([]byte(`{"success":false,"error":"upstream says no"}`))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/host/events":
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":5,"eventCode":"spring","title":"Spring Concert","visible":true,"scheduleCount":2,"reservationCount":7}]}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/host/events/5/schedules-status":
		_, _ = w.Write([]byte(statusJSON))
	case r.Method == http.MethodPost && r.URL.Path == "/api/host/checkin":
		_, _ = w.Write([]byte(`{"reservationId":100,"guestName":"Kim","status":"CHECKED_IN"}`))
	case r.Method == http.MethodPatch:
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkins
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	handler *HostHandler
	api     *fakeAPI
	clock   *clock
	token   string
}

func newFixture(t *testing.T, api *fakeAPI) *fixture {
	t.Helper()
	t.Setenv("PUBLIC_BASE_URL", "https://checkin.example/")

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	clk := &clock{now: time.Date(2026, 5, 2, 5, 0, 0, 0, time.UTC)}
	cfg := config.DefaultConfig()
	client := apiclient.New(&apiclient.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	guard := scanguard.NewMemoryGuard(cfg.ScanCooldown(), clk.Now)
	sessions := session.NewStoreWithKeys([]byte("0123456789abcdef0123456789abcdef"), []byte("0123456789abcdef"), false, nil)

	h := NewHostHandlerWith(
		usecase.NewHostUseCase(repository.NewHostRepository(client), guard, cfg),
		renderer, sessions, jwt.NewParserWithSecret(secret, clk.Now), cfg,
	)

	token, err := jwttest.Token(secret, "host@example.com", "Host", clk.now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("jwttest.Token: %v", err)
	}
	return &fixture{handler: h, api: api, clock: clk, token: token}
}

func (f *fixture) request(path string, params map[string]string, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		Path:           path,
		PathParameters: params,
		Headers: map[string]string{
			"Cookie":       session.HostTokenCookie + "=" + f.token,
			"Content-Type": "application/json",
		},
		Body: body,
	}
}

func TestHostPagesRequireToken(t *testing.T) {
	api := &fakeAPI{}
	f := newFixture(t, api)

	expired, _ := jwttest.Token(secret, "host@example.com", "Host", f.clock.now.Add(-time.Minute))

	tests := []struct {
		name   string
		cookie string
	}{
		{"missing", ""},
		{"expired", session.HostTokenCookie + "=" + expired},
		{"garbage", session.HostTokenCookie + "=not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := events.APIGatewayProxyRequest{Path: "/host", Headers: map[string]string{"Cookie": tt.cookie}}
			resp, _ := f.handler.HandleDashboard(context.Background(), req)
			if resp.StatusCode != http.StatusSeeOther {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if got := resp.Headers["Location"]; got != "/login?next=%2Fhost" {
				t.Errorf("Location = %q", got)
			}
		})
	}
	if api.auth != "" {
		t.Error("API was called without a valid token")
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	resp, _ := f.handler.HandleDashboard(context.Background(), f.request("/host", nil, ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Body, "https://checkin.example/e/spring") {
		t.Error("share link missing")
	}
	if !strings.Contains(resp.Body, "host@example.com") && !strings.Contains(resp.Body, "로그아웃") {
		t.Error("signed-in header missing")
	}
	if f.api.auth != "Bearer "+f.token {
		t.Errorf("Authorization = %q", f.api.auth)
	}
}

func TestScanCoolDown(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	params := map[string]string{"eventId": "5"}
	scan := func(qr string) (int, models.ScanResponse) {
		resp, _ := f.handler.HandleScan(context.Background(), f.request("/host/events/5/scan", params, `{"qrToken":"`+qr+`"}`))
		var out models.ScanResponse
		if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
			t.Fatalf("decode scan response: %v", err)
		}
		return resp.StatusCode, out
	}

	if status, out := scan("tok-1"); status != http.StatusOK || out.Outcome != models.OutcomeCheckedIn {
		t.Fatalf("first scan = %d %+v", status, out)
	}
	if status, out := scan("tok-1"); status != http.StatusTooManyRequests || out.Outcome != models.OutcomeCoolingDown {
		t.Fatalf("repeat scan = %d %+v", status, out)
	}
	if n := f.api.calls(); n != 1 {
		t.Fatalf("check-in requests = %d, want 1", n)
	}

	// a different payload is not held back
	scan("tok-2")
	if n := f.api.calls(); n != 2 {
		t.Fatalf("check-in requests = %d, want 2", n)
	}

	f.clock.Advance(3 * time.Second)
	scan("tok-1")
	if n := f.api.calls(); n != 3 {
		t.Fatalf("check-in requests after window = %d, want 3", n)
	}
	if f.api.lastQR != "tok-1" {
		t.Errorf("QR sent = %q, want verbatim token", f.api.lastQR)
	}
}

func TestScanOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		upstream    int
		wantStatus  int
		wantOutcome string
	}{
		{"duplicate", http.StatusConflict, http.StatusConflict, models.OutcomeDuplicate},
		{"unknown token", http.StatusNotFound, http.StatusNotFound, models.OutcomeNotFound},
		{"session gone", http.StatusUnauthorized, http.StatusUnauthorized, models.OutcomeUnauthorized},
		{"server down", http.StatusInternalServerError, http.StatusBadGateway, models.OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeAPI{failStatus: tt.upstream})
			resp, _ := f.handler.HandleScan(context.Background(),
				f.request("/host/events/5/scan", map[string]string{"eventId": "5"}, `{"qrToken":"tok"}`))
			var out models.ScanResponse
			_ = json.Unmarshal([]byte(resp.Body), &out)
			if resp.StatusCode != tt.wantStatus || out.Outcome != tt.wantOutcome {
				t.Errorf("got %d %q, want %d %q", resp.StatusCode, out.Outcome, tt.wantStatus, tt.wantOutcome)
			}
			if tt.wantOutcome == models.OutcomeUnauthorized && !strings.HasPrefix(out.Redirect, "/login?next=") {
				t.Errorf("redirect = %q", out.Redirect)
			}
		})
	}
}

func TestVisibilityToggle(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		f := newFixture(t, &fakeAPI{})
		resp, _ := f.handler.HandleVisibility(context.Background(),
			f.request("/host/events/5/visibility", map[string]string{"eventId": "5"}, `{"visible":false}`))
		var out models.VisibilityResult
		_ = json.Unmarshal([]byte(resp.Body), &out)
		if resp.StatusCode != http.StatusOK || out.Visible || out.Reverted {
			t.Errorf("got %d %+v", resp.StatusCode, out)
		}
		if len(f.api.patches) != 1 || f.api.patches[0] != "/api/host/events/5/visibility" {
			t.Errorf("patches = %v", f.api.patches)
		}
	})

	t.Run("reverted on failure", func(t *testing.T) {
		f := newFixture(t, &fakeAPI{failStatus: http.StatusInternalServerError})
		resp, _ := f.handler.HandleVisibility(context.Background(),
			f.request("/host/events/5/visibility", map[string]string{"eventId": "5"}, `{"visible":false}`))
		var out models.VisibilityResult
		_ = json.Unmarshal([]byte(resp.Body), &out)
		if !out.Reverted || !out.Visible {
			t.Errorf("expected revert to visible, got %+v", out)
		}
		if out.Error == "" {
			t.Error("expected an error message")
		}
		if resp.StatusCode < 500 {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if len(f.api.patches) != 1 || f.api.patches[0] != "/api/host/events/5/visibility" {
			t.Errorf("the PATCH should reach the API before reverting, patches = %v", f.api.patches)
		}
	})

	t.Run("form post redirects", func(t *testing.T) {
		f := newFixture(t, &fakeAPI{failStatus: http.StatusInternalServerError})
		req := f.request("/host/events/5/visibility", map[string]string{"eventId": "5"}, url.Values{"visible": {"true"}}.Encode())
		req.Headers["Content-Type"] = "application/x-www-form-urlencoded"
		resp, _ := f.handler.HandleVisibility(context.Background(), req)
		if resp.Headers["Location"] != "/host?notice=visibility-failed" {
			t.Errorf("Location = %q", resp.Headers["Location"])
		}
	})

	t.Run("form post without token returns to dashboard", func(t *testing.T) {
		f := newFixture(t, &fakeAPI{})
		req := f.request("/host/events/5/visibility", map[string]string{"eventId": "5"}, url.Values{"visible": {"true"}}.Encode())
		req.Headers["Content-Type"] = "application/x-www-form-urlencoded"
		delete(req.Headers, "Cookie")

		resp, _ := f.handler.HandleVisibility(context.Background(), req)
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if got := resp.Headers["Location"]; got != "/login?next=%2Fhost" {
			t.Errorf("Location = %q, want the dashboard as next", got)
		}
		if len(f.api.patches) != 0 {
			t.Errorf("patches = %v", f.api.patches)
		}
	})

	t.Run("unreadable form post redirects", func(t *testing.T) {
		f := newFixture(t, &fakeAPI{})
		req := f.request("/host/events/5/visibility", map[string]string{"eventId": "5"}, "visible=maybe")
		req.Headers["Content-Type"] = "application/x-www-form-urlencoded"

		resp, _ := f.handler.HandleVisibility(context.Background(), req)
		if resp.StatusCode != http.StatusSeeOther || resp.Headers["Location"] != "/host?notice=visibility-failed" {
			t.Errorf("got %d Location=%q", resp.StatusCode, resp.Headers["Location"])
		}
		if len(f.api.patches) != 0 {
			t.Errorf("patches = %v", f.api.patches)
		}
	})

	t.Run("unreadable json gets json", func(t *testing.T) {
		f := newFixture(t, &fakeAPI{})
		resp, _ := f.handler.HandleVisibility(context.Background(),
			f.request("/host/events/5/visibility", map[string]string{"eventId": "5"}, `{"visible":`))
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(resp.Body, `"reverted":true`) {
			t.Errorf("got %d %s", resp.StatusCode, resp.Body)
		}
	})
}

func TestAuthenticateTagsLogsWithHost(t *testing.T) {
	f := newFixture(t, &fakeAPI{})

	ctx, token, claims, ok := f.handler.authenticate(context.Background(), f.request("/host", nil, ""))
	if !ok || token != f.token || claims.Email != "host@example.com" {
		t.Fatalf("authenticate() = %q %+v %v", token, claims, ok)
	}

	var buf bytes.Buffer
	l := logger.New(&logger.Config{Level: logger.DEBUG, Output: &buf, JSONFormat: true})
	l.WithContext(ctx).Info("dashboard loaded")

	var entry logger.LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %q", buf.String())
	}
	if entry.Fields["host"] != "host@example.com" {
		t.Errorf("host field = %v", entry.Fields["host"])
	}
}

func TestManualCheckin(t *testing.T) {
	tests := []struct {
		name     string
		upstream int
		want     string
	}{
		{"ok", 0, "/host/events/5?notice=checked-in"},
		{"duplicate", http.StatusConflict, "/host/events/5?notice=duplicate"},
		{"forbidden", http.StatusForbidden, "/login?next=%2Fhost%2Fevents%2F5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeAPI{failStatus: tt.upstream})
			req := f.request("/host/reservations/100/checkin", map[string]string{"reservationId": "100"}, "eventId=5")
			req.Headers["Content-Type"] = "application/x-www-form-urlencoded"
			resp, _ := f.handler.HandleCheckin(context.Background(), req)
			if resp.Headers["Location"] != tt.want {
				t.Errorf("Location = %q, want %q", resp.Headers["Location"], tt.want)
			}
			if len(f.api.patches) != 1 || f.api.patches[0] != "/api/host/reservations/100/checkin" {
				t.Errorf("patches = %v", f.api.patches)
			}
		})
	}
}

func TestEventDetail(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	req := f.request("/host/events/5", map[string]string{"eventId": "5"}, "")
	req.QueryStringParameters = map[string]string{"notice": "duplicate"}
	resp, _ := f.handler.HandleEventDetail(context.Background(), req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{"Spring Concert", "010-1234-5678", "입장 1", "/host/reservations/100/checkin", "이미 입장 처리된 예약입니다"} {
		if !strings.Contains(resp.Body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}
	if strings.Contains(resp.Body, "/host/reservations/101/checkin") {
		t.Error("checked-in guest offered a check-in button")
	}

	f = newFixture(t, &fakeAPI{failStatus: http.StatusForbidden})
	resp, _ = f.handler.HandleEventDetail(context.Background(), f.request("/host/events/5", map[string]string{"eventId": "5"}, ""))
	if !strings.HasPrefix(resp.Headers["Location"], "/login?next=") {
		t.Errorf("403 should go to login, got %d %q", resp.StatusCode, resp.Headers["Location"])
	}
}

func TestRosterExport(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	resp, _ := f.handler.HandleRoster(context.Background(), f.request("/host/events/5/roster.xlsx", map[string]string{"eventId": "5"}, ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Headers["Content-Disposition"], "spring-concert-roster.xlsx") {
		t.Errorf("Content-Disposition = %q", resp.Headers["Content-Disposition"])
	}

	data, err := base64.StdEncoding.DecodeString(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Roster")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][len(rows[0])-1] != "동반 인원" {
		t.Errorf("question column missing: %v", rows[0])
	}
	if rows[1][2] != "Kim" || rows[1][3] != "010-1234-5678" {
		t.Errorf("first roster row = %v", rows[1])
	}
}
