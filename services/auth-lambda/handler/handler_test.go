package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/checkin-web/common/apiclient"
	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/jwt"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/auth-lambda/repository"
	"github.com/checkin-web/services/auth-lambda/usecase"
)

type fakeAPI struct {
	mu        sync.Mutex
	calls     map[string]int
	loginFail int
	expiresIn int
	lastBody  map[string]interface{}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[r.URL.Path]++
	f.lastBody = map[string]interface{}{}
	_ = json.NewDecoder(r.Body).Decode(&f.lastBody)

	switch r.URL.Path {
	case "/api/auth/login":
		if f.loginFail != 0 {
			w.WriteHeader(f.loginFail)
			return
		}
		_, _ = w.Write([]byte(`{"accessToken":"host-token"}`))
	case "/api/auth/email/send":
		if f.expiresIn > 0 {
			_, _ = w.Write([]byte(`{"success":true,"data":{"expiresIn":` + itoa(f.expiresIn) + `}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	case "/api/auth/email/verify":
		_, _ = w.Write([]byte(`{"success":true}`))
	case "/api/auth/signup":
		_, _ = w.Write([]byte(`{"success":true,"data":{"token":"new-host-token"}}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestHandler(t *testing.T, api *fakeAPI) (*AuthHandler, *clock) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	clk := &clock{now: time.Date(2026, 5, 2, 5, 0, 0, 0, time.UTC)}
	sessions := session.NewStoreWithKeys([]byte("0123456789abcdef0123456789abcdef"), []byte("0123456789abcdef"), false, clk.Now)
	client := apiclient.New(&apiclient.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})

	h := NewAuthHandlerWith(
		usecase.NewAuthUseCase(repository.NewAuthRepository(client), config.DefaultConfig(), clk.Now),
		renderer, sessions, jwt.NewParserWithSecret([]byte("s"), clk.Now),
	)
	return h, clk
}

func formRequest(values url.Values, cookies ...string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Cookie":       strings.Join(cookies, "; "),
		},
		Body: values.Encode(),
	}
}

// cookieFrom returns "name=value" of the named Set-Cookie, ready to send back.
func cookieFrom(t *testing.T, resp events.APIGatewayProxyResponse, name string) string {
	t.Helper()
	r := http.Response{Header: http.Header{"Set-Cookie": resp.MultiValueHeaders["Set-Cookie"]}}
	for _, c := range r.Cookies() {
		if c.Name == name {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatalf("cookie %s not set", name)
	return ""
}

func TestLogin(t *testing.T) {
	api := &fakeAPI{}
	h, _ := newTestHandler(t, api)

	resp, _ := h.HandleLogin(context.Background(), formRequest(url.Values{
		"email":    {"host@example.com"},
		"password": {"secret123"},
		"next":     {"/host/events/5"},
	}))
	if resp.StatusCode != http.StatusSeeOther || resp.Headers["Location"] != "/host/events/5" {
		t.Fatalf("got %d %q", resp.StatusCode, resp.Headers["Location"])
	}
	if got := cookieFrom(t, resp, session.HostTokenCookie); got != session.HostTokenCookie+"=host-token" {
		t.Errorf("host cookie = %q", got)
	}
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		upstream  int
		wantCalls int
		wantText  string
	}{
		{"bad email", "host", 0, 0, "이메일"},
		{"wrong password", "host@example.com", http.StatusUnauthorized, 1, "이메일 또는 비밀번호가 올바르지 않습니다"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{loginFail: tt.upstream}
			h, _ := newTestHandler(t, api)
			resp, _ := h.HandleLogin(context.Background(), formRequest(url.Values{
				"email": {tt.email}, "password": {"secret123"},
			}))
			if api.count("/api/auth/login") != tt.wantCalls {
				t.Errorf("login calls = %d, want %d", api.count("/api/auth/login"), tt.wantCalls)
			}
			if resp.StatusCode < 400 {
				t.Errorf("status = %d", resp.StatusCode)
			}
			if !strings.Contains(resp.Body, tt.wantText) {
				t.Errorf("body missing %q", tt.wantText)
			}
		})
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                       "/host",
		"/host/events/1":         "/host/events/1",
		"https://evil.example/":  "/host",
		"//evil.example/":        "/host",
		"/\\evil.example":        "/host",
		"host":                   "/host",
		"/host?notice=logged-in": "/host?notice=logged-in",
	}
	for in, want := range tests {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignupFlow(t *testing.T) {
	api := &fakeAPI{expiresIn: 120}
	h, clk := newTestHandler(t, api)
	ctx := context.Background()

	resp, _ := h.HandleSendCode(ctx, formRequest(url.Values{"email": {"host@example.com"}}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Body, `data-seconds="120"`) {
		t.Error("countdown should start from the server expiry")
	}
	pending := cookieFrom(t, resp, session.VerificationCookie)

	clk.now = clk.now.Add(30 * time.Second)
	resp, _ = h.HandleVerifyCode(ctx, formRequest(url.Values{"code": {"123456"}}, pending))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d", resp.StatusCode)
	}
	if api.lastBody["email"] != "host@example.com" || api.lastBody["code"] != "123456" {
		t.Errorf("verify payload = %v", api.lastBody)
	}
	verified := cookieFrom(t, resp, session.VerificationCookie)

	resp, _ = h.HandleSignup(ctx, formRequest(url.Values{
		"email":           {"host@example.com"},
		"name":            {"김주최"},
		"password":        {"abcd1234"},
		"passwordConfirm": {"abcd1234"},
	}, verified))
	if resp.StatusCode != http.StatusSeeOther || resp.Headers["Location"] != "/host" {
		t.Fatalf("signup got %d %q", resp.StatusCode, resp.Headers["Location"])
	}
	if got := cookieFrom(t, resp, session.HostTokenCookie); got != session.HostTokenCookie+"=new-host-token" {
		t.Errorf("host cookie = %q", got)
	}
}

func TestVerifyAfterExpiryIsRejectedLocally(t *testing.T) {
	api := &fakeAPI{expiresIn: 120}
	h, clk := newTestHandler(t, api)
	ctx := context.Background()

	resp, _ := h.HandleSendCode(ctx, formRequest(url.Values{"email": {"host@example.com"}}))
	pending := cookieFrom(t, resp, session.VerificationCookie)

	clk.now = clk.now.Add(121 * time.Second)
	resp, _ = h.HandleVerifyCode(ctx, formRequest(url.Values{"code": {"123456"}}, pending))
	if n := api.count("/api/auth/email/verify"); n != 0 {
		t.Fatalf("verify calls = %d, want 0", n)
	}
	if !strings.Contains(resp.Body, "인증 시간이 만료되었습니다") {
		t.Error("expiry message missing")
	}
}

func TestSendCodeFallbackExpiry(t *testing.T) {
	h, _ := newTestHandler(t, &fakeAPI{})
	resp, _ := h.HandleSendCode(context.Background(), formRequest(url.Values{"email": {"host@example.com"}}))
	if !strings.Contains(resp.Body, `data-seconds="180"`) {
		t.Error("countdown should fall back to the configured expiry")
	}
}

func TestSignupRequiresVerifiedEmail(t *testing.T) {
	api := &fakeAPI{}
	h, _ := newTestHandler(t, api)
	resp, _ := h.HandleSignup(context.Background(), formRequest(url.Values{
		"email":           {"host@example.com"},
		"name":            {"김주최"},
		"password":        {"abcd1234"},
		"passwordConfirm": {"abcd1234"},
	}))
	if n := api.count("/api/auth/signup"); n != 0 {
		t.Fatalf("signup calls = %d, want 0", n)
	}
	if !strings.Contains(resp.Body, "이메일 인증을 먼저 완료해주세요") {
		t.Error("verification required message missing")
	}
}

func TestLogout(t *testing.T) {
	h, _ := newTestHandler(t, &fakeAPI{})
	resp, _ := h.HandleLogout(context.Background(), formRequest(url.Values{}))
	if resp.Headers["Location"] != "/?notice=logged-out" {
		t.Errorf("Location = %q", resp.Headers["Location"])
	}
	cookies := resp.MultiValueHeaders["Set-Cookie"]
	if len(cookies) != 1 || !strings.Contains(cookies[0], "Max-Age=0") {
		t.Errorf("host cookie not cleared: %v", cookies)
	}
}
