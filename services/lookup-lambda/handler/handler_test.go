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
	"github.com/checkin-web/common/recaptcha"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/lookup-lambda/models"
	"github.com/checkin-web/services/lookup-lambda/repository"
	"github.com/checkin-web/services/lookup-lambda/usecase"
)

type fakeAPI struct {
	mu     sync.Mutex
	status int
	body   string
	calls  int
	last   models.LookupRequest
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path != "/api/reservations/lookup" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	f.calls++
	_ = json.NewDecoder(r.Body).Decode(&f.last)
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = w.Write([]byte(f.body))
}

func newTestHandler(t *testing.T, api *fakeAPI) *LookupHandler {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	cfg := config.DefaultConfig()
	client := apiclient.New(&apiclient.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	sessions := session.NewStoreWithKeys([]byte("0123456789abcdef0123456789abcdef"), []byte("0123456789abcdef"), false, nil)
	return NewLookupHandlerWith(
		usecase.NewLookupUseCase(repository.NewLookupRepository(client), cfg),
		renderer, sessions, recaptcha.NewService(&recaptcha.Config{}), cfg,
	)
}

func lookupRequest(name, phone string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       url.Values{"name": {name}, "phone": {phone}}.Encode(),
	}
}

const rowsJSON = `[{"id":1,"qrToken":"tok-1","status":"CONFIRMED","eventTitle":"Spring Concert",
	"startTime":"2026-05-02T14:00:00","endTime":"2026-05-02T16:00:00"}]`

func TestHandleLookupOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantID     string
		wantText   string
	}{
		{"bare array", 0, rowsJSON, http.StatusOK, `id="lookup-results"`, `href="/t/tok-1"`},
		{"wrapped object", 0, `{"success":true,"data":{"lookupToken":"lk","reservations":` + rowsJSON + `}}`, http.StatusOK, `id="lookup-results"`, "Spring Concert"},
		{"empty list", 0, `[]`, http.StatusOK, `id="lookup-empty"`, "예약 내역이 없습니다"},
		{"not found is empty", http.StatusNotFound, `{"success":false,"error":"none"}`, http.StatusOK, `id="lookup-empty"`, "예약 내역이 없습니다"},
		{"server error is an error", http.StatusInternalServerError, `{}`, http.StatusBadGateway, `id="lookup-error"`, "잠시 후 다시 시도해주세요"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{status: tt.status, body: tt.body}
			h := newTestHandler(t, api)
			resp, err := h.HandleLookup(context.Background(), lookupRequest("Kim", "010-1234-5678"))
			if err != nil {
				t.Fatalf("HandleLookup: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(resp.Body, tt.wantID) {
				t.Errorf("body missing %s", tt.wantID)
			}
			if !strings.Contains(resp.Body, tt.wantText) {
				t.Errorf("body missing %q", tt.wantText)
			}
			if api.last.PhoneNumber != "01012345678" {
				t.Errorf("phone sent as %q, want digits only", api.last.PhoneNumber)
			}
		})
	}
}

func TestHandleLookupStoresToken(t *testing.T) {
	api := &fakeAPI{body: `{"lookupToken":"lk-9","reservations":[]}`}
	h := newTestHandler(t, api)
	resp, _ := h.HandleLookup(context.Background(), lookupRequest("Kim", "01012345678"))

	cookies := resp.MultiValueHeaders["Set-Cookie"]
	if len(cookies) != 1 || !strings.HasPrefix(cookies[0], session.LookupTokenCookie+"=lk-9") {
		t.Errorf("lookup cookie = %v", cookies)
	}
}

func TestHandleLookupValidation(t *testing.T) {
	tests := []struct {
		name, guest, phone, field string
	}{
		{"blank name", "  ", "01012345678", "이름을(를) 입력해주세요"},
		{"missing phone", "Kim", "", "연락처을(를) 입력해주세요"},
		{"short phone", "Kim", "010-123", "10자리 이상"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{body: `[]`}
			h := newTestHandler(t, api)
			resp, _ := h.HandleLookup(context.Background(), lookupRequest(tt.guest, tt.phone))
			if api.calls != 0 {
				t.Fatalf("API called %d times", api.calls)
			}
			if !strings.Contains(resp.Body, tt.field) {
				t.Errorf("body missing %q", tt.field)
			}
		})
	}
}

func TestLookupResultShapes(t *testing.T) {
	var r models.LookupResult
	if err := json.Unmarshal([]byte(`{"token":"t1","reservations":[{"id":1}]}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.LookupToken != "t1" || len(r.Reservations) != 1 {
		t.Errorf("unexpected result: %+v", r)
	}
}
