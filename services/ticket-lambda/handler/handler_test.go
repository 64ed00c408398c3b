package handler

import (
	"context"
	"encoding/base64"
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
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/ticket-lambda/repository"
	"github.com/checkin-web/services/ticket-lambda/usecase"
)

func ticketJSON(status string) string {
	return `{"success":true,"data":{"id":77,"qrToken":"tok-77","status":"` + status + `",
		"guestName":"Kim","phoneNumber":"01012345678","eventCode":"spring","eventTitle":"Spring Concert",
		"location":"Hall A","startTime":"2026-05-02T14:00:00","endTime":"2026-05-02T16:00:00",
		"checkedInAt":"2026-05-02T13:55:00","answers":[{"question":"동반 인원","answer":"2"}]}}`
}

type fakeAPI struct {
	mu       sync.Mutex
	status   string
	missing  bool
	deletes  int
	authSeen string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authSeen = r.Header.Get("Authorization")

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/reservations/qr/"):
		if f.missing {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(ticketJSON(f.status)))
	case r.Method == http.MethodDelete && r.URL.Path == "/api/reservations/77":
		f.deletes++
		f.status = "CANCELLED"
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func newTestHandler(t *testing.T, api *fakeAPI) *TicketHandler {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	cfg := config.DefaultConfig()
	client := apiclient.New(&apiclient.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	fixed := func() time.Time { return time.Date(2026, 5, 2, 5, 0, 0, 0, time.UTC) }
	return NewTicketHandlerWith(usecase.NewTicketUseCase(repository.NewTicketRepository(client), cfg), renderer, cfg, fixed)
}

func ticketRequest(path string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		Path:           path,
		PathParameters: map[string]string{"qrToken": "tok-77"},
	}
}

func TestTicketPageByStatus(t *testing.T) {
	tests := []struct {
		status     string
		wantCancel bool
		wantQR     bool
		wantBadge  string
	}{
		{"CONFIRMED", true, true, "예약 확정"},
		{"CHECKED_IN", false, true, "입장 완료"},
		{"CANCELLED", false, false, "예약 취소"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			h := newTestHandler(t, &fakeAPI{status: tt.status})
			resp, err := h.HandleTicketPage(context.Background(), ticketRequest("/t/tok-77"))
			if err != nil {
				t.Fatalf("HandleTicketPage: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if got := strings.Contains(resp.Body, `id="cancel-form"`); got != tt.wantCancel {
				t.Errorf("cancel form shown = %v, want %v", got, tt.wantCancel)
			}
			if got := strings.Contains(resp.Body, `id="ticket-qr"`); got != tt.wantQR {
				t.Errorf("QR shown = %v, want %v", got, tt.wantQR)
			}
			if !strings.Contains(resp.Body, tt.wantBadge) {
				t.Errorf("badge %q missing", tt.wantBadge)
			}
			if !strings.Contains(resp.Body, "14:00:00 기준") {
				t.Error("as-of clock missing")
			}
		})
	}
}

func TestTicketPageUnknownTokenRedirectsHome(t *testing.T) {
	h := newTestHandler(t, &fakeAPI{missing: true})
	resp, _ := h.HandleTicketPage(context.Background(), ticketRequest("/t/tok-77"))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if resp.Headers["Location"] != ticketNotFoundLocation {
		t.Errorf("Location = %q", resp.Headers["Location"])
	}
}

func TestTicketSendsLookupToken(t *testing.T) {
	api := &fakeAPI{status: "CONFIRMED"}
	h := newTestHandler(t, api)
	req := ticketRequest("/t/tok-77")
	req.Headers = map[string]string{"Cookie": session.LookupTokenCookie + "=lk-1"}

	_, _ = h.HandleTicketPage(context.Background(), req)
	if api.authSeen != "Bearer lk-1" {
		t.Errorf("Authorization = %q", api.authSeen)
	}
}

func TestHandleCancel(t *testing.T) {
	t.Run("without confirmation nothing is sent", func(t *testing.T) {
		api := &fakeAPI{status: "CONFIRMED"}
		h := newTestHandler(t, api)
		req := ticketRequest("/t/tok-77/cancel")
		req.Body = ""

		resp, _ := h.HandleCancel(context.Background(), req)
		if api.deletes != 0 {
			t.Fatalf("deletes = %d", api.deletes)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if !strings.Contains(resp.Body, "확인란에 체크해주세요") {
			t.Error("confirmation message missing")
		}
	})

	t.Run("confirmed cancels and reloads", func(t *testing.T) {
		api := &fakeAPI{status: "CONFIRMED"}
		h := newTestHandler(t, api)
		req := ticketRequest("/t/tok-77/cancel")
		req.Body = url.Values{"confirm": {"yes"}}.Encode()

		resp, _ := h.HandleCancel(context.Background(), req)
		if api.deletes != 1 {
			t.Fatalf("deletes = %d", api.deletes)
		}
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if want := "/t/tok-77?notice=reservation-cancelled"; resp.Headers["Location"] != want {
			t.Errorf("Location = %q, want %q", resp.Headers["Location"], want)
		}
	})

	t.Run("checked-in ticket cannot be cancelled", func(t *testing.T) {
		api := &fakeAPI{status: "CHECKED_IN"}
		h := newTestHandler(t, api)
		req := ticketRequest("/t/tok-77/cancel")
		req.Body = url.Values{"confirm": {"yes"}}.Encode()

		resp, _ := h.HandleCancel(context.Background(), req)
		if api.deletes != 0 {
			t.Fatalf("deletes = %d", api.deletes)
		}
		if strings.Contains(resp.Body, `id="cancel-form"`) {
			t.Error("cancel form rendered for checked-in ticket")
		}
	})
}

func TestHandleQRCode(t *testing.T) {
	h := newTestHandler(t, &fakeAPI{status: "CONFIRMED"})
	resp, _ := h.HandleQRCode(context.Background(), ticketRequest("/t/tok-77/qr.png"))
	if resp.StatusCode != http.StatusOK || !resp.IsBase64Encoded {
		t.Fatalf("unexpected response: %d base64=%v", resp.StatusCode, resp.IsBase64Encoded)
	}
	png, err := base64.StdEncoding.DecodeString(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Error("body is not a PNG")
	}

	h = newTestHandler(t, &fakeAPI{status: "CANCELLED"})
	resp, _ = h.HandleQRCode(context.Background(), ticketRequest("/t/tok-77/qr.png"))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cancelled ticket QR status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleTicketPDF(t *testing.T) {
	h := newTestHandler(t, &fakeAPI{status: "CONFIRMED"})
	resp, _ := h.HandleTicketPDF(context.Background(), ticketRequest("/t/tok-77/ticket.pdf"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Headers["Content-Disposition"], "spring-concert-ticket.pdf") {
		t.Errorf("Content-Disposition = %q", resp.Headers["Content-Disposition"])
	}
	data, _ := base64.StdEncoding.DecodeString(resp.Body)
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Error("body is not a PDF")
	}
}
