package response

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/checkin-web/common/errors"
)

func TestRedirectSetsCookies(t *testing.T) {
	resp := Redirect("/t/abc",
		&http.Cookie{Name: "a", Value: "1"},
		nil,
		&http.Cookie{Name: "b", Value: "2"},
	)

	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if resp.Headers["Location"] != "/t/abc" {
		t.Errorf("Location = %q", resp.Headers["Location"])
	}
	cookies := resp.MultiValueHeaders["Set-Cookie"]
	if len(cookies) != 2 || !strings.HasPrefix(cookies[0], "a=1") || !strings.HasPrefix(cookies[1], "b=2") {
		t.Errorf("Set-Cookie = %v", cookies)
	}
}

func TestBinaryIsBase64(t *testing.T) {
	resp := Binary(ContentTypePNG, "", []byte{0x89, 'P', 'N', 'G'})
	if !resp.IsBase64Encoded {
		t.Fatal("binary responses must be base64 encoded")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Body)
	if err != nil || string(raw) != "\x89PNG" {
		t.Errorf("body = %q, err = %v", raw, err)
	}
	if _, ok := resp.Headers["Content-Disposition"]; ok {
		t.Error("inline binary must not carry Content-Disposition")
	}
}

func TestErrorUsesAppErrorStatus(t *testing.T) {
	resp, err := Error(apperrors.FromStatus(http.StatusConflict, "이미 체크인된 예약입니다"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}

	var body APIResponse
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatal(err)
	}
	if body.Success || body.Error != "이미 체크인된 예약입니다" {
		t.Errorf("body = %+v", body)
	}
}

func TestSuccessWrapsData(t *testing.T) {
	resp, _ := Success(http.StatusOK, map[string]bool{"visible": true})

	var body APIResponse
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || string(body.Data) != `{"visible":true}` {
		t.Errorf("body = %+v (%s)", body, body.Data)
	}
}
