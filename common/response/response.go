package response

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	apperrors "github.com/checkin-web/common/errors"
)

// APIResponse is the envelope the platform API may wrap its payloads in.
// The client unwraps it when present, and the host JSON endpoints of this
// app answer with it too.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// SuccessResponse creates a success response
func SuccessResponse(data interface{}) (APIResponse, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return APIResponse{}, err
	}
	return APIResponse{Success: true, Data: raw}, nil
}

// ErrorResponse creates an error response
func ErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// ToJSON converts response to JSON string
func (r APIResponse) ToJSON() (string, error) {
	bytes, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypePNG  = "image/png"
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HTML wraps a rendered page.
func HTML(statusCode int, body string, cookies ...*http.Cookie) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":  ContentTypeHTML,
			"Cache-Control": "no-store",
		},
		Body: body,
	}
	return withCookies(resp, cookies)
}

// JSON marshals data as the response body.
func JSON(statusCode int, data interface{}) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": ContentTypeJSON},
			Body:       `{"success":false,"error":"Failed to encode response"}`,
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": ContentTypeJSON},
		Body:       string(body),
	}, nil
}

// Success answers with the envelope and data.
func Success(statusCode int, data interface{}) (events.APIGatewayProxyResponse, error) {
	env, err := SuccessResponse(data)
	if err != nil {
		return JSON(http.StatusInternalServerError, ErrorResponse("Failed to encode response"))
	}
	return JSON(statusCode, env)
}

// Error answers with the envelope carrying the AppError message.
func Error(err error) (events.APIGatewayProxyResponse, error) {
	appErr := apperrors.ToAppError(err)
	return JSON(appErr.HTTPStatus, ErrorResponse(appErr.Message))
}

// Redirect answers 303 See Other so a POST is followed by a GET.
func Redirect(location string, cookies ...*http.Cookie) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: http.StatusSeeOther,
		Headers: map[string]string{
			"Location":      location,
			"Cache-Control": "no-store",
		},
	}
	return withCookies(resp, cookies)
}

// Binary base64-encodes a file body, the way API Gateway expects it.
func Binary(contentType, filename string, data []byte) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":  contentType,
		"Cache-Control": "no-store",
	}
	if filename != "" {
		headers["Content-Disposition"] = `attachment; filename="` + filename + `"`
	}
	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusOK,
		Headers:         headers,
		Body:            base64.StdEncoding.EncodeToString(data),
		IsBase64Encoded: true,
	}
}

func withCookies(resp events.APIGatewayProxyResponse, cookies []*http.Cookie) events.APIGatewayProxyResponse {
	if len(cookies) == 0 {
		return resp
	}
	if resp.MultiValueHeaders == nil {
		resp.MultiValueHeaders = make(map[string][]string)
	}
	for _, c := range cookies {
		if c == nil {
			continue
		}
		resp.MultiValueHeaders["Set-Cookie"] = append(resp.MultiValueHeaders["Set-Cookie"], c.String())
	}
	return resp
}
