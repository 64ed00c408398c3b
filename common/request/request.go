package request

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/checkin-web/common/recaptcha"
)

// Headers set by the local server before a handler runs.
const (
	HeaderRequestID = "X-Request-Id"
	HeaderCSRFToken = "X-Csrf-Form-Token"
)

// Header looks a header up case-insensitively; API Gateway lower-cases
// names while the local adapter keeps canonical form.
func Header(req events.APIGatewayProxyRequest, name string) string {
	if v, ok := req.Headers[name]; ok {
		return v
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return strings.Join(vs, "; ")
		}
	}
	return ""
}

// Cookie returns the named cookie's value, or "" when absent.
func Cookie(req events.APIGatewayProxyRequest, name string) string {
	raw := Header(req, "Cookie")
	if raw == "" {
		return ""
	}
	r := http.Request{Header: http.Header{"Cookie": {raw}}}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// Body returns the decoded request body.
func Body(req events.APIGatewayProxyRequest) (string, error) {
	if !req.IsBase64Encoded {
		return req.Body, nil
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Form parses an application/x-www-form-urlencoded body.
func Form(req events.APIGatewayProxyRequest) (url.Values, error) {
	body, err := Body(req)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(body)
}

// PathParam returns a path parameter by name.
func PathParam(req events.APIGatewayProxyRequest, name string) string {
	return req.PathParameters[name]
}

// Query returns a query string parameter by name.
func Query(req events.APIGatewayProxyRequest, name string) string {
	return req.QueryStringParameters[name]
}

// ClientIP resolves the caller address for bot checks and logs.
func ClientIP(req events.APIGatewayProxyRequest) string {
	return recaptcha.ClientIP(req.Headers, req.RequestContext.Identity.SourceIP)
}

// CSRFToken is the token the local server issued for this request, if any.
func CSRFToken(req events.APIGatewayProxyRequest) string {
	return Header(req, HeaderCSRFToken)
}
