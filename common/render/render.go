package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"

	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/request"
	"github.com/checkin-web/common/response"
)

//go:embed templates/*.html
var files embed.FS

// Pages every renderer knows. Each is parsed together with the layout
// and partials into its own template set.
var pageNames = []string{
	"home",
	"event",
	"event_private",
	"not_found",
	"error",
	"ticket",
	"lookup",
	"login",
	"signup",
	"host_dashboard",
	"host_event",
}

// Base carries what the layout needs on every page. Page view models
// embed it.
type Base struct {
	Title      string
	CSRFToken  string
	RequestID  string
	Notice     string
	NoticeKind string // info, warn, error
	HostEmail  string
	SiteKey    string // reCAPTCHA site key, empty when disabled
}

// NewBase fills the request-scoped parts of Base.
func NewBase(req events.APIGatewayProxyRequest, title string) Base {
	return Base{
		Title:     title,
		CSRFToken: request.CSRFToken(req),
		RequestID: request.Header(req, request.HeaderRequestID),
	}
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

var (
	defaultRenderer *Renderer
	defaultErr      error
	once            sync.Once
)

// Default returns the shared renderer, parsing templates on first use.
func Default() *Renderer {
	once.Do(func() {
		defaultRenderer, defaultErr = New()
		if defaultErr != nil {
			logger.WithError(defaultErr).Fatal("Failed to parse templates")
		}
	})
	return defaultRenderer
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	base, err := template.New("layout.html").Funcs(Funcs()).ParseFS(files, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(files, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes a page into a string.
func (r *Renderer) Render(name string, data interface{}) (string, error) {
	t, ok := r.pages[name]
	if !ok {
		return "", fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Page renders name and wraps it in an HTML response. Render failures are
// logged and answered with a bare 500.
func (r *Renderer) Page(status int, name string, data interface{}, cookies ...*http.Cookie) events.APIGatewayProxyResponse {
	body, err := r.Render(name, data)
	if err != nil {
		logger.WithError(err).Error("Template rendering failed")
		return response.HTML(http.StatusInternalServerError, "<!doctype html><title>오류</title><p>페이지를 표시할 수 없습니다.</p>")
	}
	return response.HTML(status, body, cookies...)
}

// MessagePage is the view model of the not-found and error pages.
type MessagePage struct {
	Base
	Heading string
	Message string
}

// NotFound renders the shared not-found page.
func (r *Renderer) NotFound(req events.APIGatewayProxyRequest, message string) events.APIGatewayProxyResponse {
	if message == "" {
		message = "요청하신 페이지를 찾을 수 없습니다."
	}
	return r.Page(http.StatusNotFound, "not_found", MessagePage{
		Base:    NewBase(req, "페이지를 찾을 수 없습니다"),
		Heading: "페이지를 찾을 수 없습니다",
		Message: message,
	})
}

// Error renders the generic error page with the given status.
func (r *Renderer) Error(req events.APIGatewayProxyRequest, status int, message string) events.APIGatewayProxyResponse {
	if message == "" {
		message = "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	}
	if status < 400 {
		status = http.StatusInternalServerError
	}
	return r.Page(status, "error", MessagePage{
		Base:    NewBase(req, "오류"),
		Heading: "문제가 발생했습니다",
		Message: message,
	})
}
