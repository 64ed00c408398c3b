package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/request"
	"github.com/checkin-web/common/response"
	"github.com/checkin-web/common/scanguard"
	"github.com/checkin-web/common/scheduler"
	authHandler "github.com/checkin-web/services/auth-lambda/handler"
	eventHandler "github.com/checkin-web/services/event-lambda/handler"
	hostHandler "github.com/checkin-web/services/host-lambda/handler"
	lookupHandler "github.com/checkin-web/services/lookup-lambda/handler"
	ticketHandler "github.com/checkin-web/services/ticket-lambda/handler"
)

// lambdaFunc is the signature every service handler shares.
type lambdaFunc func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// route binds a Go 1.22 pattern to a lambda handler. resource is the API
// Gateway resource the same handler sees when deployed.
type route struct {
	pattern  string
	resource string
	handler  lambdaFunc
}

// Adapter converts http.Request to APIGatewayProxyRequest
func adaptRequest(r *http.Request, resource string) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayProxyRequest{}, err
	}
	defer r.Body.Close()

	// Cookies arrive as several headers on HTTP/2, keep them all
	headers := make(map[string]string)
	multi := make(map[string][]string)
	for key, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		multi[key] = values
		if key == "Cookie" {
			headers[key] = strings.Join(values, "; ")
		} else {
			headers[key] = values[0]
		}
	}
	headers[request.HeaderCSRFToken] = csrf.Token(r)

	queryParams := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			queryParams[key] = values[0]
		}
	}

	pathParams := make(map[string]string)
	for _, name := range paramNames(resource) {
		pathParams[name] = r.PathValue(name)
	}

	req := events.APIGatewayProxyRequest{
		Resource:              resource,
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		MultiValueHeaders:     multi,
		QueryStringParameters: queryParams,
		PathParameters:        pathParams,
		Body:                  string(body),
	}
	if !isTextBody(r.Header.Get("Content-Type")) && len(body) > 0 {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	req.RequestContext.RequestID = r.Header.Get(request.HeaderRequestID)
	req.RequestContext.Identity.SourceIP = remoteIP(r)
	req.RequestContext.Identity.UserAgent = r.UserAgent()
	return req, nil
}

// writeResponse writes APIGatewayProxyResponse to http.ResponseWriter
func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	for key, values := range resp.MultiValueHeaders {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			logger.WithError(err).Error("Failed to decode binary response")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = decoded
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(body)
}

// serve adapts one route into an http.HandlerFunc.
func serve(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := adaptRequest(r, rt.resource)
		if err != nil {
			logger.WithContext(r.Context()).WithError(err).Warn("Failed to read request body")
			writeResponse(w, render.Default().Error(events.APIGatewayProxyRequest{}, http.StatusBadRequest, "요청을 읽을 수 없습니다."))
			return
		}

		resp, err := rt.handler(r.Context(), req)
		if err != nil {
			logger.WithContext(r.Context()).WithError(err).Error("Handler failed for %s", rt.pattern)
			resp = render.Default().Error(req, http.StatusInternalServerError, "")
		}
		writeResponse(w, resp)
	}
}

// statusRecorder keeps the status and size for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += int64(n)
	return n, err
}

// loggingMiddleware assigns a request id and logs every request
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(request.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			r.Header.Set(request.HeaderRequestID, requestID)
		}
		w.Header().Set(request.HeaderRequestID, requestID)
		r = r.WithContext(logger.ContextWithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		logger.Default().LogRequest(logger.RequestLog{
			Method:       r.Method,
			Path:         r.URL.Path,
			Status:       rec.status,
			Duration:     time.Since(start),
			ClientIP:     remoteIP(r),
			UserAgent:    r.UserAgent(),
			RequestID:    requestID,
			ResponseSize: rec.size,
		})
	})
}

// csrfMiddleware protects form posts when CSRF_KEY is set. The key is
// hashed so any length works.
func csrfMiddleware(next http.Handler) http.Handler {
	key := config.GetEnv("CSRF_KEY", "")
	if key == "" {
		logger.Warn("CSRF_KEY not set, form posts are not CSRF protected")
		return next
	}
	sum := sha256.Sum256([]byte(key))
	secure := config.CookieSecure()

	protect := csrf.Protect(sum[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
	)(next)

	if secure {
		return protect
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protect.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	logger.WithContext(r.Context()).WithError(csrf.FailureReason(r)).Warn("CSRF check failed for %s", r.URL.Path)
	req := events.APIGatewayProxyRequest{Headers: map[string]string{
		request.HeaderRequestID: r.Header.Get(request.HeaderRequestID),
	}}
	writeResponse(w, render.Default().Error(req, http.StatusForbidden, "페이지가 만료되었습니다. 새로고침 후 다시 시도해주세요."))
}

func main() {
	config.LoadEnv()
	cfg := config.LoadConfig()

	guard := scanguard.New(config.NewRedisClient(), cfg.ScanCooldown())
	var janitor *scheduler.ScanGuardJanitor
	if purger, ok := guard.(scanguard.Purger); ok {
		janitor = scheduler.NewScanGuardJanitor(purger, 0)
		janitor.Start()
	}

	eventH := eventHandler.NewEventHandler()
	ticketH := ticketHandler.NewTicketHandler()
	lookupH := lookupHandler.NewLookupHandler()
	hostH := hostHandler.NewHostHandler(guard)
	authH := authHandler.NewAuthHandler()

	routes := []route{
		// Guest
		{"GET /{$}", "/", eventH.HandleHome},
		{"GET /e/{eventCode}", "/e/{eventCode}", eventH.HandleEventPage},
		{"POST /e/{eventCode}/reserve", "/e/{eventCode}/reserve", eventH.HandleReserve},
		{"GET /t/{qrToken}", "/t/{qrToken}", ticketH.HandleTicketPage},
		{"GET /t/{qrToken}/qr.png", "/t/{qrToken}/qr.png", ticketH.HandleQRCode},
		{"GET /t/{qrToken}/ticket.pdf", "/t/{qrToken}/ticket.pdf", ticketH.HandleTicketPDF},
		{"POST /t/{qrToken}/cancel", "/t/{qrToken}/cancel", ticketH.HandleCancel},
		{"GET /lookup", "/lookup", lookupH.HandleLookupPage},
		{"POST /lookup", "/lookup", lookupH.HandleLookup},

		// Host
		{"GET /host", "/host", hostH.HandleDashboard},
		{"POST /host/events/{eventId}/visibility", "/host/events/{eventId}/visibility", hostH.HandleVisibility},
		{"GET /host/events/{eventId}", "/host/events/{eventId}", hostH.HandleEventDetail},
		{"POST /host/events/{eventId}/scan", "/host/events/{eventId}/scan", hostH.HandleScan},
		{"GET /host/events/{eventId}/roster.xlsx", "/host/events/{eventId}/roster.xlsx", hostH.HandleRoster},
		{"POST /host/reservations/{reservationId}/checkin", "/host/reservations/{reservationId}/checkin", hostH.HandleCheckin},

		// Auth
		{"GET /login", "/login", authH.HandleLoginPage},
		{"POST /login", "/login", authH.HandleLogin},
		{"POST /logout", "/logout", authH.HandleLogout},
		{"GET /signup", "/signup", authH.HandleSignupPage},
		{"POST /signup", "/signup", authH.HandleSignup},
		{"POST /signup/email/send", "/signup/email/send", authH.HandleSendCode},
		{"POST /signup/email/verify", "/signup/email/verify", authH.HandleVerifyCode},
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, serve(rt))
	}
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := response.JSON(http.StatusOK, map[string]string{"status": "ok"})
		writeResponse(w, resp)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		req, _ := adaptRequest(r, "")
		writeResponse(w, render.Default().NotFound(req, ""))
	})

	port := config.GetEnv("PORT", "8080")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           loggingMiddleware(csrfMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Check-in web running on http://localhost:%s (API %s)", port, config.GetEnv("API_BASE_URL", "http://localhost:8081"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	if janitor != nil {
		janitor.Stop()
	}
}

// paramNames lists the {name} segments of an API Gateway resource.
func paramNames(resource string) []string {
	var names []string
	for _, seg := range strings.Split(resource, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			names = append(names, strings.Trim(seg, "{}"))
		}
	}
	return names
}

func isTextBody(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "x-www-form-urlencoded")
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
