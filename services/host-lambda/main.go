package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/scanguard"
	"github.com/checkin-web/common/scheduler"
	"github.com/checkin-web/services/host-lambda/handler"
)

// For AWS Lambda deployment. API Gateway resources:
//
//	GET  /host
//	POST /host/events/{eventId}/visibility
//	GET  /host/events/{eventId}
//	POST /host/events/{eventId}/scan
//	GET  /host/events/{eventId}/roster.xlsx
//	POST /host/reservations/{reservationId}/checkin
func main() {
	config.LoadEnv()
	cfg := config.LoadConfig()

	// Warm instances keep the in-memory window; Redis shares it across them.
	guard := scanguard.New(config.NewRedisClient(), cfg.ScanCooldown())
	if purger, ok := guard.(scanguard.Purger); ok {
		scheduler.NewScanGuardJanitor(purger, 0).Start()
	}
	hostHandler := handler.NewHostHandler(guard)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		switch {
		case req.Resource == "/host" && req.HTTPMethod == http.MethodGet:
			return hostHandler.HandleDashboard(ctx, req)
		case req.Resource == "/host/events/{eventId}/visibility" && req.HTTPMethod == http.MethodPost:
			return hostHandler.HandleVisibility(ctx, req)
		case req.Resource == "/host/events/{eventId}" && req.HTTPMethod == http.MethodGet:
			return hostHandler.HandleEventDetail(ctx, req)
		case req.Resource == "/host/events/{eventId}/scan" && req.HTTPMethod == http.MethodPost:
			return hostHandler.HandleScan(ctx, req)
		case req.Resource == "/host/events/{eventId}/roster.xlsx" && req.HTTPMethod == http.MethodGet:
			return hostHandler.HandleRoster(ctx, req)
		case req.Resource == "/host/reservations/{reservationId}/checkin" && req.HTTPMethod == http.MethodPost:
			return hostHandler.HandleCheckin(ctx, req)
		default:
			return render.Default().NotFound(req, ""), nil
		}
	})
}
