package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/services/event-lambda/handler"
)

// For AWS Lambda deployment. API Gateway resources:
//
//	GET  /
//	GET  /e/{eventCode}
//	POST /e/{eventCode}/reserve
func main() {
	config.LoadEnv()
	eventHandler := handler.NewEventHandler()

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		switch {
		case req.Resource == "/" && req.HTTPMethod == http.MethodGet:
			return eventHandler.HandleHome(ctx, req)
		case req.Resource == "/e/{eventCode}" && req.HTTPMethod == http.MethodGet:
			return eventHandler.HandleEventPage(ctx, req)
		case req.Resource == "/e/{eventCode}/reserve" && req.HTTPMethod == http.MethodPost:
			return eventHandler.HandleReserve(ctx, req)
		default:
			return render.Default().NotFound(req, ""), nil
		}
	})
}
