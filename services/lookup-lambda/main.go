package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/services/lookup-lambda/handler"
)

// For AWS Lambda deployment. API Gateway resources:
//
//	GET  /lookup
//	POST /lookup
func main() {
	config.LoadEnv()
	lookupHandler := handler.NewLookupHandler()

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		switch {
		case req.Resource == "/lookup" && req.HTTPMethod == http.MethodGet:
			return lookupHandler.HandleLookupPage(ctx, req)
		case req.Resource == "/lookup" && req.HTTPMethod == http.MethodPost:
			return lookupHandler.HandleLookup(ctx, req)
		default:
			return render.Default().NotFound(req, ""), nil
		}
	})
}
