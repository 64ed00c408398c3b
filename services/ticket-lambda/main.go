package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/services/ticket-lambda/handler"
)

// For AWS Lambda deployment. API Gateway resources:
//
//	GET  /t/{qrToken}
//	GET  /t/{qrToken}/qr.png
//	GET  /t/{qrToken}/ticket.pdf
//	POST /t/{qrToken}/cancel
func main() {
	config.LoadEnv()
	ticketHandler := handler.NewTicketHandler()

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		switch {
		case req.Resource == "/t/{qrToken}" && req.HTTPMethod == http.MethodGet:
			return ticketHandler.HandleTicketPage(ctx, req)
		case req.Resource == "/t/{qrToken}/qr.png" && req.HTTPMethod == http.MethodGet:
			return ticketHandler.HandleQRCode(ctx, req)
		case req.Resource == "/t/{qrToken}/ticket.pdf" && req.HTTPMethod == http.MethodGet:
			return ticketHandler.HandleTicketPDF(ctx, req)
		case req.Resource == "/t/{qrToken}/cancel" && req.HTTPMethod == http.MethodPost:
			return ticketHandler.HandleCancel(ctx, req)
		default:
			return render.Default().NotFound(req, ""), nil
		}
	})
}
