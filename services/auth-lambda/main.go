package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/services/auth-lambda/handler"
)

var authHandler *handler.AuthHandler

func init() {
	config.LoadEnv()
	authHandler = handler.NewAuthHandler()
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	// Route based on path and method
	path := request.Path
	method := request.HTTPMethod

	switch {
	case path == "/login" && method == http.MethodGet:
		return authHandler.HandleLoginPage(ctx, request)
	case path == "/login" && method == http.MethodPost:
		return authHandler.HandleLogin(ctx, request)
	case path == "/logout" && method == http.MethodPost:
		return authHandler.HandleLogout(ctx, request)
	case path == "/signup" && method == http.MethodGet:
		return authHandler.HandleSignupPage(ctx, request)
	case path == "/signup" && method == http.MethodPost:
		return authHandler.HandleSignup(ctx, request)
	case path == "/signup/email/send" && method == http.MethodPost:
		return authHandler.HandleSendCode(ctx, request)
	case path == "/signup/email/verify" && method == http.MethodPost:
		return authHandler.HandleVerifyCode(ctx, request)
	default:
		return render.Default().NotFound(request, ""), nil
	}
}

func main() {
	lambda.Start(Handler)
}
