package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/auth"
	"github.com/example/contacts-backend/internal/config"
	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/middleware"
)

// Services bundles what the handlers depend on.
type Services struct {
	Auth      auth.Provider
	Users     core.UserService
	Credits   core.CreditService
	Payments  core.PaymentService
	Contacts  core.ContactService
	Submitter core.Submitter
	Addresses core.AddressService
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is applied in main before this is called.
func SetupRoutes(router *gin.Engine, appConfig *config.Config, logger *zap.Logger, svc Services) {
	authMW := middleware.NewAuthMiddleware(svc.Auth, logger)

	authHandler := NewAuthHandler(svc.Auth, svc.Users, svc.Credits, logger)
	userHandler := NewUserHandler(svc.Users, svc.Credits, svc.Payments, logger)
	paymentHandler := NewPaymentHandler(svc.Payments, logger)
	contactHandler := NewContactHandler(svc.Contacts, svc.Submitter, svc.Payments, appConfig.MaxUploadBytes, logger)
	placeHandler := NewPlaceHandler(svc.Addresses, logger)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.SignUp)
			authGroup.POST("/signin", authHandler.SignIn)
			authGroup.POST("/signout", authMW.VerifyToken(), authHandler.SignOut)
		}

		userGroup := apiV1.Group("/users", authMW.VerifyToken())
		{
			userGroup.POST("/initialize", authHandler.InitializeUserProfile)
			userGroup.GET("/me", userHandler.GetCurrentUserProfile)
		}

		creditGroup := apiV1.Group("/credits", authMW.VerifyToken())
		{
			creditGroup.GET("", userHandler.GetBalance)
			creditGroup.GET("/packages", userHandler.ListPackages)
		}

		paymentGroup := apiV1.Group("/payments")
		{
			paymentGroup.POST("/intents", authMW.VerifyToken(), paymentHandler.CreateIntent)
			paymentGroup.GET("/pending", authMW.VerifyToken(), paymentHandler.ListPending)
			paymentGroup.POST("/:paymentId/confirm", authMW.VerifyToken(), paymentHandler.Confirm)
			paymentGroup.POST("/:paymentId/refresh", authMW.VerifyToken(), paymentHandler.Refresh)

			// Public: Stripe authenticates the payload with its signature.
			paymentGroup.POST("/webhooks/stripe", paymentHandler.HandleStripeWebhook)
		}

		contactGroup := apiV1.Group("/contacts", authMW.VerifyToken())
		{
			contactGroup.GET("", contactHandler.ListContacts)
			contactGroup.POST("", contactHandler.CreateContact)
			contactGroup.GET("/:contactId", contactHandler.GetContact)
			contactGroup.PUT("/:contactId", contactHandler.UpdateContact)
			contactGroup.DELETE("/:contactId", contactHandler.DeleteContact)
		}

		placeGroup := apiV1.Group("/places", authMW.VerifyToken())
		{
			placeGroup.GET("/autocomplete", placeHandler.Autocomplete)
			placeGroup.GET("/geocode", placeHandler.Geocode)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "UP", Time: time.Now().UTC()})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
