package db

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/example/contacts-backend/internal/config"
)

// Firestore collection names.
const (
	usersCollection    = "users"
	creditsCollection  = "credits"
	contactsCollection = "contacts"
	paymentsCollection = "payments"
	auditCollection    = "audit_logs"
)

// InitFirebaseApp initializes the Firebase Admin SDK. Credentials come from a
// service account file, a base64 encoded service account JSON, or Application
// Default Credentials, in that order.
func InitFirebaseApp(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*firebase.App, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("InitFirebaseApp: appConfig cannot be nil")
	}

	var opts []option.ClientOption
	switch {
	case appConfig.GoogleApplicationCredentials != "":
		logger.Info("Initializing Firebase with credentials file", zap.String("path", appConfig.GoogleApplicationCredentials))
		if _, err := os.Stat(appConfig.GoogleApplicationCredentials); os.IsNotExist(err) {
			logger.Warn("Credentials file from GOOGLE_APPLICATION_CREDENTIALS does not exist", zap.String("path", appConfig.GoogleApplicationCredentials))
		}
		opts = append(opts, option.WithCredentialsFile(appConfig.GoogleApplicationCredentials))
	case appConfig.FirebaseServiceAccountJSONBase64 != "":
		logger.Info("Initializing Firebase with base64 encoded service account JSON")
		decodedJSON, err := base64.StdEncoding.DecodeString(appConfig.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decodedJSON))
	default:
		logger.Info("Initializing Firebase using Application Default Credentials")
	}

	fbConfig := &firebase.Config{ProjectID: appConfig.FirebaseProjectID}
	if appConfig.FirebaseStorageBucket != "" {
		fbConfig.StorageBucket = appConfig.FirebaseStorageBucket
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	return app, nil
}

// NewFirestoreStore wires the Firestore-backed repositories around client.
func NewFirestoreStore(client *firestore.Client) *Store {
	return &Store{
		Users:    NewFirestoreUserRepository(client),
		Credits:  NewFirestoreCreditRepository(client),
		Contacts: NewFirestoreContactRepository(client),
		Payments: NewFirestorePaymentRepository(client),
		Audit:    NewFirestoreAuditRepository(client),
		Close:    client.Close,
	}
}
