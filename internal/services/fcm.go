package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Crew notifications are stale after a shift
const pushTTL = 8 * time.Hour

// FCMService delivers crew notifications through Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService loads service-account credentials from a file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	return newFCMService(option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 accepts the service-account JSON base64 encoded,
// for hosts where only environment variables can be set
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	raw, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("decode firebase credentials: %w", err)
	}
	return newFCMService(option.WithCredentialsJSON(raw))
}

func newFCMService(opt option.ClientOption) (*FCMService, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &FCMService{client: client}, nil
}

// SendMulticast fans one notification out to every device token
func (s *FCMService) SendMulticast(ctx context.Context, tokens []string, n Notification) error {
	if len(tokens) == 0 {
		return nil
	}

	resp, err := s.client.SendEachForMulticast(ctx, multicastMessage(tokens, n))
	if err != nil {
		return fmt.Errorf("send %s push: %w", n.Kind(), err)
	}

	for i, r := range resp.Responses {
		if r.Success || i >= len(tokens) {
			continue
		}
		if messaging.IsUnregistered(r.Error) {
			log.Printf("🧹 [PUSH] Token %s… no longer registered", prefix(tokens[i], 12))
		}
	}
	log.Printf("✅ [PUSH] %s: %d delivered, %d failed", n.Kind(), resp.SuccessCount, resp.FailureCount)
	return nil
}

// multicastMessage maps a Notification onto the FCM wire shape. Urgent
// notifications wake the device; the collapse key replaces an earlier push
// about the same subject still sitting in the tray.
func multicastMessage(tokens []string, n Notification) *messaging.MulticastMessage {
	ttl := pushTTL
	android := &messaging.AndroidConfig{
		Priority:    "normal",
		CollapseKey: n.CollapseKey,
		TTL:         &ttl,
		Notification: &messaging.AndroidNotification{
			ChannelID: "operations",
			Tag:       n.CollapseKey,
		},
	}
	apnsPriority := "5"
	if n.Urgent {
		android.Priority = "high"
		android.Notification.ChannelID = "urgent"
		apnsPriority = "10"
	}

	headers := map[string]string{"apns-priority": apnsPriority}
	if n.CollapseKey != "" {
		headers["apns-collapse-id"] = n.CollapseKey
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data:    n.Data,
		Android: android,
		APNS: &messaging.APNSConfig{
			Headers: headers,
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
					ThreadID:         n.Kind(),
				},
			},
		},
	}
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
