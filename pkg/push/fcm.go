package push

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// MessagingClient is the subset of the Firebase messaging API the gateway
// uses; *messaging.Client satisfies it, and tests substitute a mock.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway adapts Firebase Cloud Messaging to the Gateway interface
type FCMGateway struct {
	client MessagingClient
}

// NewFCMGateway initializes the Firebase app and messaging client
func NewFCMGateway(ctx context.Context, credentialsFile string) (*FCMGateway, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Println("✅ Firebase FCM initialized")
	return &FCMGateway{client: client}, nil
}

// NewFCMGatewayWithClient wraps an existing messaging client
func NewFCMGatewayWithClient(client MessagingClient) *FCMGateway {
	return &FCMGateway{client: client}
}

// SendBatch sends one multicast call and maps each response to a TokenOutcome
func (g *FCMGateway) SendBatch(ctx context.Context, tokens []string, msg *Message) ([]TokenOutcome, error) {
	multicast := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ClickAction: msg.ClickAction,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
		},
	}

	br, err := g.client.SendEachForMulticast(ctx, multicast)
	if err != nil {
		return nil, fmt.Errorf("fcm multicast failed: %w", err)
	}

	outcomes := make([]TokenOutcome, len(tokens))
	for i, resp := range br.Responses {
		if resp.Success {
			outcomes[i] = TokenOutcome{Token: tokens[i], Success: true}
			continue
		}
		code, class := classifyFCMError(resp.Error)
		outcomes[i] = TokenOutcome{
			Token:        tokens[i],
			Success:      false,
			ErrorCode:    code,
			ErrorMessage: resp.Error.Error(),
			Class:        class,
		}
	}
	return outcomes, nil
}

// classifyFCMError is the single place provider error codes are interpreted.
// Terminal codes mean the registration is gone for good and the token should
// be retired; everything else can be retried by a later dispatch.
func classifyFCMError(err error) (string, FailureClass) {
	switch {
	case messaging.IsRegistrationTokenNotRegistered(err):
		return "registration-token-not-registered", ClassTerminal
	case messaging.IsInvalidArgument(err):
		return "invalid-argument", ClassTerminal
	case messaging.IsUnavailable(err):
		return "unavailable", ClassTransient
	case messaging.IsQuotaExceeded(err):
		return "quota-exceeded", ClassTransient
	case messaging.IsInternal(err):
		return "internal", ClassTransient
	case messaging.IsSenderIDMismatch(err):
		return "sender-id-mismatch", ClassTransient
	case messaging.IsThirdPartyAuthError(err):
		return "third-party-auth-error", ClassTransient
	default:
		return "unknown", ClassUnknown
	}
}
