// Package push delivers engine notifications as Web Push messages signed
// with the app's VAPID keys.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrExpired is returned by a Sender when the push service reports the
// subscription gone.
var ErrExpired = errors.New("push subscription expired")

// DefaultTTL is how long the push service may hold an undelivered message.
const DefaultTTL = 24 * 60 * 60

// Users loads the recipient to check notification preferences.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Subscriptions lists and prunes a user's push endpoints.
type Subscriptions interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Sender posts one encrypted message to one subscription.
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, data []byte) error
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string // email address or https URL; webpush-go adds mailto:
}

// Enabled reports whether both VAPID keys are set.
func (c Config) Enabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Dispatcher implements engine.Notifier over Web Push.
type Dispatcher struct {
	users  Users
	subs   Subscriptions
	sender Sender
	log    *zap.Logger
}

// NewDispatcher returns a Dispatcher that sends through webpush-go. With no
// VAPID keys configured, every notification is dropped.
func NewDispatcher(cfg Config, users Users, subs Subscriptions, logger *zap.Logger) *Dispatcher {
	var s Sender
	if cfg.Enabled() {
		s = &WebPushSender{cfg: cfg}
	}
	return NewDispatcherWithSender(users, subs, s, logger)
}

// NewDispatcherWithSender is NewDispatcher with an explicit Sender.
func NewDispatcherWithSender(users Users, subs Subscriptions, sender Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{users: users, subs: subs, sender: sender, log: logger}
}

// Notify sends p to every device of userID unless the user switched off
// one of opts.RequiredPreferences. Expired subscriptions are removed.
func (d *Dispatcher) Notify(ctx context.Context, userID primitive.ObjectID, p engine.Payload, opts engine.NotifyOptions) error {
	if d.sender == nil {
		return nil
	}

	if len(opts.RequiredPreferences) > 0 {
		u, err := d.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load recipient: %w", err)
		}
		for _, pref := range opts.RequiredPreferences {
			if !u.PrefEnabled(pref) {
				d.log.Debug("notification suppressed by preference",
					zap.String("user_id", userID.Hex()),
					zap.String("preference", pref))
				return nil
			}
		}
	}

	subs, err := d.subs.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var errs []error
	for _, sub := range subs {
		err := d.sender.Send(ctx, sub, data)
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			if derr := d.subs.DeleteByEndpoint(ctx, sub.Endpoint); derr != nil {
				errs = append(errs, derr)
			}
			d.log.Info("removed expired push subscription", zap.String("user_id", userID.Hex()))
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WebPushSender sends with github.com/SherClockHolmes/webpush-go.
type WebPushSender struct {
	cfg    Config
	Client *http.Client // nil uses http.DefaultClient
}

// NewWebPushSender returns a Sender signing with cfg's VAPID keys.
func NewWebPushSender(cfg Config) *WebPushSender {
	return &WebPushSender{cfg: cfg}
}

// Send encrypts data for sub and posts it to the subscription endpoint.
func (s *WebPushSender) Send(ctx context.Context, sub models.PushSubscription, data []byte) error {
	subscriber := s.cfg.Subscriber
	if subscriber == "" {
		subscriber = "noreply@chorehub.app"
	}
	opts := &webpush.Options{
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      subscriber,
		TTL:             DefaultTTL,
	}
	if s.Client != nil {
		opts.HTTPClient = s.Client
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, opts)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys returns a new VAPID key pair.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
