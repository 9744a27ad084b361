// Package webhook delivers tenant webhook notifications over HTTP,
// signing each request the way an inbound Ruriko-style gateway would
// verify one: an X-Signature header carrying "sha256=" followed by the
// hex-encoded HMAC-SHA256 of the request body under the subscription's
// signing secret.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/mailbridge/syncstack/config"
	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/models"
)

type Dispatcher struct {
	subs       interfaces.WebhookSubscriptionRepository
	deliveries interfaces.WebhookDeliveryRepository
	httpClient *http.Client
	cfg        *config.WebhookConfig
	log        logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(subs interfaces.WebhookSubscriptionRepository, deliveries interfaces.WebhookDeliveryRepository, cfg *config.WebhookConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		subs:       subs,
		deliveries: deliveries,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		log:        log,
		done:       make(chan struct{}),
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go func() {
		defer close(d.done)
		d.loop(runCtx)
	}()

	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	select {
	case <-d.done:
	case <-ctx.Done():
	}
	return nil
}

func (d *Dispatcher) loop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.dispatchDue(ctx); err != nil {
				d.log.Errorf("webhook dispatch: %v", err)
			}
		}
	}
}

func (d *Dispatcher) dispatchDue(ctx context.Context) error {
	due, err := d.deliveries.ListDue(ctx, time.Now(), d.cfg.DispatchBatchSize)
	if err != nil {
		return fmt.Errorf("list due deliveries: %w", err)
	}

	for _, delivery := range due {
		d.attempt(ctx, delivery)
	}

	return nil
}

func (d *Dispatcher) attempt(ctx context.Context, delivery *models.WebhookDelivery) {
	sub, err := d.subs.GetSubscription(ctx, delivery.SubscriptionID)
	if err != nil || sub == nil || !sub.Enabled {
		_ = d.deliveries.MarkTerminal(ctx, delivery.ID, enum.WebhookDeliveryPermanentlyFailed, 0, "subscription missing or disabled")
		return
	}

	status, postErr := d.post(ctx, sub.TargetURL, sub.SigningSecret, delivery.Payload)
	delivered, permanentlyFailed := statusOutcome(status, postErr)
	if delivered {
		_ = d.deliveries.MarkDelivered(ctx, delivery.ID, status)
		return
	}

	errMsg := ""
	if postErr != nil {
		errMsg = postErr.Error()
	}

	if permanentlyFailed {
		_ = d.deliveries.MarkTerminal(ctx, delivery.ID, enum.WebhookDeliveryPermanentlyFailed, status, errMsg)
		return
	}

	if delivery.AttemptCount+1 >= d.cfg.MaxAttempts {
		_ = d.deliveries.MarkTerminal(ctx, delivery.ID, enum.WebhookDeliveryExpired, status, errMsg)
		return
	}

	next := time.Now().Add(dispatchBackoff(d.cfg.BaseBackoff, d.cfg.MaxBackoff, delivery.AttemptCount))
	_ = d.deliveries.MarkRetry(ctx, delivery.ID, status, errMsg, next)
}

// statusOutcome classifies a delivery attempt's result per the retry
// policy: 2xx delivers; 4xx other than 408/429 fails permanently (the
// target will never accept this payload on retry); everything else
// (5xx, 408, 429, network errors) is retryable up to the attempt ceiling.
func statusOutcome(status int, err error) (delivered bool, permanentlyFailed bool) {
	if err != nil {
		return false, false
	}
	if status >= 200 && status < 300 {
		return true, false
	}
	if status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		return false, true
	}
	return false, false
}

func (d *Dispatcher) post(ctx context.Context, targetURL, signingSecret string, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sign(signingSecret, payload))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func dispatchBackoff(base, max time.Duration, attempt int) time.Duration {
	exp := float64(base) * float64(uint64(1)<<uint(attempt))
	if exp > float64(max) || exp <= 0 {
		exp = float64(max)
	}
	return time.Duration(rand.Float64() * exp)
}
