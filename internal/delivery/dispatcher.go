package delivery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/metrics"
)

// Sender delivers one notification to one user over a single channel.
type Sender interface {
	Channel() enums.Channel
	Send(ctx context.Context, user *models.User, notification *models.Notification) error
}

// Dispatcher fans one notification out to its enabled channels. Channels are
// isolated: a failing channel never blocks or aborts the others.
type Dispatcher struct {
	attempts AttemptRepository
	senders  map[enums.Channel]Sender
	metrics  *metrics.DispatchMetrics
	cfg      config.DeliveryConfig
	logg     *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(attempts AttemptRepository, senders []Sender, dispatchMetrics *metrics.DispatchMetrics, cfg config.DeliveryConfig, logg *logger.Logger) (*Dispatcher, error) {
	if attempts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "attempt repository required")
	}
	byChannel := make(map[enums.Channel]Sender, len(senders))
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		byChannel[sender.Channel()] = sender
	}
	return &Dispatcher{
		attempts: attempts,
		senders:  byChannel,
		metrics:  dispatchMetrics,
		cfg:      cfg,
		logg:     logg,
		sleep:    sleepCtx,
	}, nil
}

// Dispatch sends over every requested channel and reports whether at least
// one accepted the content. The returned error aggregates per-channel
// failures without masking partial success.
func (d *Dispatcher) Dispatch(ctx context.Context, user *models.User, notification *models.Notification, channels []enums.Channel) (bool, error) {
	hash := ContentHash(notification)

	var delivered bool
	var errs error
	for _, channel := range channels {
		ok, err := d.dispatchChannel(ctx, user, notification, channel, hash)
		if ok {
			delivered = true
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("channel %s: %w", channel, err))
		}
	}
	return delivered, errs
}

func (d *Dispatcher) dispatchChannel(ctx context.Context, user *models.User, notification *models.Notification, channel enums.Channel, hash string) (bool, error) {
	sender, ok := d.senders[channel]
	if !ok {
		return false, fmt.Errorf("no sender registered")
	}

	// Replayed dispatches short-circuit on a recorded success for the same
	// content.
	done, err := d.attempts.HasDelivered(ctx, notification.ID, channel, hash)
	if err != nil {
		return false, err
	}
	if done {
		d.metrics.IncOutcome(string(channel), "skipped")
		return true, nil
	}

	prior, err := d.attempts.CountForChannel(ctx, notification.ID, channel)
	if err != nil {
		return false, err
	}
	maxAttempts := d.cfg.MaxChannelAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if prior >= maxAttempts {
		return false, fmt.Errorf("attempts exhausted after %d tries", prior)
	}

	var lastErr error
	for attempt := prior + 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		sendErr := d.send(ctx, sender, user, notification)
		d.metrics.IncAttempt(string(channel))
		d.metrics.ObserveLatency(string(channel), time.Since(start))

		outcome := enums.DeliveryOutcomeDelivered
		var errText *string
		if sendErr != nil {
			outcome = enums.DeliveryOutcomeFailed
			text := sendErr.Error()
			errText = &text
		}
		if recordErr := d.attempts.Record(ctx, &models.DeliveryAttempt{
			NotificationID: notification.ID,
			Channel:        channel,
			AttemptNumber:  attempt,
			Outcome:        outcome,
			ContentHash:    hash,
			Error:          errText,
		}); recordErr != nil && d.logg != nil {
			d.logg.Error(ctx, "recording delivery attempt failed", recordErr)
		}
		d.metrics.IncOutcome(string(channel), string(outcome))

		if sendErr == nil {
			return true, nil
		}
		lastErr = sendErr

		if attempt < maxAttempts {
			if err := d.sleep(ctx, backoffDelay(d.cfg.RetryBaseDelay, attempt)); err != nil {
				return false, multierr.Append(lastErr, err)
			}
		}
	}
	return false, lastErr
}

func (d *Dispatcher) send(ctx context.Context, sender Sender, user *models.User, notification *models.Notification) error {
	timeout := d.cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sender.Send(sendCtx, user, notification)
}

// ContentHash fingerprints the user-visible content; regrouping bumps the
// count and therefore the hash, re-arming delivery for the summary.
func ContentHash(notification *models.Notification) string {
	h := sha256.New()
	h.Write([]byte(string(notification.Type)))
	h.Write([]byte{0})
	h.Write([]byte(notification.Title))
	h.Write([]byte{0})
	h.Write([]byte(notification.Message))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(notification.GroupCount)))
	return hex.EncodeToString(h.Sum(nil))
}

// backoffDelay grows exponentially per attempt with up to 50% jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base << (attempt - 1)
	return delay + time.Duration(rand.Int63n(int64(delay)/2+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
