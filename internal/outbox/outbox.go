// Package outbox implements the commit-time handoff between an object
// event's unit of work and the DeliveryEngine: a two-phase-commit style
// accumulator that joins the caller's transaction, freezes a shipment plan
// at vote time, and becomes un-touchable the moment the engine takes over.
//
// Grounded on original_source/src/nti/webhooks/datamanager.py
// (the original's `WebhookDataManager`, a genuine ZODB IDataManager with
// tpc_begin/tpc_vote/tpc_finish/tpc_abort/abort hooks). Go has no ambient
// transaction manager to join, so Outbox is instead an explicit struct
// created per unit of work and driven directly by its caller — see
// SPEC_FULL §9 on the re-architecture of ZODB's implicit joins into
// explicit Go calls.
package outbox

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nti-labs/webhooks/internal/delivery"
	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/pkg/logger"
)

type dataEventKey struct {
	dataID string
	event  string
}

type serializeKey struct {
	dataID  string
	dialect string
}

// Outbox accumulates (data, event, subscription) triples for one unit of
// work and drives them through the tpc_begin/tpc_vote/tpc_finish lifecycle
// described in spec §4.7.
type Outbox struct {
	txnID string

	dialects     *domain.DialectRegistry
	externalizer domain.Externalizer
	validator    delivery.DestinationValidator
	attemptRepo  domain.DeliveryAttemptRepository
	subRepo      domain.SubscriptionRepository
	events       domain.EventBus
	engine       *delivery.Engine
	log          logger.Logger

	mu         sync.Mutex
	pending    map[dataEventKey][]*domain.Subscription
	dataByKey  map[dataEventKey]any
	serialized map[serializeKey][]byte
	attempts   []*attemptPlan
	voted      bool
	finished   bool
}

type attemptPlan struct {
	sub     *domain.Subscription
	attempt *domain.DeliveryAttempt
	dialect *domain.Dialect
	payload []byte
}

// New constructs an Outbox bound to one unit of work, identified by txnID.
// Every subsequent call must present the same txnID or it fails with
// ErrForeignUnitOfWork. A nil validator skips the pre-flight destination
// check entirely.
func New(txnID string, dialects *domain.DialectRegistry, externalizer domain.Externalizer, validator delivery.DestinationValidator, attemptRepo domain.DeliveryAttemptRepository, subRepo domain.SubscriptionRepository, events domain.EventBus, engine *delivery.Engine, log logger.Logger) *Outbox {
	return &Outbox{
		txnID:        txnID,
		dialects:     dialects,
		externalizer: externalizer,
		validator:    validator,
		attemptRepo:  attemptRepo,
		subRepo:      subRepo,
		events:       events,
		engine:       engine,
		log:          log,
		pending:      make(map[dataEventKey][]*domain.Subscription),
		dataByKey:    make(map[dataEventKey]any),
		serialized:   make(map[serializeKey][]byte),
	}
}

func (o *Outbox) checkTxn(txnID string) error {
	if txnID != o.txnID {
		return &domain.ErrForeignUnitOfWork{TxnID: txnID}
	}
	return nil
}

// AddSubscriptions merges subs into the accumulator keyed by (dataID,
// eventType), coalescing duplicates within the same unit of work (spec
// §4.7 "Coalescing policy"). Always permitted before TPCBegin.
func (o *Outbox) AddSubscriptions(txnID, dataID string, data any, eventType string, subs []*domain.Subscription) error {
	if err := o.checkTxn(txnID); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.voted {
		return fmt.Errorf("outbox %s: cannot add subscriptions after tpc_vote", o.txnID)
	}

	key := dataEventKey{dataID: dataID, event: eventType}
	o.dataByKey[key] = data

	existing := make(map[string]bool, len(o.pending[key]))
	for _, s := range o.pending[key] {
		existing[s.ID] = true
	}
	for _, s := range subs {
		if !existing[s.ID] {
			o.pending[key] = append(o.pending[key], s)
			existing[s.ID] = true
		}
	}
	return nil
}

// createDeliveryAttempt builds a new attempt for sub, pre-flight checking
// its destination with o.validator: a failing check resolves the attempt to
// failed immediately with the well-known message before it is ever queued
// for dispatch (spec §4.1/§4.4.3).
func (o *Outbox) createDeliveryAttempt(ctx context.Context, sub *domain.Subscription, originated domain.Originated) *domain.DeliveryAttempt {
	attempt := domain.NewDeliveryAttempt(uuid.NewString(), sub.ID, sub.SiteID, time.Now(), originated)

	if o.validator == nil {
		return attempt
	}

	if err := o.validator.ValidateTarget(ctx, sub.To); err != nil {
		attempt.InternalInfo.AppendException(err.Error())
		if resolveErr := attempt.Resolve(domain.AttemptStatusFailed, domain.MsgDestinationValidationFailed, time.Now()); resolveErr != nil {
			o.log.WithField("error", resolveErr.Error()).Error("outbox: failed to resolve destination-rejected attempt")
		}
	}

	return attempt
}

// TPCBegin freezes the accumulator: for each (data, event, subscription)
// triple it serializes the payload once per distinct (dataID, dialect)
// (memoized) and persists a DeliveryAttempt per subscription, rejecting
// destinations that fail DestinationValidator before they ever reach the
// engine.
func (o *Outbox) TPCBegin(ctx context.Context, txnID string) error {
	if err := o.checkTxn(txnID); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	hostname, _ := os.Hostname()
	originated := domain.Originated{PID: os.Getpid(), Hostname: hostname, CreatedTime: time.Now()}

	for key, subs := range o.pending {
		data := o.dataByKey[key]
		for _, sub := range subs {
			dialect, err := o.dialects.Lookup(sub.ForType, key.event, sub.DialectID)
			if err != nil {
				return err
			}

			sKey := serializeKey{dataID: key.dataID, dialect: dialect.Name}
			payload, ok := o.serialized[sKey]
			if !ok {
				payload, err = o.externalizer.ToExternalRepresentation(ctx, data, dialect.ExternalizerFormat, dialect.ExternalizerName, dialect.ExternalizerPolicyName)
				if err != nil {
					return err
				}
				o.serialized[sKey] = payload
			}

			attempt := o.createDeliveryAttempt(ctx, sub, originated)
			if err := o.attemptRepo.Create(ctx, attempt); err != nil {
				return err
			}

			if attempt.Status() != domain.AttemptStatusPending {
				if o.events != nil {
					o.events.Publish(ctx, domain.EventPayload{
						Type:     attempt.ResolvedEventType(),
						SiteID:   sub.SiteID,
						EntityID: sub.ID,
					})
				}
				continue
			}

			o.attempts = append(o.attempts, &attemptPlan{sub: sub, attempt: attempt, dialect: dialect, payload: payload})
		}
	}
	return nil
}

// Commit is a no-op: the attempts were already created in TPCBegin and will
// be flushed to durable storage by the persistence layer itself.
func (o *Outbox) Commit(ctx context.Context, txnID string) error {
	return o.checkTxn(txnID)
}

// TPCVote builds the ShipmentInfo parcel, extracting everything the engine
// will need while the unit of work is still alive. After this call,
// persistent state MUST NOT be touched until a fresh unit of work resolves
// the attempts (spec §4.7).
func (o *Outbox) TPCVote(txnID string) (*domain.ShipmentInfo, error) {
	if err := o.checkTxn(txnID); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	pairs := make([]*domain.ShipmentPair, 0, len(o.attempts))
	for _, plan := range o.attempts {
		pairs = append(pairs, &domain.ShipmentPair{
			SiteID:         plan.sub.SiteID,
			SubscriptionID: plan.sub.ID,
			AttemptID:      plan.attempt.ID,
			URL:            plan.sub.To,
			Dialect:        plan.dialect,
			PayloadData:    plan.payload,
		})
	}

	o.voted = true
	return &domain.ShipmentInfo{SiteID: firstSiteID(pairs), CreatedAt: time.Now(), Pairs: pairs}, nil
}

func firstSiteID(pairs []*domain.ShipmentPair) string {
	if len(pairs) == 0 {
		return ""
	}
	return pairs[0].SiteID
}

// TPCFinish hands shipment to the DeliveryEngine. It never returns an
// error to the caller: acceptance onto the worker pool cannot fail, and any
// per-pair delivery error surfaces later via WaitForPendingDeliveries or the
// write-back path, not here (spec §4.7 "MUST NOT raise").
func (o *Outbox) TPCFinish(ctx context.Context, txnID string, shipment *domain.ShipmentInfo) {
	if err := o.checkTxn(txnID); err != nil {
		o.log.WithField("error", err.Error()).Error("outbox: tpc_finish called for foreign unit of work")
		return
	}

	o.mu.Lock()
	o.finished = true
	o.mu.Unlock()

	o.engine.AcceptForDelivery(ctx, shipment)
}

// TPCAbort and Abort discard all accumulated work for this unit of work.
// Non-persistent attempts created during TPCBegin are forgotten along with
// the aborting transaction (spec §4.7).
func (o *Outbox) TPCAbort(txnID string) error { return o.abort(txnID) }
func (o *Outbox) Abort(txnID string) error    { return o.abort(txnID) }

func (o *Outbox) abort(txnID string) error {
	if err := o.checkTxn(txnID); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = make(map[dataEventKey][]*domain.Subscription)
	o.dataByKey = make(map[dataEventKey]any)
	o.attempts = nil
	o.voted = false
	return nil
}

// WriteBack is the delivery.WriteBackFunc implementation: it resolves each
// shipment pair's DeliveryAttempt in a fresh unit of work, after the
// engine's HTTP round trips have completed, then publishes the
// corresponding resolution event so retention/deactivation handlers can
// react (spec §4.8.1, §4.9).
func WriteBack(attemptRepo domain.DeliveryAttemptRepository, events domain.EventBus) delivery.WriteBackFunc {
	return func(ctx context.Context, shipment *domain.ShipmentInfo) error {
		var firstErr error
		for _, pair := range shipment.Pairs {
			attempt, err := attemptRepo.GetByID(ctx, pair.SiteID, pair.AttemptID)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			status, message := outcomeFor(pair)
			if err := attempt.Resolve(status, message, time.Now()); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			attempt.Request = pair.Request
			attempt.Response = pair.Response

			if err := attemptRepo.Resolve(ctx, attempt); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			events.Publish(ctx, domain.EventPayload{
				Type:     attempt.ResolvedEventType(),
				SiteID:   pair.SiteID,
				EntityID: pair.SubscriptionID,
			})
		}
		return firstErr
	}
}

func outcomeFor(pair *domain.ShipmentPair) (domain.AttemptStatus, string) {
	if pair.TransportError != "" {
		return domain.AttemptStatusFailed, domain.MsgTransportError
	}
	if pair.Response != nil && pair.Response.StatusCode >= 200 && pair.Response.StatusCode < 300 {
		return domain.AttemptStatusSuccessful, ""
	}
	if pair.Response != nil {
		return domain.AttemptStatusFailed, pair.Response.Reason
	}
	return domain.AttemptStatusFailed, domain.MsgTransportError
}
