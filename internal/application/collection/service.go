// Package collection routes overdue invoices to field collectors and manages
// the resulting visit orders.
package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/collection"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/notification"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Service implements collector routing and visit-order lifecycle
type Service struct {
	invoices   billing.InvoiceRepository
	customers  billing.CustomerRepository
	principals identity.PrincipalRepository
	orders     collection.ServiceOrderRepository
	notifier   Notifier
	push       dispatch.Dispatcher
	events     shared.EventPublisher
	cfg        config.DispatchConfig
	logger     *zap.Logger
}

// Notifier is the slice of the notification service the router needs
type Notifier interface {
	Publish(ctx context.Context, recipientID uuid.UUID, kind notification.Kind, title, body string, payload notification.Payload) (*notification.Notification, error)
}

// NewService creates the collection routing service. push may be nil when no
// push provider is configured; the in-app notification still goes out. events
// may be nil.
func NewService(
	invoices billing.InvoiceRepository,
	customers billing.CustomerRepository,
	principals identity.PrincipalRepository,
	orders collection.ServiceOrderRepository,
	notifier Notifier,
	push dispatch.Dispatcher,
	events shared.EventPublisher,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		invoices:   invoices,
		customers:  customers,
		principals: principals,
		orders:     orders,
		notifier:   notifier,
		push:       push,
		events:     events,
		cfg:        cfg,
		logger:     logger,
	}
}

// publishEvents flushes an order's recorded domain events after its state has
// been persisted. Publish failures do not undo the order.
func (s *Service) publishEvents(ctx context.Context, order *collection.ServiceOrder) {
	if s.events == nil {
		order.ClearDomainEvents()
		return
	}
	for _, ev := range order.GetDomainEvents() {
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn("domain event publish failed",
				zap.String("event_type", ev.EventType()), zap.Error(err))
		}
	}
	order.ClearDomainEvents()
}

// RouteVisit selects the nearest eligible collector for the invoice's
// customer and creates a Critical collection order. A customer with an open
// urgent order or without stored premises coordinates cannot be routed.
func (s *Service) RouteVisit(ctx context.Context, inv *billing.Invoice, cust *billing.Customer, now time.Time) (*collection.ServiceOrder, error) {
	open, err := s.orders.HasOpenCollectionForCustomer(ctx, cust.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, shared.NewDomainError("ORDER_ALREADY_OPEN", "Customer already has an open collection visit")
	}
	if !cust.HasLocation() {
		return nil, shared.ErrNoCollectorInRange
	}

	collectors, err := s.principals.FindAvailableCollectors(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(collectors))
	for i, c := range collectors {
		ids[i] = c.ID
	}
	counts, err := s.orders.CountOpenByCollector(ctx, ids)
	if err != nil {
		return nil, err
	}
	candidates := make([]collection.Candidate, len(collectors))
	for i, c := range collectors {
		candidates[i] = collection.Candidate{Collector: c, ActiveCount: counts[c.ID]}
	}

	sel, err := collection.SelectCollector(candidates, *cust.Longitude, *cust.Latitude, s.cfg.LocationStaleness, now)
	if err != nil {
		return nil, err
	}

	order, err := collection.NewCollectionOrder(cust.ID, inv.ID, sel.Collector.ID, inv.Outstanding())
	if err != nil {
		return nil, err
	}
	order.Note = fmt.Sprintf("risk score %d, %d days overdue, %.1f km away",
		cust.RiskScore, inv.DaysOverdue(now), sel.DistanceKm)
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, order)

	s.logger.Info("collection visit routed",
		zap.String("invoice_uid", inv.UID),
		zap.String("collector_id", sel.Collector.ID.String()),
		zap.Float64("distance_km", sel.DistanceKm),
	)
	s.notifyCollector(ctx, &sel.Collector, inv, cust, order)
	return order, nil
}

// notifyCollector publishes the visit to the collector's feed and pushes to
// their device. Neither failure undoes the order; the visit shows up on the
// collector's open-order list regardless.
func (s *Service) notifyCollector(ctx context.Context, collector *identity.Principal, inv *billing.Invoice, cust *billing.Customer, order *collection.ServiceOrder) {
	params := map[string]string{
		"name":     cust.DisplayName,
		"amount":   inv.Outstanding().StringFixed(0),
		"currency": "RWF",
		"account":  cust.AccountCode,
	}
	body := channels.Render(collector.Locale, channels.TemplateFieldVisit, params)

	if _, err := s.notifier.Publish(ctx, collector.ID, notification.KindFieldVisit,
		"Urgent collection visit", body, notification.Payload{
			"order_id":    order.ID.String(),
			"invoice_uid": inv.UID,
			"customer_id": cust.ID.String(),
			"amount":      inv.Outstanding().String(),
		}); err != nil {
		s.logger.Warn("failed to publish field-visit notification", zap.Error(err))
	}

	if s.push != nil {
		outcome := s.push.Attempt(ctx, dispatch.Target{Phone: collector.Phone, Locale: collector.Locale}, dispatch.Payload{
			TemplateKey: channels.TemplateFieldVisit,
			Params:      params,
			InvoiceUID:  inv.UID,
		})
		if !outcome.Succeeded() {
			s.logger.Warn("push to collector failed",
				zap.String("collector_id", collector.ID.String()),
				zap.String("reason", outcome.Reason))
		}
	}
}

// NotifyFieldVisit adapts RouteVisit to the channel-dispatcher contract: the
// escalation sweep addresses the field channel like any other, with the
// invoice uid riding in the payload.
func (s *Service) NotifyFieldVisit(ctx context.Context, _ dispatch.Target, payload dispatch.Payload) error {
	inv, err := s.invoices.FindByUID(ctx, payload.InvoiceUID)
	if err != nil {
		return err
	}
	cust, err := s.customers.FindByID(ctx, inv.CustomerID)
	if err != nil {
		return err
	}
	_, err = s.RouteVisit(ctx, inv, cust, time.Now())
	return err
}

// CancelOpenVisits cancels a customer's open urgent orders, used when the
// debt is settled before the collector arrives.
func (s *Service) CancelOpenVisits(ctx context.Context, customerID uuid.UUID, reason string) (int, error) {
	orders, err := s.orders.FindOpenCollectionByCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range orders {
		order := &orders[i]
		if err := order.Cancel(reason); err != nil {
			continue
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return cancelled, err
		}
		cancelled++
		if _, err := s.notifier.Publish(ctx, order.CollectorID, notification.KindFieldVisit,
			"Visit cancelled", reason, notification.Payload{"order_id": order.ID.String()}); err != nil {
			s.logger.Warn("failed to notify visit cancellation", zap.Error(err))
		}
	}
	return cancelled, nil
}

// StartOrder moves an assigned order to in-progress on behalf of its collector
func (s *Service) StartOrder(ctx context.Context, orderID, collectorID uuid.UUID) (*collection.ServiceOrder, error) {
	order, err := s.ownedOrder(ctx, orderID, collectorID)
	if err != nil {
		return nil, err
	}
	if err := order.Start(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteOrder closes an order on behalf of its collector
func (s *Service) CompleteOrder(ctx context.Context, orderID, collectorID uuid.UUID) (*collection.ServiceOrder, error) {
	order, err := s.ownedOrder(ctx, orderID, collectorID)
	if err != nil {
		return nil, err
	}
	if err := order.Complete(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, order)
	return order, nil
}

// OpenOrders lists a collector's assigned and in-progress orders
func (s *Service) OpenOrders(ctx context.Context, collectorID uuid.UUID) ([]collection.ServiceOrder, error) {
	return s.orders.FindOpenByCollector(ctx, collectorID)
}

func (s *Service) ownedOrder(ctx context.Context, orderID, collectorID uuid.UUID) (*collection.ServiceOrder, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CollectorID != collectorID {
		return nil, shared.ErrForbidden
	}
	return order, nil
}
