// Package review implements the admin's order-review flows: the active
// dashboard, per-order inspection with its accept/reject/delivery actions,
// and the completed-order history.
package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cleanhub/stockport/internal/domain"
)

// FilterAll disables status filtering on the dashboard and history views.
const FilterAll = "all"

// statusViewed is sent when an admin opens a fresh order; the backend takes
// it from there and reports the order as pending afterwards.
const statusViewed = "viewed"

// backend is the subset of the order API the review flows need.
type backend interface {
	ActiveOrders(ctx context.Context, token string) ([]domain.Order, error)
	CompletedOrders(ctx context.Context, token string) ([]domain.Order, error)
	OrderDetail(ctx context.Context, token, orderNumber string) (*domain.Order, error)
	LastOrdersForSite(ctx context.Context, token, siteID, orderDate string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID, status, reason, deliveryDate string) error
	UpdateNotes(ctx context.Context, token, orderNumber, notes string) error
	UpdateDeliveryDate(ctx context.Context, token, orderNumber, deliveryDate string) error
}

type Service struct {
	client backend
	logger *slog.Logger
}

func NewService(client backend, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Dashboard lists the orders still awaiting a decision, optionally narrowed
// to a single status. FilterAll (or an empty filter) returns everything.
func (s *Service) Dashboard(ctx context.Context, token, filter string) ([]domain.Order, error) {
	orders, err := s.client.ActiveOrders(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active orders: %w", err)
	}
	return filterByStatus(orders, filter), nil
}

// History lists finished orders, optionally narrowed to accepted or
// rejected.
func (s *Service) History(ctx context.Context, token, filter string) ([]domain.Order, error) {
	orders, err := s.client.CompletedOrders(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completed orders: %w", err)
	}
	return filterByStatus(orders, filter), nil
}

func filterByStatus(orders []domain.Order, filter string) []domain.Order {
	if filter == "" || filter == FilterAll {
		return orders
	}
	kept := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.HasStatus(filter) {
			kept = append(kept, o)
		}
	}
	return kept
}

// Inspect fetches one order for review. Opening a fresh order marks it
// viewed on the backend and re-fetches, so the caller always sees the
// post-transition record.
func (s *Service) Inspect(ctx context.Context, token, orderNumber string) (*domain.Order, error) {
	order, err := s.client.OrderDetail(ctx, token, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderNumber, err)
	}

	if !order.HasStatus(domain.StatusNew) {
		return order, nil
	}

	err = s.client.UpdateOrderStatus(ctx, token, order.ID, statusViewed, "Order viewed by admin", "")
	if err != nil {
		return nil, fmt.Errorf("failed to mark order %s viewed: %w", orderNumber, err)
	}
	s.logger.Info("order marked viewed", "order_number", orderNumber)

	order, err = s.client.OrderDetail(ctx, token, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh order %s: %w", orderNumber, err)
	}
	return order, nil
}

// RecentForSite returns the site's last orders before the given date, the
// context panel shown next to an order under review.
func (s *Service) RecentForSite(ctx context.Context, token, siteID, orderDate string) ([]domain.Order, error) {
	orders, err := s.client.LastOrdersForSite(ctx, token, siteID, orderDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent orders for site %s: %w", siteID, err)
	}
	return orders, nil
}

// Accept approves an order. The backend moves it on to the
// set-delivery-date stage.
func (s *Service) Accept(ctx context.Context, token, orderID string) error {
	err := s.client.UpdateOrderStatus(ctx, token, orderID, domain.StatusAccepted, "Order accepted by admin", "")
	if err != nil {
		return fmt.Errorf("failed to accept order: %w", err)
	}
	s.logger.Info("order accepted", "order_id", orderID)
	return nil
}

// Reject declines an order. A non-empty reason is stored on the order's
// notes before the status change so it survives either call failing.
func (s *Service) Reject(ctx context.Context, token, orderID, orderNumber, reason string) error {
	if reason != "" {
		if err := s.client.UpdateNotes(ctx, token, orderNumber, reason); err != nil {
			return fmt.Errorf("failed to record rejection reason: %w", err)
		}
	}
	if err := s.client.UpdateOrderStatus(ctx, token, orderID, domain.StatusRejected, reason, ""); err != nil {
		return fmt.Errorf("failed to reject order: %w", err)
	}
	s.logger.Info("order rejected", "order_id", orderID, "order_number", orderNumber)
	return nil
}

// SetDeliveryDate finalizes an accepted order with its delivery date and
// returns the refreshed record.
func (s *Service) SetDeliveryDate(ctx context.Context, token, orderID, orderNumber, date string) (*domain.Order, error) {
	if err := s.client.UpdateDeliveryDate(ctx, token, orderNumber, date); err != nil {
		return nil, fmt.Errorf("failed to set delivery date: %w", err)
	}
	err := s.client.UpdateOrderStatus(ctx, token, orderID, domain.StatusAccepted, "Delivery date set by admin", date)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize order %s: %w", orderNumber, err)
	}
	s.logger.Info("delivery date set", "order_number", orderNumber, "delivery_date", date)

	order, err := s.client.OrderDetail(ctx, token, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh order %s: %w", orderNumber, err)
	}
	return order, nil
}
