package booking

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
	"github.com/robertarktes/bus-reservations-and-sales/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Converter performs the one-shot terminal transition from reservation to
// sale. Success is not assumed until the backend responds; a conflict means
// another actor confirmed first, and the caller must re-query the gate rather
// than retry.
type Converter struct {
	backend Backend
	gate    *Gate
	logger  observability.Logger
}

func NewConverter(backend Backend, logger observability.Logger) *Converter {
	return &Converter{backend: backend, gate: NewGate(backend), logger: logger}
}

// Quote prices the reservation ahead of confirmation so staff see the totals
// they are about to charge. Trip and passenger list load concurrently.
type Quote struct {
	ReservationID   string
	PassengerCount  int
	UnitPrice       float64
	Subtotal        float64
	DiscountPercent float64
	FinalPrice      float64
}

func (q Quote) DisplaySubtotal() string   { return domain.FormatAmount(q.Subtotal) }
func (q Quote) DisplayFinalPrice() string { return domain.FormatAmount(q.FinalPrice) }

func (c *Converter) Quote(ctx context.Context, reservationID, tripID string, discountPercent float64) (*Quote, error) {
	if discountPercent < 0 || discountPercent > 100 {
		return nil, errors.Wrapf(domain.ErrValidation, "discount percent must be between 0 and 100, got %v", discountPercent)
	}

	var (
		trip       *TripView
		passengers []PassengerView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trip, err = c.backend.Trip(gctx, tripID)
		return err
	})
	g.Go(func() error {
		var err error
		passengers, err = c.backend.Passengers(gctx, reservationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	subtotal := trip.UnitPrice * float64(len(passengers))
	return &Quote{
		ReservationID:   reservationID,
		PassengerCount:  len(passengers),
		UnitPrice:       trip.UnitPrice,
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		FinalPrice:      subtotal * (1 - discountPercent/100),
	}, nil
}

// Confirm converts the reservation into its sale. Each attempt carries a
// fresh idempotency key, so a transport-level replay of the same attempt
// cannot create a second sale, while a deliberate new attempt after a
// conflict still reaches the backend's own uniqueness check.
func (c *Converter) Confirm(ctx context.Context, reservationID, paymentMethod string, discountPercent float64) (*SaleView, error) {
	if paymentMethod == "" {
		return nil, errors.Wrap(domain.ErrValidation, "payment method is required")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, errors.Wrapf(domain.ErrValidation, "discount percent must be between 0 and 100, got %v", discountPercent)
	}

	snap, err := c.gate.Snapshot(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !snap.CanMutate() {
		return nil, errors.Wrapf(domain.ErrLocked, "reservation %s already has a confirmed sale", reservationID)
	}

	sale, err := c.backend.CreateSale(ctx, SaleRequest{
		ReservationID:   reservationID,
		PaymentMethod:   paymentMethod,
		DiscountPercent: discountPercent,
	}, uuid.NewString())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrLocked) {
			// Someone else won the race. Refresh the lock state for the
			// caller's message and surface the rejection; never retry.
			if exists, gateErr := c.gate.HasSale(ctx, reservationID); gateErr == nil && exists {
				return nil, errors.Wrapf(domain.ErrLocked, "reservation %s was confirmed by another session", reservationID)
			}
		}
		return nil, err
	}

	c.logger.WithField("reservation_id", reservationID).WithField("sale_id", sale.ID).Info("sale confirmed")
	return sale, nil
}
