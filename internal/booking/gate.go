package booking

import (
	"context"
	"time"
)

// Gate answers "does a confirmed sale already exist?". Answers are advisory
// gating for the UI; the authoritative check happens on the mutating call
// itself. Nothing here is cached: every screen that renders a mutating
// control takes a fresh Snapshot first.
type Gate struct {
	backend Backend
}

func NewGate(backend Backend) *Gate {
	return &Gate{backend: backend}
}

func (g *Gate) HasSale(ctx context.Context, reservationID string) (bool, error) {
	return g.backend.SaleExistsForReservation(ctx, reservationID)
}

// HasSaleForPassenger serves views that only hold a passenger id, such as a
// driver's manifest.
func (g *Gate) HasSaleForPassenger(ctx context.Context, passengerID string) (bool, error) {
	return g.backend.SaleExistsForPassenger(ctx, passengerID)
}

// Snapshot is an explicit, passed-by-value picture of the lock state, taken
// once per screen and injected into whatever renders mutating controls.
type Snapshot struct {
	ReservationID string
	SaleExists    bool
	TakenAt       time.Time
}

func (g *Gate) Snapshot(ctx context.Context, reservationID string) (Snapshot, error) {
	exists, err := g.HasSale(ctx, reservationID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ReservationID: reservationID,
		SaleExists:    exists,
		TakenAt:       time.Now(),
	}, nil
}

// CanMutate is the single pure gating predicate for every mutating control.
func (s Snapshot) CanMutate() bool {
	return !s.SaleExists
}
