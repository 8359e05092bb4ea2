package booking

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
	"github.com/robertarktes/bus-reservations-and-sales/internal/observability"
)

// ErrRemovalAborted reports that the operator declined the confirmation prompt.
var ErrRemovalAborted = errors.New("removal aborted")

// Confirmer is the destructive-action capability supplied by the hosting
// shell: a native dialog, a terminal prompt, or a test stub.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Service drives the reservation aggregate from the client side. Every
// mutation re-checks the gate immediately before issuing the call, and trusts
// only the backend's verdict.
type Service struct {
	backend Backend
	gate    *Gate
	logger  observability.Logger
}

func NewService(backend Backend, logger observability.Logger) *Service {
	return &Service{backend: backend, gate: NewGate(backend), logger: logger}
}

func (s *Service) Gate() *Gate {
	return s.gate
}

// CreateReservation validates passenger records locally before the call so
// field-level problems come back without a round trip.
func (s *Service) CreateReservation(ctx context.Context, bookerUserID, tripID string, passengers []PassengerInput) (string, error) {
	if len(passengers) < 1 || len(passengers) > domain.MaxPassengers {
		return "", errors.Wrapf(domain.ErrValidation, "passenger count must be between 1 and %d, got %d", domain.MaxPassengers, len(passengers))
	}
	for _, p := range passengers {
		if err := domain.ValidatePassengerFields(p.fields()); err != nil {
			return "", err
		}
	}
	id, err := s.backend.CreateReservation(ctx, bookerUserID, tripID, passengers)
	if err != nil {
		return "", err
	}
	s.logger.WithField("reservation_id", id).Info("reservation created")
	return id, nil
}

func (s *Service) AddPassenger(ctx context.Context, reservationID string, p PassengerInput) (string, error) {
	if err := domain.ValidatePassengerFields(p.fields()); err != nil {
		return "", err
	}
	snap, err := s.gate.Snapshot(ctx, reservationID)
	if err != nil {
		return "", err
	}
	if !snap.CanMutate() {
		return "", errors.Wrapf(domain.ErrLocked, "reservation %s already has a confirmed sale", reservationID)
	}
	passengers, err := s.backend.Passengers(ctx, reservationID)
	if err != nil {
		return "", err
	}
	if len(passengers) >= domain.MaxPassengers {
		return "", errors.Wrapf(domain.ErrCapacity, "reservation %s already has %d passengers", reservationID, len(passengers))
	}
	return s.backend.AddPassenger(ctx, reservationID, p)
}

func (s *Service) UpdatePassenger(ctx context.Context, reservationID, passengerID string, p PassengerInput) error {
	if err := domain.ValidatePassengerFields(p.fields()); err != nil {
		return err
	}
	snap, err := s.gate.Snapshot(ctx, reservationID)
	if err != nil {
		return err
	}
	if !snap.CanMutate() {
		return errors.Wrapf(domain.ErrLocked, "reservation %s already has a confirmed sale", reservationID)
	}
	return s.backend.UpdatePassenger(ctx, passengerID, p)
}

// RemoveOutcome distinguishes the two removal results: a plain removal leaves
// the reservation in place, a cascade deletes it, and callers must redirect
// away from the now-nonexistent detail view instead of refreshing it.
type RemoveOutcome struct {
	Removed        bool
	CascadeDeleted bool
	RemainingCount int
}

// PendingRemoval is a describable destructive action: the hosting shell shows
// Prompt() through whatever confirmation surface it has and calls Execute only
// on assent.
type PendingRemoval struct {
	ReservationID string
	PassengerID   string
	// Cascades is decided from the pre-call passenger count; the delete ack
	// itself does not distinguish the outcomes.
	Cascades bool
	preCount int
	svc      *Service
}

func (p *PendingRemoval) Prompt() string {
	if p.Cascades {
		return "Removing the last passenger deletes the entire reservation. Continue?"
	}
	return "Remove this passenger from the reservation?"
}

// Execute issues the delete. The cascade is a single atomic backend call;
// nothing is synthesized locally.
func (p *PendingRemoval) Execute(ctx context.Context) (RemoveOutcome, error) {
	if err := p.svc.backend.DeletePassenger(ctx, p.PassengerID); err != nil {
		return RemoveOutcome{}, err
	}
	out := RemoveOutcome{
		Removed:        true,
		CascadeDeleted: p.Cascades,
		RemainingCount: p.preCount - 1,
	}
	if out.CascadeDeleted {
		p.svc.logger.WithField("reservation_id", p.ReservationID).Info("reservation cascade-deleted with last passenger")
	}
	return out, nil
}

// PlanRemoval checks the gate and figures out, from the current passenger
// count, whether this removal would cascade.
func (s *Service) PlanRemoval(ctx context.Context, reservationID, passengerID string) (*PendingRemoval, error) {
	snap, err := s.gate.Snapshot(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !snap.CanMutate() {
		return nil, errors.Wrapf(domain.ErrLocked, "reservation %s already has a confirmed sale", reservationID)
	}
	passengers, err := s.backend.Passengers(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, p := range passengers {
		if p.ID == passengerID {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Wrapf(domain.ErrNotFound, "passenger %s is not on reservation %s", passengerID, reservationID)
	}
	return &PendingRemoval{
		ReservationID: reservationID,
		PassengerID:   passengerID,
		Cascades:      len(passengers) == 1,
		preCount:      len(passengers),
		svc:           s,
	}, nil
}

// RemovePassenger plans the removal, asks the shell's Confirmer, and executes.
func (s *Service) RemovePassenger(ctx context.Context, reservationID, passengerID string, confirmer Confirmer) (RemoveOutcome, error) {
	pending, err := s.PlanRemoval(ctx, reservationID, passengerID)
	if err != nil {
		return RemoveOutcome{}, err
	}
	ok, err := confirmer.Confirm(ctx, pending.Prompt())
	if err != nil {
		return RemoveOutcome{}, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return RemoveOutcome{}, ErrRemovalAborted
	}
	return pending.Execute(ctx)
}

func (in PassengerInput) fields() domain.PassengerFields {
	return domain.PassengerFields{
		Name:              in.Name,
		Surname:           in.Surname,
		NationalID:        in.NationalID,
		BoardingLocation:  in.BoardingLocation,
		AlightingLocation: in.AlightingLocation,
	}
}
