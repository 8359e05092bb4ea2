package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// NewReservation builds a reservation with its owned passengers. The passenger
// count must be between 1 and MaxPassengers and every passenger record complete.
func NewReservation(tripID, bookerUserID uuid.UUID, passengers []PassengerFields) (Reservation, error) {
	if tripID == uuid.Nil {
		return Reservation{}, errors.Wrap(ErrValidation, "trip id is required")
	}
	if bookerUserID == uuid.Nil {
		return Reservation{}, errors.Wrap(ErrValidation, "booker user id is required")
	}
	if len(passengers) < 1 || len(passengers) > MaxPassengers {
		return Reservation{}, errors.Wrapf(ErrValidation, "passenger count must be between 1 and %d, got %d", MaxPassengers, len(passengers))
	}

	res := Reservation{
		ID:           uuid.New(),
		TripID:       tripID,
		BookerUserID: bookerUserID,
		CreatedAt:    time.Now().UTC(),
	}
	for _, f := range passengers {
		if err := ValidatePassengerFields(f); err != nil {
			return Reservation{}, err
		}
		res.Passengers = append(res.Passengers, Passenger{
			ID:                uuid.New(),
			ReservationID:     res.ID,
			Name:              f.Name,
			Surname:           f.Surname,
			NationalID:        f.NationalID,
			BoardingLocation:  f.BoardingLocation,
			AlightingLocation: f.AlightingLocation,
		})
	}
	return res, nil
}

// ValidatePassengerFields checks that every required passenger field is present.
func ValidatePassengerFields(f PassengerFields) error {
	switch {
	case f.Name == "":
		return errors.Wrap(ErrValidation, "passenger name is required")
	case f.Surname == "":
		return errors.Wrap(ErrValidation, "passenger surname is required")
	case f.NationalID == "":
		return errors.Wrap(ErrValidation, "passenger national id is required")
	case f.BoardingLocation == "":
		return errors.Wrap(ErrValidation, "boarding location is required")
	case f.AlightingLocation == "":
		return errors.Wrap(ErrValidation, "alighting location is required")
	}
	return nil
}

// CanAddPassenger reports whether the reservation has room for one more seat.
func (r Reservation) CanAddPassenger() error {
	if len(r.Passengers) >= MaxPassengers {
		return errors.Wrapf(ErrCapacity, "reservation %s already has %d passengers", r.ID, len(r.Passengers))
	}
	return nil
}

// RemovalCascades reports whether removing one passenger would leave the
// reservation empty, which deletes the reservation as a whole.
func (r Reservation) RemovalCascades() bool {
	return len(r.Passengers) == 1
}
