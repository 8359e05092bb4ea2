package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxPassengers bounds a reservation; the backend schema enforces the same limit.
const MaxPassengers = 3

type Trip struct {
	ID            uuid.UUID
	Origin        string
	Destination   string
	DepartureDate TripDate
	DepartureTime ClockTime
	UnitPrice     float64
	Carrier       string
	Vehicle       string
}

type Passenger struct {
	ID                uuid.UUID
	ReservationID     uuid.UUID
	Name              string
	Surname           string
	NationalID        string
	BoardingLocation  string
	AlightingLocation string
}

// PassengerFields is the mutable part of a Passenger, used for updates.
type PassengerFields struct {
	Name              string
	Surname           string
	NationalID        string
	BoardingLocation  string
	AlightingLocation string
}

// Reservation owns its passengers: they are created, mutated and deleted only
// through the reservation, and removing the last one removes the reservation.
type Reservation struct {
	ID           uuid.UUID
	TripID       uuid.UUID
	BookerUserID uuid.UUID
	CreatedAt    time.Time
	Passengers   []Passenger
}

type Sale struct {
	ID              uuid.UUID
	ReservationID   uuid.UUID
	PaymentMethod   string
	DiscountPercent float64
	Subtotal        float64
	FinalPrice      float64
	CreatedAt       time.Time
}
