// Package booking is the client side of the reservation → sale lifecycle:
// creating and editing multi-passenger reservations, gating every mutation on
// sale existence, converting a reservation into its terminal sale, and
// projecting receipts. The backend stays authoritative; everything here treats
// local answers as advisory until the backend responds.
package booking

import "context"

// PassengerInput is one passenger record as entered by booking staff.
type PassengerInput struct {
	Name              string `json:"name"`
	Surname           string `json:"surname"`
	NationalID        string `json:"national_id"`
	BoardingLocation  string `json:"boarding_location"`
	AlightingLocation string `json:"alighting_location"`
}

// PassengerView is a passenger as reported by the backend.
type PassengerView struct {
	ID                string `json:"id"`
	ReservationID     string `json:"reservation_id"`
	Name              string `json:"name"`
	Surname           string `json:"surname"`
	NationalID        string `json:"national_id"`
	BoardingLocation  string `json:"boarding_location"`
	AlightingLocation string `json:"alighting_location"`
}

// TripView carries trip reference data. Date and Time stay wire-form strings
// until a view parses them with domain.ParseTripDate / domain.ParseClockTime.
type TripView struct {
	ID          string  `json:"trip_id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	UnitPrice   float64 `json:"unit_price"`
	Carrier     string  `json:"carrier"`
	Vehicle     string  `json:"vehicle"`
}

type SaleView struct {
	ID              string  `json:"sale_id"`
	ReservationID   string  `json:"reservation_id"`
	PaymentMethod   string  `json:"payment_method"`
	DiscountPercent float64 `json:"discount_percent"`
	Subtotal        float64 `json:"subtotal"`
	FinalPrice      float64 `json:"final_price"`
	CreatedAt       string  `json:"created_at"`
}

// ReceiptView is the backend's flattened trip + passengers + sale composition.
type ReceiptView struct {
	ReservationID   string          `json:"reservation_id"`
	Origin          string          `json:"origin"`
	Destination     string          `json:"destination"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Passengers      []PassengerView `json:"passengers"`
	SaleDate        string          `json:"sale_date"`
	SaleTime        string          `json:"sale_time"`
	PaymentMethod   string          `json:"payment_method"`
	Subtotal        float64         `json:"subtotal"`
	DiscountPercent float64         `json:"discount_percent"`
	FinalPrice      float64         `json:"final_price"`
}

// SaleRequest is the confirm-sale payload.
type SaleRequest struct {
	ReservationID   string  `json:"reservation_id"`
	PaymentMethod   string  `json:"payment_method"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Backend is the ticketing platform the client talks to. Implementations map
// rejections onto the domain sentinels (ErrValidation, ErrCapacity, ErrLocked,
// ErrConflict, ErrNotFound) and surface backend messages verbatim.
type Backend interface {
	Trip(ctx context.Context, tripID string) (*TripView, error)
	CreateReservation(ctx context.Context, bookerUserID, tripID string, passengers []PassengerInput) (string, error)
	Passengers(ctx context.Context, reservationID string) ([]PassengerView, error)
	AddPassenger(ctx context.Context, reservationID string, p PassengerInput) (string, error)
	UpdatePassenger(ctx context.Context, passengerID string, p PassengerInput) error
	DeletePassenger(ctx context.Context, passengerID string) error
	SaleExistsForReservation(ctx context.Context, reservationID string) (bool, error)
	SaleExistsForPassenger(ctx context.Context, passengerID string) (bool, error)
	CreateSale(ctx context.Context, req SaleRequest, idempotencyKey string) (*SaleView, error)
	Receipt(ctx context.Context, reservationID string) (*ReceiptView, error)
}
