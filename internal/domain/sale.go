package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// NewSale prices and builds the terminal sale for a reservation.
// Subtotal and final price keep full arithmetic precision; rounding happens
// only at display time via FormatAmount.
func NewSale(reservationID uuid.UUID, paymentMethod string, discountPercent, unitPrice float64, passengerCount int) (Sale, error) {
	if reservationID == uuid.Nil {
		return Sale{}, errors.Wrap(ErrValidation, "reservation id is required")
	}
	if paymentMethod == "" {
		return Sale{}, errors.Wrap(ErrValidation, "payment method is required")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return Sale{}, errors.Wrapf(ErrValidation, "discount percent must be between 0 and 100, got %v", discountPercent)
	}
	if passengerCount < 1 {
		return Sale{}, errors.Wrap(ErrValidation, "reservation has no passengers")
	}

	subtotal := unitPrice * float64(passengerCount)
	return Sale{
		ID:              uuid.New(),
		ReservationID:   reservationID,
		PaymentMethod:   paymentMethod,
		DiscountPercent: discountPercent,
		Subtotal:        subtotal,
		FinalPrice:      subtotal * (1 - discountPercent/100),
		CreatedAt:       time.Now().UTC(),
	}, nil
}
