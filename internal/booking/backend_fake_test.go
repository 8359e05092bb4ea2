package booking_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/bus-reservations-and-sales/internal/booking"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
)

// fakeBackend is an in-memory stand-in for the platform that enforces the
// same invariants: 1..3 passengers, cascade deletion, one sale per
// reservation, frozen aggregates after sale.
type fakeBackend struct {
	mu           sync.Mutex
	trips        map[string]booking.TripView
	passengers   map[string][]booking.PassengerView // by reservation id
	tripOf       map[string]string                  // reservation id -> trip id
	sales        map[string]booking.SaleView        // by reservation id
	nextID       int
	saleAttempts int
	// raceOnConfirm makes the next CreateSale behave as if another session
	// confirmed first: a sale appears, but this call is rejected.
	raceOnConfirm bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		trips:      map[string]booking.TripView{},
		passengers: map[string][]booking.PassengerView{},
		tripOf:     map[string]string{},
		sales:      map[string]booking.SaleView{},
	}
}

func (f *fakeBackend) addTrip(id string, unitPrice float64) {
	f.trips[id] = booking.TripView{
		ID:          id,
		Origin:      "Centro",
		Destination: "Norte",
		Date:        "2024-03-05",
		Time:        "08:30:00",
		UnitPrice:   unitPrice,
		Carrier:     "Linea Azul",
		Vehicle:     "BUS-12",
	}
}

func (f *fakeBackend) id(prefix string) string {
	f.nextID++
	return prefix + "-" + strconv.Itoa(f.nextID)
}

func (f *fakeBackend) Trip(ctx context.Context, tripID string) (*booking.TripView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "trip not found")
	}
	return &trip, nil
}

func (f *fakeBackend) CreateReservation(ctx context.Context, bookerUserID, tripID string, passengers []booking.PassengerInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.trips[tripID]; !ok {
		return "", errors.Wrap(domain.ErrNotFound, "trip not found")
	}
	if len(passengers) < 1 || len(passengers) > domain.MaxPassengers {
		return "", errors.Wrap(domain.ErrValidation, "passenger count out of bounds")
	}
	rid := f.id("res")
	for _, p := range passengers {
		f.passengers[rid] = append(f.passengers[rid], booking.PassengerView{
			ID:                f.id("pax"),
			ReservationID:     rid,
			Name:              p.Name,
			Surname:           p.Surname,
			NationalID:        p.NationalID,
			BoardingLocation:  p.BoardingLocation,
			AlightingLocation: p.AlightingLocation,
		})
	}
	f.tripOf[rid] = tripID
	return rid, nil
}

func (f *fakeBackend) Passengers(ctx context.Context, reservationID string) ([]booking.PassengerView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.passengers[reservationID]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "reservation not found")
	}
	out := make([]booking.PassengerView, len(list))
	copy(out, list)
	return out, nil
}

func (f *fakeBackend) AddPassenger(ctx context.Context, reservationID string, p booking.PassengerInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.passengers[reservationID]
	if !ok {
		return "", errors.Wrap(domain.ErrNotFound, "reservation not found")
	}
	if _, sold := f.sales[reservationID]; sold {
		return "", errors.Wrap(domain.ErrLocked, "reservation has a confirmed sale")
	}
	if len(list) >= domain.MaxPassengers {
		return "", errors.Wrapf(domain.ErrCapacity, "reservation already has %d passengers", len(list))
	}
	id := f.id("pax")
	f.passengers[reservationID] = append(list, booking.PassengerView{
		ID:                id,
		ReservationID:     reservationID,
		Name:              p.Name,
		Surname:           p.Surname,
		NationalID:        p.NationalID,
		BoardingLocation:  p.BoardingLocation,
		AlightingLocation: p.AlightingLocation,
	})
	return id, nil
}

func (f *fakeBackend) UpdatePassenger(ctx context.Context, passengerID string, p booking.PassengerInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rid, idx, err := f.find(passengerID)
	if err != nil {
		return err
	}
	if _, sold := f.sales[rid]; sold {
		return errors.Wrap(domain.ErrLocked, "reservation has a confirmed sale")
	}
	pv := &f.passengers[rid][idx]
	pv.Name, pv.Surname, pv.NationalID = p.Name, p.Surname, p.NationalID
	pv.BoardingLocation, pv.AlightingLocation = p.BoardingLocation, p.AlightingLocation
	return nil
}

func (f *fakeBackend) DeletePassenger(ctx context.Context, passengerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rid, idx, err := f.find(passengerID)
	if err != nil {
		return err
	}
	if _, sold := f.sales[rid]; sold {
		return errors.Wrap(domain.ErrLocked, "reservation has a confirmed sale")
	}
	if len(f.passengers[rid]) == 1 {
		// Last passenger removes the whole reservation.
		delete(f.passengers, rid)
		delete(f.tripOf, rid)
		return nil
	}
	f.passengers[rid] = append(f.passengers[rid][:idx], f.passengers[rid][idx+1:]...)
	return nil
}

func (f *fakeBackend) SaleExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, known := f.passengers[reservationID]; !known {
		return false, errors.Wrap(domain.ErrNotFound, "reservation not found")
	}
	_, ok := f.sales[reservationID]
	return ok, nil
}

func (f *fakeBackend) SaleExistsForPassenger(ctx context.Context, passengerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rid, _, err := f.find(passengerID)
	if err != nil {
		return false, err
	}
	_, ok := f.sales[rid]
	return ok, nil
}

func (f *fakeBackend) CreateSale(ctx context.Context, req booking.SaleRequest, idempotencyKey string) (*booking.SaleView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saleAttempts++
	list, ok := f.passengers[req.ReservationID]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "reservation not found")
	}
	if f.raceOnConfirm {
		f.raceOnConfirm = false
		f.storeSale(req, len(list))
		return nil, errors.Wrap(domain.ErrConflict, "concurrent confirmation")
	}
	if _, sold := f.sales[req.ReservationID]; sold {
		return nil, errors.Wrap(domain.ErrLocked, "reservation already has a sale")
	}
	sale := f.storeSale(req, len(list))
	return &sale, nil
}

func (f *fakeBackend) storeSale(req booking.SaleRequest, passengerCount int) booking.SaleView {
	trip := f.trips[f.tripOf[req.ReservationID]]
	subtotal := trip.UnitPrice * float64(passengerCount)
	sale := booking.SaleView{
		ID:              f.id("sale"),
		ReservationID:   req.ReservationID,
		PaymentMethod:   req.PaymentMethod,
		DiscountPercent: req.DiscountPercent,
		Subtotal:        subtotal,
		FinalPrice:      subtotal * (1 - req.DiscountPercent/100),
		CreatedAt:       "2024-03-04T14:30:00Z",
	}
	f.sales[req.ReservationID] = sale
	return sale
}

func (f *fakeBackend) Receipt(ctx context.Context, reservationID string) (*booking.ReceiptView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.passengers[reservationID]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "reservation not found")
	}
	sale, ok := f.sales[reservationID]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "sale not found")
	}
	trip := f.trips[f.tripOf[reservationID]]
	out := make([]booking.PassengerView, len(list))
	copy(out, list)
	return &booking.ReceiptView{
		ReservationID:   reservationID,
		Origin:          trip.Origin,
		Destination:     trip.Destination,
		Date:            trip.Date,
		Time:            trip.Time,
		Passengers:      out,
		SaleDate:        "2024-03-04",
		SaleTime:        "14:30:00",
		PaymentMethod:   sale.PaymentMethod,
		Subtotal:        sale.Subtotal,
		DiscountPercent: sale.DiscountPercent,
		FinalPrice:      sale.FinalPrice,
	}, nil
}

func (f *fakeBackend) find(passengerID string) (string, int, error) {
	for rid, list := range f.passengers {
		for i, p := range list {
			if p.ID == passengerID {
				return rid, i, nil
			}
		}
	}
	return "", 0, errors.Wrap(domain.ErrNotFound, fmt.Sprintf("passenger %s not found", passengerID))
}
