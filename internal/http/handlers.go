package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	mongoadapter "github.com/robertarktes/bus-reservations-and-sales/internal/adapters/mongo"
	"github.com/robertarktes/bus-reservations-and-sales/internal/config"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
	"github.com/robertarktes/bus-reservations-and-sales/internal/idempotency"
	"github.com/robertarktes/bus-reservations-and-sales/internal/observability"
)

// Store is the reservation/sale persistence surface the handlers need.
type Store interface {
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	ListPassengers(ctx context.Context, reservationID uuid.UUID) ([]domain.Passenger, error)
	AddPassenger(ctx context.Context, p domain.Passenger) error
	UpdatePassenger(ctx context.Context, passengerID uuid.UUID, f domain.PassengerFields) error
	RemovePassenger(ctx context.Context, passengerID uuid.UUID) (bool, error)
	SaleExistsForReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
	SaleExistsForPassenger(ctx context.Context, passengerID uuid.UUID) (bool, error)
	CreateSale(ctx context.Context, sale domain.Sale, passengerCount int) error
	GetSale(ctx context.Context, reservationID uuid.UUID) (*domain.Sale, error)
}

type Catalog interface {
	GetTrip(ctx context.Context, id uuid.UUID) (*mongoadapter.TripDoc, error)
}

type ConfirmLocker interface {
	SetConfirmLock(ctx context.Context, reservationID string, ttl time.Duration) (bool, error)
	ReleaseConfirmLock(ctx context.Context, reservationID string) error
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*idempotency.Response, error)
	Set(ctx context.Context, key string, resp idempotency.Response) error
}

type Handlers struct {
	cfg     *config.Config
	store   Store
	catalog Catalog
	locker  ConfirmLocker
	idemp   IdempotencyStore
	logger  observability.Logger
}

func NewHandlers(cfg *config.Config, store Store, catalog Catalog, locker ConfirmLocker, idemp IdempotencyStore, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		locker:  locker,
		idemp:   idemp,
		logger:  logger,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrCapacity):
		writeError(w, http.StatusConflict, "CAPACITY", err.Error())
	case errors.Is(err, domain.ErrLocked):
		writeError(w, http.StatusLocked, "LOCKED", err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrSerializationFailure):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

type passengerDTO struct {
	ID                uuid.UUID `json:"id"`
	ReservationID     uuid.UUID `json:"reservation_id"`
	Name              string    `json:"name"`
	Surname           string    `json:"surname"`
	NationalID        string    `json:"national_id"`
	BoardingLocation  string    `json:"boarding_location"`
	AlightingLocation string    `json:"alighting_location"`
}

func toPassengerDTO(p domain.Passenger) passengerDTO {
	return passengerDTO{
		ID:                p.ID,
		ReservationID:     p.ReservationID,
		Name:              p.Name,
		Surname:           p.Surname,
		NationalID:        p.NationalID,
		BoardingLocation:  p.BoardingLocation,
		AlightingLocation: p.AlightingLocation,
	}
}

type passengerInput struct {
	Name              string `json:"name"`
	Surname           string `json:"surname"`
	NationalID        string `json:"national_id"`
	BoardingLocation  string `json:"boarding_location"`
	AlightingLocation string `json:"alighting_location"`
}

func (in passengerInput) fields() domain.PassengerFields {
	return domain.PassengerFields{
		Name:              in.Name,
		Surname:           in.Surname,
		NationalID:        in.NationalID,
		BoardingLocation:  in.BoardingLocation,
		AlightingLocation: in.AlightingLocation,
	}
}

type saleDTO struct {
	ID              uuid.UUID `json:"sale_id"`
	ReservationID   uuid.UUID `json:"reservation_id"`
	PaymentMethod   string    `json:"payment_method"`
	DiscountPercent float64   `json:"discount_percent"`
	Subtotal        float64   `json:"subtotal"`
	FinalPrice      float64   `json:"final_price"`
	CreatedAt       string    `json:"created_at"`
}

func toSaleDTO(s domain.Sale) saleDTO {
	return saleDTO{
		ID:              s.ID,
		ReservationID:   s.ReservationID,
		PaymentMethod:   s.PaymentMethod,
		DiscountPercent: s.DiscountPercent,
		Subtotal:        s.Subtotal,
		FinalPrice:      s.FinalPrice,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid trip id")
		return
	}
	trip, err := h.catalog.GetTrip(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trip_id":     trip.ID,
		"origin":      trip.Origin,
		"destination": trip.Destination,
		"date":        trip.Date,
		"time":        trip.Time,
		"unit_price":  trip.UnitPrice,
		"carrier":     trip.Carrier,
		"vehicle":     trip.Vehicle,
	})
}

func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		BookerUserID uuid.UUID        `json:"booker_user_id"`
		TripID       uuid.UUID        `json:"trip_id"`
		Passengers   []passengerInput `json:"passengers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if _, err := h.catalog.GetTrip(r.Context(), req.TripID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "trip not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	fields := make([]domain.PassengerFields, len(req.Passengers))
	for i, p := range req.Passengers {
		fields[i] = p.fields()
	}
	res, err := domain.NewReservation(req.TripID, req.BookerUserID, fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.store.CreateReservation(r.Context(), res); err != nil {
		writeDomainError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{"reservation_id": res.ID})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) ListPassengers(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}
	passengers, err := h.store.ListPassengers(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]passengerDTO, len(passengers))
	for i, p := range passengers {
		out[i] = toPassengerDTO(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) AddPassenger(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}
	var in passengerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	if err := domain.ValidatePassengerFields(in.fields()); err != nil {
		writeDomainError(w, err)
		return
	}
	p := domain.Passenger{
		ID:                uuid.New(),
		ReservationID:     reservationID,
		Name:              in.Name,
		Surname:           in.Surname,
		NationalID:        in.NationalID,
		BoardingLocation:  in.BoardingLocation,
		AlightingLocation: in.AlightingLocation,
	}
	if err := h.store.AddPassenger(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"passenger_id": p.ID})
}

func (h *Handlers) UpdatePassenger(w http.ResponseWriter, r *http.Request) {
	passengerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid passenger id")
		return
	}
	var in passengerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	if err := h.store.UpdatePassenger(r.Context(), passengerID, in.fields()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemovePassenger acks with 204 whether or not the owning reservation was
// cascade-deleted; callers decide from their pre-call passenger count.
func (h *Handlers) RemovePassenger(w http.ResponseWriter, r *http.Request) {
	passengerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid passenger id")
		return
	}
	if _, err := h.store.RemovePassenger(r.Context(), passengerID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SaleExistsForReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}
	exists, err := h.store.SaleExistsForReservation(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handlers) SaleExistsForPassenger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid passenger id")
		return
	}
	exists, err := h.store.SaleExistsForPassenger(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handlers) CreateSale(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		ReservationID   uuid.UUID `json:"reservation_id"`
		PaymentMethod   string    `json:"payment_method"`
		DiscountPercent float64   `json:"discount_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	ok, err := h.locker.SetConfirmLock(r.Context(), req.ReservationID.String(), h.cfg.ConfirmLockTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	if !ok {
		observability.SaleConflicts.Inc()
		writeError(w, http.StatusConflict, "CONFLICT", "sale confirmation already in progress for this reservation")
		return
	}
	defer h.locker.ReleaseConfirmLock(r.Context(), req.ReservationID.String())

	res, err := h.store.GetReservation(r.Context(), req.ReservationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	trip, err := h.catalog.GetTrip(r.Context(), res.TripID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sale, err := domain.NewSale(res.ID, req.PaymentMethod, req.DiscountPercent, trip.UnitPrice, len(res.Passengers))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.store.CreateSale(r.Context(), sale, len(res.Passengers)); err != nil {
		if errors.Is(err, domain.ErrLocked) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrSerializationFailure) {
			observability.SaleConflicts.Inc()
		}
		writeDomainError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, toSaleDTO(sale))
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

// GetReceipt flattens trip, passengers and sale for display. Only frozen
// reservations have receipts; without a sale this answers 404.
func (h *Handlers) GetReceipt(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid reservation id")
		return
	}

	res, err := h.store.GetReservation(r.Context(), reservationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var (
		sale *domain.Sale
		trip *mongoadapter.TripDoc
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		sale, err = h.store.GetSale(gctx, reservationID)
		return err
	})
	g.Go(func() error {
		var err error
		trip, err = h.catalog.GetTrip(gctx, res.TripID)
		return err
	})
	if err := g.Wait(); err != nil {
		writeDomainError(w, err)
		return
	}

	passengers := make([]passengerDTO, len(res.Passengers))
	for i, p := range res.Passengers {
		passengers[i] = toPassengerDTO(p)
	}
	createdAt := sale.CreatedAt.UTC()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reservation_id":   res.ID,
		"origin":           trip.Origin,
		"destination":      trip.Destination,
		"date":             trip.Date,
		"time":             trip.Time,
		"passengers":       passengers,
		"sale_date":        createdAt.Format("2006-01-02"),
		"sale_time":        createdAt.Format("15:04:05"),
		"payment_method":   sale.PaymentMethod,
		"subtotal":         sale.Subtotal,
		"discount_percent": sale.DiscountPercent,
		"final_price":      sale.FinalPrice,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
