package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
)

const genericBackendError = "the ticketing service could not process the request"

// HTTPBackend talks to the platform's /v1 API.
type HTTPBackend struct {
	base   string
	client *http.Client
	token  string
}

func NewHTTPBackend(baseURL, token string) *HTTPBackend {
	return &HTTPBackend{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
		token:  token,
	}
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body interface{}, idempotencyKey string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		if idempotencyKey == "" {
			idempotencyKey = uuid.NewString()
		}
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// decodeError maps the backend's {code, message} body onto domain sentinels,
// keeping the backend message verbatim and falling back to a generic string
// when the body carries none.
func decodeError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &body)

	msg := body.Message
	if msg == "" {
		msg = genericBackendError
	}

	var sentinel error
	switch body.Code {
	case "VALIDATION":
		sentinel = domain.ErrValidation
	case "CAPACITY":
		sentinel = domain.ErrCapacity
	case "LOCKED":
		sentinel = domain.ErrLocked
	case "CONFLICT":
		sentinel = domain.ErrConflict
	case "NOT_FOUND":
		sentinel = domain.ErrNotFound
	default:
		switch resp.StatusCode {
		case http.StatusNotFound:
			sentinel = domain.ErrNotFound
		case http.StatusConflict:
			sentinel = domain.ErrConflict
		case http.StatusLocked:
			sentinel = domain.ErrLocked
		case http.StatusBadRequest:
			sentinel = domain.ErrValidation
		default:
			return fmt.Errorf("backend: %s (status %d)", msg, resp.StatusCode)
		}
	}
	return errors.Wrap(sentinel, msg)
}

func (b *HTTPBackend) Trip(ctx context.Context, tripID string) (*TripView, error) {
	var trip TripView
	if err := b.do(ctx, http.MethodGet, "/v1/trips/"+tripID, nil, "", &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (b *HTTPBackend) CreateReservation(ctx context.Context, bookerUserID, tripID string, passengers []PassengerInput) (string, error) {
	req := map[string]interface{}{
		"booker_user_id": bookerUserID,
		"trip_id":        tripID,
		"passengers":     passengers,
	}
	var resp struct {
		ReservationID string `json:"reservation_id"`
	}
	if err := b.do(ctx, http.MethodPost, "/v1/reservations", req, "", &resp); err != nil {
		return "", err
	}
	return resp.ReservationID, nil
}

func (b *HTTPBackend) Passengers(ctx context.Context, reservationID string) ([]PassengerView, error) {
	var passengers []PassengerView
	if err := b.do(ctx, http.MethodGet, "/v1/reservations/"+reservationID+"/passengers", nil, "", &passengers); err != nil {
		return nil, err
	}
	return passengers, nil
}

func (b *HTTPBackend) AddPassenger(ctx context.Context, reservationID string, p PassengerInput) (string, error) {
	var resp struct {
		PassengerID string `json:"passenger_id"`
	}
	if err := b.do(ctx, http.MethodPost, "/v1/reservations/"+reservationID+"/passengers", p, "", &resp); err != nil {
		return "", err
	}
	return resp.PassengerID, nil
}

func (b *HTTPBackend) UpdatePassenger(ctx context.Context, passengerID string, p PassengerInput) error {
	return b.do(ctx, http.MethodPut, "/v1/passengers/"+passengerID, p, "", nil)
}

func (b *HTTPBackend) DeletePassenger(ctx context.Context, passengerID string) error {
	return b.do(ctx, http.MethodDelete, "/v1/passengers/"+passengerID, nil, "", nil)
}

func (b *HTTPBackend) SaleExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := b.do(ctx, http.MethodGet, "/v1/sales/exists-for-reservation/"+reservationID, nil, "", &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (b *HTTPBackend) SaleExistsForPassenger(ctx context.Context, passengerID string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := b.do(ctx, http.MethodGet, "/v1/sales/exists-for-passenger/"+passengerID, nil, "", &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (b *HTTPBackend) CreateSale(ctx context.Context, req SaleRequest, idempotencyKey string) (*SaleView, error) {
	var sale SaleView
	if err := b.do(ctx, http.MethodPost, "/v1/sales", req, idempotencyKey, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (b *HTTPBackend) Receipt(ctx context.Context, reservationID string) (*ReceiptView, error) {
	var receipt ReceiptView
	if err := b.do(ctx, http.MethodGet, "/v1/receipts/"+reservationID, nil, "", &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
