package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
	"github.com/robertarktes/bus-reservations-and-sales/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
	ForeignKeyViolationCode  = "23503"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

// CreateReservation persists the reservation with its passengers and the
// reservation.created outbox record in one transaction.
func (r *Repository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	if len(res.Passengers) < 1 || len(res.Passengers) > domain.MaxPassengers {
		return errors.Wrapf(domain.ErrValidation, "passenger count %d out of bounds", len(res.Passengers))
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, trip_id, booker_user_id, created_at)
			VALUES ($1, $2, $3, $4)
		`, res.ID, res.TripID, res.BookerUserID, res.CreatedAt)
		if err != nil {
			return err
		}
		for _, p := range res.Passengers {
			if err := insertPassenger(ctx, tx, p); err != nil {
				return err
			}
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"reservation_id": res.ID,
			"trip_id":        res.TripID,
			"passengers":     len(res.Passengers),
		})
		return r.InsertOutbox(ctx, tx, NewOutboxRecord("reservation", res.ID, "reservation.created", payload))
	})
}

// GetReservation loads a reservation with its passengers in insertion order.
func (r *Repository) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.pool.QueryRow(ctx, `
		SELECT id, trip_id, booker_user_id, created_at
		FROM reservations WHERE id = $1
	`, id).Scan(&res.ID, &res.TripID, &res.BookerUserID, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, reservation_id, name, surname, national_id, boarding_location, alighting_location
		FROM passengers WHERE reservation_id = $1 ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.Name, &p.Surname, &p.NationalID, &p.BoardingLocation, &p.AlightingLocation); err != nil {
			return nil, err
		}
		res.Passengers = append(res.Passengers, p)
	}
	return &res, rows.Err()
}

// ListPassengers fails with ErrNotFound for an unknown reservation id. A live
// reservation always has at least one passenger, so a cascade-deleted id
// answers "not found", never an empty list.
func (r *Repository) ListPassengers(ctx context.Context, reservationID uuid.UUID) ([]domain.Passenger, error) {
	res, err := r.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return res.Passengers, nil
}

// AddPassenger appends a passenger to an unsold reservation.
func (r *Repository) AddPassenger(ctx context.Context, p domain.Passenger) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := assertUnsold(ctx, tx, p.ReservationID); err != nil {
			return err
		}
		var count int
		err := tx.QueryRow(ctx, `
			SELECT count(*) FROM passengers WHERE reservation_id = $1
		`, p.ReservationID).Scan(&count)
		if err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		if count >= domain.MaxPassengers {
			return errors.Wrapf(domain.ErrCapacity, "reservation %s already has %d passengers", p.ReservationID, count)
		}
		return insertPassenger(ctx, tx, p)
	})
}

// UpdatePassenger replaces the mutable fields of a passenger.
func (r *Repository) UpdatePassenger(ctx context.Context, passengerID uuid.UUID, f domain.PassengerFields) error {
	if err := domain.ValidatePassengerFields(f); err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		reservationID, err := passengerOwner(ctx, tx, passengerID)
		if err != nil {
			return err
		}
		if err := assertUnsold(ctx, tx, reservationID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE passengers
			SET name = $2, surname = $3, national_id = $4, boarding_location = $5, alighting_location = $6
			WHERE id = $1
		`, passengerID, f.Name, f.Surname, f.NationalID, f.BoardingLocation, f.AlightingLocation)
		return err
	})
}

// RemovePassenger deletes a passenger from an unsold reservation. Removing the
// last passenger deletes the reservation in the same transaction; the returned
// flag reports that cascade.
func (r *Repository) RemovePassenger(ctx context.Context, passengerID uuid.UUID) (cascaded bool, err error) {
	err = r.WithTx(ctx, func(tx pgx.Tx) error {
		reservationID, err := passengerOwner(ctx, tx, passengerID)
		if err != nil {
			return err
		}
		if err := assertUnsold(ctx, tx, reservationID); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM passengers WHERE reservation_id = $1
		`, reservationID).Scan(&count); err != nil {
			return err
		}
		if count <= 1 {
			// Last passenger: the reservation goes with it. The passengers
			// table cascades on the reservation FK.
			if _, err := tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, reservationID); err != nil {
				return err
			}
			cascaded = true
			payload, _ := json.Marshal(map[string]interface{}{
				"reservation_id": reservationID,
				"passenger_id":   passengerID,
			})
			return r.InsertOutbox(ctx, tx, NewOutboxRecord("reservation", reservationID, "reservation.cascade_deleted", payload))
		}
		_, err = tx.Exec(ctx, `DELETE FROM passengers WHERE id = $1`, passengerID)
		return err
	})
	if err != nil {
		return false, err
	}
	if cascaded {
		observability.CascadeDeletions.Inc()
	}
	return cascaded, nil
}

// SaleExistsForReservation fails with ErrNotFound for an unknown reservation
// id, so a cascade-deleted reservation answers "not found" rather than a
// misleading "unsold".
func (r *Repository) SaleExistsForReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	var known bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)
	`, reservationID).Scan(&known)
	if err != nil {
		return false, err
	}
	if !known {
		return false, domain.ErrNotFound
	}
	var exists bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sales WHERE reservation_id = $1)
	`, reservationID).Scan(&exists)
	return exists, err
}

// SaleExistsForPassenger answers through the passenger's owning reservation,
// for callers that only hold a passenger id.
func (r *Repository) SaleExistsForPassenger(ctx context.Context, passengerID uuid.UUID) (bool, error) {
	var reservationID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT reservation_id FROM passengers WHERE id = $1
	`, passengerID).Scan(&reservationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return r.SaleExistsForReservation(ctx, reservationID)
}

// CreateSale inserts the terminal sale. The UNIQUE constraint on
// sales.reservation_id makes a second sale for one reservation impossible; a
// violation surfaces as ErrLocked. passengerCount is the count the price was
// computed from: it is re-read inside the transaction so a passenger change
// between pricing and confirming rejects the stale price instead of charging
// it, and the read itself puts this transaction in serializable conflict with
// concurrent passenger writes.
func (r *Repository) CreateSale(ctx context.Context, sale domain.Sale, passengerCount int) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var count int
		err := tx.QueryRow(ctx, `
			SELECT count(*) FROM passengers WHERE reservation_id = $1
		`, sale.ReservationID).Scan(&count)
		if err != nil {
			return err
		}
		if count == 0 {
			// A live reservation always has at least one passenger.
			return domain.ErrNotFound
		}
		if count != passengerCount {
			return errors.Wrapf(domain.ErrConflict, "reservation %s has %d passengers but the sale was priced for %d", sale.ReservationID, count, passengerCount)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO sales (id, reservation_id, payment_method, discount_percent, subtotal, final_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, sale.ID, sale.ReservationID, sale.PaymentMethod, sale.DiscountPercent, sale.Subtotal, sale.FinalPrice, sale.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode {
				return errors.Wrapf(domain.ErrLocked, "reservation %s already has a sale", sale.ReservationID)
			}
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"sale_id":        sale.ID,
			"reservation_id": sale.ReservationID,
			"final_price":    sale.FinalPrice,
		})
		return r.InsertOutbox(ctx, tx, NewOutboxRecord("sale", sale.ID, "sale.confirmed", payload))
	})
}

func (r *Repository) GetSale(ctx context.Context, reservationID uuid.UUID) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.pool.QueryRow(ctx, `
		SELECT id, reservation_id, payment_method, discount_percent, subtotal, final_price, created_at
		FROM sales WHERE reservation_id = $1
	`, reservationID).Scan(&sale.ID, &sale.ReservationID, &sale.PaymentMethod, &sale.DiscountPercent, &sale.Subtotal, &sale.FinalPrice, &sale.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// assertUnsold guards every mutation: once a sale exists the reservation and
// its passengers are frozen.
func assertUnsold(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) error {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sales WHERE reservation_id = $1)
	`, reservationID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(domain.ErrLocked, "reservation %s has a confirmed sale", reservationID)
	}
	return nil
}

func passengerOwner(ctx context.Context, tx pgx.Tx, passengerID uuid.UUID) (uuid.UUID, error) {
	var reservationID uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT reservation_id FROM passengers WHERE id = $1
	`, passengerID).Scan(&reservationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrNotFound
	}
	return reservationID, err
}

func insertPassenger(ctx context.Context, tx pgx.Tx, p domain.Passenger) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO passengers (id, reservation_id, name, surname, national_id, boarding_location, alighting_location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.ReservationID, p.Name, p.Surname, p.NationalID, p.BoardingLocation, p.AlightingLocation)
	return err
}
