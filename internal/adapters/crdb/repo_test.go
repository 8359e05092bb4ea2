package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/bus-reservations-and-sales/internal/adapters/crdb"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
	CREATE TABLE IF NOT EXISTS reservations (
		id UUID PRIMARY KEY,
		trip_id UUID NOT NULL,
		booker_user_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS passengers (
		id UUID PRIMARY KEY,
		reservation_id UUID NOT NULL REFERENCES reservations (id) ON DELETE CASCADE,
		seq SERIAL,
		name TEXT NOT NULL,
		surname TEXT NOT NULL,
		national_id TEXT NOT NULL,
		boarding_location TEXT NOT NULL,
		alighting_location TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sales (
		id UUID PRIMARY KEY,
		reservation_id UUID NOT NULL UNIQUE REFERENCES reservations (id),
		payment_method TEXT NOT NULL,
		discount_percent DOUBLE PRECISION NOT NULL,
		subtotal DOUBLE PRECISION NOT NULL,
		final_price DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		dedupe_key TEXT NOT NULL
	);
`

func setupRepository(t *testing.T) *crdb.Repository {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/defaultdb?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	return crdb.NewRepository(pool)
}

func testReservation(t *testing.T, names ...string) domain.Reservation {
	t.Helper()
	fields := make([]domain.PassengerFields, len(names))
	for i, n := range names {
		fields[i] = domain.PassengerFields{
			Name:              n,
			Surname:           "Rivera",
			NationalID:        "ID-" + n,
			BoardingLocation:  "Centro",
			AlightingLocation: "Norte",
		}
	}
	res, err := domain.NewReservation(uuid.New(), uuid.New(), fields)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRepository_ReservationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	res := testReservation(t, "Ana", "Bruno")
	if err := repo.CreateReservation(ctx, res); err != nil {
		t.Fatalf("create reservation: %v", err)
	}

	fetched, err := repo.GetReservation(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fetched.Passengers) != 2 {
		t.Fatalf("expected 2 passengers, got %d", len(fetched.Passengers))
	}
	if fetched.Passengers[0].Name != "Ana" || fetched.Passengers[1].Name != "Bruno" {
		t.Errorf("passengers out of insertion order: %v", fetched.Passengers)
	}

	third := domain.Passenger{
		ID:                uuid.New(),
		ReservationID:     res.ID,
		Name:              "Clara",
		Surname:           "Soto",
		NationalID:        "ID-Clara",
		BoardingLocation:  "Plaza",
		AlightingLocation: "Norte",
	}
	if err := repo.AddPassenger(ctx, third); err != nil {
		t.Fatalf("add third passenger: %v", err)
	}

	fourth := third
	fourth.ID = uuid.New()
	fourth.Name = "Diego"
	if err := repo.AddPassenger(ctx, fourth); !errors.Is(err, domain.ErrCapacity) {
		t.Errorf("expected capacity error for fourth passenger, got %v", err)
	}

	if err := repo.UpdatePassenger(ctx, third.ID, domain.PassengerFields{
		Name:              "Clara",
		Surname:           "Vega",
		NationalID:        "ID-Clara",
		BoardingLocation:  "Plaza",
		AlightingLocation: "Sur",
	}); err != nil {
		t.Fatalf("update passenger: %v", err)
	}

	fetched, err = repo.GetReservation(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Passengers[2].Surname != "Vega" || fetched.Passengers[2].AlightingLocation != "Sur" {
		t.Errorf("update not applied: %+v", fetched.Passengers[2])
	}
}

func TestRepository_RemovePassengerCascade(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	res := testReservation(t, "Ana", "Bruno")
	if err := repo.CreateReservation(ctx, res); err != nil {
		t.Fatal(err)
	}

	cascaded, err := repo.RemovePassenger(ctx, res.Passengers[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if cascaded {
		t.Error("removal with one passenger left should not cascade")
	}

	passengers, err := repo.ListPassengers(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(passengers) != 1 || passengers[0].Name != "Bruno" {
		t.Errorf("expected only Bruno left, got %v", passengers)
	}

	cascaded, err = repo.RemovePassenger(ctx, res.Passengers[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !cascaded {
		t.Error("removing the last passenger must cascade")
	}

	if _, err := repo.GetReservation(ctx, res.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found after cascade, got %v", err)
	}
	if _, err := repo.ListPassengers(ctx, res.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found listing cascaded reservation, got %v", err)
	}
	if _, err := repo.SaleExistsForReservation(ctx, res.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found checking sale on cascaded reservation, got %v", err)
	}
	if _, err := repo.RemovePassenger(ctx, res.Passengers[1].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found removing from cascaded reservation, got %v", err)
	}
}

func TestRepository_SaleFreezesReservation(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	res := testReservation(t, "Ana", "Bruno")
	if err := repo.CreateReservation(ctx, res); err != nil {
		t.Fatal(err)
	}

	sale, err := domain.NewSale(res.ID, "card", 10, 1000, len(res.Passengers))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateSale(ctx, sale, len(res.Passengers)); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	second, err := domain.NewSale(res.ID, "cash", 0, 1000, len(res.Passengers))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateSale(ctx, second, len(res.Passengers)); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("expected locked error for second sale, got %v", err)
	}

	extra := domain.Passenger{
		ID:                uuid.New(),
		ReservationID:     res.ID,
		Name:              "Clara",
		Surname:           "Soto",
		NationalID:        "ID-Clara",
		BoardingLocation:  "Plaza",
		AlightingLocation: "Norte",
	}
	if err := repo.AddPassenger(ctx, extra); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("expected locked error adding passenger, got %v", err)
	}
	if err := repo.UpdatePassenger(ctx, res.Passengers[0].ID, domain.PassengerFields{
		Name: "Ana", Surname: "Rivera", NationalID: "ID-Ana",
		BoardingLocation: "Centro", AlightingLocation: "Norte",
	}); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("expected locked error updating passenger, got %v", err)
	}
	if _, err := repo.RemovePassenger(ctx, res.Passengers[0].ID); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("expected locked error removing passenger, got %v", err)
	}

	exists, err := repo.SaleExistsForReservation(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected sale to exist for reservation")
	}
	exists, err = repo.SaleExistsForPassenger(ctx, res.Passengers[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected sale to exist for passenger")
	}
	if _, err := repo.SaleExistsForPassenger(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown passenger, got %v", err)
	}

	fetched, err := repo.GetSale(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Subtotal != 2000 || fetched.FinalPrice != 1800 {
		t.Errorf("unexpected sale amounts: subtotal %v final %v", fetched.Subtotal, fetched.FinalPrice)
	}

	if err := repo.CreateSale(ctx, mustSale(t, uuid.New()), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for sale on unknown reservation, got %v", err)
	}
	if _, err := repo.SaleExistsForReservation(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown reservation, got %v", err)
	}
}

func TestRepository_SaleRejectsStalePassengerCount(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	res := testReservation(t, "Ana", "Bruno")
	if err := repo.CreateReservation(ctx, res); err != nil {
		t.Fatal(err)
	}

	// Priced for two passengers, then a third lands before the confirm.
	stale, err := domain.NewSale(res.ID, "card", 10, 1000, 2)
	if err != nil {
		t.Fatal(err)
	}
	third := domain.Passenger{
		ID:                uuid.New(),
		ReservationID:     res.ID,
		Name:              "Clara",
		Surname:           "Soto",
		NationalID:        "ID-Clara",
		BoardingLocation:  "Plaza",
		AlightingLocation: "Norte",
	}
	if err := repo.AddPassenger(ctx, third); err != nil {
		t.Fatal(err)
	}

	if err := repo.CreateSale(ctx, stale, 2); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict for stale passenger count, got %v", err)
	}
	if exists, err := repo.SaleExistsForReservation(ctx, res.ID); err != nil || exists {
		t.Errorf("stale-priced sale must not be persisted: exists %v err %v", exists, err)
	}

	repriced, err := domain.NewSale(res.ID, "card", 10, 1000, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateSale(ctx, repriced, 3); err != nil {
		t.Fatalf("repriced sale: %v", err)
	}
	fetched, err := repo.GetSale(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Subtotal != 3000 {
		t.Errorf("expected subtotal 3000 for three passengers, got %v", fetched.Subtotal)
	}
}

func mustSale(t *testing.T, reservationID uuid.UUID) domain.Sale {
	t.Helper()
	sale, err := domain.NewSale(reservationID, "cash", 0, 1000, 1)
	if err != nil {
		t.Fatal(err)
	}
	return sale
}

func TestRepository_Outbox(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	res := testReservation(t, "Ana")
	if err := repo.CreateReservation(ctx, res); err != nil {
		t.Fatal(err)
	}
	sale, err := domain.NewSale(res.ID, "cash", 0, 1000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateSale(ctx, sale, 1); err != nil {
		t.Fatal(err)
	}

	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	events := map[string]bool{}
	for _, rec := range records {
		events[rec.EventType] = true
		if rec.DedupeKey == "" {
			t.Error("outbox record missing dedupe key")
		}
	}
	if !events["reservation.created"] || !events["sale.confirmed"] {
		t.Errorf("expected reservation.created and sale.confirmed events, got %v", events)
	}

	for _, rec := range records {
		if err := repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	remaining, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected empty outbox after publishing, got %d records", len(remaining))
	}
}
