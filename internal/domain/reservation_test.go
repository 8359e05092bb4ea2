package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func passenger(name string) PassengerFields {
	return PassengerFields{
		Name:              name,
		Surname:           "Suarez",
		NationalID:        "30111222",
		BoardingLocation:  "Terminal Centro",
		AlightingLocation: "Terminal Norte",
	}
}

func TestNewReservation_PassengerBounds(t *testing.T) {
	tripID, bookerID := uuid.New(), uuid.New()

	if _, err := NewReservation(tripID, bookerID, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("zero passengers: expected ErrValidation, got %v", err)
	}

	four := []PassengerFields{passenger("A"), passenger("B"), passenger("C"), passenger("D")}
	if _, err := NewReservation(tripID, bookerID, four); !errors.Is(err, ErrValidation) {
		t.Errorf("four passengers: expected ErrValidation, got %v", err)
	}

	res, err := NewReservation(tripID, bookerID, []PassengerFields{passenger("A"), passenger("B")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Passengers) != 2 {
		t.Fatalf("expected 2 passengers, got %d", len(res.Passengers))
	}
	for _, p := range res.Passengers {
		if p.ReservationID != res.ID {
			t.Errorf("passenger %s not owned by reservation %s", p.ID, res.ID)
		}
	}
}

func TestNewReservation_RequiredFields(t *testing.T) {
	incomplete := passenger("Ana")
	incomplete.NationalID = ""
	_, err := NewReservation(uuid.New(), uuid.New(), []PassengerFields{incomplete})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestReservation_CanAddPassenger(t *testing.T) {
	res, err := NewReservation(uuid.New(), uuid.New(), []PassengerFields{passenger("A"), passenger("B"), passenger("C")})
	if err != nil {
		t.Fatal(err)
	}
	if err := res.CanAddPassenger(); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity at %d passengers, got %v", MaxPassengers, err)
	}

	res.Passengers = res.Passengers[:2]
	if err := res.CanAddPassenger(); err != nil {
		t.Errorf("expected room for a third passenger, got %v", err)
	}
}

func TestReservation_RemovalCascades(t *testing.T) {
	res, err := NewReservation(uuid.New(), uuid.New(), []PassengerFields{passenger("A"), passenger("B")})
	if err != nil {
		t.Fatal(err)
	}
	if res.RemovalCascades() {
		t.Error("removal with two passengers must not cascade")
	}
	res.Passengers = res.Passengers[:1]
	if !res.RemovalCascades() {
		t.Error("removing the last passenger must cascade")
	}
}
