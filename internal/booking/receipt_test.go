package booking_test

import (
	"context"
	"testing"

	"github.com/robertarktes/bus-reservations-and-sales/internal/booking"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
	"github.com/robertarktes/bus-reservations-and-sales/internal/observability"
	"github.com/stretchr/testify/require"
)

func sampleReceiptView() booking.ReceiptView {
	return booking.ReceiptView{
		ReservationID: "res-1",
		Origin:        "Centro",
		Destination:   "Norte",
		Date:          "2024-03-05T00:00:00.000Z",
		Time:          "08:30:00",
		Passengers: []booking.PassengerView{
			{ID: "pax-1", Name: "Ana", Surname: "Rivera", NationalID: "ID-1", BoardingLocation: "Centro", AlightingLocation: "Norte"},
			{ID: "pax-2", Name: "Bruno", Surname: "Soto", NationalID: "ID-2", BoardingLocation: "Plaza", AlightingLocation: "Norte"},
		},
		SaleDate:        "2024-03-04",
		SaleTime:        "14:30:00",
		PaymentMethod:   "card",
		Subtotal:        2000,
		DiscountPercent: 10,
		FinalPrice:      1800,
	}
}

func TestReceiptRender(t *testing.T) {
	receipt, err := booking.NewReceipt(sampleReceiptView())
	require.NoError(t, err)

	want := "Centro -> Norte\n" +
		"Departure: 05/03/2024 08:30\n" +
		"\n" +
		"1. Rivera Ana (ID-1)\n" +
		"   Centro -> Norte\n" +
		"2. Soto Bruno (ID-2)\n" +
		"   Plaza -> Norte\n" +
		"\n" +
		"Sold: 04/03/2024 14:30\n" +
		"Payment: card\n" +
		"Subtotal: 2,000.00\n" +
		"Discount: 10%\n" +
		"Total: 1,800.00\n"
	require.Equal(t, want, receipt.Render())

	// Rendering is a pure function of the view.
	require.Equal(t, receipt.Render(), receipt.Render())
}

func TestReceiptRenderFractionalDiscount(t *testing.T) {
	view := sampleReceiptView()
	view.DiscountPercent = 10.5
	view.FinalPrice = 1790
	receipt, err := booking.NewReceipt(view)
	require.NoError(t, err)

	rendered := receipt.Render()
	require.Contains(t, rendered, "Discount: 10.5%")
	require.Contains(t, rendered, "Total: 1,790.00")
}

func TestReceiptParsesTimestampDates(t *testing.T) {
	receipt, err := booking.NewReceipt(sampleReceiptView())
	require.NoError(t, err)
	require.Equal(t, "05/03/2024", receipt.TripDate().Display())
	require.Equal(t, "08:30", receipt.TripTime().Display())
}

func TestReceiptRejectsMalformedDates(t *testing.T) {
	view := sampleReceiptView()
	view.Date = "05-03-2024"
	_, err := booking.NewReceipt(view)
	require.Error(t, err)
}

func TestProjectionReceipt(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.addTrip("trip-1", 1000)
	svc := booking.NewService(backend, observability.NewLogger())
	conv := booking.NewConverter(backend, observability.NewLogger())
	proj := booking.NewProjection(backend)

	rid, err := svc.CreateReservation(ctx, "user-1", "trip-1", []booking.PassengerInput{pax("Ana"), pax("Bruno")})
	require.NoError(t, err)

	// No sale yet: nothing to project.
	_, err = proj.Receipt(ctx, rid)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = conv.Confirm(ctx, rid, "cash", 10)
	require.NoError(t, err)

	receipt, err := proj.Receipt(ctx, rid)
	require.NoError(t, err)
	view := receipt.View()
	require.Equal(t, rid, view.ReservationID)
	require.Len(t, view.Passengers, 2)
	require.Equal(t, 2000.0, view.Subtotal)
	require.Equal(t, 1800.0, view.FinalPrice)
	require.Contains(t, receipt.Render(), "Total: 1,800.00")
}
