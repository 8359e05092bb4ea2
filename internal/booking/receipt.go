package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
)

// Projection reads the frozen reservation + sale composition for display.
type Projection struct {
	backend Backend
}

func NewProjection(backend Backend) *Projection {
	return &Projection{backend: backend}
}

// Receipt holds the parsed, display-ready receipt.
type Receipt struct {
	view     ReceiptView
	tripDate domain.TripDate
	tripTime domain.ClockTime
	saleDate domain.TripDate
	saleTime domain.ClockTime
}

func (p *Projection) Receipt(ctx context.Context, reservationID string) (*Receipt, error) {
	view, err := p.backend.Receipt(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return NewReceipt(*view)
}

// NewReceipt parses the wire-form dates and times out of a receipt view.
func NewReceipt(view ReceiptView) (*Receipt, error) {
	tripDate, err := domain.ParseTripDate(view.Date)
	if err != nil {
		return nil, err
	}
	tripTime, err := domain.ParseClockTime(view.Time)
	if err != nil {
		return nil, err
	}
	saleDate, err := domain.ParseTripDate(view.SaleDate)
	if err != nil {
		return nil, err
	}
	saleTime, err := domain.ParseClockTime(view.SaleTime)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		view:     view,
		tripDate: tripDate,
		tripTime: tripTime,
		saleDate: saleDate,
		saleTime: saleTime,
	}, nil
}

func (r *Receipt) TripDate() domain.TripDate  { return r.tripDate }
func (r *Receipt) TripTime() domain.ClockTime { return r.tripTime }
func (r *Receipt) View() ReceiptView          { return r.view }

// Render produces the printable text block. The output is a pure function of
// the frozen reservation + sale pair, byte for byte.
func (r *Receipt) Render() string {
	var b strings.Builder
	v := r.view

	fmt.Fprintf(&b, "%s -> %s\n", v.Origin, v.Destination)
	fmt.Fprintf(&b, "Departure: %s %s\n", r.tripDate.Display(), r.tripTime.Display())
	b.WriteString("\n")
	for i, p := range v.Passengers {
		fmt.Fprintf(&b, "%d. %s %s (%s)\n", i+1, p.Surname, p.Name, p.NationalID)
		fmt.Fprintf(&b, "   %s -> %s\n", p.BoardingLocation, p.AlightingLocation)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sold: %s %s\n", r.saleDate.Display(), r.saleTime.Display())
	fmt.Fprintf(&b, "Payment: %s\n", v.PaymentMethod)
	fmt.Fprintf(&b, "Subtotal: %s\n", domain.FormatAmount(v.Subtotal))
	fmt.Fprintf(&b, "Discount: %v%%\n", v.DiscountPercent)
	fmt.Fprintf(&b, "Total: %s\n", domain.FormatAmount(v.FinalPrice))
	return b.String()
}
