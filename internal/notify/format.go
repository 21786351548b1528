package notify

import (
	"fmt"
	"strings"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

func FormatReminder(r models.Reservation, shopName string) string {
	return fmt.Sprintf("Reminder: your table at %s is booked for %s at %s, party of %d.",
		shopName, r.VisitDate, r.VisitTime, r.PartySize)
}

func FormatNewReservation(shop models.Shop, r models.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New reservation at %s\n", shop.Name)
	fmt.Fprintf(&b, "%s %s, party of %d\n", r.VisitDate, r.VisitTime, r.PartySize)
	fmt.Fprintf(&b, "Guest: %s (%s)\n", r.GuestName, r.GuestPhone)
	if r.Requests != "" {
		fmt.Fprintf(&b, "Requests: %s\n", r.Requests)
	}
	b.WriteString("Status: pending")
	return b.String()
}

func FormatStatusChange(r models.Reservation, to models.Status) string {
	var verb string
	switch to {
	case models.StatusConfirmed:
		verb = "has been confirmed"
	case models.StatusCompleted:
		verb = "is complete. Thank you for visiting"
	case models.StatusCancelled:
		verb = "has been cancelled"
	default:
		verb = "is now " + to.String()
	}
	return fmt.Sprintf("Your reservation for %s at %s %s.", r.VisitDate, r.VisitTime, verb)
}

// FormatDigest lists rows in the order given, one seating per line.
func FormatDigest(shop models.Shop, day string, rows []models.ShopReservation) string {
	var b strings.Builder
	guests := 0
	for _, r := range rows {
		guests += r.PartySize
	}
	fmt.Fprintf(&b, "%s, %s: %d reservations, %d guests\n\n", shop.Name, day, len(rows), guests)
	for i, r := range rows {
		fmt.Fprintf(&b, "%d. %s  %s x%d  %s  [%s]\n", i+1, r.VisitTime, r.GuestName, r.PartySize, r.GuestPhone, r.Status)
		if r.Requests != "" {
			fmt.Fprintf(&b, "   %s\n", r.Requests)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
