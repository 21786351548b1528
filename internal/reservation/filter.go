package reservation

import (
	"fmt"
	"sort"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// Bucket is a temporal partition relative to today.
type Bucket string

const (
	BucketToday    Bucket = "today"
	BucketUpcoming Bucket = "upcoming"
	BucketPast     Bucket = "past"
)

// ParseBucket validates a bucket name coming from a query string.
func ParseBucket(raw string) (Bucket, error) {
	switch b := Bucket(raw); b {
	case BucketToday, BucketUpcoming, BucketPast:
		return b, nil
	}
	return "", &models.ValidationError{Field: "bucket", Message: fmt.Sprintf("unknown bucket %q", raw)}
}

// Buckets holds all three partitions of a reservation list.
type Buckets struct {
	Today    []models.Reservation `json:"today"`
	Upcoming []models.Reservation `json:"upcoming"`
	Past     []models.Reservation `json:"past"`
}

// Today renders now as a YYYY-MM-DD date in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(dateLayout)
}

// bucketOf places a visit date relative to today. Dates are fixed width and
// zero padded, so lexical order matches calendar order.
func bucketOf(visitDate, today string) (Bucket, bool) {
	if !IsValidDate(visitDate) {
		return "", false
	}
	switch {
	case visitDate == today:
		return BucketToday, true
	case visitDate > today:
		return BucketUpcoming, true
	default:
		return BucketPast, true
	}
}

// FilterByBucket returns the reservations of one bucket in their original
// order. Reservations with a missing or malformed visit date belong to no
// bucket. The input is never modified.
func FilterByBucket(reservations []models.Reservation, bucket Bucket, today string) []models.Reservation {
	out := make([]models.Reservation, 0)
	for i := range reservations {
		if b, ok := bucketOf(reservations[i].VisitDate, today); ok && b == bucket {
			out = append(out, reservations[i])
		}
	}
	return out
}

// Partition splits reservations into all three buckets in one pass.
func Partition(reservations []models.Reservation, today string) Buckets {
	result := Buckets{
		Today:    make([]models.Reservation, 0),
		Upcoming: make([]models.Reservation, 0),
		Past:     make([]models.Reservation, 0),
	}
	for i := range reservations {
		b, ok := bucketOf(reservations[i].VisitDate, today)
		if !ok {
			continue
		}
		switch b {
		case BucketToday:
			result.Today = append(result.Today, reservations[i])
		case BucketUpcoming:
			result.Upcoming = append(result.Upcoming, reservations[i])
		case BucketPast:
			result.Past = append(result.Past, reservations[i])
		}
	}
	return result
}

// FilterByShop returns reservations made against shopID.
func FilterByShop(reservations []models.Reservation, shopID int64) []models.Reservation {
	out := make([]models.Reservation, 0)
	for i := range reservations {
		if reservations[i].ShopID == shopID {
			out = append(out, reservations[i])
		}
	}
	return out
}

// FilterByCustomer returns reservations requested by customerID.
func FilterByCustomer(reservations []models.Reservation, customerID int64) []models.Reservation {
	out := make([]models.Reservation, 0)
	for i := range reservations {
		if reservations[i].CustomerID == customerID {
			out = append(out, reservations[i])
		}
	}
	return out
}

// SortByVisit returns a copy ordered by (visit date, visit time). History
// views use descending order, upcoming views ascending.
func SortByVisit(reservations []models.Reservation, descending bool) []models.Reservation {
	out := make([]models.Reservation, len(reservations))
	copy(out, reservations)
	sort.SliceStable(out, func(i, j int) bool {
		a := out[i].VisitDate + " " + out[i].VisitTime
		b := out[j].VisitDate + " " + out[j].VisitTime
		if descending {
			return a > b
		}
		return a < b
	})
	return out
}

// FilterShopRowsByBucket applies FilterByBucket to joined shop rows, keeping
// the customer columns.
func FilterShopRowsByBucket(rows []models.ShopReservation, bucket Bucket, today string) []models.ShopReservation {
	out := make([]models.ShopReservation, 0)
	for i := range rows {
		if b, ok := bucketOf(rows[i].VisitDate, today); ok && b == bucket {
			out = append(out, rows[i])
		}
	}
	return out
}
