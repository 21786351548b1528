package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

const reservationColumns = `r.id, r.shop_id, r.customer_id, r.visit_date, r.visit_time, r.party_size,
	r.guest_name, r.guest_phone, COALESCE(r.requests, ''), r.status, r.reminder_sent,
	r.created_at, r.updated_at`

// CreateReservation inserts a new reservation row.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reservations (id, shop_id, customer_id, visit_date, visit_time, party_size,
			guest_name, guest_phone, requests, status, reminder_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		r.ID, r.ShopID, r.CustomerID, r.VisitDate, r.VisitTime, r.PartySize,
		r.GuestName, r.GuestPhone, r.Requests, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetReservation returns one reservation or ErrNotFound.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`, id)
	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// ListReservationsByShop returns a shop's reservations joined with the
// customer's nickname and email, latest visit first.
func (db *DB) ListReservationsByShop(ctx context.Context, shopID int64) ([]models.ShopReservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+`, COALESCE(u.nickname, ''), COALESCE(u.email, '')
		FROM reservations r
		LEFT JOIN users u ON u.id = r.customer_id
		WHERE r.shop_id = ?
		ORDER BY r.visit_date DESC, r.visit_time DESC, r.created_at DESC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list shop reservations: %w", err)
	}
	defer rows.Close()

	result := make([]models.ShopReservation, 0)
	for rows.Next() {
		var sr models.ShopReservation
		var status string
		err := rows.Scan(&sr.ID, &sr.ShopID, &sr.CustomerID, &sr.VisitDate, &sr.VisitTime, &sr.PartySize,
			&sr.GuestName, &sr.GuestPhone, &sr.Requests, &status, &sr.ReminderSent,
			&sr.CreatedAt, &sr.UpdatedAt, &sr.CustomerNickname, &sr.CustomerEmail)
		if err != nil {
			return nil, fmt.Errorf("scan shop reservation: %w", err)
		}
		sr.Status = models.Status(status)
		result = append(result, sr)
	}
	return result, rows.Err()
}

// ListReservationsByCustomer returns a customer's reservations, latest visit first.
func (db *DB) ListReservationsByCustomer(ctx context.Context, customerID int64) ([]models.Reservation, error) {
	return db.queryReservations(ctx, `
		SELECT `+reservationColumns+` FROM reservations r
		WHERE r.customer_id = ?
		ORDER BY r.visit_date DESC, r.visit_time DESC, r.created_at DESC`, customerID)
}

// UpdateReservationStatus moves a reservation from one status to another.
// The update only applies while the stored status still equals from; if a
// concurrent writer changed it first, ErrConcurrentModification is returned.
func (db *DB) UpdateReservationStatus(ctx context.Context, id string, from, to models.Status) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), time.Now(), id, string(from))
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check reservation: %w", err)
	}
	return ErrConcurrentModification
}

// GetReservationsForReminders returns confirmed reservations with a visit
// date in [fromDate, toDate] whose reminder hasn't been sent yet.
func (db *DB) GetReservationsForReminders(ctx context.Context, fromDate, toDate string) ([]models.Reservation, error) {
	return db.queryReservations(ctx, `
		SELECT `+reservationColumns+` FROM reservations r
		WHERE r.status = 'confirmed'
		  AND r.reminder_sent = 0
		  AND r.visit_date BETWEEN ? AND ?
		ORDER BY r.visit_date ASC, r.visit_time ASC`, fromDate, toDate)
}

// MarkReminderSent flags a reservation's reminder as delivered.
func (db *DB) MarkReminderSent(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE reservations SET reminder_sent = 1, updated_at = ?
		WHERE id = ?`, time.Now(), id)
	return err
}

// CountReservationsByStatus powers the status gauge.
func (db *DB) CountReservationsByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count reservations: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...interface{}) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	result := make([]models.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var status string
	err := row.Scan(&r.ID, &r.ShopID, &r.CustomerID, &r.VisitDate, &r.VisitTime, &r.PartySize,
		&r.GuestName, &r.GuestPhone, &r.Requests, &status, &r.ReminderSent,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = models.Status(status)
	return &r, nil
}
