package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eo-0118/Black-Kingdom/internal/config"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

// Owners are resolved by email at read time, so an owner who signs up after
// the shop was configured is linked without a resync.
const shopSelect = `
	SELECT s.id, s.name, COALESCE(s.address, ''), COALESCE(s.description, ''),
		COALESCE(u.id, 0), COALESCE(s.owner_email, ''), s.owner_chat_id,
		s.first_seating, s.last_seating, s.slot_minutes, s.max_party_size,
		s.is_active, s.created_at, s.updated_at
	FROM shops s
	LEFT JOIN users u ON u.email = s.owner_email AND u.role IN ('owner', 'admin')`

// SyncShopsFromConfig applies shops.yaml to the database. It upserts shops
// and marks shops missing from the file inactive.
func (db *DB) SyncShopsFromConfig(ctx context.Context, cfg *config.ShopsConfig) error {
	if cfg == nil {
		return fmt.Errorf("shops config is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now()
	seen := make(map[int64]struct{})

	for _, shop := range cfg.Shops {
		// Preserve created_at if the shop already exists.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shops (id, name, address, description, owner_email, owner_chat_id,
				first_seating, last_seating, slot_minutes, max_party_size, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM shops WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				address = excluded.address,
				description = excluded.description,
				owner_email = excluded.owner_email,
				owner_chat_id = excluded.owner_chat_id,
				first_seating = excluded.first_seating,
				last_seating = excluded.last_seating,
				slot_minutes = excluded.slot_minutes,
				max_party_size = excluded.max_party_size,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			shop.ID, shop.Name, shop.Address, shop.Description,
			strings.ToLower(strings.TrimSpace(shop.OwnerEmail)), shop.OwnerChatID,
			shop.FirstSeating, shop.LastSeating, shop.SlotMinutes, shop.MaxPartySize, shop.IsActive,
			shop.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync shop %d: %w", shop.ID, err)
		}
		seen[shop.ID] = struct{}{}
	}

	// Deactivate shops that disappeared from config. Their reservations stay.
	rows, err := tx.QueryContext(ctx, `SELECT id FROM shops WHERE is_active = 1`)
	if err != nil {
		return err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `UPDATE shops SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("deactivate shop %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}

	db.logger.Info().Int("shops", len(cfg.Shops)).Int("deactivated", len(stale)).Msg("Shops synced from config")
	return nil
}

// GetShop returns a shop regardless of its active flag.
func (db *DB) GetShop(ctx context.Context, id int64) (*models.Shop, error) {
	row := db.QueryRowContext(ctx, shopSelect+` WHERE s.id = ?`, id)
	shop, err := scanShop(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

// ListActiveShops returns active shops ordered by id.
func (db *DB) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	return db.queryShops(ctx, shopSelect+` WHERE s.is_active = 1 ORDER BY s.id`)
}

// ListShopsByOwner returns active shops whose owner email matches the user.
func (db *DB) ListShopsByOwner(ctx context.Context, ownerID int64) ([]models.Shop, error) {
	return db.queryShops(ctx, shopSelect+` WHERE s.is_active = 1 AND u.id = ? ORDER BY s.id`, ownerID)
}

func (db *DB) queryShops(ctx context.Context, query string, args ...interface{}) ([]models.Shop, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	shops := make([]models.Shop, 0)
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, *shop)
	}
	return shops, rows.Err()
}

func scanShop(row rowScanner) (*models.Shop, error) {
	var s models.Shop
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Description,
		&s.OwnerID, &s.OwnerEmail, &s.OwnerChatID,
		&s.FirstSeating, &s.LastSeating, &s.SlotMinutes, &s.MaxPartySize,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
