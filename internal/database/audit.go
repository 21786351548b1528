package database

import (
	"context"
	"fmt"
	"strings"
)

// auditColumns lists the exported columns per table. Credentials are never exported.
var auditColumns = map[string][]string{
	"shops": {
		"id", "name", "address", "owner_email", "first_seating", "last_seating",
		"slot_minutes", "max_party_size", "is_active", "created_at", "updated_at",
	},
	"users": {
		"id", "email", "nickname", "role", "sido", "sigungu", "dong", "created_at",
	},
	"reservations": {
		"id", "shop_id", "customer_id", "visit_date", "visit_time", "party_size",
		"guest_name", "guest_phone", "requests", "status", "reminder_sent", "created_at", "updated_at",
	},
}

// AuditTableNames is the export order of audit reports.
var AuditTableNames = []string{"shops", "users", "reservations"}

// GetTableNames returns list of table names to export.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return AuditTableNames, nil
}

// GetTableData returns all rows from a table as maps keyed by column.
func (db *DB) GetTableData(ctx context.Context, tableName string) (result []map[string]interface{}, columns []string, err error) {
	columns, ok := auditColumns[tableName]
	if !ok {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY 1", strings.Join(columns, ", "), tableName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err = rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, isBytes := values[i].([]byte); isBytes {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	return result, columns, rows.Err()
}
