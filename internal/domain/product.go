package domain

import "time"

// Product is immutable catalog reference data, seeded by migrations.
// Price is in minor currency units.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       int64
	CreatedAt   time.Time
}
