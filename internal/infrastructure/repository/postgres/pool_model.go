package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

type poolTableModel struct {
	ID        int64           `db:"id"`
	PublicID  string          `db:"public_id"`
	Name      string          `db:"name"`
	CreatorID string          `db:"creator_id"`
	StartsAt  time.Time       `db:"starts_at"`
	EntryFee  decimal.Decimal `db:"entry_fee"`
	State     string          `db:"state"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
	DeletedAt *time.Time      `db:"deleted_at"`
}
