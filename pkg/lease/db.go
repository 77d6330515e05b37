package lease

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/oh-scheduler-go/pkg/database"
)

// DB is a Locker backed by the chain_leases table.
type DB struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDB(db *gorm.DB) *DB {
	return &DB{db: db, now: time.Now}
}

func (d *DB) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	now := d.now().UTC()
	l := newLease(name, ttl, func(ctx context.Context, token string) error {
		res := d.db.WithContext(ctx).Where("name = ? AND token = ?", name, token).Delete(&database.ChainLease{})
		if res.Error != nil {
			return fmt.Errorf("release %s: %w", name, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrLeaseLost, name)
		}
		return nil
	})
	row := database.ChainLease{Name: name, Token: l.Token, ExpiresAt: now.Add(ttl)}

	// Insert, or take over a row whose lease has expired.
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lt{Column: clause.Column{Table: "chain_leases", Name: "expires_at"}, Value: now},
		}},
	}).Create(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, name)
	}
	return l, nil
}
