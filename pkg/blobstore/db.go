package blobstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/oh-scheduler-go/pkg/database"
)

// DB stores blobs in the state_blobs table.
type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (s *DB) Put(ctx context.Context, key string, data []byte) error {
	blob := database.StateBlob{Key: key, Data: data}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *DB) Create(ctx context.Context, key string, data []byte) error {
	blob := database.StateBlob{Key: key, Data: data}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&blob)
	if res.Error != nil {
		return fmt.Errorf("create %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrExists
	}
	return nil
}

func (s *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var blob database.StateBlob
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return blob.Data, nil
}

func (s *DB) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&database.StateBlob{}).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *DB) Delete(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Where("key = ?", key).Delete(&database.StateBlob{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}
