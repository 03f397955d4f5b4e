package identity

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// clientIdentity is one namespaced key/value pair.
type clientIdentity struct {
	Key       string `gorm:"column:ident_key;primaryKey;size:191"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (clientIdentity) TableName() string { return "client_identities" }

type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the identity table on db and returns a store over it.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&clientIdentity{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) get(ctx context.Context, key string) (string, bool, error) {
	var row clientIdentity
	err := s.db.WithContext(ctx).Where("ident_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (s *SQLStore) put(ctx context.Context, key, value string) error {
	row := clientIdentity{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ident_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLStore) del(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("ident_key = ?", key).Delete(&clientIdentity{}).Error
}

func (s *SQLStore) Resolve(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySession
	}
	return s.get(ctx, PlayerKey(sessionID))
}

func (s *SQLStore) Persist(ctx context.Context, sessionID, playerID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return s.put(ctx, PlayerKey(sessionID), playerID)
}

func (s *SQLStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return s.del(ctx, PlayerKey(sessionID))
}

func (s *SQLStore) PersistCredential(ctx context.Context, sessionID, token string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return s.put(ctx, CredentialKey(sessionID), token)
}

func (s *SQLStore) Credential(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySession
	}
	return s.get(ctx, CredentialKey(sessionID))
}

func (s *SQLStore) ClearCredential(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return s.del(ctx, CredentialKey(sessionID))
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
