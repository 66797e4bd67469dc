package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
)

// tokenCacheTTL bounds how long a resolved token is trusted without
// rechecking the table, so a revocation on another instance takes effect.
const tokenCacheTTL = time.Minute

type cachedToken struct {
	userID     string
	validUntil time.Time
}

// tokenStore keeps hashed bearer tokens in the database. The in-memory map
// only short-circuits repeated lookups.
type tokenStore struct {
	db    *gorm.DB
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	cache map[string]cachedToken
}

// NewTokenStore creates a TokenStorer issuing tokens valid for ttl.
func NewTokenStore(db *gorm.DB, ttl time.Duration) TokenStorer {
	return &tokenStore{
		db:    db,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cachedToken),
	}
}

// HashToken returns the SHA-256 hex digest of a token string.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Issue creates a random token for userID and stores its hash.
func (s *tokenStore) Issue(userID string) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	token := hex.EncodeToString(raw)
	expiresAt := s.now().Add(s.ttl).UTC()

	row := &models.AuthToken{
		TokenHash: HashToken(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	if err := s.db.Create(row).Error; err != nil {
		return "", time.Time{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return token, expiresAt, nil
}

// Resolve returns the user id owning token, or ErrInvalidToken.
func (s *tokenStore) Resolve(token string) (string, error) {
	if token == "" {
		return "", apperrors.ErrInvalidToken
	}
	hash := HashToken(token)
	now := s.now()

	s.mu.RLock()
	entry, ok := s.cache[hash]
	s.mu.RUnlock()
	if ok && now.Before(entry.validUntil) {
		return entry.userID, nil
	}

	var row models.AuthToken
	if err := s.db.Where("token_hash = ? AND expires_at > ?", hash, now.UTC()).First(&row).Error; err != nil {
		s.forget(hash)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrInvalidToken
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	validUntil := now.Add(tokenCacheTTL)
	if row.ExpiresAt.Before(validUntil) {
		validUntil = row.ExpiresAt
	}
	s.mu.Lock()
	s.cache[hash] = cachedToken{userID: row.UserID, validUntil: validUntil}
	s.mu.Unlock()

	return row.UserID, nil
}

// Revoke deletes token. Revoking an unknown token is not an error.
func (s *tokenStore) Revoke(token string) error {
	hash := HashToken(token)
	s.forget(hash)
	if err := s.db.Unscoped().Where("token_hash = ?", hash).Delete(&models.AuthToken{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// PurgeExpired removes expired tokens and returns how many were deleted.
func (s *tokenStore) PurgeExpired() (int64, error) {
	now := s.now()
	res := s.db.Unscoped().Where("expires_at <= ?", now.UTC()).Delete(&models.AuthToken{})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}

	s.mu.Lock()
	for hash, entry := range s.cache {
		if !now.Before(entry.validUntil) {
			delete(s.cache, hash)
		}
	}
	s.mu.Unlock()

	return res.RowsAffected, nil
}

func (s *tokenStore) forget(hash string) {
	s.mu.Lock()
	delete(s.cache, hash)
	s.mu.Unlock()
}
