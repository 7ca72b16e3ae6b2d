package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when a user lookup does not match any row.
var ErrUserNotFound = errors.New("user not found")

// Service provides user lookups and permission checks. It is the permission
// oracle consumed by the submission engine: stage authorization and inbox
// membership are both answered from the permission set it returns.
//
// When a redis client is provided, permission sets are cached with a short
// TTL; a nil client disables caching and every call hits the database.
type Service struct {
	db       *gorm.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewService creates a new accounts Service. cache may be nil.
func NewService(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	var user User
	result := s.db.WithContext(ctx).First(&user, "id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", result.Error)
	}
	return &user, nil
}

// HasPermission reports whether the user holds the given permission codename.
func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	perms, err := s.PermissionSet(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := perms[permission]
	return ok, nil
}

// PermissionSet returns the full set of permission codenames held by the user.
// The result is safe to use for membership tests against stage targets.
func (s *Service) PermissionSet(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	if cached, ok := s.cachedPermissions(ctx, userID); ok {
		return cached, nil
	}

	var rows []UserPermission
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", result.Error)
	}

	perms := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		perms[row.Permission] = struct{}{}
	}

	s.storePermissions(ctx, userID, perms)
	return perms, nil
}

// Grant adds a permission to a user and invalidates any cached set.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, permission string) error {
	row := UserPermission{UserID: userID, Permission: permission}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) cacheKey(userID uuid.UUID) string {
	return "casedesk:perms:" + userID.String()
}

func (s *Service) cachedPermissions(ctx context.Context, userID uuid.UUID) (map[string]struct{}, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, s.cacheKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("permission cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		slog.Warn("permission cache entry corrupted, ignoring", "user_id", userID, "error", err)
		return nil, false
	}

	perms := make(map[string]struct{}, len(list))
	for _, p := range list {
		perms[p] = struct{}{}
	}
	return perms, true
}

func (s *Service) storePermissions(ctx context.Context, userID uuid.UUID, perms map[string]struct{}) {
	if s.cache == nil {
		return
	}

	list := make([]string, 0, len(perms))
	for p := range perms {
		list = append(list, p)
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, s.cacheKey(userID), raw, s.cacheTTL).Err(); err != nil {
		slog.Warn("permission cache write failed", "user_id", userID, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(userID)).Err(); err != nil {
		slog.Warn("permission cache invalidation failed", "user_id", userID, "error", err)
	}
}
