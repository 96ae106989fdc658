package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"community-hub/core/apperr"
	"community-hub/core/cache"
	"community-hub/feature/settings/models"
)

// Service manages the per-tenant attribute registry and the platform
// priority order consumed by the member feature.
type Service struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *zap.Logger
}

func NewService(db *gorm.DB, c *cache.Cache, log *zap.Logger) *Service {
	return &Service{db: db, cache: c, log: log}
}

func prioritiesCacheKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("settings:priorities:%s", tenantID)
}

// PlatformPriorities returns the tenant's ordered platform list,
// reading through the cache. A tenant without settings gets an empty
// list, not an error.
func (s *Service) PlatformPriorities(ctx context.Context, tenantID uuid.UUID) (models.Priorities, error) {
	key := prioritiesCacheKey(tenantID)

	var cached models.Priorities
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("priorities cache read failed", zap.Error(err))
	}

	var setting models.TenantSetting
	err = s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Priorities{}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, setting.AttributePriorities); err != nil {
		s.log.Warn("priorities cache write failed", zap.Error(err))
	}
	return setting.AttributePriorities, nil
}

// SetPlatformPriorities upserts the tenant's priority order and drops
// the cached copy.
func (s *Service) SetPlatformPriorities(ctx context.Context, tenantID uuid.UUID, priorities models.Priorities) error {
	setting := models.TenantSetting{
		TenantID:            tenantID,
		AttributePriorities: priorities,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"attribute_priorities", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, prioritiesCacheKey(tenantID)); err != nil {
		s.log.Warn("priorities cache invalidation failed", zap.Error(err))
	}
	return nil
}

// EnsureAttributes registers the given attribute settings, skipping
// names the tenant already has. Integrations call this on connect with
// their predefined attributes.
func (s *Service) EnsureAttributes(ctx context.Context, tenantID uuid.UUID, attributes []models.AttributeSetting) error {
	for i := range attributes {
		if !models.ValidAttributeType(attributes[i].Type) {
			return apperr.NewValidation("invalid attribute type: %s", attributes[i].Type)
		}
		attributes[i].TenantID = tenantID
	}
	if len(attributes) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&attributes).Error
}

// ListAttributes returns the tenant's attribute registry ordered by name.
func (s *Service) ListAttributes(ctx context.Context, tenantID uuid.UUID) ([]models.AttributeSetting, error) {
	var out []models.AttributeSetting
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name asc").
		Find(&out).Error
	return out, err
}

// DestroyAttribute removes a registry entry. Predefined attributes are
// marked non-deletable and refuse removal.
func (s *Service) DestroyAttribute(ctx context.Context, tenantID uuid.UUID, name string) error {
	var setting models.AttributeSetting
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&setting).Error
	if err != nil {
		return apperr.TranslateDB(err, "attribute setting", name, "")
	}
	if !setting.CanDelete {
		return apperr.NewValidation("attribute %s cannot be deleted", name)
	}
	return s.db.WithContext(ctx).Delete(&setting).Error
}
