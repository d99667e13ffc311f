package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/queue"
)

// CachingResolver fronts a ConfigResolver with the shared cache. Token
// lookups happen on every provider webhook, so they are cached hard;
// cache failures degrade to the underlying resolver.
type CachingResolver struct {
	inner  ConfigResolver
	queues *queue.Manager
	logger *logrus.Logger
	ttl    time.Duration
}

func NewCachingResolver(inner ConfigResolver, queues *queue.Manager, logger *logrus.Logger) *CachingResolver {
	return &CachingResolver{
		inner:  inner,
		queues: queues,
		logger: logger,
		ttl:    constants.DefaultInstanceCacheTTLDays * 24 * time.Hour,
	}
}

func (r *CachingResolver) InstanceByID(ctx context.Context, instanceID string) (*models.Instance, error) {
	return r.inner.InstanceByID(ctx, instanceID)
}

func (r *CachingResolver) InstanceByInbox(ctx context.Context, accountID, inboxID int) (*models.Instance, error) {
	return r.inner.InstanceByInbox(ctx, accountID, inboxID)
}

func (r *CachingResolver) InstanceByToken(ctx context.Context, apiToken string) (*models.Instance, error) {
	cacheKey := queue.InstanceTokenCacheKey(apiToken)

	var cached models.Instance
	found, err := r.queues.CacheGet(ctx, cacheKey, &cached)
	if err != nil {
		r.logger.WithError(err).Debug("Instance cache read failed")
	} else if found {
		return &cached, nil
	}

	instance, err := r.inner.InstanceByToken(ctx, apiToken)
	if err != nil {
		return nil, err
	}
	if err := r.queues.CacheSet(ctx, cacheKey, instance, r.ttl); err != nil {
		r.logger.WithError(err).Debug("Instance cache write failed")
	}
	return instance, nil
}

// Invalidate drops the cached entry for one token, for when an instance's
// binding changes.
func (r *CachingResolver) Invalidate(ctx context.Context, apiToken string) {
	if err := r.queues.CacheDelete(ctx, queue.InstanceTokenCacheKey(apiToken)); err != nil {
		r.logger.WithError(err).Debug("Instance cache invalidation failed")
	}
}
