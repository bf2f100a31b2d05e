package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateAssessmentCache drops every cache entry touched by a write
// to one assessment, including its analytics snapshot.
func InvalidateAssessmentCache(ctx context.Context, cm *CacheManager, assessmentID, creatorID string) {
	SafeDelete(ctx, cm.Assessment, fmt.Sprintf("id:%s", assessmentID))
	SafeDelete(ctx, cm.Analytics, fmt.Sprintf("assessment:%s", assessmentID))

	SafeInvalidatePattern(ctx, cm.Assessment, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Assessment, "shared:*")
	SafeInvalidatePattern(ctx, cm.Assessment, "list:*")
}

// InvalidateAnalyticsCache drops the analytics snapshot for one
// assessment, typically after new attempts complete.
func InvalidateAnalyticsCache(ctx context.Context, cm *CacheManager, assessmentID string) {
	SafeDelete(ctx, cm.Analytics, fmt.Sprintf("assessment:%s", assessmentID))
}
