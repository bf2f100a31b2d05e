package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/cache"
	"github.com/classforge/assessment-service/internal/events"
	"github.com/classforge/assessment-service/internal/repositories"
	"github.com/classforge/assessment-service/internal/validator"
)

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db           *gorm.DB
	repo         repositories.Repository
	repoManager  repositories.RepositoryManager
	logger       *slog.Logger
	validator    *validator.Validator
	cacheManager *cache.CacheManager
	publisher    events.EventPublisher

	// Service instances
	assessmentService AssessmentService
	attemptService    AttemptService
	analyticsService  AnalyticsService
	exportService     ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// ServiceManagerConfig holds all dependencies the services need
type ServiceManagerConfig struct {
	DB           *gorm.DB
	Repo         repositories.Repository
	RepoManager  repositories.RepositoryManager
	Logger       *slog.Logger
	Validator    *validator.Validator
	CacheManager *cache.CacheManager
	Publisher    events.EventPublisher
}

// NewServiceManager wires all services with shared dependencies
func NewServiceManager(config ServiceManagerConfig) ServiceManager {
	publisher := config.Publisher
	if publisher == nil {
		publisher = events.NewNopEventPublisher()
	}

	return &serviceManager{
		db:           config.DB,
		repo:         config.Repo,
		repoManager:  config.RepoManager,
		logger:       config.Logger,
		validator:    config.Validator,
		cacheManager: config.CacheManager,
		publisher:    publisher,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.assessmentService = NewAssessmentService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
	sm.logger.Info("Assessment service initialized")

	sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
	sm.logger.Info("Attempt service initialized")

	sm.analyticsService = NewAnalyticsService(sm.repo, sm.db, sm.logger, sm.cacheManager, sm.publisher)
	sm.logger.Info("Analytics service initialized")

	sm.exportService = NewExportService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Export service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// ===== SERVICE GETTERS =====

func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.assessmentService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.attemptService
}

func (sm *serviceManager) Analytics() AnalyticsService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.analyticsService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.exportService
}

// ===== HEALTH AND LIFECYCLE =====

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	if sm.repoManager != nil {
		if err := sm.repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
