package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/services"
	"go.uber.org/zap"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService handles asynchronous audit logging of administrative writes
type AuditService struct {
	auditRepo    repositories.AuditRepository
	logger       *zap.Logger
	eventChan    chan *AuditEvent
	workerCount  int
	bufferSize   int
	writeTimeout time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	started      bool
	mu           sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize   int           // Size of the event buffer channel
	WorkerCount  int           // Number of concurrent workers
	WriteTimeout time.Duration // Timeout of a single insert
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		WorkerCount:  2,
		WriteTimeout: 5 * time.Second,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	return &AuditService{
		auditRepo:    auditRepo,
		logger:       logger,
		eventChan:    make(chan *AuditEvent, config.BufferSize),
		workerCount:  config.WorkerCount,
		bufferSize:   config.BufferSize,
		writeTimeout: config.WriteTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("audit service already stopped")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for pending ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.started = false
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an event without blocking. A full buffer drops the event.
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("actor_id", event.Log.ActorID.String()))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking queues an event, waiting for buffer space until ctx is done
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("actor_id", event.Log.ActorID.String()))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent writes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int  `json:"buffer_size"`
	PendingEvents int  `json:"pending_events"`
	WorkerCount   int  `json:"worker_count"`
	Started       bool `json:"started"`
}

// Convenience methods for logging administrative writes

func (s *AuditService) record(actor services.Actor, action models.AuditAction, resourceType string, build func(*models.AuditLog)) error {
	log := models.NewAuditLog(actor.UserID, action, resourceType).WithRequest(actor.RequestID)
	build(log)
	return s.LogEvent(&AuditEvent{Log: log})
}

func assignmentDetails(a *models.PORAssignment) map[string]interface{} {
	details := map[string]interface{}{
		"privilege_type_id": a.PrivilegeTypeID,
		"unit_kind":         a.Unit.Kind(),
		"start_date":        a.StartDate,
	}
	if a.EndDate != nil {
		details["end_date"] = *a.EndDate
	}
	return details
}

// LogPORAssigned logs the creation of a POR assignment
func (s *AuditService) LogPORAssigned(actor services.Actor, a *models.PORAssignment) error {
	return s.record(actor, models.AuditActionPORAssigned, "por_assignment", func(log *models.AuditLog) {
		log.WithResource(a.ID).WithSubject(a.UserID).WithUnit(a.Unit.UnitID()).WithDetails(assignmentDetails(a))
	})
}

// LogPORUpdated logs an edit of a POR assignment with its previous state
func (s *AuditService) LogPORUpdated(actor services.Actor, before, after *models.PORAssignment) error {
	return s.record(actor, models.AuditActionPORUpdated, "por_assignment", func(log *models.AuditLog) {
		log.WithResource(after.ID).WithSubject(after.UserID).WithUnit(after.Unit.UnitID()).WithDetails(map[string]interface{}{
			"before": assignmentDetails(before),
			"after":  assignmentDetails(after),
		})
	})
}

// LogPORRevoked logs the soft revocation of a POR assignment
func (s *AuditService) LogPORRevoked(actor services.Actor, a *models.PORAssignment) error {
	return s.record(actor, models.AuditActionPORRevoked, "por_assignment", func(log *models.AuditLog) {
		log.WithResource(a.ID).WithSubject(a.UserID).WithUnit(a.Unit.UnitID()).WithDetails(assignmentDetails(a))
	})
}

// LogPORDeleted logs the hard deletion of a POR assignment
func (s *AuditService) LogPORDeleted(actor services.Actor, a *models.PORAssignment) error {
	return s.record(actor, models.AuditActionPORDeleted, "por_assignment", func(log *models.AuditLog) {
		log.WithResource(a.ID).WithSubject(a.UserID).WithUnit(a.Unit.UnitID()).WithDetails(assignmentDetails(a))
	})
}

// LogPrivilegeTypeCreated logs the creation of a privilege type
func (s *AuditService) LogPrivilegeTypeCreated(actor services.Actor, pt *models.PrivilegeType) error {
	return s.record(actor, models.AuditActionPrivilegeTypeCreated, "privilege_type", func(log *models.AuditLog) {
		log.WithResource(pt.ID).WithDetails(map[string]interface{}{
			"position_title": pt.PositionTitle,
			"capabilities":   pt.Capabilities.Names(),
		})
	})
}

// LogPrivilegeTypeUpdated logs a change of title or capabilities
func (s *AuditService) LogPrivilegeTypeUpdated(actor services.Actor, before, after *models.PrivilegeType) error {
	return s.record(actor, models.AuditActionPrivilegeTypeUpdated, "privilege_type", func(log *models.AuditLog) {
		log.WithResource(after.ID).WithDetails(map[string]interface{}{
			"position_title":        after.PositionTitle,
			"capabilities":          after.Capabilities.Names(),
			"previous_title":        before.PositionTitle,
			"previous_capabilities": before.Capabilities.Names(),
		})
	})
}

// LogPrivilegeTypeDeleted logs the deletion of a privilege type
func (s *AuditService) LogPrivilegeTypeDeleted(actor services.Actor, pt *models.PrivilegeType) error {
	return s.record(actor, models.AuditActionPrivilegeTypeDeleted, "privilege_type", func(log *models.AuditLog) {
		log.WithResource(pt.ID).WithDetails(map[string]interface{}{
			"position_title": pt.PositionTitle,
		})
	})
}

// LogUnitCreated logs the creation of a club or board
func (s *AuditService) LogUnitCreated(actor services.Actor, unit *models.OrganizationalUnit) error {
	return s.record(actor, models.AuditActionUnitCreated, "unit", func(log *models.AuditLog) {
		log.WithResource(unit.ID).WithUnit(unit.ID).WithDetails(map[string]interface{}{
			"name": unit.Name,
			"kind": unit.Kind,
		})
	})
}

// LogUnitRenamed logs a rename of a club or board
func (s *AuditService) LogUnitRenamed(actor services.Actor, unit *models.OrganizationalUnit, previousName string) error {
	return s.record(actor, models.AuditActionUnitRenamed, "unit", func(log *models.AuditLog) {
		log.WithResource(unit.ID).WithUnit(unit.ID).WithDetails(map[string]interface{}{
			"name":          unit.Name,
			"previous_name": previousName,
		})
	})
}

// LogRoleChanged logs a change of global role
func (s *AuditService) LogRoleChanged(actor services.Actor, user *models.User, previous models.GlobalRole) error {
	return s.record(actor, models.AuditActionRoleChanged, "user", func(log *models.AuditLog) {
		log.WithResource(user.ID).WithSubject(user.ID).WithDetails(map[string]interface{}{
			"global_role":   user.GlobalRole,
			"previous_role": previous,
		})
	})
}

// LogUserBanned logs a ban
func (s *AuditService) LogUserBanned(actor services.Actor, user *models.User) error {
	return s.record(actor, models.AuditActionUserBanned, "user", func(log *models.AuditLog) {
		log.WithResource(user.ID).WithSubject(user.ID)
	})
}

// LogUserUnbanned logs the lifting of a ban
func (s *AuditService) LogUserUnbanned(actor services.Actor, user *models.User) error {
	return s.record(actor, models.AuditActionUserUnbanned, "user", func(log *models.AuditLog) {
		log.WithResource(user.ID).WithSubject(user.ID)
	})
}
