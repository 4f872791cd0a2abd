// Package testutil wires services against repository mocks for package tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/repositories/mocks"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/services/audit"
	"github.com/upb/club-authz/services/permission"
	"go.uber.org/zap"
)

// FixedNow is the initial evaluation instant of every Env
var FixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock reading start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current instant
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Env bundles mocked repositories with real permission and audit services
type Env struct {
	Repos *repositories.Repositories
	Mocks *mocks.Set
	Perms *permission.Service
	Audit *audit.AuditService
	Clock *Clock
	Admin *models.User
	Actor services.Actor
}

// NewEnv returns an Env whose Actor is an active super admin.
// The audit service is started and stopped with the test.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	repos, set := mocks.Repositories()
	clock := NewClock(FixedNow)
	evaluator := authz.NewEvaluator(zap.NewNop(), authz.WithClock(clock.Now))
	perms := permission.NewService(repos, evaluator, permission.NewSnapshotCache(100, time.Minute), zap.NewNop())

	set.AcceptAudit()
	auditSvc := audit.NewAuditService(set.AuditLogs, zap.NewNop(), audit.DefaultConfig())
	require.NoError(t, auditSvc.Start())
	t.Cleanup(func() {
		_ = auditSvc.Stop(5 * time.Second)
	})

	admin := models.NewUser("admin@example.com", "Admin")
	admin.GlobalRole = models.RoleSuperAdmin
	set.StubUser(admin)

	return &Env{
		Repos: repos,
		Mocks: set,
		Perms: perms,
		Audit: auditSvc,
		Clock: clock,
		Admin: admin,
		Actor: services.NewActor(admin.ID, "req-test"),
	}
}

// Member registers an active member and returns an Actor for it
func (e *Env) Member() services.Actor {
	user := models.NewUser("member@example.com", "Member")
	e.Mocks.StubUser(user)
	return services.NewActor(user.ID, "req-member")
}

// AuditActions waits for n audit inserts and returns their actions
func (e *Env) AuditActions(t *testing.T, n int) []models.AuditAction {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(e.Mocks.AuditLogs.Inserted()) >= n
	}, 2*time.Second, 10*time.Millisecond)

	logs := e.Mocks.AuditLogs.Inserted()
	actions := make([]models.AuditAction, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}
