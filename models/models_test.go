package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Organizational unit tests
func TestNewOrganizationalUnit(t *testing.T) {
	unit := NewOrganizationalUnit("Robotics Club", UnitKindClub)

	assert.NotEqual(t, uuid.Nil, unit.ID)
	assert.Equal(t, "Robotics Club", unit.Name)
	assert.Equal(t, UnitKindClub, unit.Kind)
	assert.False(t, unit.CreatedAt.IsZero())
	assert.Equal(t, unit.CreatedAt, unit.UpdatedAt)
}

func TestUnitKind_IsValid(t *testing.T) {
	assert.True(t, UnitKindClub.IsValid())
	assert.True(t, UnitKindBoard.IsValid())
	assert.False(t, UnitKind("society").IsValid())
	assert.False(t, UnitKind("").IsValid())
}

// User tests
func TestNewUser(t *testing.T) {
	user := NewUser("test@example.com", "Test User")

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, RoleMember, user.GlobalRole)
	assert.Equal(t, StatusActive, user.Status)
	assert.False(t, user.IsSuperAdmin())
	assert.False(t, user.IsBanned())
}

func TestUser_RoleAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		role       GlobalRole
		status     UserStatus
		superAdmin bool
		banned     bool
	}{
		{"member", RoleMember, StatusActive, false, false},
		{"club admin", RoleClubAdmin, StatusActive, false, false},
		{"board admin", RoleBoardAdmin, StatusActive, false, false},
		{"super admin", RoleSuperAdmin, StatusActive, true, false},
		{"banned super admin", RoleSuperAdmin, StatusBanned, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{GlobalRole: tt.role, Status: tt.status}
			assert.Equal(t, tt.superAdmin, user.IsSuperAdmin())
			assert.Equal(t, tt.banned, user.IsBanned())
		})
	}
}

func TestGlobalRole_IsValid(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsValid())
	assert.True(t, RoleClubAdmin.IsValid())
	assert.False(t, GlobalRole("root").IsValid())
}

// Capability tests
func TestParseCapability(t *testing.T) {
	for _, c := range AllCapabilities() {
		parsed, err := ParseCapability(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCapability("event")
	assert.Error(t, err)
	_, err = ParseCapability("")
	assert.Error(t, err)
}

func TestCapabilitySet(t *testing.T) {
	set := NewCapabilitySet(CapabilityEvents, CapabilityBlogs)

	assert.True(t, set.Has(CapabilityEvents))
	assert.True(t, set.Has(CapabilityBlogs))
	assert.False(t, set.Has(CapabilityPosts))
	assert.False(t, set.Has(Capability("bogus")))
	assert.Equal(t, []Capability{CapabilityEvents, CapabilityBlogs}, set.Names())

	set = set.With(CapabilityPosts).Without(CapabilityEvents)
	assert.Equal(t, []Capability{CapabilityPosts, CapabilityBlogs}, set.Names())

	assert.Equal(t, NewCapabilitySet(CapabilityPosts), set.Intersect(NewCapabilitySet(CapabilityPosts, CapabilityForums)))
	assert.True(t, CapabilitySet(0).IsEmpty())
	assert.Len(t, AllCapabilitySet.Names(), 7)
	assert.Equal(t, AllCapabilitySet, NewCapabilitySet(AllCapabilities()...))
	assert.Equal(t, NewCapabilitySet(CapabilityForums), NewCapabilitySet(CapabilityForums, Capability("nope")))
}

func TestCapabilitySet_JSON(t *testing.T) {
	set := NewCapabilitySet(CapabilityEvents)

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var flags map[string]bool
	require.NoError(t, json.Unmarshal(data, &flags))
	assert.Len(t, flags, 7)
	assert.True(t, flags["events"])
	assert.False(t, flags["posts"])

	var decoded CapabilitySet
	require.NoError(t, json.Unmarshal([]byte(`{"blogs": true, "posts": false}`), &decoded))
	assert.Equal(t, NewCapabilitySet(CapabilityBlogs), decoded)

	err = json.Unmarshal([]byte(`{"blog": true}`), &decoded)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`["blogs"]`), &decoded)
	assert.Error(t, err)
}

func TestCapabilitySet_SQL(t *testing.T) {
	set := NewCapabilitySet(CapabilityPosts, CapabilityForums)

	v, err := set.Value()
	require.NoError(t, err)

	var scanned CapabilitySet
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, set, scanned)

	require.NoError(t, scanned.Scan([]byte("2")))
	assert.Equal(t, NewCapabilitySet(CapabilityEvents), scanned)

	require.NoError(t, scanned.Scan(int64(0xFF)))
	assert.Equal(t, AllCapabilitySet, scanned)

	assert.Error(t, scanned.Scan("posts"))
}

// POR assignment tests
func TestUnitRef(t *testing.T) {
	clubID := uuid.New()
	boardID := uuid.New()

	club := ClubRef(clubID)
	assert.True(t, club.IsValid())
	assert.Equal(t, clubID, club.UnitID())
	assert.Equal(t, UnitKindClub, club.Kind())

	board := BoardRef(boardID)
	assert.True(t, board.IsValid())
	assert.Equal(t, boardID, board.UnitID())
	assert.Equal(t, UnitKindBoard, board.Kind())

	both := UnitRef{ClubID: &clubID, BoardID: &boardID}
	assert.False(t, both.IsValid())
	assert.Equal(t, uuid.Nil, both.UnitID())
	assert.Equal(t, UnitKind(""), both.Kind())

	neither := UnitRef{}
	assert.False(t, neither.IsValid())
	assert.Equal(t, uuid.Nil, neither.UnitID())
}

func TestPORAssignment_ActiveAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	dayAgo := now.Add(-24 * time.Hour)
	hourAgo := now.Add(-time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name  string
		start time.Time
		end   *time.Time
		want  bool
	}{
		{"open ended, started", dayAgo, nil, true},
		{"expired", dayAgo, &hourAgo, false},
		{"not started", tomorrow, nil, false},
		{"ends in future", dayAgo, &tomorrow, true},
		{"starts exactly now", now, nil, true},
		{"ends exactly now", dayAgo, &now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewPORAssignment(uuid.New(), uuid.New(), ClubRef(uuid.New()), tt.start)
			a.EndDate = tt.end
			assert.Equal(t, tt.want, a.ActiveAt(now))
		})
	}
}

func TestPORAssignment_DatesOrdered(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	after := start.Add(time.Hour)

	a := NewPORAssignment(uuid.New(), uuid.New(), ClubRef(uuid.New()), start)
	assert.True(t, a.DatesOrdered())

	a.EndDate = &after
	assert.True(t, a.DatesOrdered())

	a.EndDate = &start
	assert.True(t, a.DatesOrdered())

	a.EndDate = &before
	assert.False(t, a.DatesOrdered())
}

func TestPORAssignment_Targets(t *testing.T) {
	clubID := uuid.New()
	a := NewPORAssignment(uuid.New(), uuid.New(), ClubRef(clubID), time.Now())

	assert.True(t, a.Targets(UnitKindClub, clubID))
	assert.False(t, a.Targets(UnitKindBoard, clubID))
	assert.False(t, a.Targets(UnitKindClub, uuid.New()))

	a.Unit = UnitRef{}
	assert.False(t, a.Targets("", uuid.Nil))
	assert.Equal(t, "por_assignments", a.TableName())
}

// PrivilegeType tests
func TestPrivilegeType_Grants(t *testing.T) {
	pt := NewPrivilegeType("Secretary", NewCapabilitySet(CapabilityBlogs))

	assert.NotEqual(t, uuid.Nil, pt.ID)
	assert.True(t, pt.Grants(CapabilityBlogs))
	assert.False(t, pt.Grants(CapabilityEvents))
	assert.Equal(t, "privilege_types", pt.TableName())
}

// AuditLog tests
func TestNewAuditLog(t *testing.T) {
	actorID := uuid.New()
	log := NewAuditLog(actorID, AuditActionPORAssigned, "por_assignment")

	assert.NotEqual(t, uuid.Nil, log.ID)
	assert.Equal(t, actorID, log.ActorID)
	assert.Equal(t, AuditActionPORAssigned, log.Action)
	assert.Equal(t, "por_assignment", log.ResourceType)
	assert.False(t, log.Timestamp.IsZero())
}

func TestAuditLog_BuilderMethods(t *testing.T) {
	resourceID := uuid.New()
	unitID := uuid.New()
	subjectID := uuid.New()

	log := NewAuditLog(uuid.New(), AuditActionPORRevoked, "por_assignment").
		WithResource(resourceID).
		WithUnit(unitID).
		WithSubject(subjectID).
		WithDetails(map[string]interface{}{"reason": "term ended"}).
		WithRequest("req-123")

	require.NotNil(t, log.ResourceID)
	assert.Equal(t, resourceID, *log.ResourceID)
	assert.Equal(t, unitID, *log.UnitID)
	assert.Equal(t, subjectID, *log.SubjectID)
	assert.Equal(t, "req-123", log.RequestID)
	assert.JSONEq(t, `{"reason":"term ended"}`, string(log.Details))
}
