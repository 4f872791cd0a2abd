package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/models"
	"gopkg.in/yaml.v3"
)

// namespace seeds the ids derived from entity keys
var namespace = uuid.MustParse("6f1c4a52-3b8e-4d0a-9c61-2f7d5e8a9b10")

// File is the on-disk layout of a fixture
type File struct {
	Units          []UnitEntry          `yaml:"units"`
	PrivilegeTypes []PrivilegeTypeEntry `yaml:"privilege_types"`
	Users          []UserEntry          `yaml:"users"`
	Assignments    []AssignmentEntry    `yaml:"assignments"`
}

// UnitEntry describes a club or board
type UnitEntry struct {
	Key  string          `yaml:"key"`
	ID   string          `yaml:"id,omitempty"`
	Name string          `yaml:"name"`
	Kind models.UnitKind `yaml:"kind"`
}

// PrivilegeTypeEntry describes a position title and its capability flags
type PrivilegeTypeEntry struct {
	Key          string   `yaml:"key"`
	ID           string   `yaml:"id,omitempty"`
	Title        string   `yaml:"title"`
	Capabilities []string `yaml:"capabilities"`
}

// UserEntry describes a portal member. Role defaults to member, status to active.
type UserEntry struct {
	Key    string            `yaml:"key"`
	ID     string            `yaml:"id,omitempty"`
	Email  string            `yaml:"email"`
	Name   string            `yaml:"name"`
	Role   models.GlobalRole `yaml:"role,omitempty"`
	Status models.UserStatus `yaml:"status,omitempty"`
}

// AssignmentEntry describes a POR assignment. Exactly one of Club and Board
// names the unit by key.
type AssignmentEntry struct {
	ID            string     `yaml:"id,omitempty"`
	User          string     `yaml:"user"`
	PrivilegeType string     `yaml:"privilege_type"`
	Club          string     `yaml:"club,omitempty"`
	Board         string     `yaml:"board,omitempty"`
	Start         time.Time  `yaml:"start"`
	End           *time.Time `yaml:"end,omitempty"`
}

// Fixture is a validated, fully resolved fixture
type Fixture struct {
	Units          map[string]*models.OrganizationalUnit
	PrivilegeTypes map[string]*models.PrivilegeType
	Users          map[string]*models.User
	Assignments    []*models.PORAssignment
}

// Load reads and parses the fixture at path
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a fixture and resolves every reference in it. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	return Build(&file)
}

// Build validates file and converts it into models
func Build(file *File) (*Fixture, error) {
	f := &Fixture{
		Units:          make(map[string]*models.OrganizationalUnit),
		PrivilegeTypes: make(map[string]*models.PrivilegeType),
		Users:          make(map[string]*models.User),
	}
	// Timestamps are fixed so seeded rows do not depend on when the file was loaded
	created := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, entry := range file.Units {
		id, err := entityID("unit", entry.Key, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("units[%d]: %w", i, err)
		}
		if _, dup := f.Units[entry.Key]; dup {
			return nil, fmt.Errorf("units[%d]: duplicate key %q", i, entry.Key)
		}
		if !entry.Kind.IsValid() {
			return nil, fmt.Errorf("units[%d]: invalid kind %q", i, entry.Kind)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = entry.Key
		}
		f.Units[entry.Key] = &models.OrganizationalUnit{
			ID:        id,
			Name:      name,
			Kind:      entry.Kind,
			CreatedAt: created,
			UpdatedAt: created,
		}
	}

	for i, entry := range file.PrivilegeTypes {
		id, err := entityID("privilege_type", entry.Key, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("privilege_types[%d]: %w", i, err)
		}
		if _, dup := f.PrivilegeTypes[entry.Key]; dup {
			return nil, fmt.Errorf("privilege_types[%d]: duplicate key %q", i, entry.Key)
		}
		var caps models.CapabilitySet
		for _, name := range entry.Capabilities {
			c, err := models.ParseCapability(name)
			if err != nil {
				return nil, fmt.Errorf("privilege_types[%d]: %w", i, err)
			}
			caps = caps.With(c)
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = entry.Key
		}
		f.PrivilegeTypes[entry.Key] = &models.PrivilegeType{
			ID:            id,
			PositionTitle: title,
			Capabilities:  caps,
			CreatedAt:     created,
			UpdatedAt:     created,
		}
	}

	for i, entry := range file.Users {
		id, err := entityID("user", entry.Key, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		if _, dup := f.Users[entry.Key]; dup {
			return nil, fmt.Errorf("users[%d]: duplicate key %q", i, entry.Key)
		}
		role := entry.Role
		if role == "" {
			role = models.RoleMember
		}
		if !role.IsValid() {
			return nil, fmt.Errorf("users[%d]: invalid role %q", i, role)
		}
		status := entry.Status
		if status == "" {
			status = models.StatusActive
		}
		if status != models.StatusActive && status != models.StatusBanned {
			return nil, fmt.Errorf("users[%d]: invalid status %q", i, status)
		}
		email := entry.Email
		if email == "" {
			email = entry.Key + "@fixture.local"
		}
		f.Users[entry.Key] = &models.User{
			ID:         id,
			Email:      email,
			Name:       entry.Name,
			GlobalRole: role,
			Status:     status,
			CreatedAt:  created,
			UpdatedAt:  created,
		}
	}

	for i, entry := range file.Assignments {
		a, err := f.buildAssignment(i, entry, created)
		if err != nil {
			return nil, fmt.Errorf("assignments[%d]: %w", i, err)
		}
		f.Assignments = append(f.Assignments, a)
	}

	return f, nil
}

func (f *Fixture) buildAssignment(i int, entry AssignmentEntry, created time.Time) (*models.PORAssignment, error) {
	user, ok := f.Users[entry.User]
	if !ok {
		return nil, fmt.Errorf("unknown user %q", entry.User)
	}
	pt, ok := f.PrivilegeTypes[entry.PrivilegeType]
	if !ok {
		return nil, fmt.Errorf("unknown privilege type %q", entry.PrivilegeType)
	}

	var ref models.UnitRef
	switch {
	case entry.Club != "" && entry.Board != "":
		return nil, errors.New("exactly one of club and board is required, got both")
	case entry.Club != "":
		unit, ok := f.Units[entry.Club]
		if !ok || unit.Kind != models.UnitKindClub {
			return nil, fmt.Errorf("unknown club %q", entry.Club)
		}
		ref = models.ClubRef(unit.ID)
	case entry.Board != "":
		unit, ok := f.Units[entry.Board]
		if !ok || unit.Kind != models.UnitKindBoard {
			return nil, fmt.Errorf("unknown board %q", entry.Board)
		}
		ref = models.BoardRef(unit.ID)
	default:
		return nil, errors.New("exactly one of club and board is required")
	}

	if entry.Start.IsZero() {
		return nil, errors.New("start is required")
	}

	key := fmt.Sprintf("%s/%s/%d", entry.User, entry.PrivilegeType, i)
	id, err := entityID("assignment", key, entry.ID)
	if err != nil {
		return nil, err
	}

	a := &models.PORAssignment{
		ID:              id,
		UserID:          user.ID,
		PrivilegeTypeID: pt.ID,
		Unit:            ref,
		StartDate:       entry.Start,
		EndDate:         entry.End,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	if !a.DatesOrdered() {
		return nil, errors.New("start is after end")
	}
	return a, nil
}

// entityID returns the explicit id when set, else one derived from kind and key
func entityID(kind, key, explicit string) (uuid.UUID, error) {
	if key == "" {
		return uuid.Nil, errors.New("key is required")
	}
	if explicit != "" {
		id, err := uuid.Parse(explicit)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid id %q", explicit)
		}
		return id, nil
	}
	return uuid.NewSHA1(namespace, []byte(kind+":"+key)), nil
}

// User looks up a user by key or id
func (f *Fixture) User(ref string) (*models.User, error) {
	if u, ok := f.Users[ref]; ok {
		return u, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		for _, u := range f.Users {
			if u.ID == id {
				return u, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown user %q", ref)
}

// Unit looks up a club or board by key or id
func (f *Fixture) Unit(ref string) (*models.OrganizationalUnit, error) {
	if u, ok := f.Units[ref]; ok {
		return u, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		for _, u := range f.Units {
			if u.ID == id {
				return u, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown unit %q", ref)
}

// Snapshot builds the identity snapshot of the user named by ref
func (f *Fixture) Snapshot(ref string, resolvedAt time.Time) (*authz.Snapshot, error) {
	user, err := f.User(ref)
	if err != nil {
		return nil, err
	}

	typesByID := make(map[uuid.UUID]*models.PrivilegeType, len(f.PrivilegeTypes))
	for _, pt := range f.PrivilegeTypes {
		typesByID[pt.ID] = pt
	}

	var grants []authz.Grant
	for _, a := range f.Assignments {
		if a.UserID != user.ID {
			continue
		}
		grants = append(grants, authz.Grant{Assignment: *a, PrivilegeType: *typesByID[a.PrivilegeTypeID]})
	}

	return authz.NewSnapshot(user, grants, resolvedAt), nil
}
