package repositories

import "errors"

var (
	// ErrNotFound is wrapped by repositories when a lookup or a targeted write matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is wrapped when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced is wrapped when a foreign key prevents a write or delete
	ErrReferenced = errors.New("record is referenced")
)
