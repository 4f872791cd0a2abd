package fixture

import (
	"context"
	"fmt"
	"sort"

	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/services"
)

// Counts reports how many rows Seed wrote
type Counts struct {
	Units          int
	PrivilegeTypes int
	Users          int
	Assignments    int
}

// Seed writes every entity of f in a single transaction. Nothing is written if any insert fails.
func Seed(ctx context.Context, repos *repositories.Repositories, txMgr repositories.TransactionManager, f *Fixture) (Counts, error) {
	var counts Counts
	err := services.WithTransaction(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		units := repos.Units.WithTx(tx)
		for _, key := range sortedKeys(f.Units) {
			if err := units.Create(ctx, f.Units[key]); err != nil {
				return fmt.Errorf("unit %q: %w", key, err)
			}
			counts.Units++
		}

		types := repos.PrivilegeTypes.WithTx(tx)
		for _, key := range sortedKeys(f.PrivilegeTypes) {
			if err := types.Create(ctx, f.PrivilegeTypes[key]); err != nil {
				return fmt.Errorf("privilege type %q: %w", key, err)
			}
			counts.PrivilegeTypes++
		}

		users := repos.Users.WithTx(tx)
		for _, key := range sortedKeys(f.Users) {
			if err := users.Create(ctx, f.Users[key]); err != nil {
				return fmt.Errorf("user %q: %w", key, err)
			}
			counts.Users++
		}

		assignments := repos.Assignments.WithTx(tx)
		for i, a := range f.Assignments {
			if err := assignments.Create(ctx, a); err != nil {
				return fmt.Errorf("assignment %d: %w", i, err)
			}
			counts.Assignments++
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}
	return counts, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

