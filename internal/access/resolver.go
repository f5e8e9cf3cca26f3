package access

import (
	"context"
	"fmt"

	"kasbook/internal/core"
)

// Resolver computes the (scope, owner) pair every data operation is
// filtered by. It is the single data-isolation boundary: toggling the
// share setting changes the visible dataset for all allowed users on
// their next operation, with no row migration.
type Resolver struct {
	store   Store
	adminID int64
}

func NewResolver(store Store, adminID int64) *Resolver {
	return &Resolver{store: store, adminID: adminID}
}

// Resolve assumes the identity already passed the access controller.
// Public mode always yields a private partition per identity; otherwise
// the share setting selects between the shared partition (owned by the
// primary admin id) and a private one.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (core.ScopeKey, error) {
	mode, err := r.store.GetSetting(ctx, core.SettingAccessMode)
	if err != nil {
		return core.ScopeKey{}, fmt.Errorf("read access mode: %w", err)
	}
	if core.AccessMode(mode) == core.AccessPublic {
		return core.ScopeKey{Scope: core.ScopePrivate, Owner: userID}, nil
	}

	share, err := r.store.GetSetting(ctx, core.SettingShareEnabled)
	if err != nil {
		return core.ScopeKey{}, fmt.Errorf("read share setting: %w", err)
	}
	if share == "1" {
		return core.ScopeKey{Scope: core.ScopeShared, Owner: r.adminID}, nil
	}
	return core.ScopeKey{Scope: core.ScopePrivate, Owner: userID}, nil
}
