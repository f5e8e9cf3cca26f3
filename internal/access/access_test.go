package access

import (
	"context"
	"strings"
	"testing"

	"kasbook/internal/core"
)

const adminID = int64(111)

// fakeStore is an in-memory Store for pure access-layer tests.
type fakeStore struct {
	settings map[string]string
	users    map[int64]core.AuthorizedUser
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: map[string]string{
			core.SettingAccessMode:   string(core.AccessAdminOnly),
			core.SettingShareEnabled: "0",
		},
		users: map[int64]core.AuthorizedUser{},
	}
}

func (f *fakeStore) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := f.settings[key]
	if !ok {
		return "", core.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) SetSetting(_ context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func (f *fakeStore) UserExists(_ context.Context, id int64) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeStore) AddUser(_ context.Context, u core.AuthorizedUser) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) RemoveUser(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]core.AuthorizedUser, error) {
	var out []core.AuthorizedUser
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func TestControllerAllowed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mode    core.AccessMode
		listed  bool
		userID  int64
		allowed bool
	}{
		{"admin_only admits primary admin", core.AccessAdminOnly, false, adminID, true},
		{"admin_only rejects stranger", core.AccessAdminOnly, false, 222, false},
		{"admin_only admits listed user", core.AccessAdminOnly, true, 222, true},
		{"allowed_list admits listed user", core.AccessAllowedList, true, 222, true},
		{"allowed_list rejects stranger", core.AccessAllowedList, false, 222, false},
		{"public admits anyone", core.AccessPublic, false, 333, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.settings[core.SettingAccessMode] = string(tt.mode)
			if tt.listed {
				store.users[tt.userID] = core.AuthorizedUser{ID: tt.userID}
			}
			ctrl := NewController(store, adminID, "boss")

			got, err := ctrl.Allowed(ctx, tt.userID)
			if err != nil {
				t.Fatalf("Allowed: %v", err)
			}
			if got != tt.allowed {
				t.Fatalf("expected allowed=%v, got %v", tt.allowed, got)
			}
		})
	}
}

func TestControllerSetModeRejectsUnknown(t *testing.T) {
	ctrl := NewController(newFakeStore(), adminID, "boss")
	if err := ctrl.SetMode(context.Background(), "vip_only"); err == nil {
		t.Fatal("expected error for unknown access mode")
	}
}

func TestDeniedMessageCarriesNumericID(t *testing.T) {
	ctrl := NewController(newFakeStore(), adminID, "boss")

	msg := ctrl.DeniedMessage(987654, "guest")
	if !strings.Contains(msg, "987654") {
		t.Fatalf("denied message must contain the caller's numeric id: %q", msg)
	}
	if !strings.Contains(msg, "@guest") || !strings.Contains(msg, "@boss") {
		t.Fatalf("denied message must carry handle and admin username: %q", msg)
	}

	// missing handle gets the fixed placeholder, never an empty mention
	msg = ctrl.DeniedMessage(987654, " ")
	if strings.Contains(msg, "@\n") {
		t.Fatalf("empty handle rendered badly: %q", msg)
	}
}

func TestResolverRules(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mode   core.AccessMode
		share  string
		userID int64
		want   core.ScopeKey
	}{
		{"public is always private per identity", core.AccessPublic, "1", 42,
			core.ScopeKey{Scope: core.ScopePrivate, Owner: 42}},
		{"admin_only with share goes shared", core.AccessAdminOnly, "1", 42,
			core.ScopeKey{Scope: core.ScopeShared, Owner: adminID}},
		{"admin_only without share stays private", core.AccessAdminOnly, "0", 42,
			core.ScopeKey{Scope: core.ScopePrivate, Owner: 42}},
		{"allowed_list with share goes shared", core.AccessAllowedList, "1", 42,
			core.ScopeKey{Scope: core.ScopeShared, Owner: adminID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.settings[core.SettingAccessMode] = string(tt.mode)
			store.settings[core.SettingShareEnabled] = tt.share
			resolver := NewResolver(store, adminID)

			got, err := resolver.Resolve(ctx, tt.userID)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}

			// referential transparency: repeated calls agree
			again, err := resolver.Resolve(ctx, tt.userID)
			if err != nil || again != got {
				t.Fatalf("Resolve is not stable: %+v vs %+v (err=%v)", got, again, err)
			}
		})
	}
}
