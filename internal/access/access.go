// Package access gates inbound identities and resolves the data
// partition their reads and writes land in.
package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kasbook/internal/core"
)

// Store is the slice of the persistence engine the access layer needs.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	UserExists(ctx context.Context, id int64) (bool, error)
	AddUser(ctx context.Context, u core.AuthorizedUser) error
	RemoveUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]core.AuthorizedUser, error)
}

// Controller decides whether an identity may use the bot at all, and
// carries the primary-admin-only settings surface.
type Controller struct {
	store         Store
	adminID       int64
	adminUsername string
}

func NewController(store Store, adminID int64, adminUsername string) *Controller {
	return &Controller{store: store, adminID: adminID, adminUsername: adminUsername}
}

// Allowed reports whether the identity may issue requests under the
// current access mode. Pure read of settings and the user list.
func (c *Controller) Allowed(ctx context.Context, userID int64) (bool, error) {
	mode, err := c.Mode(ctx)
	if err != nil {
		return false, err
	}
	if mode == core.AccessPublic {
		return true, nil
	}
	// admin_only and allowed_list share the same predicate; the modes
	// differ only in how the scope resolver treats them.
	return c.isAdminOrListed(ctx, userID)
}

func (c *Controller) isAdminOrListed(ctx context.Context, userID int64) (bool, error) {
	if userID == c.adminID {
		return true, nil
	}
	return c.store.UserExists(ctx, userID)
}

// IsPrimaryAdmin reports whether the identity is the configured primary
// admin, the only identity allowed to change settings.
func (c *Controller) IsPrimaryAdmin(userID int64) bool {
	return userID == c.adminID
}

func (c *Controller) Mode(ctx context.Context) (core.AccessMode, error) {
	v, err := c.store.GetSetting(ctx, core.SettingAccessMode)
	if err != nil {
		return "", fmt.Errorf("read access mode: %w", err)
	}
	return core.AccessMode(v), nil
}

func (c *Controller) SetMode(ctx context.Context, mode core.AccessMode) error {
	if !mode.Valid() {
		return fmt.Errorf("access mode %q: %w", mode, core.ErrInvalidKind)
	}
	return c.store.SetSetting(ctx, core.SettingAccessMode, string(mode))
}

func (c *Controller) ShareEnabled(ctx context.Context) (bool, error) {
	v, err := c.store.GetSetting(ctx, core.SettingShareEnabled)
	if err != nil {
		return false, fmt.Errorf("read share setting: %w", err)
	}
	return v == "1", nil
}

func (c *Controller) SetShareEnabled(ctx context.Context, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	return c.store.SetSetting(ctx, core.SettingShareEnabled, v)
}

// AddAuthorizedUser whitelists an identity. Primary-admin only; callers
// must check IsPrimaryAdmin first.
func (c *Controller) AddAuthorizedUser(ctx context.Context, id int64, name string) error {
	return c.store.AddUser(ctx, core.AuthorizedUser{ID: id, Name: name, AddedAt: time.Now()})
}

func (c *Controller) RemoveAuthorizedUser(ctx context.Context, id int64) error {
	return c.store.RemoveUser(ctx, id)
}

func (c *Controller) ListAuthorizedUsers(ctx context.Context) ([]core.AuthorizedUser, error) {
	return c.store.ListUsers(ctx)
}

// DeniedMessage renders the fixed request-access template. It always
// carries the caller's numeric id so the primary admin can whitelist
// them from the message alone.
func (c *Controller) DeniedMessage(userID int64, username string) string {
	shown := strings.TrimSpace(username)
	if shown == "" {
		shown = "ندارد"
	}
	return fmt.Sprintf(
		"❌ شما هنوز به عنوان فروشنده/ادمین ثبت نشده‌اید.\n\n"+
			"🆔 آیدی عددی شما: %d\n"+
			"👤 یوزرنیم شما: @%s\n\n"+
			"این پیام را برای ادمین اصلی ارسال کنید تا شما را اضافه کند.\n"+
			"ادمین اصلی: @%s",
		userID, shown, c.adminUsername)
}
