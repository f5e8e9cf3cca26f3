package core

import (
	"errors"
	"time"
)

// Scope names the data partition a row belongs to. Rows are scope-stamped
// at creation time and never migrated between partitions.
type Scope string

const (
	ScopePrivate Scope = "private"
	ScopeShared  Scope = "shared"
)

// ScopeKey is the (scope, owner) pair every data operation is filtered by.
// It is resolved once per logical operation, and once per session for the
// entry flow.
type ScopeKey struct {
	Scope Scope
	Owner int64
}

// Kind is the transaction group: income, work expense or personal expense.
type Kind string

const (
	KindIncome          Kind = "income"
	KindWorkExpense     Kind = "work_expense"
	KindPersonalExpense Kind = "personal_expense"
)

// Kinds lists all valid kinds in menu order.
var Kinds = []Kind{KindIncome, KindWorkExpense, KindPersonalExpense}

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindWorkExpense, KindPersonalExpense:
		return true
	}
	return false
}

// AccessMode controls who may talk to the bot at all.
type AccessMode string

const (
	AccessAdminOnly   AccessMode = "admin_only"
	AccessAllowedList AccessMode = "allowed_list"
	AccessPublic      AccessMode = "public"
)

func (m AccessMode) Valid() bool {
	switch m {
	case AccessAdminOnly, AccessAllowedList, AccessPublic:
		return true
	}
	return false
}

// Settings keys. Seeded by migration, mutated by the primary admin only.
const (
	SettingAccessMode     = "access_mode"
	SettingShareEnabled   = "share_enabled"
	SettingBackupEnabled  = "backup_enabled"
	SettingBackupInterval = "backup_interval"
	SettingBackupTarget   = "backup_target"
)

// InstallmentName is the reserved, locked personal-expense category.
// One row per (scope, owner) carries this name; it cannot be deleted.
const InstallmentName = "قسط"

type (
	// Category is a named group member under one (scope, owner, kind).
	Category struct {
		ID     int64
		Scope  Scope
		Owner  int64
		Group  Kind
		Name   string
		Locked bool
	}

	// Transaction is one ledger entry. Kind, date and scope are immutable
	// after creation; category, amount and description may be edited.
	Transaction struct {
		ID          int64
		Scope       Scope
		Owner       int64
		Actor       int64
		Date        Date
		Kind        Kind
		Category    string
		Amount      int64 // smallest currency unit, never negative
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// AuthorizedUser is an identity whitelisted by the primary admin.
	AuthorizedUser struct {
		ID      int64
		Name    string
		AddedAt time.Time
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrLocked        = errors.New("category is locked")
	ErrAccessDenied  = errors.New("access denied")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid kind")
	ErrEmptyName     = errors.New("empty name")
)
