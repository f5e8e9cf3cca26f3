package session

import (
	"kasbook/internal/core"
	"kasbook/internal/ledger"
)

// State is one position in the entry flow. The add flow walks
// ChoosingKind → ChoosingDate → ChoosingCategory (→
// EnteringNewCategoryName) → EnteringAmount → EnteringDescription; the
// edit flow walks ChoosingField → EnteringNewValue. Both commit exactly
// once at the end; Idle means no active session.
type State int

const (
	StateIdle State = iota
	StateChoosingKind
	StateChoosingDate
	StateChoosingCategory
	StateEnteringNewCategoryName
	StateEnteringAmount
	StateEnteringDescription
	StateChoosingField
	StateEnteringNewValue
	StateEnteringRangeStart
	StateEnteringRangeEnd
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChoosingKind:
		return "choosing_kind"
	case StateChoosingDate:
		return "choosing_date"
	case StateChoosingCategory:
		return "choosing_category"
	case StateEnteringNewCategoryName:
		return "entering_new_category_name"
	case StateEnteringAmount:
		return "entering_amount"
	case StateEnteringDescription:
		return "entering_description"
	case StateChoosingField:
		return "choosing_field"
	case StateEnteringNewValue:
		return "entering_new_value"
	case StateEnteringRangeStart:
		return "entering_range_start"
	case StateEnteringRangeEnd:
		return "entering_range_end"
	}
	return "unknown"
}

// ActionType tags the variant of an inbound action. Transport tokens are
// decoded into exactly one of these at the boundary, so the machine can
// match exhaustively instead of re-parsing strings.
type ActionType int

const (
	ActionCancel ActionType = iota
	ActionPickKind
	ActionPickToday
	ActionPickCategory
	ActionNewCategory
	ActionPickField
	ActionSkip
	ActionText
)

// Action is one decoded inbound event aimed at an active session.
type Action struct {
	Type     ActionType
	Kind     core.Kind    // ActionPickKind
	Category string       // ActionPickCategory
	Field    ledger.Field // ActionPickField
	Text     string       // ActionText
}
