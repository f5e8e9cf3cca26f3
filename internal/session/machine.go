package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kasbook/internal/core"
	"kasbook/internal/ledger"
)

// ErrNoSession is returned when an action targets an identity with no
// active session.
var ErrNoSession = errors.New("no active session")

// Outcome is what the transport renders after a transition. Invalid
// means the input was rejected and the state did not change; Done means
// the session ended (commit or cancel).
type Outcome struct {
	State      State
	Invalid    bool
	Done       bool
	Committed  *core.Transaction // set when the add flow committed
	Edited     bool              // set when the edit flow committed
	Categories []core.Category   // populated for ChoosingCategory

	// set together when the range flow finished
	Ranged               bool
	RangeStart, RangeEnd core.Date

	CategoryAdded string // set when a standalone category-add finished
}

// Machine advances sessions. All validation failures are recoverable in
// place; there is no retry limit and no timeout, cancel is a user
// event, never a system expiry.
type Machine struct {
	store *Store
	cats  *ledger.CategoryService
	txs   *ledger.TransactionService
	loc   *time.Location
}

func NewMachine(store *Store, cats *ledger.CategoryService, txs *ledger.TransactionService, loc *time.Location) *Machine {
	if loc == nil {
		loc = time.UTC
	}
	return &Machine{store: store, cats: cats, txs: txs, loc: loc}
}

// StartAdd opens a new add-transaction session, forcibly discarding any
// unfinished one. The scope key must be the one resolved for this
// identity right now; the session holds it until it ends.
func (m *Machine) StartAdd(ctx context.Context, userID int64, key core.ScopeKey) (Outcome, error) {
	sess := m.store.Begin(userID, key, StateChoosingKind)
	slog.DebugContext(ctx, "Entry session started",
		"user_id", userID, "state", sess.State.String())
	return Outcome{State: sess.State}, nil
}

// StartEdit opens a single-field edit session for one transaction. The
// transaction must be visible within the caller's scope.
func (m *Machine) StartEdit(ctx context.Context, userID int64, key core.ScopeKey, txID int64) (Outcome, error) {
	if _, err := m.txs.Get(ctx, key, txID); err != nil {
		return Outcome{State: StateIdle}, err
	}
	sess := m.store.Begin(userID, key, StateChoosingField)
	sess.EditTxID = txID
	return Outcome{State: sess.State}, nil
}

// StartCategory opens a standalone category-add prompt for the settings
// menu. Unlike the add flow's subflow, it ends the session as soon as
// the name is stored.
func (m *Machine) StartCategory(_ context.Context, userID int64, key core.ScopeKey, kind core.Kind) (Outcome, error) {
	if !kind.Valid() {
		return Outcome{State: StateIdle}, core.ErrInvalidKind
	}
	sess := m.store.Begin(userID, key, StateEnteringNewCategoryName)
	sess.Kind = kind
	sess.CategoryOnly = true
	return Outcome{State: sess.State}, nil
}

// StartRange opens a two-step date entry for a custom range report.
// Nothing is written; the finished outcome just carries the bounds back
// to the caller.
func (m *Machine) StartRange(_ context.Context, userID int64, key core.ScopeKey) (Outcome, error) {
	sess := m.store.Begin(userID, key, StateEnteringRangeStart)
	return Outcome{State: sess.State}, nil
}

// Active reports whether the identity has a session in flight.
func (m *Machine) Active(userID int64) bool {
	_, ok := m.store.Get(userID)
	return ok
}

// Advance feeds one action into the identity's session. Cancel is
// honored in every state and discards all draft data; no partial write
// ever happens.
func (m *Machine) Advance(ctx context.Context, userID int64, action Action) (Outcome, error) {
	sess, ok := m.store.Get(userID)
	if !ok {
		return Outcome{State: StateIdle}, ErrNoSession
	}

	if action.Type == ActionCancel {
		m.store.End(userID)
		return Outcome{State: StateIdle, Done: true}, nil
	}

	switch sess.State {
	case StateChoosingKind:
		return m.advanceChoosingKind(ctx, sess, action)
	case StateChoosingDate:
		return m.advanceChoosingDate(ctx, sess, action)
	case StateChoosingCategory:
		return m.advanceChoosingCategory(ctx, sess, action)
	case StateEnteringNewCategoryName:
		return m.advanceNewCategoryName(ctx, sess, action)
	case StateEnteringAmount:
		return m.advanceEnteringAmount(ctx, sess, action)
	case StateEnteringDescription:
		return m.advanceEnteringDescription(ctx, sess, action)
	case StateChoosingField:
		return m.advanceChoosingField(ctx, sess, action)
	case StateEnteringNewValue:
		return m.advanceEnteringNewValue(ctx, sess, action)
	case StateEnteringRangeStart:
		return m.advanceEnteringRangeStart(ctx, sess, action)
	case StateEnteringRangeEnd:
		return m.advanceEnteringRangeEnd(ctx, sess, action)
	}
	return Outcome{State: sess.State, Invalid: true}, nil
}

func (m *Machine) advanceChoosingKind(_ context.Context, sess *Session, action Action) (Outcome, error) {
	if action.Type != ActionPickKind || !action.Kind.Valid() {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	sess.Kind = action.Kind
	sess.State = StateChoosingDate
	return Outcome{State: sess.State}, nil
}

func (m *Machine) advanceChoosingDate(ctx context.Context, sess *Session, action Action) (Outcome, error) {
	var date core.Date
	switch action.Type {
	case ActionPickToday:
		date = core.Today(m.loc)
	case ActionText:
		parsed, err := core.ParseDate(strings.TrimSpace(action.Text))
		if err != nil {
			return Outcome{State: sess.State, Invalid: true}, nil
		}
		date = parsed
	default:
		return Outcome{State: sess.State, Invalid: true}, nil
	}

	sess.Date = date
	sess.State = StateChoosingCategory
	return m.categoryOutcome(ctx, sess, false)
}

func (m *Machine) advanceChoosingCategory(ctx context.Context, sess *Session, action Action) (Outcome, error) {
	switch action.Type {
	case ActionNewCategory:
		sess.State = StateEnteringNewCategoryName
		return Outcome{State: sess.State}, nil
	case ActionPickCategory:
		exists, err := m.cats.Exists(ctx, sess.Key, sess.Kind, action.Category)
		if err != nil {
			return Outcome{State: sess.State}, err
		}
		if !exists {
			return m.categoryOutcome(ctx, sess, true)
		}
		sess.Category = action.Category
		sess.State = StateEnteringAmount
		return Outcome{State: sess.State}, nil
	default:
		return m.categoryOutcome(ctx, sess, true)
	}
}

func (m *Machine) advanceNewCategoryName(ctx context.Context, sess *Session, action Action) (Outcome, error) {
	if action.Type != ActionText {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	name := strings.TrimSpace(action.Text)
	if name == "" {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	if err := m.cats.Add(ctx, sess.Key, sess.Kind, name); err != nil {
		if errors.Is(err, core.ErrEmptyName) {
			return Outcome{State: sess.State, Invalid: true}, nil
		}
		return Outcome{State: sess.State}, err
	}
	if sess.CategoryOnly {
		m.store.End(sess.UserID)
		return Outcome{State: StateIdle, Done: true, CategoryAdded: name}, nil
	}
	// rejoin the main flow
	sess.Category = name
	sess.State = StateEnteringAmount
	return Outcome{State: sess.State}, nil
}

func (m *Machine) advanceEnteringAmount(_ context.Context, sess *Session, action Action) (Outcome, error) {
	if action.Type != ActionText {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	amount, err := core.ParseAmount(action.Text)
	if err != nil {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	sess.Amount = amount
	sess.State = StateEnteringDescription
	return Outcome{State: sess.State}, nil
}

func (m *Machine) advanceEnteringDescription(ctx context.Context, sess *Session, action Action) (Outcome, error) {
	var description string
	switch action.Type {
	case ActionText:
		description = strings.TrimSpace(action.Text)
	case ActionSkip:
		description = ""
	default:
		return Outcome{State: sess.State, Invalid: true}, nil
	}

	// the single commit: everything before this point was session-local
	t, err := m.txs.Add(ctx, sess.Key, sess.UserID, sess.Date, sess.Kind, sess.Category, sess.Amount, description)
	if err != nil {
		// storage failure aborts the step, not the session; the user can
		// retry the same input
		return Outcome{State: sess.State}, fmt.Errorf("commit entry: %w", err)
	}

	m.store.End(sess.UserID)
	slog.InfoContext(ctx, "Entry session committed",
		"user_id", sess.UserID, "tx_id", t.ID, "kind", string(t.Kind), "amount", t.Amount)
	return Outcome{State: StateIdle, Done: true, Committed: &t}, nil
}

func (m *Machine) advanceChoosingField(_ context.Context, sess *Session, action Action) (Outcome, error) {
	if action.Type != ActionPickField {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	switch action.Field {
	case ledger.FieldCategory, ledger.FieldAmount, ledger.FieldDescription:
	default:
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	sess.EditField = action.Field
	sess.State = StateEnteringNewValue
	return Outcome{State: sess.State}, nil
}

func (m *Machine) advanceEnteringNewValue(ctx context.Context, sess *Session, action Action) (Outcome, error) {
	var value string
	switch action.Type {
	case ActionText:
		value = action.Text
	case ActionSkip:
		// only the description may be cleared by skipping
		if sess.EditField != ledger.FieldDescription {
			return Outcome{State: sess.State, Invalid: true}, nil
		}
		value = ""
	default:
		return Outcome{State: sess.State, Invalid: true}, nil
	}

	err := m.txs.UpdateField(ctx, sess.Key, sess.EditTxID, sess.EditField, value)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrInvalidAmount):
		return Outcome{State: sess.State, Invalid: true}, nil
	case errors.Is(err, core.ErrNotFound) && sess.EditField == ledger.FieldCategory:
		return Outcome{State: sess.State, Invalid: true}, nil
	case errors.Is(err, core.ErrNotFound):
		// the transaction vanished mid-edit: nothing left to apply to
		m.store.End(sess.UserID)
		return Outcome{State: StateIdle, Done: true}, err
	default:
		// storage failure aborts the step, not the session; the user can
		// retry the same input
		return Outcome{State: sess.State}, fmt.Errorf("apply edit: %w", err)
	}

	m.store.End(sess.UserID)
	return Outcome{State: StateIdle, Done: true, Edited: true}, nil
}

func (m *Machine) advanceEnteringRangeStart(_ context.Context, sess *Session, action Action) (Outcome, error) {
	if action.Type != ActionText {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	d, err := core.ParseDate(strings.TrimSpace(action.Text))
	if err != nil {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	sess.RangeStart = d
	sess.State = StateEnteringRangeEnd
	return Outcome{State: sess.State}, nil
}

func (m *Machine) advanceEnteringRangeEnd(_ context.Context, sess *Session, action Action) (Outcome, error) {
	if action.Type != ActionText {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	d, err := core.ParseDate(strings.TrimSpace(action.Text))
	if err != nil || d.Before(sess.RangeStart) {
		return Outcome{State: sess.State, Invalid: true}, nil
	}
	start := sess.RangeStart
	m.store.End(sess.UserID)
	return Outcome{State: StateIdle, Done: true, Ranged: true, RangeStart: start, RangeEnd: d}, nil
}

// categoryOutcome re-lists the kind's categories so the transport can
// render the picker, with Invalid set on a rejected selection.
func (m *Machine) categoryOutcome(ctx context.Context, sess *Session, invalid bool) (Outcome, error) {
	cats, err := m.cats.List(ctx, sess.Key, sess.Kind)
	if err != nil {
		return Outcome{State: sess.State}, err
	}
	return Outcome{State: sess.State, Invalid: invalid, Categories: cats}, nil
}
