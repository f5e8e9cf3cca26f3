package bot

import (
	"fmt"
	"strconv"
	"strings"

	"kasbook/internal/core"
	"kasbook/internal/ledger"
	"kasbook/internal/session"
)

// Menu tokens. The prefix picks the handler, the rest is the argument.
// Session tokens (sx:) decode into session.Action exactly once, at the
// boundary; nothing past the router re-parses strings.
const (
	tokHome     = "m:home"
	tokTxMenu   = "m:tx"
	tokRpMenu   = "m:rp"
	tokSettings = "m:st"

	tokTxAdd       = "tx:add"
	tokTxListToday = "tx:list:today"
	tokTxListMonth = "tx:list:month"

	tokRpToday = "rp:sum:today"
	tokRpMonth = "rp:sum:month"
	tokRpRange = "rp:range"

	tokStCats   = "st:cats"
	tokStAccess = "st:access"
	tokStBack   = "st:back"

	tokAcShare = "ac:share"
	tokAcUsers = "ac:users"

	tokCancel  = "sx:cancel"
	tokToday   = "sx:today"
	tokNewCat  = "sx:newcat"
	tokSkip    = "sx:skip"
	tokNoop    = "ct:noop"
	tokCatMenu = "ct:menu"
)

func tokPickKind(k core.Kind) string      { return "sx:kind:" + string(k) }
func tokPickCategory(name string) string  { return "sx:cat:" + name }
func tokPickField(f ledger.Field) string  { return "sx:field:" + string(f) }
func tokEditTx(id int64) string           { return fmt.Sprintf("tx:edit:%d", id) }
func tokDeleteTx(id int64) string         { return fmt.Sprintf("tx:del:%d", id) }
func tokCatGroup(k core.Kind) string      { return "ct:grp:" + string(k) }
func tokCatAdd(k core.Kind) string        { return "ct:add:" + string(k) }
func tokSetMode(m core.AccessMode) string { return "ac:mode:" + string(m) }
func tokRemoveUser(id int64) string       { return fmt.Sprintf("ac:deluser:%d", id) }

func tokCatDelete(k core.Kind, name string) string {
	return "ct:del:" + string(k) + ":" + name
}

// decodeSessionAction maps an sx: token onto a session action. Returns
// false for anything that is not a session token.
func decodeSessionAction(token string) (session.Action, bool) {
	switch token {
	case tokCancel:
		return session.Action{Type: session.ActionCancel}, true
	case tokToday:
		return session.Action{Type: session.ActionPickToday}, true
	case tokNewCat:
		return session.Action{Type: session.ActionNewCategory}, true
	case tokSkip:
		return session.Action{Type: session.ActionSkip}, true
	}
	if k, ok := strings.CutPrefix(token, "sx:kind:"); ok {
		return session.Action{Type: session.ActionPickKind, Kind: core.Kind(k)}, true
	}
	if name, ok := strings.CutPrefix(token, "sx:cat:"); ok {
		return session.Action{Type: session.ActionPickCategory, Category: name}, true
	}
	if f, ok := strings.CutPrefix(token, "sx:field:"); ok {
		return session.Action{Type: session.ActionPickField, Field: ledger.Field(f)}, true
	}
	return session.Action{}, false
}

// tokenID extracts the trailing numeric argument of tokens like
// tx:edit:<id>.
func tokenID(token, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// tokenCatDelete decodes ct:del:<kind>:<name>. The name may itself
// contain colons, so only the first two separators split.
func tokenCatDelete(token string) (core.Kind, string, bool) {
	rest, ok := strings.CutPrefix(token, "ct:del:")
	if !ok {
		return "", "", false
	}
	kind, name, ok := strings.Cut(rest, ":")
	if !ok || name == "" {
		return "", "", false
	}
	return core.Kind(kind), name, true
}
