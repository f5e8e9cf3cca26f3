package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"kasbook/internal/access"
	"kasbook/internal/core"
	"kasbook/internal/ledger"
	"kasbook/internal/log"
	"kasbook/internal/report"
	"kasbook/internal/session"
)

// Router is the single entry point for inbound events. Every event is
// access-gated first; session tokens and free text go to the machine,
// everything else is served directly. One event per identity runs at a
// time.
type Router struct {
	log     *log.Logger
	access  *access.Controller
	scopes  *access.Resolver
	cats    *ledger.CategoryService
	txs     *ledger.TransactionService
	reports *report.Engine
	machine *session.Machine
	loc     *time.Location

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewRouter(
	logger *log.Logger,
	ac *access.Controller,
	scopes *access.Resolver,
	cats *ledger.CategoryService,
	txs *ledger.TransactionService,
	reports *report.Engine,
	machine *session.Machine,
	loc *time.Location,
) *Router {
	if loc == nil {
		loc = time.UTC
	}
	return &Router{
		log:     logger.WithComponent(log.ComponentBot),
		access:  ac,
		scopes:  scopes,
		cats:    cats,
		txs:     txs,
		reports: reports,
		machine: machine,
		loc:     loc,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// Handle classifies and serves one event. The denied reply is a normal
// reply, not an error; errors mean the operation itself failed.
func (r *Router) Handle(ctx context.Context, ev Event) (Reply, error) {
	unlock := r.lockIdentity(ev.UserID)
	defer unlock()

	allowed, err := r.access.Allowed(ctx, ev.UserID)
	if err != nil {
		return Reply{}, fmt.Errorf("access check: %w", err)
	}
	if !allowed {
		r.log.Info("Access denied", log.FieldUserID, ev.UserID)
		return Reply{Text: r.access.DeniedMessage(ev.UserID, ev.Username)}, nil
	}

	switch {
	case ev.Command != "":
		return r.handleCommand(ctx, ev)
	case ev.Token != "":
		return r.handleToken(ctx, ev)
	default:
		return r.handleText(ctx, ev)
	}
}

// lockIdentity serializes events per identity for the duration of one
// Handle call.
func (r *Router) lockIdentity(userID int64) func() {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (r *Router) handleCommand(ctx context.Context, ev Event) (Reply, error) {
	fields := strings.Fields(ev.Command)
	if len(fields) == 0 {
		return r.mainMenu(msgStart), nil
	}

	switch fields[0] {
	case "/start":
		// a stale draft from before a restart or an abandoned flow is
		// dropped here
		if r.machine.Active(ev.UserID) {
			if _, err := r.machine.Advance(ctx, ev.UserID, session.Action{Type: session.ActionCancel}); err != nil {
				return Reply{}, err
			}
		}
		return r.mainMenu(msgWelcome), nil

	case "/adduser":
		if !r.access.IsPrimaryAdmin(ev.UserID) {
			return r.mainMenu(msgAdminOnly), nil
		}
		if len(fields) < 2 {
			return Reply{Text: msgAddUserHint}, nil
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Reply{Text: msgInvalid + "\n\n" + msgAddUserHint}, nil
		}
		name := strings.Join(fields[2:], " ")
		if err := r.access.AddAuthorizedUser(ctx, id, name); err != nil {
			return Reply{}, fmt.Errorf("add authorized user: %w", err)
		}
		return r.usersScreen(ctx, msgApplied)

	case "/deluser":
		if !r.access.IsPrimaryAdmin(ev.UserID) {
			return r.mainMenu(msgAdminOnly), nil
		}
		if len(fields) < 2 {
			return Reply{Text: msgAddUserHint}, nil
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Reply{Text: msgInvalid}, nil
		}
		if err := r.access.RemoveAuthorizedUser(ctx, id); err != nil {
			return Reply{}, fmt.Errorf("remove authorized user: %w", err)
		}
		return r.usersScreen(ctx, msgDeleted)
	}

	return r.mainMenu(msgStart), nil
}

func (r *Router) handleText(ctx context.Context, ev Event) (Reply, error) {
	if !r.machine.Active(ev.UserID) {
		return r.mainMenu(msgStart), nil
	}
	out, err := r.machine.Advance(ctx, ev.UserID, session.Action{Type: session.ActionText, Text: ev.Text})
	return r.renderOutcome(ctx, ev, out, err)
}

func (r *Router) handleToken(ctx context.Context, ev Event) (Reply, error) {
	if act, ok := decodeSessionAction(ev.Token); ok {
		out, err := r.machine.Advance(ctx, ev.UserID, act)
		if errors.Is(err, session.ErrNoSession) {
			return r.mainMenu(msgHome), nil
		}
		return r.renderOutcome(ctx, ev, out, err)
	}

	switch ev.Token {
	case tokHome:
		return r.mainMenu(msgHome), nil
	case tokTxMenu:
		return txMenu(msgTx), nil
	case tokRpMenu:
		return rpMenu(msgReports), nil
	case tokSettings, tokStBack:
		return r.settingsMenu(ev.UserID, msgSetting), nil

	case tokTxAdd:
		key, err := r.scopes.Resolve(ctx, ev.UserID)
		if err != nil {
			return Reply{}, err
		}
		out, err := r.machine.StartAdd(ctx, ev.UserID, key)
		return r.renderOutcome(ctx, ev, out, err)

	case tokTxListToday:
		today := core.Today(r.loc)
		return r.txListScreen(ctx, ev.UserID, labelTxListToday, today, today)
	case tokTxListMonth:
		today := core.Today(r.loc)
		from, to := core.MonthRange(today.Year, today.Month)
		return r.txListScreen(ctx, ev.UserID, labelTxListMonth, from, to)

	case tokRpToday:
		today := core.Today(r.loc)
		return r.summaryScreen(ctx, ev.UserID, labelRpToday, today, today, false)
	case tokRpMonth:
		today := core.Today(r.loc)
		from, to := core.MonthRange(today.Year, today.Month)
		return r.summaryScreen(ctx, ev.UserID, labelRpMonth, from, to, true)
	case tokRpRange:
		key, err := r.scopes.Resolve(ctx, ev.UserID)
		if err != nil {
			return Reply{}, err
		}
		out, err := r.machine.StartRange(ctx, ev.UserID, key)
		return r.renderOutcome(ctx, ev, out, err)

	case tokStCats, tokCatMenu:
		return catsMenu(msgCats), nil
	case tokStAccess:
		if !r.access.IsPrimaryAdmin(ev.UserID) {
			return r.settingsMenu(ev.UserID, msgAdminOnly), nil
		}
		return r.accessMenu(ctx, msgAccess)
	case tokAcShare:
		if !r.access.IsPrimaryAdmin(ev.UserID) {
			return r.settingsMenu(ev.UserID, msgAdminOnly), nil
		}
		enabled, err := r.access.ShareEnabled(ctx)
		if err != nil {
			return Reply{}, err
		}
		if err := r.access.SetShareEnabled(ctx, !enabled); err != nil {
			return Reply{}, err
		}
		return r.accessMenu(ctx, msgApplied+"\n\n"+msgAccess)
	case tokAcUsers:
		if !r.access.IsPrimaryAdmin(ev.UserID) {
			return r.settingsMenu(ev.UserID, msgAdminOnly), nil
		}
		return r.usersScreen(ctx, msgUsers)
	case tokNoop:
		return catsMenu(msgCats), nil
	}

	if mode, ok := strings.CutPrefix(ev.Token, "ac:mode:"); ok {
		if !r.access.IsPrimaryAdmin(ev.UserID) {
			return r.settingsMenu(ev.UserID, msgAdminOnly), nil
		}
		if err := r.access.SetMode(ctx, core.AccessMode(mode)); err != nil {
			if errors.Is(err, core.ErrInvalidKind) {
				return r.accessMenu(ctx, msgInvalid+"\n\n"+msgAccess)
			}
			return Reply{}, err
		}
		return r.accessMenu(ctx, msgApplied+"\n\n"+msgAccess)
	}

	if id, ok := tokenID(ev.Token, "ac:deluser:"); ok {
		if !r.access.IsPrimaryAdmin(ev.UserID) {
			return r.settingsMenu(ev.UserID, msgAdminOnly), nil
		}
		if err := r.access.RemoveAuthorizedUser(ctx, id); err != nil {
			return Reply{}, err
		}
		return r.usersScreen(ctx, msgDeleted)
	}

	if id, ok := tokenID(ev.Token, "tx:edit:"); ok {
		key, err := r.scopes.Resolve(ctx, ev.UserID)
		if err != nil {
			return Reply{}, err
		}
		out, err := r.machine.StartEdit(ctx, ev.UserID, key, id)
		if errors.Is(err, core.ErrNotFound) {
			return txMenu(msgNotFound + "\n\n" + msgTx), nil
		}
		return r.renderOutcome(ctx, ev, out, err)
	}

	if id, ok := tokenID(ev.Token, "tx:del:"); ok {
		key, err := r.scopes.Resolve(ctx, ev.UserID)
		if err != nil {
			return Reply{}, err
		}
		if err := r.txs.Delete(ctx, key, id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return txMenu(msgNotFound + "\n\n" + msgTx), nil
			}
			return Reply{}, err
		}
		return txMenu(msgDeleted + "\n\n" + msgTx), nil
	}

	if grp, ok := strings.CutPrefix(ev.Token, "ct:grp:"); ok {
		return r.categoryScreen(ctx, ev.UserID, core.Kind(grp), "")
	}
	if grp, ok := strings.CutPrefix(ev.Token, "ct:add:"); ok {
		key, err := r.scopes.Resolve(ctx, ev.UserID)
		if err != nil {
			return Reply{}, err
		}
		out, err := r.machine.StartCategory(ctx, ev.UserID, key, core.Kind(grp))
		if errors.Is(err, core.ErrInvalidKind) {
			return catsMenu(msgInvalid + "\n\n" + msgCats), nil
		}
		return r.renderOutcome(ctx, ev, out, err)
	}
	if kind, name, ok := tokenCatDelete(ev.Token); ok {
		key, err := r.scopes.Resolve(ctx, ev.UserID)
		if err != nil {
			return Reply{}, err
		}
		switch err := r.cats.Delete(ctx, key, kind, name); {
		case errors.Is(err, core.ErrLocked):
			return r.categoryScreen(ctx, ev.UserID, kind, msgLocked)
		case errors.Is(err, core.ErrNotFound):
			return r.categoryScreen(ctx, ev.UserID, kind, msgNotFound)
		case err != nil:
			return Reply{}, err
		}
		return r.categoryScreen(ctx, ev.UserID, kind, msgDeleted)
	}

	// unknown token: just go home
	r.log.Warn("Unknown token", log.FieldUserID, ev.UserID, "token", ev.Token)
	return r.mainMenu(msgHome), nil
}

// renderOutcome turns a machine outcome into the next prompt or, for a
// finished session, the closing screen.
func (r *Router) renderOutcome(ctx context.Context, ev Event, out session.Outcome, err error) (Reply, error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return r.mainMenu(msgHome), nil
	case errors.Is(err, core.ErrNotFound):
		return txMenu(msgNotFound + "\n\n" + msgTx), nil
	case err != nil:
		return Reply{}, err
	}

	if out.Done {
		switch {
		case out.Committed != nil:
			return r.mainMenuReply(msgSaved + "\n\n" + renderTransaction(*out.Committed)), nil
		case out.Edited:
			return r.mainMenuReply(msgEdited), nil
		case out.Ranged:
			return r.rangeSummaryScreen(ctx, ev.UserID, out.RangeStart, out.RangeEnd)
		case out.CategoryAdded != "":
			return catsMenu(msgAdded + "\n\n" + msgCats), nil
		default:
			return r.mainMenuReply(msgCanceled), nil
		}
	}

	reply := promptFor(out)
	if out.Invalid {
		reply.Text = msgInvalid + "\n\n" + reply.Text
	}
	return reply, nil
}

// promptFor renders the prompt and option rows for one session state.
func promptFor(out session.Outcome) Reply {
	cancel := row(Option{labelCancel, tokCancel})

	switch out.State {
	case session.StateChoosingKind:
		return Reply{Text: promptKind, Options: [][]Option{
			row(Option{kindLabel(core.KindIncome), tokPickKind(core.KindIncome)}),
			row(Option{kindLabel(core.KindWorkExpense), tokPickKind(core.KindWorkExpense)}),
			row(Option{kindLabel(core.KindPersonalExpense), tokPickKind(core.KindPersonalExpense)}),
			cancel,
		}}
	case session.StateChoosingDate:
		return Reply{Text: promptDate, Options: [][]Option{
			row(Option{labelToday, tokToday}),
			cancel,
		}}
	case session.StateChoosingCategory:
		opts := make([][]Option, 0, len(out.Categories)+2)
		for i, c := range out.Categories {
			if i == maxCategoryRows {
				break
			}
			opts = append(opts, row(Option{c.Name, tokPickCategory(c.Name)}))
		}
		opts = append(opts, row(Option{labelNewCat, tokNewCat}), cancel)
		return Reply{Text: promptCategory, Options: opts}
	case session.StateEnteringNewCategoryName:
		return Reply{Text: promptNewCatName, Options: [][]Option{cancel}}
	case session.StateEnteringAmount:
		return Reply{Text: promptAmount, Options: [][]Option{cancel}}
	case session.StateEnteringDescription:
		return Reply{Text: promptDescription, Options: [][]Option{
			row(Option{labelSkip, tokSkip}),
			cancel,
		}}
	case session.StateChoosingField:
		return Reply{Text: promptField, Options: [][]Option{
			row(Option{fieldLabel(ledger.FieldCategory), tokPickField(ledger.FieldCategory)}),
			row(Option{fieldLabel(ledger.FieldAmount), tokPickField(ledger.FieldAmount)}),
			row(Option{fieldLabel(ledger.FieldDescription), tokPickField(ledger.FieldDescription)}),
			cancel,
		}}
	case session.StateEnteringNewValue:
		return Reply{Text: promptNewValue, Options: [][]Option{
			row(Option{labelSkip, tokSkip}),
			cancel,
		}}
	case session.StateEnteringRangeStart:
		return Reply{Text: promptRangeStart, Options: [][]Option{cancel}}
	case session.StateEnteringRangeEnd:
		return Reply{Text: promptRangeEnd, Options: [][]Option{cancel}}
	}
	return Reply{Text: msgHome, Options: mainMenuOptions()}
}

// --- menus ---

func mainMenuOptions() [][]Option {
	return [][]Option{
		row(Option{labelTxMenu, tokTxMenu}, Option{labelRpMenu, tokRpMenu}),
		row(Option{labelSettings, tokSettings}),
	}
}

func (r *Router) mainMenu(text string) Reply {
	return Reply{Text: text, Options: mainMenuOptions()}
}

func (r *Router) mainMenuReply(text string) Reply {
	return Reply{Text: text + "\n\n" + msgHome, Options: mainMenuOptions()}
}

func txMenu(text string) Reply {
	return Reply{Text: text, Options: [][]Option{
		row(Option{labelTxAdd, tokTxAdd}),
		row(Option{labelTxListToday, tokTxListToday}, Option{labelTxListMonth, tokTxListMonth}),
		row(Option{labelHome, tokHome}),
	}}
}

func rpMenu(text string) Reply {
	return Reply{Text: text, Options: [][]Option{
		row(Option{labelRpToday, tokRpToday}, Option{labelRpMonth, tokRpMonth}),
		row(Option{labelRpRange, tokRpRange}),
		row(Option{labelHome, tokHome}),
	}}
}

func (r *Router) settingsMenu(userID int64, text string) Reply {
	opts := [][]Option{row(Option{labelCats, tokStCats})}
	if r.access.IsPrimaryAdmin(userID) {
		opts = append(opts, row(Option{labelAccess, tokStAccess}))
	}
	opts = append(opts, row(Option{labelHome, tokHome}))
	return Reply{Text: text, Options: opts}
}

func catsMenu(text string) Reply {
	return Reply{Text: text, Options: [][]Option{
		row(Option{kindLabel(core.KindIncome), tokCatGroup(core.KindIncome)}),
		row(Option{kindLabel(core.KindWorkExpense), tokCatGroup(core.KindWorkExpense)}),
		row(Option{kindLabel(core.KindPersonalExpense), tokCatGroup(core.KindPersonalExpense)}),
		row(Option{labelHome, tokHome}),
	}}
}

func (r *Router) accessMenu(ctx context.Context, text string) (Reply, error) {
	mode, err := r.access.Mode(ctx)
	if err != nil {
		return Reply{}, err
	}
	mark := func(m core.AccessMode) string {
		if m == mode {
			return " ✅"
		}
		return ""
	}
	opts := [][]Option{
		row(Option{labelModeAdmin + mark(core.AccessAdminOnly), tokSetMode(core.AccessAdminOnly)}),
		row(Option{labelModeAllowed + mark(core.AccessAllowedList), tokSetMode(core.AccessAllowedList)}),
		row(Option{labelModePublic + mark(core.AccessPublic), tokSetMode(core.AccessPublic)}),
	}
	if mode != core.AccessPublic {
		enabled, err := r.access.ShareEnabled(ctx)
		if err != nil {
			return Reply{}, err
		}
		shareTxt := "خاموش ❌"
		if enabled {
			shareTxt = "روشن ✅"
		}
		opts = append(opts, row(Option{"🔁 اشتراک اطلاعات بین ادمین‌ها: " + shareTxt, tokAcShare}))
	}
	opts = append(opts,
		row(Option{labelUsers, tokAcUsers}),
		row(Option{labelBack, tokStBack}),
	)
	return Reply{Text: text, Options: opts}, nil
}

// --- screens ---

func (r *Router) usersScreen(ctx context.Context, text string) (Reply, error) {
	users, err := r.access.ListAuthorizedUsers(ctx)
	if err != nil {
		return Reply{}, err
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n")
	if len(users) == 0 {
		b.WriteString("\n" + msgEmptyList)
	}
	opts := make([][]Option, 0, len(users)+1)
	for _, u := range users {
		name := u.Name
		if name == "" {
			name = strconv.FormatInt(u.ID, 10)
		}
		fmt.Fprintf(&b, "\n• %s (%d)", name, u.ID)
		opts = append(opts, row(Option{labelDelete + " " + name, tokRemoveUser(u.ID)}))
	}
	b.WriteString("\n\n" + msgAddUserHint)
	opts = append(opts, row(Option{labelBack, tokStAccess}))
	return Reply{Text: b.String(), Options: opts}, nil
}

func (r *Router) categoryScreen(ctx context.Context, userID int64, kind core.Kind, note string) (Reply, error) {
	key, err := r.scopes.Resolve(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	cats, err := r.cats.List(ctx, key, kind)
	if err != nil {
		if errors.Is(err, core.ErrInvalidKind) {
			return catsMenu(msgInvalid + "\n\n" + msgCats), nil
		}
		return Reply{}, err
	}

	var b strings.Builder
	if note != "" {
		b.WriteString(note + "\n\n")
	}
	b.WriteString(msgCats + "\n" + kindLabel(kind))

	opts := make([][]Option, 0, len(cats)+2)
	for i, c := range cats {
		if i == maxCategoryRows {
			break
		}
		btns := row(Option{c.Name, tokNoop})
		if !c.Locked {
			btns = append(btns, Option{labelDelete, tokCatDelete(kind, c.Name)})
		}
		opts = append(opts, btns)
	}
	opts = append(opts,
		row(Option{labelAdd, tokCatAdd(kind)}),
		row(Option{labelBack, tokStCats}),
	)
	return Reply{Text: b.String(), Options: opts}, nil
}

func (r *Router) txListScreen(ctx context.Context, userID int64, title string, from, to core.Date) (Reply, error) {
	key, err := r.scopes.Resolve(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	rows, err := r.txs.ListForRange(ctx, key, from, to)
	if err != nil {
		return Reply{}, err
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString("\n" + msgEmptyList)
		return Reply{Text: b.String(), Options: [][]Option{row(Option{labelBack, tokTxMenu})}}, nil
	}

	opts := make([][]Option, 0, len(rows)+1)
	for i, t := range rows {
		if i == maxCategoryRows {
			break
		}
		b.WriteString("\n" + renderTransaction(t) + "\n")
		label := fmt.Sprintf("#%d", t.ID)
		opts = append(opts, row(
			Option{labelEdit + " " + label, tokEditTx(t.ID)},
			Option{labelDelete + " " + label, tokDeleteTx(t.ID)},
		))
	}
	opts = append(opts, row(Option{labelBack, tokTxMenu}))
	return Reply{Text: b.String(), Options: opts}, nil
}

func (r *Router) summaryScreen(ctx context.Context, userID int64, title string, from, to core.Date, breakdown bool) (Reply, error) {
	key, err := r.scopes.Resolve(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	sum, err := r.reports.RangeSums(ctx, key, from, to)
	if err != nil {
		return Reply{}, err
	}

	var b strings.Builder
	b.WriteString(title)
	fmt.Fprintf(&b, "\n%s (%s) تا %s (%s)\n", from, from.Jalali(), to, to.Jalali())
	b.WriteString(renderSummary(sum))

	if breakdown {
		for _, kind := range core.Kinds {
			rows, err := r.reports.CategoryBreakdown(ctx, key, from.Year, from.Month, kind)
			if err != nil {
				return Reply{}, err
			}
			if len(rows) == 0 {
				continue
			}
			b.WriteString("\n\n" + kindLabel(kind) + ":")
			for _, ca := range rows {
				fmt.Fprintf(&b, "\n• %s: %s", ca.Name, core.FormatAmount(ca.Amount))
			}
		}
	}

	return Reply{Text: b.String(), Options: [][]Option{row(Option{labelBack, tokRpMenu})}}, nil
}

func (r *Router) rangeSummaryScreen(ctx context.Context, userID int64, from, to core.Date) (Reply, error) {
	return r.summaryScreen(ctx, userID, labelRpRange, from, to, false)
}

// --- rendering helpers ---

func renderTransaction(t core.Transaction) string {
	line := fmt.Sprintf("#%d 📅 %s (%s)\n%s | %s | 💵 %s",
		t.ID, t.Date, t.Date.Jalali(), kindLabel(t.Kind), t.Category, core.FormatAmount(t.Amount))
	if t.Description != "" {
		line += "\n📝 " + t.Description
	}
	return line
}

func renderSummary(s report.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n💰 درآمد کاری: %s", core.FormatAmount(s.Income))
	fmt.Fprintf(&b, "\n🏢 هزینه کاری: %s", core.FormatAmount(s.WorkExpense))
	fmt.Fprintf(&b, "\n👤 هزینه شخصی (بدون قسط): %s", core.FormatAmount(s.PersonalExInstallment))
	fmt.Fprintf(&b, "\n📦 قسط: %s", core.FormatAmount(s.Installment))
	fmt.Fprintf(&b, "\n\n💵 خالص: %s", core.FormatAmount(s.Net()))
	fmt.Fprintf(&b, "\n🏦 پس‌انداز: %s", core.FormatAmount(s.Saving()))
	return b.String()
}
