package dialogue

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/logger"
	"github.com/m3rciful/animbot/core/store"
)

// Command names understood by OnCommand.
const (
	CmdStart      = "start"
	CmdHelp       = "help"
	CmdCancel     = "cancel"
	CmdPoints     = "points"
	CmdRegister   = "register"
	CmdRemove     = "remove"
	CmdAnimations = "animations"
	CmdPlayers    = "players"
	CmdScores     = "scores"
	CmdPlayer     = "player"
	CmdHistory    = "history"
)

func isCommand(name string) bool {
	switch name {
	case CmdStart, CmdHelp, CmdCancel, CmdPoints, CmdRegister, CmdRemove,
		CmdAnimations, CmdPlayers, CmdScores, CmdPlayer, CmdHistory:
		return true
	}
	return false
}

// maxOptions caps the quick replies attached to one prompt.
const maxOptions = 24

// Store is the association store contract the engine relies on.
type Store interface {
	AddPlayer(id string) (bool, error)
	AddAssociation(player, event string, points int) (store.Outcome, int, error)
	RemovePlayer(player string) error
	RemoveAssociation(player, event string) error
	PlayerAssociations(player string) (map[string]int, error)
	EventAssociations(event string) (map[string]int, error)
	Points(player, event string) (int, error)
	Players() []string
	Events() []string
}

// Options configures an Engine.
type Options struct {
	// InviteSecret validates /start tokens; empty disables invitations.
	InviteSecret string
	// Journal receives every successful mutation. Nil means journal.Nop.
	Journal journal.Journal
	// SessionTTL expires idle sessions; zero keeps them forever.
	SessionTTL time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine runs the dialogue workflows. All calls are serialized, so each
// store mutation and its snapshot write happen as one step.
type Engine struct {
	mu       sync.Mutex
	store    Store
	journal  journal.Journal
	secret   string
	now      func() time.Time
	sessions *sessionTable
}

// New builds an engine on top of st.
func New(st Store, opts Options) *Engine {
	e := &Engine{
		store:    st,
		journal:  opts.Journal,
		secret:   opts.InviteSecret,
		now:      opts.Now,
		sessions: newSessionTable(opts.SessionTTL),
	}
	if e.journal == nil {
		e.journal = journal.Nop{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// NormalizeCommand turns "/Points@my_bot" into "points".
func NormalizeCommand(command string) string {
	name := strings.TrimPrefix(strings.TrimSpace(command), "/")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

// OnCommand handles a top-level command. Any open session for sessionID is
// aborted first. Workflow commands open a new session; the rest answer
// immediately. The only error returned is a store persistence failure.
func (e *Engine) OnCommand(ctx context.Context, sessionID int64, command, args string) (Reply, error) {
	ctx = logger.WithSession(ctx, sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.command(ctx, sessionID, NormalizeCommand(command), strings.TrimSpace(args))
}

func (e *Engine) command(ctx context.Context, sessionID int64, name, args string) (Reply, error) {
	prev, hadSession := e.sessions.remove(sessionID)
	if hadSession {
		e.logAbort(ctx, prev, "command")
	}

	switch name {
	case CmdCancel:
		if hadSession {
			return closed(say(msgCancelled)), nil
		}
		return closed(say(msgNothingToCancel)), nil
	case CmdStart:
		return e.start(ctx, sessionID, args)
	case CmdHelp:
		return closed(say(msgHelp)), nil
	case CmdPoints:
		return e.open(ctx, sessionID, Session{Workflow: WorkflowPoints, Step: StepPointsPlayer}, say(msgAskPlayer), args)
	case CmdRegister:
		return e.open(ctx, sessionID, Session{Workflow: WorkflowRegister, Step: StepRegisterPlayer}, say(msgAskPlayer), args)
	case CmdRemove:
		return e.open(ctx, sessionID, Session{Workflow: WorkflowRemove, Step: StepRemoveConfirm},
			say(msgConfirmRemove).with(OptionYes, OptionNo), "")
	case CmdAnimations, CmdPlayers, CmdScores, CmdPlayer, CmdHistory:
		return closed(e.query(ctx, name, args)), nil
	}
	return closed(say(msgUnknownCommand, name)), nil
}

// OnText feeds one free-text input to the session's current step. Text naming
// a known command runs that command, which replaces the session; any other
// text starting with "/" cancels the session.
func (e *Engine) OnText(ctx context.Context, sessionID int64, text string) (Reply, error) {
	ctx = logger.WithSession(ctx, sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions.get(sessionID, e.now())
	if !ok {
		return closed(say(msgNoSession)), nil
	}
	if line, ok := strings.CutPrefix(strings.TrimSpace(text), "/"); ok {
		name, args, _ := strings.Cut(line, " ")
		if name = NormalizeCommand(name); isCommand(name) {
			return e.command(ctx, sessionID, name, strings.TrimSpace(args))
		}
		e.sessions.remove(sessionID)
		e.logAbort(ctx, s, "command")
		return closed(say(msgCancelled)), nil
	}
	next, r, err := e.advance(ctx, sessionID, s, text)
	return e.commit(ctx, sessionID, s, next, r, err)
}

// Cancel drops the session for sessionID and reports whether one was open.
func (e *Engine) Cancel(ctx context.Context, sessionID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions.remove(sessionID)
	if ok {
		e.logAbort(ctx, s, "cancel")
	}
	return ok
}

// InProgress reports whether sessionID has a live session.
func (e *Engine) InProgress(sessionID int64) bool {
	_, ok := e.sessions.get(sessionID, e.now())
	return ok
}

// Session returns a copy of the live session for sessionID.
func (e *Engine) Session(sessionID int64) (Session, bool) {
	return e.sessions.get(sessionID, e.now())
}

// Sweep drops expired sessions.
func (e *Engine) Sweep(ctx context.Context) int {
	n := e.sessions.sweep(e.now())
	if n > 0 {
		logger.LogEvent(ctx, logger.DLG, slog.LevelDebug, "session.sweep",
			slog.Int("count", n),
			slog.Int("open", e.sessions.len()),
		)
	}
	return n
}

// RunJanitor sweeps expired sessions every interval until ctx ends.
func (e *Engine) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || e.sessions.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// JournalEnabled reports whether mutations are being journaled.
func (e *Engine) JournalEnabled() bool { return e.journal.Enabled() }

// open starts a workflow. A non-empty first input is fed to the first step
// right away, so "/points alice" skips the player prompt.
func (e *Engine) open(ctx context.Context, id int64, s Session, prompt Reply, first string) (Reply, error) {
	logger.LogEvent(ctx, logger.DLG, slog.LevelDebug, "workflow.open",
		slog.String("workflow", string(s.Workflow)),
		slog.String("step", string(s.Step)),
	)
	if first == "" {
		e.sessions.put(id, s, e.now())
		return prompt, nil
	}
	next, r, err := e.advance(ctx, id, s, first)
	return e.commit(ctx, id, s, next, r, err)
}

func (e *Engine) start(ctx context.Context, id int64, token string) (Reply, error) {
	if token == "" {
		return closed(say(msgWelcome).then(msgHelp)), nil
	}
	if e.secret == "" {
		return closed(say(msgInvitationsOff)), nil
	}
	player, err := decodeInvitation(token, e.secret)
	if err != nil {
		logger.LogEvent(ctx, logger.DLG, slog.LevelWarn, "invite.reject",
			slog.String("status", "fail"),
			logger.Err(err),
		)
		return closed(say(msgInvalidInvitation)), nil
	}
	return e.open(ctx, id, Session{Workflow: WorkflowPoints, Step: StepPointsPlayer}, say(msgAskPlayer), player)
}

func (e *Engine) advance(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	switch s.Workflow {
	case WorkflowPoints:
		return e.stepPoints(ctx, actor, s, input)
	case WorkflowRegister:
		return e.stepRegister(ctx, actor, s, input)
	case WorkflowRemove:
		return e.stepRemove(ctx, actor, s, input)
	}
	return done(), say(msgInvalidReply), nil
}

func (e *Engine) commit(ctx context.Context, id int64, before, next Session, r Reply, err error) (Reply, error) {
	e.sessions.put(id, next, e.now())
	r.Closed = next.Closed()

	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("workflow", string(before.Workflow)),
		slog.String("step", string(before.Step)),
		slog.String("next_step", string(next.Step)),
	}
	if next.Player != "" {
		attrs = append(attrs, slog.String("player", next.Player))
	}
	if next.Event != "" {
		attrs = append(attrs, slog.String("animation", next.Event))
	}
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("status", "fail"), logger.Err(err))
	}
	logger.LogEvent(ctx, logger.DLG, level, "workflow.step", attrs...)
	return r, err
}

func (e *Engine) logAbort(ctx context.Context, s Session, reason string) {
	logger.LogEvent(ctx, logger.DLG, slog.LevelDebug, "workflow.abort",
		slog.String("workflow", string(s.Workflow)),
		slog.String("step", string(s.Step)),
		slog.String("reason", reason),
	)
}

// record journals a mutation. Failures are logged and otherwise ignored.
func (e *Engine) record(ctx context.Context, actor int64, entry journal.Entry) {
	entry.ActorID = actor
	if err := e.journal.Record(ctx, entry); err != nil {
		logger.LogEvent(ctx, logger.JRNL, slog.LevelWarn, "journal.record",
			slog.String("status", "fail"),
			slog.String("action", string(entry.Action)),
			slog.String("player", entry.Player),
			logger.Err(err),
		)
	}
}

// abort ends the workflow after a store failure the user cannot fix.
func abort(err error) (Session, Reply, error) {
	return done(), say(msgPersistFailed), err
}

func done() Session { return Session{Step: StepDone} }

func closed(r Reply) Reply {
	r.Closed = true
	return r
}

func limitOptions(options []string) []string {
	if len(options) > maxOptions {
		return options[:maxOptions]
	}
	return options
}
