package dialogue

import (
	"sync"
	"time"
)

// Workflow identifies which conversation a session belongs to.
type Workflow string

const (
	WorkflowPoints   Workflow = "points"
	WorkflowRegister Workflow = "register"
	WorkflowRemove   Workflow = "remove"
)

// Step is the state a session waits in.
type Step string

const (
	StepDone Step = "done"

	// enter points
	StepPointsPlayer     Step = "points.player"
	StepPointsEvent      Step = "points.event"
	StepPointsConfirmNew Step = "points.confirm_new"
	StepPointsValue      Step = "points.value"

	// register
	StepRegisterPlayer  Step = "register.player"
	StepRegisterConfirm Step = "register.confirm_event"
	StepRegisterEvent   Step = "register.event"

	// remove
	StepRemoveConfirm     Step = "remove.confirm"
	StepRemoveScope       Step = "remove.scope"
	StepRemovePlayer      Step = "remove.player"
	StepRemoveEventPlayer Step = "remove.event_player"
	StepRemoveEvent       Step = "remove.event"
)

// Session is the scratch state of one open workflow.
type Session struct {
	Workflow Workflow
	Step     Step
	Player   string
	Event    string
	// HadEvents records whether Player already had associations when the
	// points workflow resolved them.
	HadEvents bool
	UpdatedAt time.Time
}

// Closed reports whether the workflow reached its terminal step.
func (s Session) Closed() bool { return s.Step == StepDone }

// sessionTable holds one session per user. A zero ttl disables expiry.
type sessionTable struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[int64]Session
}

func newSessionTable(ttl time.Duration) *sessionTable {
	return &sessionTable{ttl: ttl, sessions: make(map[int64]Session)}
}

func (t *sessionTable) expired(s Session, now time.Time) bool {
	return t.ttl > 0 && now.Sub(s.UpdatedAt) > t.ttl
}

// get returns the live session for id. Expired sessions are dropped.
func (t *sessionTable) get(id int64, now time.Time) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		return Session{}, false
	}
	if t.expired(s, now) {
		delete(t.sessions, id)
		return Session{}, false
	}
	return s, true
}

// put stores s, or removes the entry when s is closed.
func (t *sessionTable) put(id int64, s Session, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.Closed() {
		delete(t.sessions, id)
		return
	}
	s.UpdatedAt = now
	t.sessions[id] = s
}

func (t *sessionTable) remove(id int64) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	delete(t.sessions, id)
	return s, ok
}

// sweep drops expired sessions and returns how many were removed.
func (t *sessionTable) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, s := range t.sessions {
		if t.expired(s, now) {
			delete(t.sessions, id)
			n++
		}
	}
	return n
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
