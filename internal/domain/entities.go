// Package domain holds the core entities, ports, and error taxonomy for the
// interview service. It stays free of third-party dependencies; adapters and
// usecases depend on it, never the other way around.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrUpstreamStatus  = errors.New("upstream status")
	ErrInternal        = errors.New("internal error")
)

// QuestionCeiling is the fixed number of candidate answers after which a
// session is marked completed. Progression is strictly counter-driven;
// answer content never affects whether the interview advances.
const QuestionCeiling = 5

// SessionStatus enumerates the lifecycle states of an interview session.
// The only legal transition is SessionActive -> SessionCompleted.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Message senders.
const (
	SenderCandidate   = "candidate"
	SenderInterviewer = "interviewer"
)

// Message is one transcript turn: either a candidate message or an
// interviewer response.
type Message struct {
	Sender    string
	Text      string
	CreatedAt time.Time
}

// Session represents one candidate's interview attempt.
//
// Invariants: TurnCounter equals the number of candidate messages processed
// and is monotonically non-decreasing; Transcript is append-only and keeps
// insertion order; Status transitions only active -> completed.
type Session struct {
	ID             string
	CandidateEmail string
	CandidateName  string
	Status         SessionStatus
	TurnCounter    int
	Transcript     []Message
	Report         string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// Completed reports whether the session has reached its terminal state.
func (s *Session) Completed() bool { return s.Status == SessionCompleted }

// Complete flips the session to completed at the given time. It is a no-op
// on an already-completed session so the transition is never reversed and
// CompletedAt is set exactly once.
func (s *Session) Complete(at time.Time) {
	if s.Status == SessionCompleted {
		return
	}
	s.Status = SessionCompleted
	s.CompletedAt = &at
}

// Append adds a transcript turn.
func (s *Session) Append(sender, text string, at time.Time) {
	s.Transcript = append(s.Transcript, Message{Sender: sender, Text: text, CreatedAt: at})
}

// TurnResult is the outcome of one turn-generation call. Degraded marks text
// produced by the canned fallback path rather than the language model, with a
// machine-readable Reason, so callers and tests can tell the two apart
// without parsing strings. Turn generation is total: it never returns a hard
// error to the controller.
type TurnResult struct {
	Text     string
	Degraded bool
	Reason   string
}

// Evaluation is the crude quality assessment of a single answer.
type Evaluation struct {
	Score     float64
	MaxScore  float64
	Feedback  string
	IsCorrect bool
}

// ChatMessage is a provider-neutral chat-completion message.
type ChatMessage struct {
	Role    string
	Content string
}

// Chat roles understood by every completion provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionRepository is the Session Store port.
//
// Update applies mutate to the stored session in place and fails with
// ErrNotFound when id is absent. Implementations guarantee that concurrent
// updates to different sessions proceed independently; two concurrent updates
// to the same session are an accepted race (last writer wins), per the
// documented design gap.
type SessionRepository interface {
	Create(ctx Context, s Session) (Session, error)
	Get(ctx Context, id string) (Session, error)
	Update(ctx Context, id string, mutate func(*Session)) (Session, error)
}

// ChatCompleter is the external chat-completion boundary. Implementations
// call a model service ({model, messages, stream:false} in, reply content
// out) and surface timeouts and non-success statuses as errors wrapped with
// the upstream sentinels above.
type ChatCompleter interface {
	Complete(ctx Context, messages []ChatMessage) (string, error)
}

// Context aliases the standard context so domain signatures read uniformly;
// adapters pass context.Context straight through.
type Context = context.Context
