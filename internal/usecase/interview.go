// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

// TurnGenerator produces interviewer utterances. All operations are total:
// upstream failures surface as Degraded results, never as errors.
type TurnGenerator interface {
	Welcome(ctx domain.Context, candidateName string) domain.TurnResult
	Respond(ctx domain.Context, history []domain.Message, latest string, turnsAnswered int) domain.TurnResult
	Evaluate(ctx domain.Context, question, answer string) domain.Evaluation
	Report(ctx domain.Context, s domain.Session) domain.TurnResult
}

// InterviewService orchestrates the session lifecycle: start, answer loop,
// status, report. Generation always happens outside the store's locks so one
// session's slow model call never blocks another session's requests.
type InterviewService struct {
	Sessions domain.SessionRepository
	Turns    TurnGenerator
}

// NewInterviewService constructs an InterviewService with its dependencies.
func NewInterviewService(sessions domain.SessionRepository, turns TurnGenerator) InterviewService {
	return InterviewService{Sessions: sessions, Turns: turns}
}

// StartResult is the outcome of starting an interview.
type StartResult struct {
	Session        domain.Session
	WelcomeMessage string
	Degraded       bool
}

// Start creates a session for the candidate and produces the opening
// interviewer turn.
func (s InterviewService) Start(ctx domain.Context, candidateEmail, candidateName string) (StartResult, error) {
	if strings.TrimSpace(candidateEmail) == "" {
		return StartResult{}, fmt.Errorf("%w: candidate_email required", domain.ErrInvalidArgument)
	}

	welcome := s.Turns.Welcome(ctx, candidateName)

	now := time.Now().UTC()
	sess := domain.Session{
		CandidateEmail: candidateEmail,
		CandidateName:  candidateName,
		Status:         domain.SessionActive,
		CreatedAt:      now,
	}
	sess.Append(domain.SenderInterviewer, welcome.Text, now)

	created, err := s.Sessions.Create(ctx, sess)
	if err != nil {
		return StartResult{}, fmt.Errorf("op=interview.start: %w", err)
	}
	observability.InterviewsStartedTotal.Inc()
	slog.Info("interview started",
		slog.String("session_id", created.ID),
		slog.String("candidate_email", created.CandidateEmail),
		slog.Bool("degraded_welcome", welcome.Degraded))
	return StartResult{Session: created, WelcomeMessage: welcome.Text, Degraded: welcome.Degraded}, nil
}

// MessageResult is the outcome of one candidate message.
type MessageResult struct {
	Response       string
	QuestionNumber int
	Completed      bool
	Degraded       bool
}

// HandleMessage processes one candidate message: appends the candidate turn,
// generates the interviewer reply, appends it, increments the turn counter,
// and completes the session once the counter reaches the question ceiling.
//
// Two concurrent calls for the same session are an accepted race: the last
// counter increment wins and transcript order follows completion order of
// the generation calls, not submission order.
func (s InterviewService) HandleMessage(ctx domain.Context, sessionID, message string) (MessageResult, error) {
	if strings.TrimSpace(message) == "" {
		return MessageResult{}, fmt.Errorf("%w: message required", domain.ErrInvalidArgument)
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return MessageResult{}, err
	}
	if sess.Completed() {
		return MessageResult{}, fmt.Errorf("%w: session %s already completed", domain.ErrConflict, sessionID)
	}

	// Generate before mutating: the model call may take tens of seconds and
	// must not hold up the store.
	reply := s.Turns.Respond(ctx, sess.Transcript, message, sess.TurnCounter)

	receivedAt := time.Now().UTC()
	completedNow := false
	updated, err := s.Sessions.Update(ctx, sessionID, func(cur *domain.Session) {
		cur.Append(domain.SenderCandidate, message, receivedAt)
		cur.Append(domain.SenderInterviewer, reply.Text, time.Now().UTC())
		cur.TurnCounter++
		if cur.TurnCounter >= domain.QuestionCeiling && !cur.Completed() {
			cur.Complete(time.Now().UTC())
			completedNow = true
		}
	})
	if err != nil {
		return MessageResult{}, err
	}
	if completedNow {
		observability.InterviewsCompletedTotal.Inc()
	}
	slog.Info("message processed",
		slog.String("session_id", sessionID),
		slog.Int("question_number", updated.TurnCounter),
		slog.Bool("degraded", reply.Degraded))
	return MessageResult{
		Response:       reply.Text,
		QuestionNumber: updated.TurnCounter,
		Completed:      updated.Completed(),
		Degraded:       reply.Degraded,
	}, nil
}

// StatusResult is a read-only progress snapshot.
type StatusResult struct {
	Session              domain.Session
	TotalQuestions       int
	CompletionPercentage float64
	MessageCount         int
}

// Status returns the session's progress. It performs no mutation, so two
// consecutive calls without an intervening message return identical values.
func (s InterviewService) Status(ctx domain.Context, sessionID string) (StatusResult, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return StatusResult{}, err
	}
	pct := math.Min(100, float64(sess.TurnCounter)/float64(domain.QuestionCeiling)*100)
	return StatusResult{
		Session:              sess,
		TotalQuestions:       domain.QuestionCeiling,
		CompletionPercentage: pct,
		MessageCount:         len(sess.Transcript),
	}, nil
}

// ReportResult is the final assessment.
type ReportResult struct {
	Session     domain.Session
	Report      string
	GeneratedAt time.Time
	Degraded    bool
}

// Report returns the assessment report, generating and caching it on first
// request. Requesting the report completes the session as a side effect.
func (s InterviewService) Report(ctx domain.Context, sessionID string) (ReportResult, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return ReportResult{}, err
	}

	now := time.Now().UTC()
	if sess.Report != "" {
		return ReportResult{Session: sess, Report: sess.Report, GeneratedAt: now}, nil
	}

	generated := s.Turns.Report(ctx, sess)

	completedNow := false
	updated, err := s.Sessions.Update(ctx, sessionID, func(cur *domain.Session) {
		if cur.Report == "" {
			cur.Report = generated.Text
		}
		if !cur.Completed() {
			cur.Complete(time.Now().UTC())
			completedNow = true
		}
	})
	if err != nil {
		return ReportResult{}, err
	}
	if completedNow {
		observability.InterviewsCompletedTotal.Inc()
	}
	slog.Info("report generated",
		slog.String("session_id", sessionID),
		slog.Bool("degraded", generated.Degraded))
	return ReportResult{Session: updated, Report: updated.Report, GeneratedAt: now, Degraded: generated.Degraded}, nil
}

// EvaluateResult is the crude per-answer assessment.
type EvaluateResult struct {
	Evaluation domain.Evaluation
	NextAction string
}

// Evaluate scores a single answer against the most recent interviewer
// question. Scoring is intentionally crude (fixed rubric score); see the
// turn generator.
func (s InterviewService) Evaluate(ctx domain.Context, sessionID, answer string) (EvaluateResult, error) {
	if strings.TrimSpace(answer) == "" {
		return EvaluateResult{}, fmt.Errorf("%w: answer required", domain.ErrInvalidArgument)
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return EvaluateResult{}, err
	}

	question := lastInterviewerTurn(sess.Transcript)
	ev := s.Turns.Evaluate(ctx, question, answer)

	next := "continue"
	if sess.Completed() {
		next = "complete"
	}
	return EvaluateResult{Evaluation: ev, NextAction: next}, nil
}

func lastInterviewerTurn(transcript []domain.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Sender == domain.SenderInterviewer {
			return transcript[i].Text
		}
	}
	return ""
}
