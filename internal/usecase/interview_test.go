package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/usecase"
)

// stubTurns returns canned turn results and records what it was asked.
type stubTurns struct {
	welcomeText  string
	respondText  string
	degraded     bool
	reason       string
	lastCounter  int
	lastHistory  []domain.Message
	respondCalls int
}

func (s *stubTurns) Welcome(_ domain.Context, name string) domain.TurnResult {
	return domain.TurnResult{Text: s.welcomeText + " " + name, Degraded: s.degraded, Reason: s.reason}
}

func (s *stubTurns) Respond(_ domain.Context, history []domain.Message, latest string, turnsAnswered int) domain.TurnResult {
	s.respondCalls++
	s.lastCounter = turnsAnswered
	s.lastHistory = history
	text := s.respondText
	if text == "" {
		text = fmt.Sprintf("reply %d to %q", turnsAnswered, latest)
	}
	return domain.TurnResult{Text: text, Degraded: s.degraded, Reason: s.reason}
}

func (s *stubTurns) Evaluate(_ domain.Context, question, answer string) domain.Evaluation {
	return domain.Evaluation{Score: 7.5, MaxScore: 10, Feedback: "feedback on " + question, IsCorrect: true}
}

func (s *stubTurns) Report(_ domain.Context, sess domain.Session) domain.TurnResult {
	return domain.TurnResult{Text: fmt.Sprintf("report for %s", sess.CandidateEmail), Degraded: s.degraded, Reason: s.reason}
}

func newService(turns usecase.TurnGenerator) (usecase.InterviewService, *memory.SessionRepo) {
	repo := memory.NewSessionRepo()
	return usecase.NewInterviewService(repo, turns), repo
}

func TestStart_CreatesActiveSessionWithWelcome(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome"})

	res, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.ID)
	assert.Equal(t, domain.SessionActive, res.Session.Status)
	assert.Equal(t, 0, res.Session.TurnCounter)
	assert.Equal(t, "Welcome Jane", res.WelcomeMessage)
	require.Len(t, res.Session.Transcript, 1)
	assert.Equal(t, domain.SenderInterviewer, res.Session.Transcript[0].Sender)
}

func TestStart_EmptyEmailRejected(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{})

	_, err := svc.Start(context.Background(), "   ", "Jane")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestStart_DegradedWelcomeStillCreatesSession(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome", degraded: true, reason: "connection"})

	res, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.WelcomeMessage)
}

func TestHandleMessage_AppendsTurnsAndIncrementsCounter(t *testing.T) {
	t.Parallel()
	turns := &stubTurns{welcomeText: "Welcome"}
	svc, _ := newService(turns)

	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	res, err := svc.HandleMessage(context.Background(), started.Session.ID, "I would use VLOOKUP.")
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuestionNumber)
	assert.False(t, res.Completed)
	assert.NotEmpty(t, res.Response)

	// Respond saw the pre-increment counter and the history without the
	// latest candidate message.
	assert.Equal(t, 0, turns.lastCounter)
	require.Len(t, turns.lastHistory, 1)

	st, err := svc.Status(context.Background(), started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.MessageCount) // welcome + candidate + reply
	assert.Equal(t, domain.SenderCandidate, st.Session.Transcript[1].Sender)
	assert.Equal(t, domain.SenderInterviewer, st.Session.Transcript[2].Sender)
}

func TestHandleMessage_UnknownSession(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{})

	_, err := svc.HandleMessage(context.Background(), "nope", "hello")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandleMessage_EmptyMessageRejected(t *testing.T) {
	t.Parallel()
	turns := &stubTurns{welcomeText: "Welcome"}
	svc, _ := newService(turns)
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	_, err = svc.HandleMessage(context.Background(), started.Session.ID, "  ")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Zero(t, turns.respondCalls)
}

func TestHandleMessage_CompletesAtCeiling(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome"})
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	var last usecase.MessageResult
	for i := 0; i < domain.QuestionCeiling; i++ {
		last, err = svc.HandleMessage(context.Background(), started.Session.ID, fmt.Sprintf("answer %d", i+1))
		require.NoError(t, err)
	}
	assert.Equal(t, domain.QuestionCeiling, last.QuestionNumber)
	assert.True(t, last.Completed)

	st, err := svc.Status(context.Background(), started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, st.Session.Status)
	assert.NotNil(t, st.Session.CompletedAt)
	assert.Equal(t, float64(100), st.CompletionPercentage)
}

func TestHandleMessage_CompletedSessionConflicts(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome"})
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	for i := 0; i < domain.QuestionCeiling; i++ {
		_, err = svc.HandleMessage(context.Background(), started.Session.ID, "answer")
		require.NoError(t, err)
	}

	_, err = svc.HandleMessage(context.Background(), started.Session.ID, "one more")
	require.ErrorIs(t, err, domain.ErrConflict)

	// The rejected message must not have touched the transcript.
	st, err := svc.Status(context.Background(), started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1+2*domain.QuestionCeiling, st.MessageCount)
}

func TestStatus_IsIdempotent(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome"})
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	_, err = svc.HandleMessage(context.Background(), started.Session.ID, "answer")
	require.NoError(t, err)

	first, err := svc.Status(context.Background(), started.Session.ID)
	require.NoError(t, err)
	second, err := svc.Status(context.Background(), started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Session.TurnCounter, second.Session.TurnCounter)
	assert.Equal(t, first.MessageCount, second.MessageCount)
	assert.Equal(t, first.CompletionPercentage, second.CompletionPercentage)
	assert.InDelta(t, 20.0, first.CompletionPercentage, 0.001)
}

func TestStatus_UnknownSession(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{})

	_, err := svc.Status(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReport_GeneratesOnceAndCompletes(t *testing.T) {
	t.Parallel()
	turns := &stubTurns{welcomeText: "Welcome"}
	svc, _ := newService(turns)
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	_, err = svc.HandleMessage(context.Background(), started.Session.ID, "answer")
	require.NoError(t, err)

	first, err := svc.Report(context.Background(), started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "report for jane@example.com", first.Report)
	assert.Equal(t, domain.SessionCompleted, first.Session.Status)

	// Second request serves the cached report without regenerating.
	second, err := svc.Report(context.Background(), started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Report, second.Report)
}

func TestReport_UnknownSession(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{})

	_, err := svc.Report(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvaluate_ScoresAgainstLastQuestion(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome"})
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	res, err := svc.Evaluate(context.Background(), started.Session.ID, "Use a pivot table.")
	require.NoError(t, err)
	assert.Equal(t, 7.5, res.Evaluation.Score)
	assert.Equal(t, 10.0, res.Evaluation.MaxScore)
	assert.True(t, res.Evaluation.IsCorrect)
	assert.Equal(t, "continue", res.NextAction)
	assert.Contains(t, res.Evaluation.Feedback, "Welcome Jane")
}

func TestEvaluate_CompletedSessionReportsComplete(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome"})
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	for i := 0; i < domain.QuestionCeiling; i++ {
		_, err = svc.HandleMessage(context.Background(), started.Session.ID, "answer")
		require.NoError(t, err)
	}

	res, err := svc.Evaluate(context.Background(), started.Session.ID, "final thoughts")
	require.NoError(t, err)
	assert.Equal(t, "complete", res.NextAction)
}

func TestEvaluate_EmptyAnswerRejected(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubTurns{welcomeText: "Welcome"})
	started, err := svc.Start(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	_, err = svc.Evaluate(context.Background(), started.Session.ID, "")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
