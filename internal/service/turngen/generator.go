// Package turngen produces interviewer utterances. The primary path asks the
// configured chat-completion service; every upstream failure degrades to a
// canned, keyword-matched script so turn generation never fails from the
// controller's point of view.
package turngen

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

// Degradation reasons recorded on fallback turns.
const (
	ReasonTimeout    = "timeout"
	ReasonStatus     = "status"
	ReasonConnection = "connection"
	ReasonEmpty      = "empty"
)

// Generator implements the Turn Generator: welcome, respond, evaluate and
// report. All four operations are total; the returned TurnResult marks
// fallback output as Degraded with a reason instead of surfacing errors.
type Generator struct {
	llm              domain.ChatCompleter
	script           Script
	historyMaxTokens int
	tokens           tokenCounter
}

// New constructs a Generator. historyMaxTokens bounds the conversation
// context sent upstream; zero disables trimming.
func New(llm domain.ChatCompleter, script Script, historyMaxTokens int) *Generator {
	return &Generator{llm: llm, script: script, historyMaxTokens: historyMaxTokens}
}

// Welcome produces the opening message introducing the assessment.
func (g *Generator) Welcome(ctx domain.Context, candidateName string) domain.TurnResult {
	name := candidateName
	if name == "" {
		name = "there"
	}
	prompt := fmt.Sprintf(
		"Greet the candidate %s professionally and explain: this is a technical interview "+
			"focused on Excel skills, it takes about 20-30 minutes, and they will answer a "+
			"series of questions. Then ask the first question: %q. Keep it warm but "+
			"professional, under 100 words.", name, g.script.Questions[0])
	return g.generate(ctx, "welcome", []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: g.script.System},
		{Role: domain.RoleUser, Content: prompt},
	}, func() string {
		return fmt.Sprintf(strings.TrimSpace(g.script.Welcome), name) + "\n\n" + g.script.Questions[0]
	})
}

// Respond produces the next interviewer utterance for the candidate's latest
// message. turnsAnswered is the session's turn counter before this message is
// counted; the fallback uses it to pick the next scripted question, so
// progression stays strictly counter-driven.
func (g *Generator) Respond(ctx domain.Context, history []domain.Message, latest string, turnsAnswered int) domain.TurnResult {
	msgs := []domain.ChatMessage{{Role: domain.RoleSystem, Content: g.script.System}}
	msgs = append(msgs, g.tokens.trimHistory(toChat(history), g.historyMaxTokens)...)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: latest})
	return g.generate(ctx, "respond", msgs, func() string {
		return g.script.Ack(latest) + "\n\n" + g.script.NextQuestion(turnsAnswered)
	})
}

// Evaluate produces a crude quality assessment of a single answer. Scoring is
// intentionally mocked: the fixed rubric score is returned regardless of the
// feedback path, which is a documented non-goal rather than a bug.
func (g *Generator) Evaluate(ctx domain.Context, question, answer string) domain.Evaluation {
	prompt := fmt.Sprintf(
		"Evaluate this Excel interview answer.\n\nQuestion: %s\nCandidate answer: %s\n\n"+
			"Provide brief feedback (2-3 sentences) on what was good and what needs "+
			"improvement. Be fair but thorough and focus on technical accuracy.",
		question, answer)
	res := g.generate(ctx, "evaluate", []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: g.script.System},
		{Role: domain.RoleUser, Content: prompt},
	}, func() string { return strings.TrimSpace(g.script.EvaluationFeedback) })

	const score, maxScore = 7.5, 10.0
	return domain.Evaluation{
		Score:     score,
		MaxScore:  maxScore,
		Feedback:  res.Text,
		IsCorrect: score >= 6.0,
	}
}

// Report synthesizes a free-text assessment summary from the transcript.
func (g *Generator) Report(ctx domain.Context, s domain.Session) domain.TurnResult {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a comprehensive Excel skills assessment report.\n\n")
	fmt.Fprintf(&b, "Candidate: %s\nQuestions answered: %d of %d\n\nTranscript:\n", s.CandidateEmail, s.TurnCounter, domain.QuestionCeiling)
	for _, m := range g.tokens.trimHistory(toChat(s.Transcript), g.historyMaxTokens) {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("\nProvide: an executive summary (2-3 sentences), strengths observed, " +
		"areas for improvement, and an overall recommendation " +
		"(Strong/Moderate/Needs Development). Be professional and constructive.")

	return g.generate(ctx, "report", []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: g.script.System},
		{Role: domain.RoleUser, Content: b.String()},
	}, func() string {
		return fmt.Sprintf(strings.TrimSpace(g.script.Report), s.CandidateEmail, s.TurnCounter, domain.QuestionCeiling)
	})
}

// generate runs the primary LLM path and degrades to fallback on any failure
// or empty reply. Upstream errors never propagate to the caller.
func (g *Generator) generate(ctx domain.Context, operation string, msgs []domain.ChatMessage, fallback func() string) domain.TurnResult {
	text, err := g.llm.Complete(ctx, msgs)
	if err == nil {
		text = strings.TrimSpace(text)
		if text != "" {
			return domain.TurnResult{Text: text}
		}
		err = fmt.Errorf("empty reply")
	}

	reason := reasonFor(err)
	slog.Warn("turn generation degraded to fallback",
		slog.String("operation", operation),
		slog.String("reason", reason),
		slog.Any("error", err))
	observability.RecordFallbackTurn(operation, reason)
	return domain.TurnResult{Text: fallback(), Degraded: true, Reason: reason}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return ReasonTimeout
	case errors.Is(err, domain.ErrUpstreamStatus):
		return ReasonStatus
	case err != nil && err.Error() == "empty reply":
		return ReasonEmpty
	default:
		return ReasonConnection
	}
}

func toChat(history []domain.Message) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		role := domain.RoleAssistant
		if m.Sender == domain.SenderCandidate {
			role = domain.RoleUser
		}
		out = append(out, domain.ChatMessage{Role: role, Content: m.Text})
	}
	return out
}
