package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/usecase"
)

// Server holds the HTTP handlers for the interview API.
type Server struct {
	Interviews usecase.InterviewService
	Version    string
	Env        string
	validate   *validator.Validate
}

// NewServer constructs the HTTP handler set.
func NewServer(interviews usecase.InterviewService, version, env string) *Server {
	return &Server{
		Interviews: interviews,
		Version:    version,
		Env:        env,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// decodeValid decodes JSON into dst and runs struct validation, writing the
// error response itself. It reports whether the handler should proceed.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidArgument))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			writeValidationError(w, details)
			return false
		}
		writeError(w, err)
		return false
	}
	return true
}

type startRequest struct {
	CandidateEmail string `json:"candidate_email" validate:"required,email"`
	CandidateName  string `json:"candidate_name" validate:"max=200"`
}

type startResponse struct {
	SessionID      string `json:"session_id"`
	Status         string `json:"status"`
	WelcomeMessage string `json:"welcome_message"`
	CandidateEmail string `json:"candidate_email"`
}

// StartInterview handles POST /api/interviews/start.
func (s *Server) StartInterview(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	res, err := s.Interviews.Start(r.Context(), req.CandidateEmail, req.CandidateName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		SessionID:      res.Session.ID,
		Status:         "started",
		WelcomeMessage: res.WelcomeMessage,
		CandidateEmail: res.Session.CandidateEmail,
	})
}

type messageRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type messageResponse struct {
	Response       string `json:"response"`
	SessionID      string `json:"session_id"`
	QuestionNumber int    `json:"question_number"`
}

// ChatMessage handles POST /api/interviews/chat/message.
func (s *Server) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	res, err := s.Interviews.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Response:       res.Response,
		SessionID:      req.SessionID,
		QuestionNumber: res.QuestionNumber,
	})
}

type progressBody struct {
	CurrentQuestion      int     `json:"current_question"`
	TotalQuestions       int     `json:"total_questions"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type statusResponse struct {
	SessionID      string       `json:"session_id"`
	Status         string       `json:"status"`
	Progress       progressBody `json:"progress"`
	StartedAt      time.Time    `json:"started_at"`
	CandidateEmail string       `json:"candidate_email"`
	MessageCount   int          `json:"message_count"`
}

// InterviewStatus handles GET /api/interviews/status/{session_id}.
func (s *Server) InterviewStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.Interviews.Status(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		SessionID: res.Session.ID,
		Status:    string(res.Session.Status),
		Progress: progressBody{
			CurrentQuestion:      res.Session.TurnCounter,
			TotalQuestions:       res.TotalQuestions,
			CompletionPercentage: res.CompletionPercentage,
		},
		StartedAt:      res.Session.CreatedAt,
		CandidateEmail: res.Session.CandidateEmail,
		MessageCount:   res.MessageCount,
	})
}

type reportResponse struct {
	SessionID         string    `json:"session_id"`
	CandidateEmail    string    `json:"candidate_email"`
	Status            string    `json:"status"`
	Report            string    `json:"report"`
	QuestionsAnswered int       `json:"questions_answered"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// InterviewReport handles GET /api/interviews/report/{session_id}.
func (s *Server) InterviewReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.Interviews.Report(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		SessionID:         res.Session.ID,
		CandidateEmail:    res.Session.CandidateEmail,
		Status:            string(res.Session.Status),
		Report:            res.Report,
		QuestionsAnswered: res.Session.TurnCounter,
		GeneratedAt:       res.GeneratedAt,
	})
}

type evaluateRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
	QuestionID string `json:"question_id"`
}

type evaluateResponse struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Feedback   string  `json:"feedback"`
	IsCorrect  bool    `json:"is_correct"`
	NextAction string  `json:"next_action"`
}

// EvaluateAnswer handles POST /api/interviews/evaluate.
func (s *Server) EvaluateAnswer(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	res, err := s.Interviews.Evaluate(r.Context(), req.SessionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{
		Score:      res.Evaluation.Score,
		MaxScore:   res.Evaluation.MaxScore,
		Feedback:   res.Evaluation.Feedback,
		IsCorrect:  res.Evaluation.IsCorrect,
		NextAction: res.NextAction,
	})
}

// Root handles GET / with basic service info.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "AI Excel Interviewer API",
		"status":      "running",
		"version":     s.Version,
		"environment": s.Env,
	})
}

// Healthz handles GET /healthz. Liveness only; readiness is separate.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
