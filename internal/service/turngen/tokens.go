package turngen

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

// tokenCounter counts tokens with the cl100k_base encoding used by modern
// chat models. The encoding is loaded lazily; if it cannot be loaded (for
// example in an offline environment) a bytes/4 estimate is used instead so
// history trimming still behaves sensibly.
type tokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (c *tokenCounter) Count(s string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Debug("tiktoken encoding unavailable; using byte estimate", slog.Any("error", err))
			return
		}
		c.enc = enc
	})
	if c.enc != nil {
		return len(c.enc.Encode(s, nil, nil))
	}
	return len(s)/4 + 1
}

// trimHistory drops the oldest messages until the cumulative token count of
// the remainder fits within budget. Order is preserved; the newest message is
// always kept even if it alone exceeds the budget.
func (c *tokenCounter) trimHistory(history []domain.ChatMessage, budget int) []domain.ChatMessage {
	if budget <= 0 || len(history) == 0 {
		return history
	}
	total := 0
	cut := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += c.Count(history[i].Content)
		if total > budget && i < len(history)-1 {
			break
		}
		cut = i
	}
	return history[cut:]
}
