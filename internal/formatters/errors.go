package formatters

import (
	"errors"
	"fmt"
	"math"

	"github.com/askdoc/askdoc/internal/models"
)

const (
	emptyQueryText    = "Please include a question after mentioning me."
	retrievalDownText = "Sorry, I couldn't search the docs right now. Please try again in a few minutes."
	genericErrorText  = "Sorry, something went wrong while answering your question. Please try again."
)

// friendlyErrorText maps pipeline errors to chat-facing text. Internal
// detail never reaches the user.
func friendlyErrorText(err error) string {
	var rateLimitErr *models.RateLimitError
	if errors.As(err, &rateLimitErr) {
		seconds := int(math.Ceil(rateLimitErr.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		return fmt.Sprintf("You're asking questions a little too quickly. Please wait %d seconds and try again.", seconds)
	}
	if errors.Is(err, models.ErrEmptyQuery) {
		return emptyQueryText
	}
	var retrievalErr *models.RetrievalError
	if errors.As(err, &retrievalErr) {
		return retrievalDownText
	}
	return genericErrorText
}
