package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Bigalan09/PlayShelf-sub000/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Rate limit errors are handled uniformly
// regardless of the provided cases.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var limitErr *usecase.RateLimitExceededError
	if errors.As(err, &limitErr) {
		respondRateLimited(c, limitErr)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func respondRateLimited(c *gin.Context, limitErr *usecase.RateLimitExceededError) {
	seconds := int(math.Ceil(limitErr.RetryAfter.Seconds()))
	if seconds < 0 {
		seconds = 0
	}

	c.Writer.Header().Set("Retry-After", strconv.Itoa(seconds))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":      "too many requests",
		"retryAfter": seconds,
	})
}
