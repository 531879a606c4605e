package pipeline

import (
	"context"
	"errors"

	"github.com/xaenox/gamer-card/internal/steam"
)

const genericGuidance = "Something went wrong while analysing this profile. Please try again in a moment."

// Describe turns a run error into a short message and the guidance text to
// show the user. Transport details never reach the guidance.
func Describe(err error) (message, guidance string) {
	switch {
	case errors.Is(err, steam.ErrInvalidReference):
		message = steam.ErrInvalidReference.Error()
	case errors.Is(err, steam.ErrAccountNotFound):
		message = steam.ErrAccountNotFound.Error()
	case errors.Is(err, steam.ErrLibraryUnavailable):
		message = steam.ErrLibraryUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "analysis timed out", "The analysis took too long. Please try again in a moment."
	case errors.Is(err, context.Canceled):
		return "analysis cancelled", "The analysis was cancelled."
	default:
		return "analysis failed", genericGuidance
	}

	guidance = steam.Guidance(err)
	if guidance == "" {
		guidance = genericGuidance
	}
	return message, guidance
}
