package steam

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidReference    = errors.New("invalid profile reference")
	ErrAccountNotFound     = errors.New("account not found")
	ErrLibraryUnavailable  = errors.New("library unavailable")
	ErrMetadataUnavailable = errors.New("metadata unavailable")
)

const (
	guidanceInvalidReference = "Please enter a valid Steam profile.\n\n" +
		"Supported formats:\n" +
		"- https://steamcommunity.com/id/<name>\n" +
		"- https://steamcommunity.com/profiles/76561198012345678\n" +
		"- a 17-digit Steam ID"

	guidanceLibraryUnavailable = "Could not load the game library.\n\n" +
		"Possible causes:\n" +
		"1. The profile is private\n" +
		"2. Game details are private\n\n" +
		"To fix it:\n" +
		"1. Steam > Profile > Edit Profile > Privacy Settings\n" +
		"2. Set \"My profile\" to Public\n" +
		"3. Set \"Game details\" to Public\n" +
		"4. Wait a minute or two and try again"
)

func guidanceAccountNotFound(handle string) string {
	return fmt.Sprintf("Could not find a Steam user named %q.\nPlease check the profile URL.", handle)
}

// Error carries a kind, the user-facing guidance text and the underlying
// transport failure, if any.
type Error struct {
	Kind     error
	Guidance string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Guidance returns the user-facing text attached to err, or "" when err is
// not a steam.Error.
func Guidance(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Guidance
	}
	return ""
}

func newError(kind error, guidance string, cause error) *Error {
	return &Error{Kind: kind, Guidance: guidance, Err: cause}
}
