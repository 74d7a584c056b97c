package model

import "errors"

var (
	ErrDuplicateEmail         = errors.New("email already in use")
	ErrWeakPassword           = errors.New("password must be at least 6 characters")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid password")
	ErrInvalidToken           = errors.New("invalid token")
	ErrMissingInput           = errors.New("missing input")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrNotFound               = errors.New("not found")
	ErrOperationFailed        = errors.New("operation failed")
)

var codes = []struct {
	code string
	err  error
}{
	{"DuplicateEmail", ErrDuplicateEmail},
	{"WeakPassword", ErrWeakPassword},
	{"UserNotFound", ErrUserNotFound},
	{"InvalidCredentials", ErrInvalidCredentials},
	{"InvalidToken", ErrInvalidToken},
	{"MissingInput", ErrMissingInput},
	{"UnsupportedContentType", ErrUnsupportedContentType},
	{"NotFound", ErrNotFound},
	{"OperationFailed", ErrOperationFailed},
}

// Code returns the stable wire code for err. Errors outside the taxonomy
// report as OperationFailed.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "OperationFailed"
}

// ErrorForCode is the inverse of Code. Unknown codes map to ErrOperationFailed.
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return ErrOperationFailed
}
