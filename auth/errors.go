package auth

import "errors"

// BusinessError is a recoverable outcome that is reported to the caller as a
// value, as opposed to a fault.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// IsBusinessError reports whether err is, or wraps, a BusinessError.
func IsBusinessError(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

var (
	ErrInvalidCredentials = &BusinessError{Message: "invalid login attempt"}
	ErrInvalidEmail       = &BusinessError{Message: "invalid email"}
	ErrUserExists         = &BusinessError{Message: "user already exists"}
	ErrSeedPrecondition   = &BusinessError{Message: "users already exist, seeding requires force"}
)

var (
	ErrTokenNotRegistered = errors.New("refresh token not registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrResetPrecondition  = errors.New("pre-requisite to reset not met")
	ErrPasswordNotSet     = errors.New("user password is not set")
)
