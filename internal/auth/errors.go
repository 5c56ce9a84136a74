package auth

import (
	"errors"

	"orgcms.dev/cms/pkg/access"
)

var (
	ErrAuthenticationRequired = errors.New("auth: authentication required")
	ErrInvalidToken           = errors.New("auth: invalid token")
	ErrNotApproved            = errors.New("auth: account not approved")
	ErrForbidden              = errors.New("auth: insufficient permission")
	ErrInvalidCredentials     = errors.New("auth: invalid credentials")
	ErrInvalidInput           = errors.New("auth: invalid input")
	ErrNotFound               = errors.New("auth: not found")
	ErrAlreadyExists          = errors.New("auth: already exists")
	ErrPersistence            = errors.New("auth: persistence failure")
)

// KindOf classifies err for transport layers. Unknown errors are persistence failures.
func KindOf(err error) access.ErrorKind {
	switch {
	case errors.Is(err, ErrAuthenticationRequired), errors.Is(err, ErrInvalidCredentials):
		return access.KindAuthenticationRequired
	case errors.Is(err, ErrInvalidToken):
		return access.KindInvalidToken
	case errors.Is(err, ErrNotApproved):
		return access.KindNotApproved
	case errors.Is(err, ErrForbidden):
		return access.KindInsufficientPermission
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrAlreadyExists),
		errors.Is(err, access.ErrIncompleteOverride), errors.Is(err, access.ErrUnknownRole),
		errors.Is(err, access.ErrUnknownStatus), errors.Is(err, access.ErrUnknownAction):
		return access.KindValidation
	case errors.Is(err, ErrNotFound):
		return access.KindNotFound
	default:
		return access.KindPersistence
	}
}

// ErrorForKind returns the sentinel matching a denial kind.
func ErrorForKind(kind access.ErrorKind) error {
	switch kind {
	case access.KindAuthenticationRequired:
		return ErrAuthenticationRequired
	case access.KindInvalidToken:
		return ErrInvalidToken
	case access.KindNotApproved:
		return ErrNotApproved
	case access.KindInsufficientPermission:
		return ErrForbidden
	case access.KindValidation:
		return ErrInvalidInput
	case access.KindNotFound:
		return ErrNotFound
	default:
		return ErrPersistence
	}
}
