package access

import "net/http"

// ErrorKind classifies an authentication or authorization failure.
type ErrorKind string

const (
	KindAuthenticationRequired ErrorKind = "AuthenticationRequired"
	KindInvalidToken           ErrorKind = "InvalidToken"
	KindNotApproved            ErrorKind = "NotApproved"
	KindInsufficientPermission ErrorKind = "InsufficientPermission"
	KindValidation             ErrorKind = "ValidationError"
	KindPersistence            ErrorKind = "PersistenceError"
	KindNotFound               ErrorKind = "NotFound"
)

// HTTPStatus maps the kind to its response status.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindInvalidToken, KindNotApproved, KindInsufficientPermission:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message is the generic user-facing text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindAuthenticationRequired:
		return "Access token required"
	case KindInvalidToken:
		return "Invalid or expired token"
	case KindNotApproved:
		return "Account is not approved"
	case KindInsufficientPermission:
		return "Insufficient permissions"
	case KindValidation:
		return "Invalid request"
	case KindNotFound:
		return "Resource not found"
	default:
		return "Internal server error"
	}
}
