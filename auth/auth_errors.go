package auth

import "fmt"

const (
	defaultLoginMessage  = "Error al iniciar sesión"
	defaultGoogleMessage = "Error al iniciar sesión con Google"
)

// LoginError is a business failure reported by the backend on a login path.
// Code carries the backend's response code when there is one.
type LoginError struct {
	Code    string
	Message string
}

func (e *LoginError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func loginError(code, message string) *LoginError {
	return &LoginError{Code: code, Message: message}
}
