package service

import "errors"

// Taxonomía de errores del núcleo de chat. Los fallos de autenticación y de
// acceso abortan solo la operación que los produjo; los fallos de barrido se
// registran y se reintentan en el siguiente intervalo.
var (
	ErrCredentialMissing     = errors.New("credential missing")
	ErrCredentialMalformed   = errors.New("credential malformed")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrAuthenticationTimeout = errors.New("authentication timeout")
	ErrAccessDenied          = errors.New("access denied")
	ErrInvalidMessage        = errors.New("invalid message")
	ErrSessionClosed         = errors.New("session closed")
	ErrPersistenceFailed     = errors.New("persistence failed")
	ErrSweepCycleFailed      = errors.New("sweep cycle failed")
)

// ErrorKind traduce un error del núcleo al campo "kind" del evento de error
// que recibe el cliente.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrCredentialMissing):
		return "credential_missing"
	case errors.Is(err, ErrCredentialMalformed):
		return "credential_malformed"
	case errors.Is(err, ErrAuthenticationFailed):
		return "authentication_failed"
	case errors.Is(err, ErrAuthenticationTimeout):
		return "authentication_timeout"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, ErrPersistenceFailed):
		return "persistence_failed"
	case errors.Is(err, ErrSweepCycleFailed):
		return "sweep_cycle_failed"
	}
	return "internal"
}

// ErrorMessage devuelve el texto fijo que acompaña al evento de error. El
// detalle interno del fallo (mensajes del driver, causas envueltas) nunca
// viaja hacia el cliente; queda solo en los logs.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrCredentialMissing):
		return "credential is required"
	case errors.Is(err, ErrCredentialMalformed):
		return "credential is malformed"
	case errors.Is(err, ErrAuthenticationFailed):
		return "authentication failed"
	case errors.Is(err, ErrAuthenticationTimeout):
		return "authentication timed out"
	case errors.Is(err, ErrAccessDenied):
		return "access denied"
	case errors.Is(err, ErrInvalidMessage):
		return "message is empty or too long"
	case errors.Is(err, ErrSessionClosed):
		return "session is closed"
	case errors.Is(err, ErrPersistenceFailed):
		return "could not save changes"
	}
	return "internal error"
}
