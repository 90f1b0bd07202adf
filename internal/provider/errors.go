package provider

import "fmt"

// AuthError is a rejection from the provider's auth endpoints
// (bad credentials, duplicate signup, invalid session).
type AuthError struct {
	Status  int    // HTTP status, 0 when not applicable
	Message string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth error (%d): %s", e.Status, e.Message)
	}
	return "auth error: " + e.Message
}

// DbError is a rejection from the provider's table endpoints,
// including permission-denied from row-level access policies.
type DbError struct {
	Code    string // provider error code, may be empty
	Message string
}

func (e *DbError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("db error (%s): %s", e.Code, e.Message)
	}
	return "db error: " + e.Message
}
