// Package auth derives a per-request authorization context from a bearer
// credential and offers the assertion helpers the service layer gates on.
// It never answers "does subject X hold access level Y" — that decision is
// made declaratively by permission filters in the account store.
package auth

import "grantly.org/internal/apperr"

// Auth wraps the authenticated subject of one request, or nothing for an
// anonymous caller. Created per request, discarded after.
type Auth struct {
	subject string
}

// NewAuth builds an Auth for the given subject. An empty subject yields an
// anonymous context.
func NewAuth(subject string) Auth {
	return Auth{subject: subject}
}

// Assert fails when no subject is present.
func (a Auth) Assert() error {
	if a.subject == "" {
		return apperr.Unauthorized("authorization-missing")
	}
	return nil
}

// AssertSubject fails when no subject is present and returns the subject
// otherwise.
func (a Auth) AssertSubject() (string, error) {
	if a.subject == "" {
		return "", apperr.Unauthorized("subject-missing")
	}
	return a.subject, nil
}
