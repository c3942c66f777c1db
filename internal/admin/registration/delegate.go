package registration

import (
	"context"
	"errors"
	"strings"

	"github.com/a-h/templ"
)

var (
	// ErrSubmissionInFlight is returned when a form already has a submission being dispatched.
	ErrSubmissionInFlight = errors.New("registration: submission already in flight")
	// ErrUnknownProvider is returned for provider identifiers that are not offered.
	ErrUnknownProvider = errors.New("registration: unknown provider")
	// ErrEmailTaken is returned by delegates when the email already has an account.
	ErrEmailTaken = errors.New("registration: email already registered")
)

// Credentials is the validated password registration payload.
type Credentials struct {
	Email    string
	Password string
}

// Params is what a Delegate receives: either credentials or a provider
// identifier, never both.
type Params struct {
	Email    string
	Password string
	Provider string
}

// IsProvider reports whether the params describe a provider registration.
func (p Params) IsProvider() bool {
	return p.Provider != ""
}

// Outcome is what a registration produced. All fields are optional; the HTTP
// layer signs the user in when Token is set and redirects to RedirectTo.
type Outcome struct {
	UserID     string
	Email      string
	Roles      []string
	Token      string
	RedirectTo string
}

// Delegate performs the actual registration side effect.
type Delegate interface {
	Register(ctx context.Context, params Params) (Outcome, error)
}

// DelegateFunc adapts a function into a Delegate.
type DelegateFunc func(ctx context.Context, params Params) (Outcome, error)

// Register implements Delegate.
func (f DelegateFunc) Register(ctx context.Context, params Params) (Outcome, error) {
	return f(ctx, params)
}

// SubmitFunc replaces the default delegate for credential submissions.
type SubmitFunc func(ctx context.Context, creds Credentials) (Outcome, error)

// Provider describes an external identity provider offered as a shortcut button.
type Provider struct {
	ID    string
	Label string
	Icon  templ.Component
}

// DisplayLabel returns the label, or the identifier when no label is set.
func (p Provider) DisplayLabel() string {
	if label := strings.TrimSpace(p.Label); label != "" {
		return label
	}
	return p.ID
}
