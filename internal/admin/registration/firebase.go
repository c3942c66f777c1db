package registration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// FirebaseUserCreator is the subset of the Firebase Admin auth client used for sign-up.
type FirebaseUserCreator interface {
	CreateUser(ctx context.Context, user *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error)
}

// FirebaseRegistrar creates password accounts in Firebase Authentication and
// hands provider sign-ups to the provider's start URL. New password accounts
// are sent to the sign-in page since the browser still needs an ID token.
type FirebaseRegistrar struct {
	users        FirebaseUserCreator
	providerURLs map[string]string
	loginPath    string
}

// NewFirebaseRegistrar wires a registrar. providerURLs maps provider ids onto
// the URL that begins that provider's flow.
func NewFirebaseRegistrar(users FirebaseUserCreator, loginPath string, providerURLs map[string]string) *FirebaseRegistrar {
	if users == nil {
		panic("registration: firebase user creator is required")
	}
	if strings.TrimSpace(loginPath) == "" {
		loginPath = "/login"
	}
	urls := make(map[string]string, len(providerURLs))
	for id, u := range providerURLs {
		urls[id] = u
	}
	return &FirebaseRegistrar{users: users, providerURLs: urls, loginPath: loginPath}
}

// Register implements Delegate.
func (r *FirebaseRegistrar) Register(ctx context.Context, params Params) (Outcome, error) {
	if params.IsProvider() {
		target, ok := r.providerURLs[params.Provider]
		if !ok || target == "" {
			return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownProvider, params.Provider)
		}
		return Outcome{RedirectTo: target}, nil
	}

	toCreate := (&firebaseauth.UserToCreate{}).
		Email(params.Email).
		Password(params.Password)

	record, err := r.users.CreateUser(ctx, toCreate)
	if err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return Outcome{}, fmt.Errorf("%w: %w", ErrEmailTaken, err)
		}
		return Outcome{}, fmt.Errorf("registration: firebase create user: %w", err)
	}
	if record == nil || record.UserInfo == nil {
		return Outcome{}, errors.New("registration: firebase returned no user record")
	}

	return Outcome{
		UserID:     record.UID,
		Email:      record.Email,
		RedirectTo: r.loginRedirect(record.Email),
	}, nil
}

func (r *FirebaseRegistrar) loginRedirect(email string) string {
	u, err := url.Parse(r.loginPath)
	if err != nil {
		return r.loginPath
	}
	q := u.Query()
	q.Set("status", "registered")
	if email != "" {
		q.Set("email", email)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
