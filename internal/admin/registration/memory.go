package registration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"finitefield.org/blog-admin/internal/admin/rbac"
)

// ErrInvalidPassword is returned by CheckPassword for unknown accounts or wrong passwords.
var ErrInvalidPassword = errors.New("registration: invalid email or password")

type account struct {
	uid  string
	hash []byte
}

type profile struct {
	email string
	roles []string
}

// MemoryRegistrar keeps accounts in process memory. It backs local development,
// where the issued token is the user id and LookupAccount resolves it back.
type MemoryRegistrar struct {
	mu        sync.RWMutex
	accounts  map[string]account
	profiles  map[string]profile
	providers map[string]struct{}
	cost      int
}

// NewMemoryRegistrar returns an empty registrar. A cost of zero uses bcrypt.DefaultCost.
func NewMemoryRegistrar(cost int, providerIDs ...string) *MemoryRegistrar {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	providers := make(map[string]struct{}, len(providerIDs))
	for _, id := range providerIDs {
		providers[id] = struct{}{}
	}
	return &MemoryRegistrar{
		accounts:  make(map[string]account),
		profiles:  make(map[string]profile),
		providers: providers,
		cost:      cost,
	}
}

// Register implements Delegate. Successful registrations are signed in directly.
func (m *MemoryRegistrar) Register(_ context.Context, params Params) (Outcome, error) {
	if params.IsProvider() {
		if _, ok := m.providers[params.Provider]; !ok {
			return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownProvider, params.Provider)
		}
		uid := params.Provider + "-" + randomID()
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.record(uid, ""), nil
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), m.cost)
	if err != nil {
		return Outcome{}, fmt.Errorf("registration: hash password: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[email]; exists {
		return Outcome{}, ErrEmailTaken
	}
	uid := "user-" + randomID()
	m.accounts[email] = account{uid: uid, hash: hash}
	return m.record(uid, email), nil
}

// CheckPassword verifies a password sign-in and returns the account id.
func (m *MemoryRegistrar) CheckPassword(email, password string) (string, error) {
	m.mu.RLock()
	acct, ok := m.accounts[strings.ToLower(strings.TrimSpace(email))]
	m.mu.RUnlock()
	if !ok {
		return "", ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return acct.uid, nil
}

// LookupAccount returns the email and roles of the account a token was issued to.
func (m *MemoryRegistrar) LookupAccount(token string) (string, []string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[token]
	if !ok {
		return "", nil, false
	}
	return p.email, append([]string(nil), p.roles...), true
}

// Len reports the number of password accounts.
func (m *MemoryRegistrar) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// record stores the profile for uid. Callers hold m.mu.
func (m *MemoryRegistrar) record(uid, email string) Outcome {
	roles := append([]string(nil), rbac.DefaultRoles...)
	m.profiles[uid] = profile{email: email, roles: roles}
	return Outcome{
		UserID: uid,
		Email:  email,
		Roles:  append([]string(nil), roles...),
		Token:  uid,
	}
}

func randomID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
