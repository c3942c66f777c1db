package registration

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"finitefield.org/blog-admin/internal/admin/i18n"
)

// Field names a registration input.
type Field string

const (
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

// emailPattern accepts local@domain.tld with a TLD of two or more letters.
var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// Message is a translatable text: a catalogue key plus the English fallback.
type Message struct {
	Key      string
	Fallback string
}

// FieldRule declares how one field is validated.
type FieldRule struct {
	Field          Field
	Trim           bool
	Required       bool
	RequiredMsg    Message
	Pattern        *regexp.Regexp
	PatternMessage Message
}

// DefaultFields is the registration form's field configuration.
var DefaultFields = []FieldRule{
	{
		Field:       FieldEmail,
		Trim:        true,
		Required:    true,
		RequiredMsg: Message{Key: "pages.register.errors.requiredEmail", Fallback: "Email is required"},
		Pattern:     emailPattern,
		PatternMessage: Message{
			Key:      "pages.register.errors.validEmail",
			Fallback: "Invalid email address",
		},
	},
	{
		Field:       FieldPassword,
		Required:    true,
		RequiredMsg: Message{Key: "pages.register.errors.requiredPassword", Fallback: "Password is required"},
	},
}

// Input carries the raw submitted field values.
type Input struct {
	Email    string
	Password string
}

func (in Input) value(f Field) string {
	switch f {
	case FieldEmail:
		return in.Email
	case FieldPassword:
		return in.Password
	default:
		return ""
	}
}

// ValidationErrors maps each failing field to its message.
type ValidationErrors map[Field]string

// Error implements error.
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[Field(f)])
	}
	return "registration: invalid " + strings.Join(parts, "; ")
}

// Has reports whether f failed validation.
func (v ValidationErrors) Has(f Field) bool {
	_, ok := v[f]
	return ok
}

// AsValidationErrors extracts field errors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// State is a step of the submission lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateValidationFailed
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateValidationFailed:
		return "validation_failed"
	case StateDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

// Options configures a Form.
type Options struct {
	// Providers are rendered as buttons ahead of the credential form.
	Providers []Provider
	// OnSubmit, when set, handles credential submissions instead of the delegate.
	OnSubmit SubmitFunc
	// Translator localises validation messages. Defaults to the English fallbacks.
	Translator i18n.Translator
	// Fields overrides DefaultFields.
	Fields []FieldRule
	// OnStateChange observes lifecycle transitions.
	OnStateChange func(from, to State)
}

type submitStrategy interface {
	dispatch(ctx context.Context, creds Credentials) (Outcome, error)
}

type delegateStrategy struct {
	delegate Delegate
}

func (s delegateStrategy) dispatch(ctx context.Context, creds Credentials) (Outcome, error) {
	return s.delegate.Register(ctx, Params{Email: creds.Email, Password: creds.Password})
}

type overrideStrategy struct {
	submit SubmitFunc
}

func (s overrideStrategy) dispatch(ctx context.Context, creds Credentials) (Outcome, error) {
	return s.submit(ctx, creds)
}

// Form validates registration input and hands it to a delegate. A Form admits
// one submission at a time; concurrent calls fail with ErrSubmissionInFlight.
type Form struct {
	delegate   Delegate
	strategy   submitStrategy
	overridden bool
	providers  []Provider
	fields     []FieldRule
	translator i18n.Translator
	observe    func(from, to State)

	mu     sync.Mutex
	busy   bool
	state  State
	errors ValidationErrors
}

// NewForm builds a Form. The delegate is required because provider
// registrations always go through it, even when OnSubmit is set.
func NewForm(delegate Delegate, opts Options) (*Form, error) {
	if delegate == nil {
		return nil, errors.New("registration: delegate is required")
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	translator := opts.Translator
	if translator == nil {
		translator = i18n.Passthrough()
	}

	f := &Form{
		delegate:   delegate,
		providers:  append([]Provider(nil), opts.Providers...),
		fields:     fields,
		translator: translator,
		observe:    opts.OnStateChange,
	}
	if opts.OnSubmit != nil {
		f.strategy = overrideStrategy{submit: opts.OnSubmit}
		f.overridden = true
	} else {
		f.strategy = delegateStrategy{delegate: delegate}
	}
	return f, nil
}

// Providers returns the configured identity providers in display order.
func (f *Form) Providers() []Provider {
	return append([]Provider(nil), f.providers...)
}

// Overridden reports whether credential submissions go to OnSubmit.
func (f *Form) Overridden() bool {
	return f.overridden
}

// State returns the current lifecycle state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Errors returns the field errors of the last submission attempt.
func (f *Form) Errors() ValidationErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errors) == 0 {
		return nil
	}
	out := make(ValidationErrors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Validate checks in against the field rules without dispatching.
func (f *Form) Validate(in Input) ValidationErrors {
	errs := ValidationErrors{}
	for _, rule := range f.fields {
		value := in.value(rule.Field)
		if rule.Trim {
			value = strings.TrimSpace(value)
		}
		if value == "" {
			if rule.Required {
				errs[rule.Field] = f.translate(rule.RequiredMsg)
			}
			continue
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
			errs[rule.Field] = f.translate(rule.PatternMessage)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit validates in and, when valid, dispatches the credentials to the
// override or the delegate. Field failures come back as ValidationErrors;
// dispatch errors are returned untouched.
func (f *Form) Submit(ctx context.Context, in Input) (Outcome, error) {
	if !f.acquire() {
		return Outcome{}, ErrSubmissionInFlight
	}
	defer f.release()

	f.transition(StateValidating)
	f.setErrors(nil)
	if errs := f.Validate(in); errs != nil {
		f.setErrors(errs)
		f.transition(StateValidationFailed)
		f.transition(StateIdle)
		return Outcome{}, errs
	}

	creds := Credentials{
		Email:    f.normalise(FieldEmail, in.Email),
		Password: f.normalise(FieldPassword, in.Password),
	}

	f.transition(StateDispatching)
	defer f.transition(StateIdle)
	return f.strategy.dispatch(ctx, creds)
}

// SubmitProvider registers through an identity provider. It skips field
// validation and always uses the delegate.
func (f *Form) SubmitProvider(ctx context.Context, providerID string) (Outcome, error) {
	if !f.hasProvider(providerID) {
		return Outcome{}, ErrUnknownProvider
	}
	if !f.acquire() {
		return Outcome{}, ErrSubmissionInFlight
	}
	defer f.release()

	f.transition(StateDispatching)
	defer f.transition(StateIdle)
	return f.delegate.Register(ctx, Params{Provider: providerID})
}

func (f *Form) hasProvider(id string) bool {
	if id == "" {
		return false
	}
	for _, p := range f.providers {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (f *Form) normalise(field Field, value string) string {
	for _, rule := range f.fields {
		if rule.Field == field && rule.Trim {
			return strings.TrimSpace(value)
		}
	}
	return value
}

func (f *Form) translate(m Message) string {
	return f.translator.T(m.Key, m.Fallback)
}

func (f *Form) acquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	f.busy = true
	return true
}

func (f *Form) release() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func (f *Form) setErrors(errs ValidationErrors) {
	f.mu.Lock()
	f.errors = errs
	f.mu.Unlock()
}

func (f *Form) transition(to State) {
	f.mu.Lock()
	from := f.state
	f.state = to
	observe := f.observe
	f.mu.Unlock()
	if observe != nil && from != to {
		observe(from, to)
	}
}
