// Package session establishes and holds an authenticated gateway session.
//
// A run probes the gateway for a fresh challenge, tries the cached session id
// first and falls back to exactly one challenge-response login. The latest
// record returned by the gateway is authoritative for every later step.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Hussein-Mazeh/fritzer/auth"
	"github.com/Hussein-Mazeh/fritzer/internal/fritzbox"
	"github.com/Hussein-Mazeh/fritzer/internal/logger"
	"github.com/Hussein-Mazeh/fritzer/store"
)

// Login is the login_sid endpoint.
type Login interface {
	SessionInfo(ctx context.Context) (*fritzbox.SessionInfo, error)
	LoginWithSID(ctx context.Context, sid string) (*fritzbox.SessionInfo, error)
	LoginWithResponse(ctx context.Context, username, response string) (*fritzbox.SessionInfo, error)
	Logout(ctx context.Context, sid string) (*fritzbox.SessionInfo, error)
}

// Switches is the AHA switch endpoint.
type Switches interface {
	List(ctx context.Context, sid string) ([]fritzbox.Device, error)
	State(ctx context.Context, sid, ain string) (fritzbox.SwitchState, error)
	Set(ctx context.Context, sid, ain string, on bool) error
	Toggle(ctx context.Context, sid, ain string) (fritzbox.SwitchState, error)
}

// Store caches the session id between runs. Load returns store.ErrNotFound
// when nothing is cached.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, sid string) error
	Clear(ctx context.Context) error
}

// Credentials supplies the login secret. Both methods are only called when
// the cached session is absent or rejected.
type Credentials interface {
	// Username may be empty when the gateway flags a default user.
	Username() string
	Password(ctx context.Context) (string, error)
}

// Responder derives the login response for a challenge.
type Responder func(ch auth.Challenge, password string) string

// Session drives one conversation with one gateway. It is not safe for
// concurrent use.
type Session struct {
	login     Login
	switches  Switches
	store     Store
	creds     Credentials
	responder Responder
	log       logger.Logger

	state  State
	method Method
	record *fritzbox.SessionInfo
}

// Option configures a Session.
type Option func(*Session)

// WithStore sets the session cache. Without it nothing is cached.
func WithStore(st Store) Option {
	return func(s *Session) {
		if st != nil {
			s.store = st
		}
	}
}

// WithCredentials sets the credential source.
func WithCredentials(c Credentials) Option {
	return func(s *Session) { s.creds = c }
}

// WithResponder replaces auth.ChallengeResponse.
func WithResponder(r Responder) Option {
	return func(s *Session) {
		if r != nil {
			s.responder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSwitches enables the switch helpers.
func WithSwitches(sw Switches) Option {
	return func(s *Session) { s.switches = sw }
}

// New returns a session in the Unauthenticated state.
func New(login Login, opts ...Option) *Session {
	s := &Session{
		login:     login,
		store:     store.Nop{},
		responder: auth.ChallengeResponse,
		log:       logger.Default(),
		state:     Unauthenticated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Method returns the path that authenticated the session.
func (s *Session) Method() Method { return s.method }

// Record returns the latest gateway record, or nil before the first probe.
func (s *Session) Record() *fritzbox.SessionInfo { return s.record }

// IsConnected reports whether the latest record carries a usable session id.
func (s *Session) IsConnected() bool {
	return s.record.Authenticated()
}

// SID returns the current session id, or "" when none was obtained.
func (s *Session) SID() string {
	if s.record == nil {
		return ""
	}
	return s.record.SID
}

// Connect authenticates against the gateway.
func (s *Session) Connect(ctx context.Context) error {
	return s.connect(ctx, true)
}

// Resume reuses the cached session id only. It returns ErrNotConnected when
// nothing is cached or the gateway rejects it, without asking for credentials.
func (s *Session) Resume(ctx context.Context) error {
	return s.connect(ctx, false)
}

func (s *Session) connect(ctx context.Context, withCredentials bool) error {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := s.log.With("run_id", runID)

	s.state = Unauthenticated
	s.method = MethodNone

	probe, err := s.login.SessionInfo(ctx)
	if err != nil {
		s.state = Failed
		return fmt.Errorf("%w: probe: %w", ErrConnectivity, err)
	}
	s.record = probe
	s.state = Probed
	log.Debug("gateway probed", "block_time", probe.BlockTime)

	cached, err := s.store.Load(ctx)
	switch {
	case err == nil && cached != "":
		if s.tryCachedSID(ctx, log, cached) {
			return nil
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		log.Warn("session cache unreadable", "error", err)
	}

	if !withCredentials {
		s.state = Failed
		return ErrNotConnected
	}
	if err := s.loginWithCredentials(ctx, log); err != nil {
		s.state = Failed
		return err
	}

	if s.record.SID != cached {
		if err := s.store.Save(ctx, s.record.SID); err != nil {
			log.Warn("session not cached", "error", fmt.Errorf("%w: %w", ErrStorePersist, err))
		}
	}
	return nil
}

func (s *Session) tryCachedSID(ctx context.Context, log logger.Logger, sid string) bool {
	rec, err := s.login.LoginWithSID(ctx, sid)
	if err != nil {
		log.Debug("cached session check failed", "error", err)
		s.state = CachedTokenRejected
		return false
	}
	s.record = rec
	if !rec.Authenticated() {
		log.Debug("cached session rejected", "sid", sid)
		s.state = CachedTokenRejected
		return false
	}

	s.method = MethodCachedSID
	s.state = Authenticated
	log.Info("reusing cached session", "sid", rec.SID)
	return true
}

func (s *Session) loginWithCredentials(ctx context.Context, log logger.Logger) error {
	username, ok := s.record.LastUser()
	if !ok && s.creds != nil {
		username = s.creds.Username()
	}
	if username == "" {
		return ErrUsernameRequired
	}

	ch, err := auth.ParseChallenge(s.record.Challenge)
	if err != nil {
		return fmt.Errorf("parse challenge: %w", err)
	}

	if s.creds == nil {
		return ErrPasswordRequired
	}
	password, err := s.creds.Password(ctx)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	response := s.responder(ch, password)
	s.state = CredentialAuthAttempted
	rec, err := s.login.LoginWithResponse(ctx, username, response)
	if err != nil {
		return fmt.Errorf("%w: login: %w", ErrConnectivity, err)
	}
	s.record = rec
	if !rec.Authenticated() {
		if rec.BlockTime > 0 {
			log.Warn("gateway blocks logins", "user", username, "block_time_s", rec.BlockTime)
		}
		return ErrInvalidCredentials
	}

	s.state = Authenticated
	s.method = MethodCredentials
	log.Info("logged in", "user", username, "sid", rec.SID)

	if st := auth.PasswordStrength(password, username); st.Weak() {
		log.Warn("gateway password is weak", "score", st.Score)
	}
	return nil
}

// Logout ends the gateway session and clears the cache.
func (s *Session) Logout(ctx context.Context) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	rec, err := s.login.Logout(ctx, s.record.SID)
	if err != nil {
		return fmt.Errorf("%w: logout: %w", ErrConnectivity, err)
	}
	s.record = rec
	s.state = Unauthenticated
	s.method = MethodNone
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}

func (s *Session) switchClient() (Switches, error) {
	if s.switches == nil {
		return nil, errors.New("switch endpoint not configured")
	}
	if !s.IsConnected() {
		return nil, ErrNotConnected
	}
	return s.switches, nil
}

// Switches lists the switchable devices.
func (s *Session) Switches(ctx context.Context) ([]fritzbox.Device, error) {
	sw, err := s.switchClient()
	if err != nil {
		return nil, err
	}
	return sw.List(ctx, s.record.SID)
}

// SwitchState reads the state of one switch.
func (s *Session) SwitchState(ctx context.Context, ain string) (fritzbox.SwitchState, error) {
	sw, err := s.switchClient()
	if err != nil {
		return fritzbox.SwitchUnknown, err
	}
	return sw.State(ctx, s.record.SID, ain)
}

// SetSwitch turns a switch on or off.
func (s *Session) SetSwitch(ctx context.Context, ain string, on bool) error {
	sw, err := s.switchClient()
	if err != nil {
		return err
	}
	return sw.Set(ctx, s.record.SID, ain, on)
}

// ToggleSwitch flips a switch and returns its new state.
func (s *Session) ToggleSwitch(ctx context.Context, ain string) (fritzbox.SwitchState, error) {
	sw, err := s.switchClient()
	if err != nil {
		return fritzbox.SwitchUnknown, err
	}
	return sw.Toggle(ctx, s.record.SID, ain)
}
