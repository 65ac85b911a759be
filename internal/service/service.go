package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Hussein-Mazeh/fritzer/internal/config"
	"github.com/Hussein-Mazeh/fritzer/internal/fritzbox"
	"github.com/Hussein-Mazeh/fritzer/internal/logger"
	"github.com/Hussein-Mazeh/fritzer/internal/session"
	"github.com/Hussein-Mazeh/fritzer/store"
)

// Service wires configuration, transport, session cache and session for CLI commands.
type Service struct {
	client  *fritzbox.Client
	session *session.Session
	store   session.Store
	closer  io.Closer // non-nil for backends holding a connection
	log     logger.Logger
}

// New returns a ready service for cfg. creds may be nil when only a cached
// session is expected to work.
func New(cfg *config.Config, creds session.Credentials, log logger.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := []fritzbox.Option{fritzbox.WithTimeout(cfg.HTTP.Timeout)}
	if cfg.HTTP.Insecure {
		opts = append([]fritzbox.Option{fritzbox.WithInsecureTLS()}, opts...)
	}
	client, err := fritzbox.NewClient(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gateway client: %w", err)
	}

	st, closer, err := OpenStore(cfg.Store, client.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("open session store (%s): %w", cfg.Store.Backend, err)
	}

	log = log.With("gateway", client.BaseURL())
	sess := session.New(fritzbox.NewLoginClient(client),
		session.WithStore(st),
		session.WithCredentials(creds),
		session.WithSwitches(fritzbox.NewSwitchClient(client)),
		session.WithLogger(log),
	)
	return &Service{
		client:  client,
		session: sess,
		store:   st,
		closer:  closer,
		log:     log,
	}, nil
}

// OpenStore builds the configured session cache for gateway. The closer is
// nil for backends without resources.
func OpenStore(cfg config.StoreConfig, gateway string) (session.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		st, err := store.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case config.BackendSQLite:
		st, err := store.OpenSQLiteStore(cfg.Path, gateway)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.BackendRedis:
		st, err := store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, gateway)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.BackendKeychain:
		st, err := store.NewKeychainStore(gateway)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case config.BackendNone:
		return store.Nop{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Gateway returns the normalized gateway URL.
func (s *Service) Gateway() string { return s.client.BaseURL() }

// Session exposes the underlying session.
func (s *Service) Session() *session.Session { return s.session }

// Connect authenticates, reusing the cached session when the box still accepts it.
func (s *Service) Connect(ctx context.Context) error {
	if err := s.session.Connect(ctx); err != nil {
		return err
	}
	s.log.Debug("connected", "method", s.session.Method().String())
	return nil
}

// Switches connects and lists switches with their current state.
func (s *Service) Switches(ctx context.Context) ([]SwitchStatus, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	devices, err := s.session.Switches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list switches: %w", err)
	}

	out := make([]SwitchStatus, 0, len(devices))
	for _, d := range devices {
		state, err := s.session.SwitchState(ctx, d.AIN)
		if err != nil {
			s.log.Warn("switch state unavailable", "ain", d.AIN, "error", err)
			state = fritzbox.SwitchUnknown
		}
		out = append(out, SwitchStatus{Device: d, State: state})
	}
	return out, nil
}

// SwitchStatus is a device with its last read state.
type SwitchStatus struct {
	fritzbox.Device
	State fritzbox.SwitchState
}

// SwitchState connects and reads one switch.
func (s *Service) SwitchState(ctx context.Context, ain string) (fritzbox.SwitchState, error) {
	if err := s.Connect(ctx); err != nil {
		return fritzbox.SwitchUnknown, err
	}
	return s.session.SwitchState(ctx, fritzbox.NormalizeAIN(ain))
}

// SetSwitch connects and turns one switch on or off.
func (s *Service) SetSwitch(ctx context.Context, ain string, on bool) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.session.SetSwitch(ctx, fritzbox.NormalizeAIN(ain), on)
}

// ToggleSwitch connects and flips one switch.
func (s *Service) ToggleSwitch(ctx context.Context, ain string) (fritzbox.SwitchState, error) {
	if err := s.Connect(ctx); err != nil {
		return fritzbox.SwitchUnknown, err
	}
	return s.session.ToggleSwitch(ctx, fritzbox.NormalizeAIN(ain))
}

// Logout ends the cached session on the box and clears the cache. It never
// asks for credentials: a cache the box no longer accepts is just cleared.
// It reports whether a live session was ended.
func (s *Service) Logout(ctx context.Context) (bool, error) {
	err := s.session.Resume(ctx)
	switch {
	case errors.Is(err, session.ErrNotConnected):
		if err := s.store.Clear(ctx); err != nil {
			return false, fmt.Errorf("clear session cache: %w", err)
		}
		return false, nil
	case err != nil:
		return false, err
	}
	if err := s.session.Logout(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the session store.
func (s *Service) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
