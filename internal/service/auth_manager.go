package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autobook/internal/domain"
	"autobook/internal/events"
	"autobook/internal/globish"
	"autobook/internal/models"

	"github.com/rs/zerolog"
)

type authState int

const (
	authUnchecked authState = iota
	authValid
	authAwaitingRefresh
	authFailed
)

func (s authState) String() string {
	switch s {
	case authValid:
		return "valid"
	case authAwaitingRefresh:
		return "awaiting_refresh"
	case authFailed:
		return "failed"
	default:
		return "unchecked"
	}
}

var errRefreshSpent = errors.New("token was already refreshed in this run")

// AuthManager owns the bearer credential for one run. It probes the token
// once, refreshes it at most once, and caches the result for every later
// category.
type AuthManager struct {
	client    domain.AuthClient
	creds     domain.CredentialStore
	guard     domain.CrashGuard
	pacer     *Pacer
	eventBus  domain.EventPublisher
	principal models.Principal
	logger    *zerolog.Logger

	state     authState
	refreshed bool
	failure   error
	session   globish.Session
}

func NewAuthManager(
	client domain.AuthClient,
	creds domain.CredentialStore,
	guard domain.CrashGuard,
	pacer *Pacer,
	eventBus domain.EventPublisher,
	principal models.Principal,
	logger *zerolog.Logger,
) *AuthManager {
	return &AuthManager{
		client:    client,
		creds:     creds,
		guard:     guard,
		pacer:     pacer,
		eventBus:  eventBus,
		principal: principal,
		logger:    logger,
	}
}

// EnsureValid returns nil once the session is known to work. A rejected
// token is refreshed once; a second rejection or a failed refresh raises
// the crash flag and yields *AuthenticationError. Other failures come back
// as *globish.TransportError and are not retried.
func (m *AuthManager) EnsureValid(ctx context.Context) error {
	switch m.state {
	case authValid:
		return nil
	case authFailed:
		return m.failure
	}

	cred, err := m.creds.Get(ctx)
	if err != nil {
		return m.fail(ctx, "load", err)
	}
	m.session = m.client.NewSession(cred.Value)

	if m.session.Authorized() {
		err = m.probe(ctx)
		switch {
		case err == nil:
			m.markValid()
			return nil
		case !errors.Is(err, globish.ErrCredentialRejected):
			return m.abort(err)
		}
		m.logger.Info().Err(err).Msg("Token rejected, refreshing")
	} else {
		m.logger.Info().Msg("No token configured, logging in")
	}

	m.state = authAwaitingRefresh
	if err := m.Refresh(ctx); err != nil {
		if isContextErr(err) {
			return m.abort(err)
		}
		return m.fail(ctx, "refresh", err)
	}

	err = m.probe(ctx)
	switch {
	case err == nil:
		m.markValid()
		return nil
	case errors.Is(err, globish.ErrCredentialRejected):
		return m.fail(ctx, "probe after refresh", err)
	default:
		return m.abort(err)
	}
}

// Refresh logs in with the principal, persists the new token and rebuilds
// the session. Only the first call in a run reaches the service.
func (m *AuthManager) Refresh(ctx context.Context) error {
	if m.refreshed {
		return errRefreshSpent
	}
	m.refreshed = true

	if !m.principal.Complete() {
		return errors.New("username and password are not configured")
	}

	token, err := m.client.Login(ctx, m.principal)
	if werr := m.pacer.Wait(ctx); err == nil && werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := m.creds.Update(ctx, token); err != nil {
		return fmt.Errorf("persist refreshed token: %w", err)
	}
	m.session = m.client.NewSession(token)

	m.logger.Info().Msg("Token refreshed")
	publish(m.eventBus, m.logger, events.EventAuthRefreshed, events.AuthEventPayload{At: time.Now()})
	return nil
}

// Session returns the request context for the current token.
func (m *AuthManager) Session() globish.Session {
	return m.session
}

// State names the current position in the validation state machine.
func (m *AuthManager) State() string {
	return m.state.String()
}

func (m *AuthManager) probe(ctx context.Context) error {
	err := m.client.Probe(ctx, m.session)
	if werr := m.pacer.Wait(ctx); err == nil && werr != nil {
		return werr
	}
	return err
}

func (m *AuthManager) markValid() {
	m.state = authValid
	m.logger.Debug().Bool("refreshed", m.refreshed).Msg("Credential valid")
}

// abort ends validation without touching the crash flag.
func (m *AuthManager) abort(err error) error {
	m.state = authFailed
	m.failure = err
	return err
}

func (m *AuthManager) fail(ctx context.Context, stage string, err error) error {
	authErr := &AuthenticationError{Stage: stage, Err: err}
	m.state = authFailed
	m.failure = authErr

	if rerr := m.guard.Raise(ctx, authErr.Error()); rerr != nil {
		m.logger.Error().Err(rerr).Msg("Could not raise crash flag after authentication failure")
	}
	return authErr
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
