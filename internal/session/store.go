// Package session holds the client-side authenticated session and keeps it
// in a pluggable durable store so it survives process restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// ErrCorruptSession reports a persisted record that could not be decoded.
var ErrCorruptSession = errors.New("stored session is corrupt")

// Persister is the durable storage behind a Store.
type Persister interface {
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// Store holds at most one session. A newly established session replaces the
// previous one.
type Store struct {
	mu        sync.Mutex
	persister Persister
	current   *domain.Session
	loaded    bool
	log       zerolog.Logger
	now       func() time.Time
}

func NewStore(p Persister, log zerolog.Logger) *Store {
	return &Store{persister: p, log: log, now: time.Now}
}

// Establish turns a successful authentication result into the active session.
func (s *Store) Establish(ctx context.Context, res *domain.CredentialResult) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res == nil || res.Token == "" || res.User == nil {
		return nil, domain.ErrInvalidCredential
	}
	if _, ok := domain.ParseRole(string(res.User.Role)); !ok {
		return nil, domain.ErrInvalidCredential
	}

	user := *res.User
	sess := &domain.Session{
		Token:    res.Token,
		UserID:   user.ID,
		Role:     user.Role,
		IssuedAt: s.now().UTC(),
		User:     &user,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.current = sess
	s.loaded = true
	s.log.Debug().Str("user_id", sess.UserID).Str("role", string(sess.Role)).Msg("session established")
	return copySession(sess), nil
}

// Current returns the active session or nil. The first call reads through to
// the persister. A corrupt record is cleared and reported as a FatalError.
func (s *Store) Current(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		sess, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.current = sess
		s.loaded = true
	}
	return copySession(s.current), nil
}

// Clear removes the session. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.loaded = true
	return s.persister.Clear(ctx)
}

// ClearIfToken removes the session only while it still carries token. It
// reports whether anything was cleared, so a rejection of an old token never
// drops a session established since.
func (s *Store) ClearIfToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		sess, err := s.load(ctx)
		if err != nil {
			return false, err
		}
		s.current = sess
		s.loaded = true
	}
	if s.current == nil || token == "" || s.current.Token != token {
		return false, nil
	}
	s.current = nil
	return true, s.persister.Clear(ctx)
}

// UpdateUser replaces the last-known user record of the active session. It
// is a no-op when no session is held or the record belongs to someone else.
func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || u == nil || u.ID != s.current.UserID {
		return nil
	}
	next := copySession(s.current)
	user := *u
	next.User = &user
	next.Role = u.Role
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *Store) save(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.persister.Save(ctx, data)
}

func (s *Store) load(ctx context.Context) (*domain.Session, error) {
	data, err := s.persister.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil || !valid(&sess) {
		if cerr := s.persister.Clear(ctx); cerr != nil {
			s.log.Warn().Err(cerr).Msg("failed to clear corrupt session")
		}
		s.log.Error().Msg("discarded corrupt session record")
		return nil, &domain.FatalError{Reason: "restore session", Err: ErrCorruptSession}
	}
	return &sess, nil
}

func valid(sess *domain.Session) bool {
	if sess.Token == "" || sess.UserID == "" {
		return false
	}
	_, ok := domain.ParseRole(string(sess.Role))
	return ok
}

func copySession(sess *domain.Session) *domain.Session {
	if sess == nil {
		return nil
	}
	c := *sess
	if sess.User != nil {
		u := *sess.User
		c.User = &u
	}
	return &c
}
