package services

import (
	"context"
	"sync"

	"watch-rewards-system/models"
)

type IdentityEventKind string

const (
	IdentitySignedIn  IdentityEventKind = "signed_in"
	IdentitySignedOut IdentityEventKind = "signed_out"
	IdentityUpdated   IdentityEventKind = "updated"
)

// IdentityEvent is a state change reported by the auth provider.
type IdentityEvent struct {
	Kind     IdentityEventKind
	Identity *Identity
}

type ProfileEventKind string

const (
	ProfileLoaded  ProfileEventKind = "profile_loaded"
	ProfileCleared ProfileEventKind = "profile_cleared"
)

// ProfileEvent is what a Session broadcasts to its subscribers.
type ProfileEvent struct {
	Kind    ProfileEventKind `json:"kind"`
	Profile *models.User     `json:"profile,omitempty"`
}

// ProfileLoader is the part of ProfileService a Session needs.
type ProfileLoader interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

// Session holds one client's signed-in identity and profile. It is created
// per client, moved through Initialize, OnIdentityChanged and Teardown, and
// reports every profile change to its subscribers.
type Session struct {
	profiles ProfileLoader

	mu       sync.Mutex
	identity *Identity
	profile  *models.User
	subs     map[int]chan ProfileEvent
	nextID   int
	closed   bool
}

func NewSession(profiles ProfileLoader) *Session {
	return &Session{profiles: profiles, subs: make(map[int]chan ProfileEvent)}
}

// Subscribe returns a channel of profile events and a cancel func. The
// channel is closed by cancel or by Teardown.
func (s *Session) Subscribe(buffer int) (<-chan ProfileEvent, func()) {
	ch := make(chan ProfileEvent, buffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Initialize starts the session with the identity currently signed in, or
// nil when there is none.
func (s *Session) Initialize(ctx context.Context, identity *Identity) error {
	if identity == nil {
		s.clear()
		return nil
	}
	return s.load(ctx, identity)
}

func (s *Session) OnIdentityChanged(ctx context.Context, ev IdentityEvent) error {
	switch ev.Kind {
	case IdentitySignedOut:
		s.clear()
		return nil
	case IdentitySignedIn, IdentityUpdated:
		identity := ev.Identity
		if identity == nil {
			identity, _ = s.Current()
		}
		if identity == nil {
			s.clear()
			return nil
		}
		return s.load(ctx, identity)
	}
	return nil
}

// Teardown clears the session and closes every subscription.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.identity, s.profile = nil, nil
	s.broadcastLocked(ProfileEvent{Kind: ProfileCleared})
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.closed = true
}

// Current returns the signed-in identity and its profile, if any.
func (s *Session) Current() (*Identity, *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.profile
}

func (s *Session) IsAdmin() bool {
	_, p := s.Current()
	return p.IsAdmin()
}

func (s *Session) load(ctx context.Context, identity *Identity) error {
	profile, err := s.profiles.GetProfile(ctx, identity.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.identity = identity
	if err != nil {
		s.profile = nil
		return err
	}
	s.profile = profile
	s.broadcastLocked(ProfileEvent{Kind: ProfileLoaded, Profile: profile})
	return nil
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.identity, s.profile = nil, nil
	s.broadcastLocked(ProfileEvent{Kind: ProfileCleared})
}

func (s *Session) broadcastLocked(ev ProfileEvent) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
