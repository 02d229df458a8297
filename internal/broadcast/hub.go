// Package broadcast fans events out to connected principal sessions.
//
// Delivery is filtered three ways, each independently sufficient to
// suppress it: the session must be subscribed to the channel, the
// channel's role restriction (if any) must admit the principal's role,
// and the principal's clearance must dominate the payload's
// classification. Sends never block the publisher: a session whose
// buffer is full loses the message, not the hub.
package broadcast

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/abelbrown/sitrep/internal/classify"
	"github.com/abelbrown/sitrep/internal/logging"
	"github.com/abelbrown/sitrep/internal/model"
)

// Envelope is one outbound message.
type Envelope struct {
	Channel        string
	Type           string
	Classification string
	Payload        any
}

// Deliverer pushes an envelope to a session's transport. A returned error
// means the transport is dead and the session should be torn down.
type Deliverer interface {
	Deliver(sessionID string, env Envelope) error
}

// Session is one connected principal. Subscriptions are mutated only
// under the hub's lock.
type Session struct {
	ID        string
	Principal model.Principal

	subs    map[string]bool
	out     chan Envelope
	limiter *rate.Limiter
	done    chan struct{}
}

// Options tunes hub behavior. Zero values fall back to defaults.
type Options struct {
	Buffer     int     // per-session outbound buffer
	RatePerSec float64 // per-session delivery rate, 0 = unlimited
	Burst      int
}

const defaultBuffer = 64

// Hub routes published envelopes to sessions. Safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	// channelRoles restricts a channel to a single role; channels absent
	// from the map are open to every role.
	channelRoles map[string]string

	deliverer Deliverer
	opts      Options
}

// NewHub creates a hub delivering through d. The "hq" channel is
// restricted to the HQ role.
func NewHub(d Deliverer, opts Options) *Hub {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Hub{
		sessions:     make(map[string]*Session),
		channelRoles: map[string]string{"hq": classify.RoleHQ},
		deliverer:    d,
		opts:         opts,
	}
}

// Connect registers a session for the principal and starts its delivery
// loop. A second Connect with the same id replaces the first.
func (h *Hub) Connect(sessionID string, p model.Principal) *Session {
	s := &Session{
		ID:        sessionID,
		Principal: p,
		subs:      make(map[string]bool),
		out:       make(chan Envelope, h.opts.Buffer),
		done:      make(chan struct{}),
	}
	if h.opts.RatePerSec > 0 {
		burst := h.opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(h.opts.RatePerSec), burst)
	}

	h.mu.Lock()
	if old, ok := h.sessions[sessionID]; ok {
		close(old.done)
	}
	h.sessions[sessionID] = s
	h.mu.Unlock()

	go h.drain(s)
	logging.Debug("session connected", "session", sessionID, "role", p.Role)
	return s
}

// Disconnect tears a session down. Unknown ids are a no-op.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
		close(s.done)
	}
	h.mu.Unlock()
	if ok {
		logging.Debug("session disconnected", "session", sessionID)
	}
}

// Subscribe adds the session to a channel. Subscribing grants nothing by
// itself: role and clearance checks still apply at publish time.
func (h *Hub) Subscribe(sessionID, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[sessionID]
	if !ok {
		return false
	}
	s.subs[channel] = true
	return true
}

// Unsubscribe removes the session from a channel.
func (h *Hub) Unsubscribe(sessionID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[sessionID]; ok {
		delete(s.subs, channel)
	}
}

// Publish fans an envelope out to every eligible session. An empty
// classification is treated as UNCLASSIFIED. Returns the number of
// sessions the envelope was queued for.
func (h *Hub) Publish(env Envelope) int {
	if env.Classification == "" {
		env.Classification = classify.Unclassified
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.sessions {
		if !h.eligible(s, env) {
			continue
		}
		if s.limiter != nil && !s.limiter.Allow() {
			logging.Warn("rate limited, dropping message", "session", s.ID, "channel", env.Channel)
			continue
		}
		select {
		case s.out <- env:
			delivered++
		default:
			// Slow consumer; losing a message beats blocking the hub.
			logging.Warn("session buffer full, dropping message", "session", s.ID, "channel", env.Channel)
		}
	}
	return delivered
}

// SendToPrincipal queues an envelope for every session of one principal,
// still subject to clearance (a principal can hold a session while a
// payload outranks their clearance).
func (h *Hub) SendToPrincipal(principalID string, env Envelope) int {
	if env.Classification == "" {
		env.Classification = classify.Unclassified
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.sessions {
		if s.Principal.ID != principalID {
			continue
		}
		if !classify.CanAccess(s.Principal.Clearance, env.Classification) {
			continue
		}
		select {
		case s.out <- env:
			delivered++
		default:
			logging.Warn("session buffer full, dropping message", "session", s.ID)
		}
	}
	return delivered
}

// SendToRole queues an envelope for every session whose principal holds
// the role, subject to clearance.
func (h *Hub) SendToRole(role string, env Envelope) int {
	if env.Classification == "" {
		env.Classification = classify.Unclassified
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.sessions {
		if s.Principal.Role != role {
			continue
		}
		if !classify.CanAccess(s.Principal.Clearance, env.Classification) {
			continue
		}
		select {
		case s.out <- env:
			delivered++
		default:
			logging.Warn("session buffer full, dropping message", "session", s.ID)
		}
	}
	return delivered
}

// Sessions returns the connected session count.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// eligible applies the three delivery filters. Caller holds at least a
// read lock.
func (h *Hub) eligible(s *Session, env Envelope) bool {
	if !s.subs[env.Channel] {
		return false
	}
	if role, restricted := h.channelRoles[env.Channel]; restricted && s.Principal.Role != role {
		return false
	}
	return classify.CanAccess(s.Principal.Clearance, env.Classification)
}

// drain pushes a session's queued envelopes through the deliverer. A
// delivery error kills only this session.
func (h *Hub) drain(s *Session) {
	for {
		select {
		case env := <-s.out:
			if h.deliverer == nil {
				continue
			}
			if err := h.deliverer.Deliver(s.ID, env); err != nil {
				logging.Warn("delivery failed, dropping session", "session", s.ID, "error", err)
				h.Disconnect(s.ID)
				return
			}
		case <-s.done:
			return
		}
	}
}
