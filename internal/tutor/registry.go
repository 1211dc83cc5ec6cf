package tutor

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"verbtutor/internal/logger"
)

// Registry holds independent sessions keyed by id. The least recently used
// session is evicted past size, and a session expires ttl after its last
// Open or Get.
type Registry struct {
	ctrl  *Controller
	log   *logger.Logger
	cache *expirable.LRU[string, *Session]
}

func NewRegistry(ctrl *Controller, log *logger.Logger, size int, ttl time.Duration) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	if size <= 0 {
		size = 1024
	}
	r := &Registry{ctrl: ctrl, log: log}
	r.cache = expirable.NewLRU[string, *Session](size, func(id string, _ *Session) {
		r.log.Debug("session evicted", "session_id", id)
	}, ttl)
	return r
}

// Open creates an unstarted session under a fresh id.
func (r *Registry) Open() *Session {
	s := NewSession(uuid.NewString(), r.ctrl, r.log)
	r.cache.Add(s.ID(), s)
	return s
}

// Get returns the session and restarts its ttl.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	r.cache.Add(id, s)
	return s, nil
}

func (r *Registry) Close(id string) {
	r.cache.Remove(id)
}

func (r *Registry) Len() int { return r.cache.Len() }

// SystemPrompt is the instruction every session in r starts with.
func (r *Registry) SystemPrompt() string { return r.ctrl.SystemPrompt() }
