package carry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Registry sesiones de formulario abiertas, indexadas por UUID.
type Registry struct {
	resolver OpeningResolver
	log      *logger.Logger
	delay    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry construye el registro de sesiones.
func NewRegistry(resolver OpeningResolver, log *logger.Logger, delay time.Duration) *Registry {
	return &Registry{
		resolver: resolver,
		log:      log,
		delay:    delay,
		sessions: make(map[string]*Session),
	}
}

// Open abre una sesión nueva para la categoría y devuelve su ID.
func (r *Registry) Open(category entity.Category) (string, *Session, error) {
	s, err := NewSession(category, r.resolver, r.log, r.delay)
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id, s, nil
}

// Get busca una sesión abierta.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close cierra y elimina la sesión. Devuelve false si no existía.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Sweep cierra las sesiones sin actividad desde hace más de maxIdle.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var stale []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.IdleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// CloseAll cierra todas las sesiones (apagado).
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Len número de sesiones abiertas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
