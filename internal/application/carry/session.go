package carry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DefaultDebounce espera sin cambios en la clave antes de consultar el registro anterior.
const DefaultDebounce = 250 * time.Millisecond

// ErrSessionClosed la sesión ya fue cerrada.
var ErrSessionClosed = errors.New("sesión de formulario cerrada")

// FormState instantánea del formulario.
type FormState struct {
	Category   entity.Category
	Values     map[string]string
	Trigger    string
	Loading    bool   // hay una resolución pendiente o en vuelo para la clave actual
	Source     Source // origen del último resultado aplicado ("" si aún no hubo)
	Generation uint64
}

// Session estado de un formulario de alta con arrastre automático.
//
// Solo los campos de clave (item_name, game_details, gender+size, expense_category) disparan la
// resolución, con debounce de flanco final. Cada resolución emitida recibe una generación
// creciente y solo se aplica el resultado de la última; los anteriores se descartan.
// El resultado solo rellena campos vacíos o previamente arrastrados, nunca lo que escribió el usuario.
type Session struct {
	category entity.Category
	fields   entity.FieldSet
	resolver OpeningResolver
	log      *logger.Logger
	delay    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	values     map[string]string
	userSet    map[string]bool
	carried    map[string]bool
	trigger    string
	timer      *time.Timer
	generation uint64
	loading    bool
	source     Source
	closed     bool
	touched    time.Time
}

// NewSession abre una sesión para la categoría. delay <= 0 usa DefaultDebounce.
func NewSession(category entity.Category, resolver OpeningResolver, log *logger.Logger, delay time.Duration) (*Session, error) {
	if _, ok := entity.ParseCategory(string(category)); !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		category: category,
		fields:   category.Fields(),
		resolver: resolver,
		log:      log.Named("carry.session").WithField("category", string(category)),
		delay:    delay,
		ctx:      ctx,
		cancel:   cancel,
		values:   make(map[string]string),
		userSet:  make(map[string]bool),
		carried:  make(map[string]bool),
		touched:  time.Now(),
	}, nil
}

// SetField registra una entrada del usuario. Si el campo forma parte de la clave y el
// valor compuesto cambia, reprograma la resolución.
func (s *Session) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.touched = time.Now()
	s.values[name] = value
	delete(s.carried, name)
	if strings.TrimSpace(value) == "" {
		delete(s.userSet, name)
	} else {
		s.userSet[name] = true
	}
	if s.fields.IsKeyField(name) {
		s.retrigger()
	}
	return nil
}

// retrigger recalcula el valor disparador. Debe llamarse con mu tomado.
func (s *Session) retrigger() {
	next := entity.KeyFromValues(s.category, s.values).Trigger()
	if next == s.trigger {
		return
	}
	s.trigger = next
	// Cualquier resultado en vuelo pertenece a la clave anterior.
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if next == "" {
		// Clave borrada: lo arrastrado pertenecía a la clave anterior.
		s.loading = false
		s.source = ""
		s.clearCarried()
		return
	}
	s.loading = true
	scheduled := s.generation
	s.timer = time.AfterFunc(s.delay, func() { s.fire(next, scheduled) })
}

// fire lanza la resolución programada en la generación scheduled. Si la clave cambió después
// (aunque haya vuelto al mismo valor) el disparo es obsoleto: lo reemplaza el timer más reciente.
func (s *Session) fire(trigger string, scheduled uint64) {
	s.mu.Lock()
	if s.closed || s.trigger != trigger || s.generation != scheduled {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.generation++
	gen := s.generation
	key := entity.KeyFromValues(s.category, s.values)
	s.mu.Unlock()

	s.log.Debug().Uint64("generation", gen).Str("key", key.String()).Msg("arrastre: resolviendo")
	res := s.resolver.ResolveOpening(s.ctx, key)
	s.apply(gen, res)
}

func (s *Session) apply(gen uint64, res OpeningResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		s.log.Debug().
			Uint64("generation", gen).
			Uint64("latest", s.generation).
			Msg("arrastre: resultado obsoleto descartado")
		return
	}
	s.loading = false
	s.source = res.Source

	if res.Source != SourceCarried {
		// Sin saldo previo: no dejar a la vista lo que se arrastró para otra clave.
		s.clearCarried()
		return
	}
	s.fill(s.fields.Opening, res.Opening.String())
	for _, field := range s.fields.Resets {
		s.fill(field, "0")
	}
}

// clearCarried vacía los campos rellenados por un arrastre. Debe llamarse con mu tomado.
func (s *Session) clearCarried() {
	for field := range s.carried {
		s.values[field] = ""
	}
	clear(s.carried)
}

// fill escribe el valor solo si el campo está vacío o fue arrastrado antes. Debe llamarse con mu tomado.
func (s *Session) fill(field, value string) {
	if s.userSet[field] {
		return
	}
	if strings.TrimSpace(s.values[field]) != "" && !s.carried[field] {
		return
	}
	s.values[field] = value
	s.carried[field] = true
}

// Snapshot devuelve una copia del estado actual.
func (s *Session) Snapshot() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]string, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return FormState{
		Category:   s.category,
		Values:     values,
		Trigger:    s.trigger,
		Loading:    s.loading,
		Source:     s.source,
		Generation: s.generation,
	}
}

// Category categoría del formulario.
func (s *Session) Category() entity.Category {
	return s.category
}

// IdleSince momento de la última entrada del usuario.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Close cancela la resolución pendiente; los resultados en vuelo se descartan.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancel()
}
