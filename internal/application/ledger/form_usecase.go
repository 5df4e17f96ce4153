package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/application/carry"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// FormUseCase formularios de alta del lado servidor: cada sesión arrastra el saldo inicial
// mientras el usuario escribe y al enviarse se convierte en un registro.
type FormUseCase struct {
	registry *carry.Registry
	service  *Service
}

// NewFormUseCase construye el caso de uso.
func NewFormUseCase(registry *carry.Registry, service *Service) *FormUseCase {
	return &FormUseCase{registry: registry, service: service}
}

// Open abre un formulario vacío para la categoría.
func (uc *FormUseCase) Open(category entity.Category) (*dto.FormResponse, error) {
	id, s, err := uc.registry.Open(category)
	if err != nil {
		return nil, err
	}
	return toFormResponse(id, s.Snapshot()), nil
}

// Get estado actual del formulario.
func (uc *FormUseCase) Get(id string) (*dto.FormResponse, error) {
	s, ok := uc.registry.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return toFormResponse(id, s.Snapshot()), nil
}

// SetFields aplica las entradas del usuario. El orden es fijo: primero los campos que no son
// de clave (alfabético) y al final los de clave en el orden de la categoría, de modo que la
// resolución se programa una sola vez con todos los valores ya escritos.
func (uc *FormUseCase) SetFields(id string, fields map[string]string) (*dto.FormResponse, error) {
	s, ok := uc.registry.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, name := range fieldOrder(s.Category(), fields) {
		if err := s.SetField(name, fields[name]); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrNotFound, err)
		}
	}
	return toFormResponse(id, s.Snapshot()), nil
}

func fieldOrder(category entity.Category, fields map[string]string) []string {
	fs := category.Fields()
	order := make([]string, 0, len(fields))
	for name := range fields {
		if !fs.IsKeyField(name) {
			order = append(order, name)
		}
	}
	sort.Strings(order)
	for _, k := range fs.Key {
		if _, ok := fields[k]; ok {
			order = append(order, k)
		}
	}
	return order
}

// Submit crea el registro con los valores actuales. Si el alta falla el formulario sigue abierto
// con sus valores para reintentar; si sale bien se cierra.
func (uc *FormUseCase) Submit(ctx context.Context, id, userID string) (*dto.RecordResponse, error) {
	s, ok := uc.registry.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	st := s.Snapshot()
	fields := make(map[string]any, len(st.Values))
	for k, v := range st.Values {
		fields[k] = v
	}
	rec, err := uc.service.Create(ctx, st.Category, userID, fields)
	if err != nil {
		return nil, err
	}
	uc.registry.Close(id)
	return rec, nil
}

// Discard cierra el formulario sin guardar.
func (uc *FormUseCase) Discard(id string) error {
	if !uc.registry.Close(id) {
		return domain.ErrNotFound
	}
	return nil
}

func toFormResponse(id string, st carry.FormState) *dto.FormResponse {
	return &dto.FormResponse{
		ID:         id,
		Category:   string(st.Category),
		Values:     st.Values,
		Trigger:    st.Trigger,
		Loading:    st.Loading,
		Source:     string(st.Source),
		Generation: st.Generation,
	}
}
