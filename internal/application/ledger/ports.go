package ledger

import (
	"context"
	"errors"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción con el repositorio ligado a ella.
// Si fn devuelve error se hace rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(repo repository.LedgerRepository) error) error
}

// AuditSink destino de la bitácora de actividad. Un fallo nunca bloquea la escritura principal.
type AuditSink interface {
	Record(ctx context.Context, log entity.ActivityLog) error
}

// ReportGenerator genera el PDF del resumen de saldos.
type ReportGenerator interface {
	GenerateOverviewPDF(ctx context.Context, overview *dto.OverviewResponse) ([]byte, error)
}

// MultiSink reparte cada entrada entre varios destinos y junta los errores.
type MultiSink []AuditSink

func (m MultiSink) Record(ctx context.Context, log entity.ActivityLog) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, log); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RepositorySink persiste la bitácora en un ActivityLogRepository.
type RepositorySink struct {
	repo repository.ActivityLogRepository
}

// NewRepositorySink adapta el repositorio a AuditSink.
func NewRepositorySink(repo repository.ActivityLogRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Record(ctx context.Context, log entity.ActivityLog) error {
	return s.repo.Create(ctx, &log)
}
