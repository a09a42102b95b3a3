package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"support-chat/internal/domain"
	"support-chat/internal/repository"
)

// sessionCloser es la parte del ciclo de vida que el barredor necesita.
type sessionCloser interface {
	ForceClose(ctx context.Context, session domain.ChatSession, reason string) (bool, error)
}

// Sweeper recorre periódicamente las sesiones no cerradas cuyo último
// mensaje superó el umbral de inactividad y las cierra con razón "expired".
// Un ciclo fallido se registra y se reintenta en el siguiente intervalo;
// nunca tumba el proceso.
type Sweeper struct {
	logger    *zap.Logger
	sessions  repository.SessionRepository
	lifecycle sessionCloser
	interval  time.Duration
	idleAfter time.Duration
}

func NewSweeper(logger *zap.Logger, sessions repository.SessionRepository, lifecycle sessionCloser, interval, idleAfter time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if idleAfter <= 0 {
		idleAfter = 30 * time.Minute
	}
	return &Sweeper{
		logger:    logger,
		sessions:  sessions,
		lifecycle: lifecycle,
		interval:  interval,
		idleAfter: idleAfter,
	}
}

// Run bloquea hasta que el contexto se cancele, ejecutando un barrido por
// intervalo. Pensado para correr en su propia goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Warn("sweep cycle failed", zap.Error(err))
			}
		}
	}
}

// Sweep ejecuta un ciclo. Es idempotente: una sesión ya cerrada por otro
// ciclo (o por staff en el medio) se salta sin producir un segundo aviso, y
// un barrido sin sesiones vencidas es un resultado normal y silencioso.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.idleAfter)

	stale, err := s.sessions.ListIdleBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSweepCycleFailed, err)
	}

	closed := 0
	for _, session := range stale {
		changed, err := s.lifecycle.ForceClose(ctx, session, domain.CloseReasonExpired)
		if err != nil {
			// Progreso parcial aceptable: el próximo ciclo retoma
			// las sesiones que quedaron.
			s.logger.Warn("force close failed",
				zap.String("session_id", session.ID), zap.Error(err))
			continue
		}
		if changed {
			closed++
		}
	}

	if closed > 0 {
		s.logger.Info("idle sessions expired",
			zap.Int("closed", closed),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
