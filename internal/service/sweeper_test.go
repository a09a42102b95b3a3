package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"support-chat/internal/domain"
)

func staleSession(id string, age time.Duration) domain.ChatSession {
	session := openSession(id)
	session.LastMessageAt = time.Now().UTC().Add(-age)
	return session
}

func newSweepSetup(repo *fakeSessionRepo, idleAfter time.Duration) (*Sweeper, *eventRecorder) {
	lifecycle, rec := newLifecycle(repo)
	return NewSweeper(zap.NewNop(), repo, lifecycle, time.Minute, idleAfter), rec
}

func TestSweeperSweep_ClosesExpiredSessions(t *testing.T) {
	repo := newFakeSessionRepo(
		staleSession("old-1", 2*time.Hour),
		staleSession("old-2", 3*time.Hour),
		staleSession("fresh", time.Minute),
	)
	sweeper, rec := newSweepSetup(repo, time.Hour)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, id := range []string{"old-1", "old-2"} {
		session := repo.get(id)
		if session.Status != domain.SessionClosed {
			t.Fatalf("session %s: expected closed, got %q", id, session.Status)
		}
		if session.CloseReason != domain.CloseReasonExpired {
			t.Fatalf("session %s: expected reason expired, got %q", id, session.CloseReason)
		}
	}
	if got := repo.get("fresh"); got.Status != domain.SessionOpen {
		t.Fatalf("fresh session must stay open, got %q", got.Status)
	}

	// session_closed va a la sala y al staff por cada sesión vencida.
	if n := len(rec.byEvent(domain.EventSessionClosed)); n != 4 {
		t.Fatalf("expected 4 closure broadcasts, got %d", n)
	}
}

func TestSweeperSweep_EmptyIsSilent(t *testing.T) {
	repo := newFakeSessionRepo(staleSession("fresh", time.Minute))
	sweeper, rec := newSweepSetup(repo, time.Hour)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.total() != 0 {
		t.Fatalf("sweep without expired sessions must not broadcast")
	}
}

func TestSweeperSweep_IdempotentAcrossCycles(t *testing.T) {
	repo := newFakeSessionRepo(staleSession("old", 2*time.Hour))
	sweeper, rec := newSweepSetup(repo, time.Hour)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	// Una sesión ya cerrada nunca se reporta cerrada dos veces.
	if n := len(rec.byEvent(domain.EventSessionClosed)); n != 2 {
		t.Fatalf("expected exactly one closure (room+staff), got %d broadcasts", n)
	}
}

func TestSweeperSweep_ListFailure(t *testing.T) {
	repo := newFakeSessionRepo(staleSession("old", 2*time.Hour))
	repo.listErr = errors.New("storage unreachable")
	sweeper, rec := newSweepSetup(repo, time.Hour)

	err := sweeper.Sweep(context.Background())
	if !errors.Is(err, ErrSweepCycleFailed) {
		t.Fatalf("expected ErrSweepCycleFailed, got %v", err)
	}
	if rec.total() != 0 {
		t.Fatalf("failed cycle must not broadcast")
	}

	// El siguiente ciclo retoma las sesiones pendientes.
	repo.listErr = nil
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("recovery sweep: %v", err)
	}
	if got := repo.get("old"); got.Status != domain.SessionClosed {
		t.Fatalf("expected session closed after recovery, got %q", got.Status)
	}
}

func TestSweeperSweep_PartialProgressOnCloseFailure(t *testing.T) {
	repo := newFakeSessionRepo(staleSession("old", 2*time.Hour))
	repo.closeErr = errors.New("write failed")
	sweeper, _ := newSweepSetup(repo, time.Hour)

	// Un fallo al cerrar no aborta el ciclo ni tumba el proceso.
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("expected partial progress without cycle error, got %v", err)
	}

	repo.closeErr = nil
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("recovery sweep: %v", err)
	}
	if got := repo.get("old"); got.Status != domain.SessionClosed {
		t.Fatalf("expected session closed on retry, got %q", got.Status)
	}
}

func TestSweeperRun_StopsOnCancel(t *testing.T) {
	repo := newFakeSessionRepo()
	sweeper, _ := newSweepSetup(repo, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop on context cancellation")
	}
}
