package ws

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"support-chat/internal/domain"
	"support-chat/internal/service"
)

func TestHandlerSendError_HidesInternalDetail(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}
	client := newClient(customerIdentity, nil)

	cause := fmt.Errorf("%w: %v", service.ErrPersistenceFailed, errors.New("pgx: connection refused"))
	h.sendError(client, cause)

	event := <-client.send
	payload, ok := event.Payload.(domain.ErrorPayload)
	if !ok {
		t.Fatalf("unexpected payload %T", event.Payload)
	}
	if payload.Kind != "persistence_failed" {
		t.Fatalf("expected kind persistence_failed, got %q", payload.Kind)
	}
	// El texto del driver jamás llega al cliente.
	if strings.Contains(payload.Message, "connection refused") || strings.Contains(payload.Message, "pgx") {
		t.Fatalf("internal detail leaked to client: %q", payload.Message)
	}
	if payload.Message != service.ErrorMessage(cause) {
		t.Fatalf("expected fixed message %q, got %q", service.ErrorMessage(cause), payload.Message)
	}
}

func TestHandlerSendError_UnknownEvent(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}
	client := newClient(staffIdentity, nil)

	h.sendError(client, ErrUnknownEvent)

	event := <-client.send
	payload, ok := event.Payload.(domain.ErrorPayload)
	if !ok {
		t.Fatalf("unexpected payload %T", event.Payload)
	}
	if payload.Kind != "unknown_event" || payload.Message != "unknown event type" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
