package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/domain/event"
)

func TestAuditService_RecordTriesEverySink(t *testing.T) {
	failing := &mockAuditSink{err: errors.New("broker down")}
	working := &mockAuditSink{}
	logger := &mockLogger{}
	svc := NewAuditService(logger, failing, nil, working)

	evt := &entity.AuditEvent{ID: "a-1", Action: "form.submit", TargetType: "data-request", TargetID: 3}
	err := svc.Record(context.Background(), evt)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	require.Len(t, working.recorded, 1)
	assert.Same(t, evt, working.recorded[0])
	assert.Equal(t, []string{"Audit sink failed"}, logger.errors)
}

func TestAuditService_HandleEvent(t *testing.T) {
	sink := &mockAuditSink{}
	svc := NewAuditService(&mockLogger{}, sink)
	form := &entity.Form{ID: 3, Kind: entity.FormKindDataRequest}

	require.NoError(t, svc.HandleEvent(context.Background(), event.NewEvent(event.TypeFormUpdated, form, nil)))
	assert.Empty(t, sink.recorded)

	audit := &entity.AuditEvent{ID: "a-2", Action: "form.deny"}
	evt := event.NewEvent(event.TypeFormTransitioned, form, map[string]interface{}{event.PayloadAudit: audit})
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	require.Len(t, sink.recorded, 1)
	assert.Equal(t, "form.deny", sink.recorded[0].Action)
}

func TestAuditService_NoSinks(t *testing.T) {
	svc := NewAuditService(&mockLogger{})
	assert.NoError(t, svc.Record(context.Background(), &entity.AuditEvent{ID: "a-3"}))
}
