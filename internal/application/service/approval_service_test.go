package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/partner-review/internal/application/dispatcher"
	appwf "github.com/garyjia/partner-review/internal/application/workflow"
	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/domain/event"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

var (
	coordinator = &entity.Admin{ID: 7, Role: entity.RoleCoordinator, Regions: []entity.RegionScope{{RegionCode: "G", SBUCode: "SBU1"}}}
	manager     = &entity.Admin{ID: 8, Role: entity.RoleManager}
	fullAdmin   = &entity.Admin{ID: 1, Role: entity.RoleFull}
)

func captureEvents(d dispatcher.Dispatcher, types ...event.Type) *[]*event.Event {
	var events []*event.Event
	for _, typ := range types {
		d.Subscribe(typ, func(ctx context.Context, evt *event.Event) error {
			events = append(events, evt)
			return nil
		})
	}
	return &events
}

func TestApprovalService_CreateDraft(t *testing.T) {
	tests := []struct {
		name    string
		actor   *entity.Admin
		kind    entity.FormKind
		input   FormInput
		wantErr error
	}{
		{
			name:  "coordinator drafts in own business unit",
			actor: coordinator,
			kind:  entity.FormKindOnboardRequest,
			input: FormInput{RegionCode: "G", SBUCode: "SBU1", Title: "Acme Ltd", Payload: `{"partner":"Acme"}`},
		},
		{
			name:    "coordinator outside business unit",
			actor:   coordinator,
			kind:    entity.FormKindOnboardRequest,
			input:   FormInput{RegionCode: "G", SBUCode: "SBU2", Title: "Acme Ltd"},
			wantErr: domainwf.ErrForbidden,
		},
		{
			name:    "manager cannot draft onboard requests",
			actor:   manager,
			kind:    entity.FormKindOnboardRequest,
			input:   FormInput{RegionCode: "G", Title: "Acme Ltd"},
			wantErr: domainwf.ErrForbidden,
		},
		{
			name:  "manager drafts a data request",
			actor: manager,
			kind:  entity.FormKindDataRequest,
			input: FormInput{RegionCode: "G", Title: "Customer export"},
		},
		{
			name:    "missing region",
			actor:   manager,
			kind:    entity.FormKindDataRequest,
			input:   FormInput{Title: "Customer export"},
			wantErr: domainwf.ErrValidation,
		},
		{
			name:    "payload is not an object",
			actor:   manager,
			kind:    entity.FormKindDataRequest,
			input:   FormInput{RegionCode: "G", Title: "Customer export", Payload: `[1]`},
			wantErr: domainwf.ErrValidation,
		},
		{
			name:    "unknown kind",
			actor:   manager,
			kind:    entity.FormKind("expense"),
			input:   FormInput{RegionCode: "G", Title: "x"},
			wantErr: domainwf.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created *entity.Form
			repo := &mockFormRepo{createFunc: func(ctx context.Context, form *entity.Form) error {
				form.ID = 11
				created = form
				return nil
			}}
			d := dispatcher.NewDispatcher()
			events := captureEvents(d, event.TypeFormCreated)

			svc := NewApprovalService(repo, &mockLedgerRepo{}, &mockEngine{}, d, &mockLogger{})
			form, err := svc.CreateDraft(context.Background(), tt.actor, tt.kind, tt.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, created)
				assert.Empty(t, *events)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, entity.StatusDraft, form.Status)
			assert.True(t, form.IsCreatedBy(tt.actor.ID))
			assert.Same(t, created, form)
			require.Len(t, *events, 1)
			audit := (*events)[0].Audit()
			require.NotNil(t, audit)
			assert.Equal(t, "form.create", audit.Action)
			assert.Equal(t, int64(11), audit.TargetID)
		})
	}
}

func TestApprovalService_CreatePublicSubmission(t *testing.T) {
	d := dispatcher.NewDispatcher()
	events := captureEvents(d, event.TypeFormCreated)
	svc := NewApprovalService(&mockFormRepo{}, &mockLedgerRepo{}, &mockEngine{}, d, &mockLogger{})

	form, err := svc.CreatePublicSubmission(context.Background(), entity.FormKindOnboardRequest, FormInput{
		RegionCode: "G", SBUCode: "SBU1", Title: "  Partner\x00 Co  ",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingCoordinator, form.Status)
	assert.Nil(t, form.CreatedByAdminID)
	assert.Equal(t, "Partner Co", form.Title)

	require.Len(t, *events, 1)
	intents := (*events)[0].Intents()
	require.Len(t, intents, 1)
	assert.Equal(t, entity.RoleCoordinator, intents[0].Recipient.Role)
	assert.Nil(t, (*events)[0].Audit().AdminID)

	_, err = svc.CreatePublicSubmission(context.Background(), entity.FormKindDataRequest, FormInput{RegionCode: "G", Title: "x"})
	assert.True(t, errors.Is(err, domainwf.ErrValidation), "data requests have no public intake")
}

func TestApprovalService_UpdatePayload(t *testing.T) {
	draft := func(status entity.Status) *mockFormRepo {
		return &mockFormRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Form, error) {
			return &entity.Form{ID: id, Kind: entity.FormKindDataRequest, Status: status, RegionCode: "G", CreatedByAdminID: int64Ptr(8), Title: "old"}, nil
		}}
	}

	t.Run("creator edits a denied form", func(t *testing.T) {
		svc := NewApprovalService(draft(entity.StatusDenied), &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})
		form, err := svc.UpdatePayload(context.Background(), manager, entity.FormKindDataRequest, 3, "new title", `{"rows":10}`)
		require.NoError(t, err)
		assert.Equal(t, "new title", form.Title)
		assert.Equal(t, entity.StatusDenied, form.Status, "editing never changes status")
	})

	t.Run("someone else", func(t *testing.T) {
		svc := NewApprovalService(draft(entity.StatusDraft), &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})
		_, err := svc.UpdatePayload(context.Background(), fullAdmin, entity.FormKindDataRequest, 3, "t", "")
		assert.True(t, errors.Is(err, domainwf.ErrForbidden))
	})

	t.Run("under review", func(t *testing.T) {
		svc := NewApprovalService(draft(entity.StatusPendingManager), &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})
		_, err := svc.UpdatePayload(context.Background(), manager, entity.FormKindDataRequest, 3, "t", "")
		assert.True(t, errors.Is(err, domainwf.ErrInvalidTransition))
	})

	t.Run("status changed concurrently", func(t *testing.T) {
		repo := draft(entity.StatusDraft)
		repo.updateContentFunc = func(ctx context.Context, id int64, expected entity.Status, title, payload string) (bool, error) {
			return false, nil
		}
		svc := NewApprovalService(repo, &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})
		_, err := svc.UpdatePayload(context.Background(), manager, entity.FormKindDataRequest, 3, "t", "")
		assert.True(t, errors.Is(err, domainwf.ErrConflict))
	})
}

func TestApprovalService_SubmitPublishesAfterCommit(t *testing.T) {
	committed := &entity.Form{ID: 4, Kind: entity.FormKindOnboardRequest, Status: entity.StatusPendingSeniorManager}
	audit := &entity.AuditEvent{ID: "a-1", Action: "form.submit"}
	intents := []domainwf.Intent{{Recipient: domainwf.ByAdmin(7)}}

	var gotCmd appwf.Command
	engine := &mockEngine{executeFunc: func(ctx context.Context, cmd appwf.Command) (*appwf.Result, error) {
		gotCmd = cmd
		return &appwf.Result{Form: committed, FromStatus: entity.StatusPendingManager, Intents: intents, Audit: audit}, nil
	}}

	logger := &mockLogger{}
	d := dispatcher.NewDispatcher()
	events := captureEvents(d, event.TypeFormTransitioned)
	// a failing handler must not turn the committed transition into an error
	d.Subscribe(event.TypeFormTransitioned, func(ctx context.Context, evt *event.Event) error {
		return errors.New("lark unavailable")
	})

	svc := NewApprovalService(&mockFormRepo{}, &mockLedgerRepo{}, engine, d, logger)
	form, err := svc.Submit(context.Background(), manager, entity.FormKindOnboardRequest, 4, domainwf.Payload{Comments: "fine"})

	require.NoError(t, err)
	assert.Same(t, committed, form)
	assert.Equal(t, domainwf.ActionSubmit, gotCmd.Action)
	assert.Equal(t, "fine", gotCmd.Payload.Comments)

	require.Len(t, *events, 1)
	evt := (*events)[0]
	assert.Same(t, audit, evt.Audit())
	assert.Equal(t, intents, evt.Intents())
	assert.Equal(t, "PENDING_MANAGER", evt.GetPayloadString(event.PayloadFromStatus))
	assert.Contains(t, logger.errors, "Post-commit handlers failed")
}

func TestApprovalService_DenyReturnsEngineError(t *testing.T) {
	engine := &mockEngine{executeFunc: func(ctx context.Context, cmd appwf.Command) (*appwf.Result, error) {
		assert.Equal(t, domainwf.ActionDeny, cmd.Action)
		return nil, domainwf.Validation("Comments are required when denying a form")
	}}
	d := dispatcher.NewDispatcher()
	events := captureEvents(d, event.TypeFormTransitioned)

	svc := NewApprovalService(&mockFormRepo{}, &mockLedgerRepo{}, engine, d, &mockLogger{})
	_, err := svc.Deny(context.Background(), manager, entity.FormKindOnboardRequest, 4, domainwf.Payload{})

	assert.True(t, errors.Is(err, domainwf.ErrValidation))
	assert.Empty(t, *events)
}

func TestApprovalService_SubmitRejectsBadSignatureURL(t *testing.T) {
	svc := NewApprovalService(&mockFormRepo{}, &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})
	_, err := svc.Submit(context.Background(), manager, entity.FormKindOnboardRequest, 4, domainwf.Payload{SignatureURL: "javascript:alert(1)"})
	assert.True(t, errors.Is(err, domainwf.ErrValidation))
}

func TestApprovalService_Inbox(t *testing.T) {
	forms := map[entity.Status][]*entity.Form{
		entity.StatusPendingCoordinator: {
			{ID: 1, Kind: entity.FormKindOnboardRequest, Status: entity.StatusPendingCoordinator, RegionCode: "G", SBUCode: "SBU1"},
			{ID: 2, Kind: entity.FormKindOnboardRequest, Status: entity.StatusPendingCoordinator, RegionCode: "G", SBUCode: "SBU2"},
		},
		entity.StatusPendingManager: {
			{ID: 3, Kind: entity.FormKindOnboardRequest, Status: entity.StatusPendingManager, RegionCode: "G", SBUCode: "SBU1", CreatedByAdminID: int64Ptr(7)},
		},
	}
	repo := &mockFormRepo{listFunc: func(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error) {
		assert.Equal(t, entity.FormKindOnboardRequest, filter.Kind)
		return forms[filter.Status], nil
	}}
	svc := NewApprovalService(repo, &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})

	inbox, err := svc.Inbox(context.Background(), coordinator, entity.FormKindOnboardRequest)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(1), inbox[0].ID)

	inbox, err = svc.Inbox(context.Background(), fullAdmin, entity.FormKindOnboardRequest)
	require.NoError(t, err)
	assert.Len(t, inbox, 3)

	inbox, err = svc.Inbox(context.Background(), manager, entity.FormKindOnboardRequest)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(3), inbox[0].ID)
}

func TestApprovalService_Reassign(t *testing.T) {
	live := func(status entity.Status) *mockFormRepo {
		return &mockFormRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Form, error) {
			return &entity.Form{ID: id, Kind: entity.FormKindOnboardRequest, Status: status, RegionCode: "G", SBUCode: "SBU1"}, nil
		}}
	}

	t.Run("full admin moves a pending form", func(t *testing.T) {
		var moved []string
		repo := live(entity.StatusPendingCoordinator)
		repo.updateRegionFunc = func(ctx context.Context, id int64, expected entity.Status, region, sbu string) (bool, error) {
			assert.Equal(t, entity.StatusPendingCoordinator, expected)
			moved = []string{region, sbu}
			return true, nil
		}
		d := dispatcher.NewDispatcher()
		events := captureEvents(d, event.TypeFormReassigned)

		svc := NewApprovalService(repo, &mockLedgerRepo{}, &mockEngine{}, d, &mockLogger{})
		form, err := svc.Reassign(context.Background(), fullAdmin, entity.FormKindOnboardRequest, 5, "H", "SBU3")
		require.NoError(t, err)
		assert.Equal(t, []string{"H", "SBU3"}, moved)
		assert.Equal(t, "H", form.RegionCode)

		require.Len(t, *events, 1)
		audit := (*events)[0].Audit()
		assert.Equal(t, "form.reassign", audit.Action)
		assert.Equal(t, "G", audit.Metadata["from_region"])
	})

	t.Run("only full admins", func(t *testing.T) {
		svc := NewApprovalService(live(entity.StatusPendingManager), &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})
		_, err := svc.Reassign(context.Background(), manager, entity.FormKindOnboardRequest, 5, "H", "")
		assert.True(t, errors.Is(err, domainwf.ErrForbidden))
	})

	t.Run("form actioned before the write", func(t *testing.T) {
		repo := live(entity.StatusPendingManager)
		repo.updateRegionFunc = func(ctx context.Context, id int64, expected entity.Status, region, sbu string) (bool, error) {
			return false, nil
		}
		d := dispatcher.NewDispatcher()
		events := captureEvents(d, event.TypeFormReassigned)

		svc := NewApprovalService(repo, &mockLedgerRepo{}, &mockEngine{}, d, &mockLogger{})
		_, err := svc.Reassign(context.Background(), fullAdmin, entity.FormKindOnboardRequest, 5, "H", "")
		assert.True(t, errors.Is(err, domainwf.ErrConflict))
		assert.Empty(t, *events)
	})

	t.Run("terminal forms stay put", func(t *testing.T) {
		svc := NewApprovalService(live(entity.StatusApproved), &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})
		_, err := svc.Reassign(context.Background(), fullAdmin, entity.FormKindOnboardRequest, 5, "H", "")
		assert.True(t, errors.Is(err, domainwf.ErrInvalidTransition))
	})
}

func TestApprovalService_GetFormAndLedger(t *testing.T) {
	repo := &mockFormRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Form, error) {
		if id == 1 {
			return &entity.Form{ID: 1, Kind: entity.FormKindDataRequest}, nil
		}
		return nil, nil
	}}
	ledger := &mockLedgerRepo{listByFormIDFunc: func(ctx context.Context, formID int64) ([]*entity.ApprovalLedgerEntry, error) {
		return []*entity.ApprovalLedgerEntry{{ID: 1, FormID: formID}}, nil
	}}
	svc := NewApprovalService(repo, ledger, &mockEngine{}, nil, &mockLogger{})

	_, err := svc.GetForm(context.Background(), entity.FormKindDataRequest, 2)
	assert.True(t, errors.Is(err, domainwf.ErrNotFound))

	_, err = svc.GetForm(context.Background(), entity.FormKindOnboardRequest, 1)
	assert.True(t, errors.Is(err, domainwf.ErrNotFound))

	entries, err := svc.GetLedger(context.Background(), entity.FormKindDataRequest, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApprovalService_ListForms(t *testing.T) {
	var got entity.FormFilter
	repo := &mockFormRepo{listFunc: func(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error) {
		got = filter
		return nil, nil
	}}
	svc := NewApprovalService(repo, &mockLedgerRepo{}, &mockEngine{}, nil, &mockLogger{})

	_, err := svc.ListForms(context.Background(), entity.FormFilter{Kind: entity.FormKindDataRequest, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 50, got.Limit)

	_, err = svc.ListForms(context.Background(), entity.FormFilter{Status: "ARCHIVED"})
	assert.True(t, errors.Is(err, domainwf.ErrValidation))
}
