package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	coreEntity "calsync-api/core/entity"
	"calsync-api/core/errors"
	"calsync-api/core/tasks"
	authEntity "calsync-api/modules/auth/entity"
	calendarEntity "calsync-api/modules/calendar/entity"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeInbound struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeInbound) SyncExternalCalendar(_ context.Context, id uuid.UUID) error {
	f.calls = append(f.calls, id)
	return f.err
}

type fakeOutbound struct {
	creates, updates, deletes, converts int
}

func (f *fakeOutbound) PushCreate(_ context.Context, _ uuid.UUID) error {
	f.creates++
	return nil
}

func (f *fakeOutbound) PushUpdate(_ context.Context, _ uuid.UUID, _ string, _ *time.Time) error {
	f.updates++
	return nil
}

func (f *fakeOutbound) PushDelete(_ context.Context, _ uuid.UUID, _, _, _ string) error {
	f.deletes++
	return nil
}

func (f *fakeOutbound) ConvertToLocal(_ context.Context, _, _ uuid.UUID, _, _, _ string) error {
	f.converts++
	return nil
}

type fakeChannels struct {
	registered []uuid.UUID
	renewals   int
	err        error
}

func (f *fakeChannels) RegisterWatch(_ context.Context, id uuid.UUID) error {
	f.registered = append(f.registered, id)
	return f.err
}

func (f *fakeChannels) RenewExpiring(_ context.Context) error {
	f.renewals++
	return nil
}

type orchestratorFixture struct {
	orch        Orchestrator
	inbound     *fakeInbound
	outbound    *fakeOutbound
	channels    *fakeChannels
	extRepo     *fakeExtRepo
	distributor *fakeDistributor
	client      *fakeClient
	connID      uuid.UUID
}

func newOrchestratorFixture(t *testing.T, items ...*calendarEntity.ExternalCalendar) *orchestratorFixture {
	t.Helper()

	connID := uuid.New()
	fx := &orchestratorFixture{
		inbound:     &fakeInbound{},
		outbound:    &fakeOutbound{},
		channels:    &fakeChannels{},
		extRepo:     newFakeExtRepo(items...),
		distributor: &fakeDistributor{},
		client:      &fakeClient{},
		connID:      connID,
	}
	conn := &authEntity.Connection{
		BaseEntity: coreEntity.BaseEntity{ID: connID},
		Provider:   provider.Google,
	}
	fx.orch = NewOrchestrator(
		fx.inbound,
		fx.outbound,
		fx.channels,
		newFakeRegistryService(),
		&fakeConnections{conn: conn, token: "access-token"},
		&fakeProviderRegistry{client: fx.client},
		fx.extRepo,
		fx.distributor,
	)
	return fx
}

func TestRunSyncRecordsFailureOnMapping(t *testing.T) {
	ext := &calendarEntity.ExternalCalendar{BaseEntity: coreEntity.BaseEntity{ID: uuid.New()}}
	fx := newOrchestratorFixture(t, ext)
	fx.inbound.err = errors.NewAppError(errors.ErrInternalServer, "provider down", nil)

	err := fx.orch.RunSync(context.Background(), ext.ID)
	require.Error(t, err)
	require.Len(t, fx.extRepo.runsStarted, 1)
	require.Len(t, fx.extRepo.runsFailed, 1)
	require.Contains(t, fx.extRepo.runsFailed[0], "provider down")
}

func TestRunSyncLeavesNoErrorOnSuccess(t *testing.T) {
	ext := &calendarEntity.ExternalCalendar{BaseEntity: coreEntity.BaseEntity{ID: uuid.New()}}
	fx := newOrchestratorFixture(t, ext)

	require.NoError(t, fx.orch.RunSync(context.Background(), ext.ID))
	require.Len(t, fx.extRepo.runsStarted, 1)
	require.Empty(t, fx.extRepo.runsFailed)
	require.Equal(t, []uuid.UUID{ext.ID}, fx.inbound.calls)
}

func TestSyncNowQueuesEveryMapping(t *testing.T) {
	first := &calendarEntity.ExternalCalendar{BaseEntity: coreEntity.BaseEntity{ID: uuid.New()}}
	second := &calendarEntity.ExternalCalendar{BaseEntity: coreEntity.BaseEntity{ID: uuid.New()}}
	fx := newOrchestratorFixture(t, first, second)

	queued, err := fx.orch.SyncNow(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, 2, queued)
	require.Len(t, fx.distributor.syncIDs, 2)
}

func TestOutboundTaskDispatchesByAction(t *testing.T) {
	fx := newOrchestratorFixture(t)
	mux := asynq.NewServeMux()
	fx.orch.RegisterHandlers(mux)

	for _, action := range []string{
		tasks.OutboundActionCreate,
		tasks.OutboundActionUpdate,
		tasks.OutboundActionDelete,
		tasks.OutboundActionConvert,
	} {
		payload, err := json.Marshal(tasks.OutboundEventPayload{Action: action, EventID: uuid.New()})
		require.NoError(t, err)
		require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeOutboundEvent, payload)))
	}

	require.Equal(t, 1, fx.outbound.creates)
	require.Equal(t, 1, fx.outbound.updates)
	require.Equal(t, 1, fx.outbound.deletes)
	require.Equal(t, 1, fx.outbound.converts)
}

func TestBootstrapDiscoversAndQueuesInitialSync(t *testing.T) {
	fx := newOrchestratorFixture(t)
	fx.client.calendars = []provider.RemoteCalendar{
		{ID: "cal-1", Name: "Work"},
		{ID: "cal-2", Name: "Home"},
	}
	// Watch registration failing must not block discovery.
	fx.channels.err = errors.NewAppError(errors.ErrWebhookNotConfigured, "no base url", nil)

	mux := asynq.NewServeMux()
	fx.orch.RegisterHandlers(mux)

	payload, err := json.Marshal(tasks.ConnectionBootstrapPayload{ConnectionID: fx.connID})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeConnectionBootstrap, payload)))

	require.Len(t, fx.channels.registered, 2)
	require.Len(t, fx.distributor.syncIDs, 2)
}

func TestSweepQueuesAllKnownMappings(t *testing.T) {
	first := &calendarEntity.ExternalCalendar{BaseEntity: coreEntity.BaseEntity{ID: uuid.New()}}
	second := &calendarEntity.ExternalCalendar{BaseEntity: coreEntity.BaseEntity{ID: uuid.New()}}
	fx := newOrchestratorFixture(t, first, second)

	mux := asynq.NewServeMux()
	fx.orch.RegisterHandlers(mux)
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeSyncSweep, nil)))
	require.Len(t, fx.distributor.syncIDs, 2)
}
