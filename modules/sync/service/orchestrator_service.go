package service

import (
	"context"
	"encoding/json"
	"fmt"

	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/core/tasks"
	"calsync-api/core/utils"
	authService "calsync-api/modules/auth/service"
	calendarRepo "calsync-api/modules/calendar/repository"
	calendarService "calsync-api/modules/calendar/service"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Orchestrator ties the sync engines to the workflow queue: it owns the task
// handlers, stamps each inbound run with a run id and records the outcome on
// the mapping.
type Orchestrator interface {
	RunSync(ctx context.Context, externalCalendarID uuid.UUID) error
	SyncNow(ctx context.Context, userID uuid.UUID) (int, error)
	RegisterHandlers(mux *asynq.ServeMux)
}

type orchestrator struct {
	inbound     InboundSyncService
	outbound    OutboundSyncService
	channels    ChannelService
	registry    calendarService.RegistryService
	connections authService.ConnectionService
	providers   provider.Registry
	extRepo     calendarRepo.ExternalCalendarRepository
	distributor tasks.Distributor
}

func NewOrchestrator(
	inbound InboundSyncService,
	outbound OutboundSyncService,
	channels ChannelService,
	registry calendarService.RegistryService,
	connections authService.ConnectionService,
	providers provider.Registry,
	extRepo calendarRepo.ExternalCalendarRepository,
	distributor tasks.Distributor,
) Orchestrator {
	return &orchestrator{
		inbound:     inbound,
		outbound:    outbound,
		channels:    channels,
		registry:    registry,
		connections: connections,
		providers:   providers,
		extRepo:     extRepo,
		distributor: distributor,
	}
}

func (o *orchestrator) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeSyncCalendar, o.handleSyncCalendar)
	mux.HandleFunc(tasks.TypeSyncSweep, o.handleSweep)
	mux.HandleFunc(tasks.TypeRenewChannels, o.handleRenewChannels)
	mux.HandleFunc(tasks.TypeConnectionBootstrap, o.handleConnectionBootstrap)
	mux.HandleFunc(tasks.TypeOutboundEvent, o.handleOutboundEvent)
}

// RunSync executes one inbound run under a fresh run id. A failure lands in
// the mapping's last_sync_error and still propagates so the queue retries.
func (o *orchestrator) RunSync(ctx context.Context, externalCalendarID uuid.UUID) error {
	runID := utils.GenerateID()
	logger.Info("Orchestrator:RunSync:Start",
		"external_calendar_id", externalCalendarID, "run_id", runID)

	if err := o.extRepo.MarkRunStarted(ctx, externalCalendarID, runID); err != nil {
		return err
	}

	if err := o.inbound.SyncExternalCalendar(ctx, externalCalendarID); err != nil {
		if merr := o.extRepo.MarkRunFailed(ctx, externalCalendarID, err.Error()); merr != nil {
			logger.Error("Orchestrator:RunSync:MarkFailed:Error",
				"external_calendar_id", externalCalendarID, "error", merr)
		}
		return err
	}
	return nil
}

// SyncNow enqueues an inbound run for every mapping the user has and returns
// how many were queued.
func (o *orchestrator) SyncNow(ctx context.Context, userID uuid.UUID) (int, error) {
	mappings, err := o.extRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, m := range mappings {
		if err := o.distributor.EnqueueSyncCalendar(ctx, m.ID); err != nil {
			logger.Error("Orchestrator:SyncNow:Enqueue:Error",
				"external_calendar_id", m.ID, "error", err)
			continue
		}
		queued++
	}
	return queued, nil
}

func (o *orchestrator) handleSyncCalendar(ctx context.Context, t *asynq.Task) error {
	var payload tasks.SyncCalendarPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w: %w", tasks.TypeSyncCalendar, err, asynq.SkipRetry)
	}
	return o.RunSync(ctx, payload.ExternalCalendarID)
}

// handleSweep is the scheduled safety net: every known mapping gets a sync
// run, so calendars without a working push channel still converge.
func (o *orchestrator) handleSweep(ctx context.Context, _ *asynq.Task) error {
	mappings, err := o.extRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, m := range mappings {
		if err := o.distributor.EnqueueSyncCalendar(ctx, m.ID); err != nil {
			logger.Error("Orchestrator:Sweep:Enqueue:Error",
				"external_calendar_id", m.ID, "error", err)
		}
	}

	logger.Info("Orchestrator:Sweep:Done", "mappings", len(mappings))
	return nil
}

func (o *orchestrator) handleRenewChannels(ctx context.Context, _ *asynq.Task) error {
	return o.channels.RenewExpiring(ctx)
}

// handleConnectionBootstrap discovers the calendars behind a new connection,
// registers each one in the registry, tries to set up a push channel and
// queues the initial inbound sync. Watch failures are tolerated; the sweep
// covers unwatched calendars.
func (o *orchestrator) handleConnectionBootstrap(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ConnectionBootstrapPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w: %w", tasks.TypeConnectionBootstrap, err, asynq.SkipRetry)
	}

	conn, err := o.connections.GetConnection(ctx, payload.ConnectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		logger.Warn("Orchestrator:Bootstrap:ConnectionGone", "connection_id", payload.ConnectionID)
		return nil
	}

	client, err := o.providers.Get(conn.Provider)
	if err != nil {
		return err
	}

	accessToken, err := o.connections.GetValidAccessToken(ctx, conn.ID)
	if err != nil {
		return err
	}

	calendars, err := client.ListCalendars(ctx, accessToken)
	if err != nil {
		return err
	}

	for _, cal := range calendars {
		ext, err := o.registry.UpsertByRemoteID(ctx, conn.ID, cal.ID, cal.Name, cal.Color)
		if err != nil {
			return err
		}

		if err := o.channels.RegisterWatch(ctx, ext.ID); err != nil {
			if errors.HasCode(err, errors.ErrWebhookNotConfigured) {
				logger.Info("Orchestrator:Bootstrap:NoWebhook", "external_calendar_id", ext.ID)
			} else {
				logger.Error("Orchestrator:Bootstrap:RegisterWatch:Error",
					"external_calendar_id", ext.ID, "error", err)
			}
		}

		if err := o.distributor.EnqueueSyncCalendar(ctx, ext.ID); err != nil {
			return err
		}
	}

	logger.Info("Orchestrator:Bootstrap:Done",
		"connection_id", conn.ID, "provider", conn.Provider, "calendars", len(calendars))
	return nil
}

func (o *orchestrator) handleOutboundEvent(ctx context.Context, t *asynq.Task) error {
	var payload tasks.OutboundEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w: %w", tasks.TypeOutboundEvent, err, asynq.SkipRetry)
	}

	switch payload.Action {
	case tasks.OutboundActionCreate:
		return o.outbound.PushCreate(ctx, payload.EventID)
	case tasks.OutboundActionUpdate:
		return o.outbound.PushUpdate(ctx, payload.EventID, payload.EditScope, payload.OriginalStart)
	case tasks.OutboundActionDelete:
		return o.outbound.PushDelete(ctx, payload.ConnectionID, payload.Provider, payload.RemoteCalendarID, payload.RemoteEventID)
	case tasks.OutboundActionConvert:
		return o.outbound.ConvertToLocal(ctx, payload.EventID, payload.ConnectionID, payload.Provider, payload.RemoteCalendarID, payload.RemoteEventID)
	default:
		return fmt.Errorf("unknown outbound action %q: %w", payload.Action, asynq.SkipRetry)
	}
}
