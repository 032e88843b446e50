package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"calsync-api/core/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Distributor enqueues durable units of work. Handlers run out-of-line in the
// worker, with asynq's retry/backoff between attempts.
type Distributor interface {
	EnqueueSyncCalendar(ctx context.Context, externalCalendarID uuid.UUID) error
	EnqueueConnectionBootstrap(ctx context.Context, connectionID uuid.UUID) error
	EnqueueOutboundEvent(ctx context.Context, payload OutboundEventPayload) error
}

type redisDistributor struct {
	client *asynq.Client
}

func NewDistributor(client *asynq.Client) Distributor {
	return &redisDistributor{client: client}
}

func (d *redisDistributor) EnqueueSyncCalendar(ctx context.Context, externalCalendarID uuid.UUID) error {
	payload, err := json.Marshal(SyncCalendarPayload{ExternalCalendarID: externalCalendarID})
	if err != nil {
		return fmt.Errorf("marshal sync payload: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(TypeSyncCalendar, payload),
		asynq.Queue(QueueSync),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeSyncCalendar, err)
	}

	logger.Info("Distributor:EnqueueSyncCalendar",
		"external_calendar_id", externalCalendarID,
		"task_id", info.ID,
		"queue", info.Queue,
	)
	return nil
}

func (d *redisDistributor) EnqueueConnectionBootstrap(ctx context.Context, connectionID uuid.UUID) error {
	payload, err := json.Marshal(ConnectionBootstrapPayload{ConnectionID: connectionID})
	if err != nil {
		return fmt.Errorf("marshal bootstrap payload: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(TypeConnectionBootstrap, payload),
		asynq.Queue(QueueSync),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeConnectionBootstrap, err)
	}

	logger.Info("Distributor:EnqueueConnectionBootstrap",
		"connection_id", connectionID,
		"task_id", info.ID,
	)
	return nil
}

func (d *redisDistributor) EnqueueOutboundEvent(ctx context.Context, payload OutboundEventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbound payload: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(TypeOutboundEvent, data),
		asynq.Queue(QueueOutbound),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeOutboundEvent, err)
	}

	logger.Info("Distributor:EnqueueOutboundEvent",
		"action", payload.Action,
		"event_id", payload.EventID,
		"task_id", info.ID,
	)
	return nil
}
