// Package pubsub publishes domain events onto the cache bus.
package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"aspen/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// busPublisher implements service.EventPublisher on the KVCache's pub/sub
// channels. The packaging pipeline and the security-code wait endpoint
// consume the same bus, so no separate broker is involved.
type busPublisher struct {
	bus    service.KVCache
	logger *slog.Logger
}

// Params holds dependencies for the publisher, injected by Fx.
type Params struct {
	fx.In

	Bus    service.KVCache
	Logger *slog.Logger
}

// NewEventPublisher creates the bus-backed event publisher.
func NewEventPublisher(params Params) service.EventPublisher {
	return &busPublisher{
		bus:    params.Bus,
		logger: params.Logger,
	}
}

// PublishPackageTask hands an enrollment to the packaging pipeline.
func (p *busPublisher) PublishPackageTask(ctx context.Context, task *service.PackageTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "failed to encode package task")
	}

	if err := p.bus.Publish(ctx, service.ChannelPackageTask, string(payload)); err != nil {
		return errors.Wrap(err, "failed to publish package task")
	}

	p.logger.Info("Published package task",
		slog.String("project", task.Project),
		slog.String("ipa", task.IPANew),
	)

	return nil
}

// PublishSecurityCode relays a portal security code.
func (p *busPublisher) PublishSecurityCode(ctx context.Context, code *service.SecurityCode) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return errors.Wrap(err, "failed to encode security code")
	}

	if err := p.bus.Publish(ctx, service.ChannelSecurityCode, string(payload)); err != nil {
		return errors.Wrap(err, "failed to publish security code")
	}

	p.logger.Info("Published security code",
		slog.String("account", code.Account),
	)

	return nil
}
