package usecase

import (
	"context"

	"aspen/internal/domain/entity"
)

// ReconcilerUsecase drives one (account, project, udid) triple to the
// desired portal state: device registered, app identifier present,
// development certificate usable, provisioning profile covering the device.
// Every step re-derives state from the portal, so a partially failed attempt
// leaves nothing to clean up.
type ReconcilerUsecase interface {
	// Reconcile performs the device, bundle id, certificate and profile
	// phases in order. An error aborts the attempt; the caller decides
	// whether another account gets a try.
	Reconcile(ctx context.Context, account *entity.Account, project *entity.Project, udid string) error
}
