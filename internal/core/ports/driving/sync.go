package driving

import (
	"context"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// SyncService runs one synchronization pass against the fitness provider:
// refresh-if-stale, fetch the day's aggregates, upsert the daily record.
type SyncService interface {
	Sync(ctx context.Context, req SyncRequest) (*domain.SyncResult, error)
}

// SyncRequest identifies which credential drives the sync and which day to
// sync. The caller supplies its own CredentialStore variant - the browser
// session store for interactive sync, the durable store for scheduled sync.
type SyncRequest struct {
	// Identity keys the credential inside Store.
	Identity string

	// Store is the caller's credential store variant.
	Store driven.CredentialStore

	// Date is the target calendar day. Zero means today. Any timestamp is
	// normalized to deployment-local midnight.
	Date time.Time
}
