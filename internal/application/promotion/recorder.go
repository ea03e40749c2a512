package promotion

import (
	"context"
	"time"
)

// SyncTrigger names what caused a price synchronization
type SyncTrigger string

const (
	TriggerCampaignUpdate   SyncTrigger = "campaign_update"
	TriggerCampaignDelete   SyncTrigger = "campaign_delete"
	TriggerMembershipAdd    SyncTrigger = "membership_add"
	TriggerMembershipRemove SyncTrigger = "membership_remove"
	TriggerForceSync        SyncTrigger = "force_sync"
	TriggerSchedule         SyncTrigger = "schedule"
	TriggerManual           SyncTrigger = "manual"
)

// SyncOutcome classifies one product synchronization
type SyncOutcome string

const (
	OutcomeUpdated   SyncOutcome = "updated"
	OutcomeUnchanged SyncOutcome = "unchanged"
	OutcomeSkipped   SyncOutcome = "skipped"
	OutcomeFailed    SyncOutcome = "failed"
)

// SyncRecorder receives measurements of synchronization work.
type SyncRecorder interface {
	RecordProductSync(ctx context.Context, trigger SyncTrigger, outcome SyncOutcome, elapsed time.Duration)
	RecordScheduledRun(ctx context.Context, result *ScheduledSyncResult, elapsed time.Duration)
}

// NopSyncRecorder discards every measurement
type NopSyncRecorder struct{}

func (NopSyncRecorder) RecordProductSync(context.Context, SyncTrigger, SyncOutcome, time.Duration) {}
func (NopSyncRecorder) RecordScheduledRun(context.Context, *ScheduledSyncResult, time.Duration)    {}
