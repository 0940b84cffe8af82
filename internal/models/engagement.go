package models

import (
	"fmt"
	"time"
)

// Kind identifies what an engagement record means
type Kind string

const (
	KindLike     Kind = "like"
	KindBookmark Kind = "bookmark"
	KindFollow   Kind = "follow"
)

// Kinds lists every engagement kind in a stable order
var Kinds = []Kind{KindLike, KindBookmark, KindFollow}

// ParseKind converts a route or payload value into a Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindLike, KindBookmark, KindFollow:
		return k, nil
	}
	return "", fmt.Errorf("unknown engagement kind %q", s)
}

// TargetsPosts reports whether the kind points at a post rather than an actor
func (k Kind) TargetsPosts() bool {
	return k == KindLike || k == KindBookmark
}

// Notifies reports whether creating an engagement of this kind notifies the target owner
func (k Kind) Notifies() bool {
	return k == KindLike || k == KindFollow
}

// Engagement is one (actor, target, kind) pairing. At most one row may exist
// per triple; the unique index is what the toggle relies on.
type Engagement struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ActorID   string    `json:"actor_id" gorm:"type:varchar(128);not null;index;uniqueIndex:idx_engagement_actor_target_kind"`
	TargetID  string    `json:"target_id" gorm:"type:varchar(128);not null;index:idx_engagement_target_kind;uniqueIndex:idx_engagement_actor_target_kind"`
	Kind      Kind      `json:"kind" gorm:"type:varchar(16);not null;index:idx_engagement_target_kind;uniqueIndex:idx_engagement_actor_target_kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (Engagement) TableName() string { return "engagements" }

// ToggleResult is the authoritative state after a toggle
type ToggleResult struct {
	Added bool  `json:"added"`
	Count int64 `json:"count"`
}

// TargetState is what a client needs to seed its local belief for one target
type TargetState struct {
	HasEngaged bool  `json:"hasEngaged"`
	Count      int64 `json:"count"`
}

// BatchStateRequest asks for the engagement state of several targets at once
type BatchStateRequest struct {
	TargetIDs []string `json:"target_ids" validate:"required,min=1,max=200,dive,required"`
}
