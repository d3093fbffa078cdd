package model

import "time"

type EdgeType string

const (
	EdgeSameAs         EdgeType = "SAME_AS"
	EdgeRelatedTo      EdgeType = "RELATED_TO"
	EdgeOccurredDuring EdgeType = "OCCURRED_DURING"
	EdgeScheduledFor   EdgeType = "SCHEDULED_FOR"
	EdgePreceded       EdgeType = "PRECEDED"
	EdgeFollows        EdgeType = "FOLLOWS"
	EdgeDiscusses      EdgeType = "DISCUSSES"
	EdgeAbout          EdgeType = "ABOUT"
	EdgeActiveDuring   EdgeType = "ACTIVE_DURING"

	EdgeSent     EdgeType = "SENT"
	EdgeReceived EdgeType = "RECEIVED"
	EdgeMentions EdgeType = "MENTIONS"
	EdgeAttended EdgeType = "ATTENDED"
)

// InteractionEdgeTypes carry a reinforced/decayed strength score.
var InteractionEdgeTypes = []EdgeType{
	EdgeSent, EdgeReceived, EdgeMentions, EdgeAttended,
}

func IsInteractionType(t EdgeType) bool {
	for _, it := range InteractionEdgeTypes {
		if t == it {
			return true
		}
	}
	return false
}

// SameAsEdge asserts two nodes denote the same real-world entity. At most
// one exists per unordered node pair; creation is preceded by a
// direction-agnostic existence check.
type SameAsEdge struct {
	FromUUID       string    `json:"from_uuid"`
	ToUUID         string    `json:"to_uuid"`
	Confidence     float64   `json:"confidence"`
	Method         string    `json:"method"`
	IsAutoResolved bool      `json:"is_auto_resolved"`
	CreatedAt      time.Time `json:"created_at"`
}

// RelatedToEdge is a weaker, non-identity association.
type RelatedToEdge struct {
	FromUUID        string    `json:"from_uuid"`
	ToUUID          string    `json:"to_uuid"`
	Confidence      float64   `json:"confidence"`
	CorrelationType string    `json:"correlation_type"`
	Context         string    `json:"context,omitempty"`
	DiscoveredAt    time.Time `json:"discovered_at"`
	CrossApp        bool      `json:"cross_app,omitempty"`
	TargetSource    string    `json:"target_source,omitempty"`
}

// InteractionEdge is a strength-tracked edge (SENT, RECEIVED, MENTIONS,
// ATTENDED, ...). Strength stays in [MinStrength visibility, MaxStrength];
// pruned edges keep strength 0 and are never physically deleted.
type InteractionEdge struct {
	FromUUID         string    `json:"from_uuid"`
	ToUUID           string    `json:"to_uuid"`
	Type             EdgeType  `json:"type"`
	Strength         float64   `json:"strength"`
	InteractionCount int64     `json:"interaction_count"`
	FirstSeen        time.Time `json:"first_seen"`
	LastInteraction  time.Time `json:"last_interaction"`
	Pruned           bool      `json:"pruned,omitempty"`
}
