package model

import "time"

type NodeType string

const (
	NodePerson        NodeType = "Person"
	NodeContact       NodeType = "Contact"
	NodeUser          NodeType = "User"
	NodeEmail         NodeType = "Email"
	NodeMessage       NodeType = "Message"
	NodeCalendarEvent NodeType = "CalendarEvent"
	NodeActionItem    NodeType = "ActionItem"
	NodeDocument      NodeType = "Document"
	NodeTopic         NodeType = "Topic"
	NodeTimeBlock     NodeType = "TimeBlock"
	NodeEpisode       NodeType = "Episode"
)

// ContentNodeTypes are the node types that carry searchable text and can
// participate in cross-app correlation.
var ContentNodeTypes = []NodeType{
	NodeEmail, NodeMessage, NodeCalendarEvent, NodeActionItem, NodeDocument,
}

func IsContentType(t NodeType) bool {
	for _, ct := range ContentNodeTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// Entity is a person-like node (Person, Contact, User). Resolution
// strategies only ever read these fields; app-specific identifiers
// (slack_user_id, asana_user_id, ...) live in Attributes.
type Entity struct {
	UUID       string                 `json:"uuid"`
	Type       NodeType               `json:"type"`
	Name       string                 `json:"name"`
	Email      string                 `json:"email,omitempty"`
	Source     string                 `json:"source,omitempty"`
	UserID     int64                  `json:"user_id,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// ContentNode is an ingested artifact (email, chat message, calendar
// event, action item, document) decoded from a graph row.
type ContentNode struct {
	UUID         string    `json:"uuid"`
	Type         NodeType  `json:"type"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content,omitempty"`
	Source       string    `json:"source,omitempty"`
	UserID       int64     `json:"user_id,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	Keywords     []string  `json:"keywords,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	CreatedAt    time.Time `json:"created_at"`
}

// SearchableText returns the text a similarity index should see for this
// node: title plus body, whichever parts are present.
func (n ContentNode) SearchableText() string {
	if n.Title != "" && n.Content != "" {
		return n.Title + "\n" + n.Content
	}
	if n.Title != "" {
		return n.Title
	}
	return n.Content
}

type Granularity string

const (
	GranularityHour    Granularity = "hour"
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// TimeBlock is a fixed calendar bucket. ID is deterministic from
// (granularity, bucket start, user) so creation is idempotent by MERGE.
type TimeBlock struct {
	ID          string      `json:"id"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     time.Time   `json:"end_time"`
	Granularity Granularity `json:"granularity"`
	Label       string      `json:"label"`
	UserID      int64       `json:"user_id,omitempty"`
}

type Topic struct {
	UUID          string    `json:"uuid"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	Keywords      []string  `json:"keywords,omitempty"`
	Confidence    float64   `json:"confidence"`
	RelatedApps   []string  `json:"related_apps,omitempty"`
	EntityCount   int64     `json:"entity_count"`
	LastMentioned time.Time `json:"last_mentioned"`
	UserID        int64     `json:"user_id,omitempty"`
}

// Episode is a derived node summarizing a contiguous, topic-coherent
// stretch of high activity.
type Episode struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Significance float64   `json:"significance"`
	EventCount   int64     `json:"event_count"`
	UserID       int64     `json:"user_id"`
}
