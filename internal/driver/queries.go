package driver

import "fmt"

const (
	GetNodeQuery = `
		MATCH (n {uuid: $uuid})
		RETURN n, labels(n) AS labels
	`

	GetEntitiesByLabelQuery = `
		MATCH (n:%s)
		WHERE $user_id = 0 OR n.user_id = $user_id
		RETURN n.uuid AS uuid, labels(n)[0] AS type, n.name AS name,
			n.email AS email, n.source AS source,
			coalesce(n.user_id, 0) AS user_id, n.created_at AS created_at,
			properties(n) AS props
	`

	GetContentByLabelQuery = `
		MATCH (n:%s)
		WHERE $user_id = 0 OR n.user_id = $user_id
		RETURN n.uuid AS uuid, labels(n)[0] AS type, n.title AS title,
			n.content AS content, n.source AS source,
			coalesce(n.user_id, 0) AS user_id,
			n.participants AS participants, n.keywords AS keywords,
			n.timestamp AS timestamp, n.created_at AS created_at
	`

	CheckSameAsExistsQuery = `
		MATCH (a {uuid: $a})-[r:SAME_AS]-(b {uuid: $b})
		RETURN count(r) AS cnt
	`

	CreateSameAsQuery = `
		MATCH (a {uuid: $from_uuid})
		MATCH (b {uuid: $to_uuid})
		MERGE (a)-[r:SAME_AS]->(b)
		SET r.confidence = $confidence,
			r.method = $method,
			r.is_auto_resolved = $is_auto_resolved,
			r.created_at = $created_at
		RETURN a.uuid AS uuid
	`

	CheckRelatedExistsQuery = `
		MATCH (a {uuid: $a})-[r:RELATED_TO]-(b {uuid: $b})
		RETURN count(r) AS cnt
	`

	CreateRelatedToQuery = `
		MATCH (a {uuid: $from_uuid})
		MATCH (b {uuid: $to_uuid})
		MERGE (a)-[r:RELATED_TO]->(b)
		SET r.confidence = $confidence,
			r.correlation_type = $correlation_type,
			r.context = $context,
			r.discovered_at = $discovered_at,
			r.cross_app = $cross_app,
			r.target_source = $target_source
		RETURN a.uuid AS uuid
	`

	GetInteractionEdgeQuery = `
		MATCH (a {uuid: $from_uuid})-[r]->(b {uuid: $to_uuid})
		WHERE type(r) = $type
		RETURN r.strength AS strength,
			coalesce(r.interaction_count, 0) AS interaction_count,
			r.first_seen AS first_seen,
			r.last_interaction AS last_interaction,
			coalesce(r.pruned, false) AS pruned
	`

	GetStaleInteractionEdgesQuery = `
		MATCH (a)-[r]->(b)
		WHERE type(r) IN $types
		  AND coalesce(r.pruned, false) = false
		  AND r.strength IS NOT NULL
		RETURN a.uuid AS from_uuid, b.uuid AS to_uuid, type(r) AS type,
			r.strength AS strength,
			coalesce(r.interaction_count, 0) AS interaction_count,
			r.first_seen AS first_seen,
			r.last_interaction AS last_interaction
	`

	UpdateEdgeStrengthQuery = `
		MATCH (a {uuid: $from_uuid})-[r]->(b {uuid: $to_uuid})
		WHERE type(r) = $type
		SET r.strength = $strength,
			r.pruned = $pruned
		RETURN r.strength AS strength
	`

	StrongestRelationshipsQuery = `
		MATCH (a {uuid: $uuid})-[r]-(b)
		WHERE type(r) IN $types
		  AND coalesce(r.pruned, false) = false
		  AND r.strength >= $min_strength
		RETURN a.uuid AS from_uuid, b.uuid AS to_uuid, type(r) AS type,
			r.strength AS strength,
			coalesce(r.interaction_count, 0) AS interaction_count,
			r.first_seen AS first_seen,
			r.last_interaction AS last_interaction
		ORDER BY r.strength DESC
		LIMIT $limit
	`

	MergeTimeBlockQuery = `
		MERGE (tb:TimeBlock {id: $id})
		ON CREATE SET tb.start_time = $start_time,
			tb.end_time = $end_time,
			tb.granularity = $granularity,
			tb.label = $label,
			tb.user_id = $user_id,
			tb.created_at = $created_at
		RETURN tb.id AS id
	`

	GetTimeBlockQuery = `
		MATCH (tb:TimeBlock {id: $id})
		RETURN tb.id AS id, tb.start_time AS start_time, tb.end_time AS end_time,
			tb.granularity AS granularity, tb.label AS label,
			coalesce(tb.user_id, 0) AS user_id
	`

	LinkAdjacentTimeBlocksQuery = `
		MATCH (prev:TimeBlock {id: $prev_id})
		MATCH (curr:TimeBlock {id: $curr_id})
		MERGE (prev)-[:PRECEDED]->(curr)
		MERGE (curr)-[:FOLLOWS]->(prev)
		RETURN curr.id AS id
	`

	EventsInRangeQuery = `
		MATCH (e)-[:OCCURRED_DURING]->(tb:TimeBlock {granularity: $granularity})
		WHERE tb.start_time >= $start AND tb.end_time <= $end
		  AND ($user_id = 0 OR tb.user_id = $user_id)
		RETURN e.uuid AS uuid, labels(e)[0] AS type, e.title AS title,
			e.content AS content, e.source AS source,
			coalesce(e.user_id, 0) AS user_id,
			e.timestamp AS timestamp, tb.id AS timeblock_id
		ORDER BY tb.start_time
	`

	TimelineQuery = `
		MATCH (tb:TimeBlock {granularity: $granularity})
		WHERE tb.start_time >= $start AND tb.start_time < $end
		  AND ($user_id = 0 OR tb.user_id = $user_id)
		OPTIONAL MATCH (e)-[:OCCURRED_DURING]->(tb)
		RETURN tb.id AS id, tb.start_time AS start_time, tb.label AS label,
			count(e) AS event_count,
			collect(DISTINCT labels(e)[0])[..5] AS event_types
		ORDER BY tb.start_time
	`

	DominantTopicForBlockQuery = `
		MATCH (e)-[:OCCURRED_DURING]->(tb:TimeBlock {id: $timeblock_id})
		MATCH (e)-[:DISCUSSES]->(t:Topic)
		RETURN t.uuid AS uuid, t.name AS name, count(*) AS mentions
		ORDER BY mentions DESC
		LIMIT 3
	`

	CreateEpisodeQuery = `
		CREATE (ep:Episode {uuid: $uuid})
		SET ep.name = $name,
			ep.description = $description,
			ep.start_time = $start_time,
			ep.end_time = $end_time,
			ep.significance = $significance,
			ep.event_count = $event_count,
			ep.user_id = $user_id,
			ep.created_at = $created_at
		RETURN ep.uuid AS uuid
	`

	LinkEpisodeTopicQuery = `
		MATCH (ep:Episode {uuid: $episode_uuid})
		MATCH (t:Topic {uuid: $topic_uuid})
		MERGE (ep)-[r:ACTIVE_DURING]->(t)
		SET r.weight = $weight
		RETURN ep.uuid AS uuid
	`

	HeatmapEventsQuery = `
		MATCH (e)-[:OCCURRED_DURING]->(tb:TimeBlock {granularity: 'hour'})
		WHERE tb.user_id = $user_id AND tb.start_time >= $since
		RETURN labels(e)[0] AS type, e.timestamp AS timestamp
	`

	MergeTopicQuery = `
		MERGE (t:Topic {name: $name, user_id: $user_id})
		ON CREATE SET t.uuid = $uuid,
			t.category = $category,
			t.keywords = $keywords,
			t.confidence = $confidence,
			t.related_apps = $related_apps,
			t.entity_count = 0,
			t.created_at = $created_at
		SET t.last_mentioned = $last_mentioned
		RETURN t.uuid AS uuid
	`

	TouchTopicQuery = `
		MATCH (t:Topic {uuid: $uuid})
		SET t.entity_count = coalesce(t.entity_count, 0) + 1,
			t.last_mentioned = $last_mentioned,
			t.related_apps = CASE
				WHEN $app = '' OR $app IN coalesce(t.related_apps, []) THEN t.related_apps
				ELSE coalesce(t.related_apps, []) + $app
			END
		RETURN t.uuid AS uuid
	`

	ListTopicsQuery = `
		MATCH (t:Topic)
		WHERE $user_id = 0 OR t.user_id = $user_id
		RETURN t.uuid AS uuid, t.name AS name, t.category AS category,
			t.keywords AS keywords, coalesce(t.confidence, 0.0) AS confidence,
			t.related_apps AS related_apps,
			coalesce(t.entity_count, 0) AS entity_count,
			t.last_mentioned AS last_mentioned,
			coalesce(t.user_id, 0) AS user_id
	`

	LinkDiscussesQuery = `
		MATCH (e {uuid: $event_uuid})
		MATCH (t:Topic {uuid: $topic_uuid})
		MERGE (e)-[r:DISCUSSES]->(t)
		ON CREATE SET r.source = $source, r.first_seen = $first_seen, r.strength = 1.0
		ON MATCH SET r.strength = r.strength + 0.1
		RETURN t.uuid AS uuid
	`

	ContentCandidatesQuery = `
		MATCH (n)
		WHERE (n:Email OR n:Message OR n:CalendarEvent OR n:ActionItem OR n:Document)
		  AND n.user_id = $user_id
		  AND n.uuid <> $exclude_uuid
		  AND n.content_embedding IS NOT NULL
		RETURN n.uuid AS uuid, labels(n)[0] AS type, n.title AS title,
			n.content AS content, n.source AS source,
			coalesce(n.user_id, 0) AS user_id,
			n.timestamp AS timestamp,
			n.content_embedding AS embedding,
			n.owner_email AS owner_email
	`

	SetContentEmbeddingQuery = `
		MATCH (n {uuid: $uuid})
		SET n.content_embedding = $embedding
		RETURN n.uuid AS uuid
	`
)

// Node labels and relationship types cannot be bound as Cypher
// parameters inside MERGE patterns, so queries over a dynamic label or
// type are rendered here. Callers must validate the label/type against
// the model vocabulary first.
func SaveEntityNodeQuery(label string) string {
	return fmt.Sprintf(`
		MERGE (n:%s {uuid: $uuid})
		SET n.name = $name,
			n.email = $email,
			n.source = $source,
			n.user_id = $user_id,
			n.created_at = $created_at
		SET n += $props
		RETURN n.uuid AS uuid
	`, label)
}

func SaveContentNodeQuery(label string) string {
	return fmt.Sprintf(`
		MERGE (n:%s {uuid: $uuid})
		SET n.title = $title,
			n.content = $content,
			n.source = $source,
			n.user_id = $user_id,
			n.participants = $participants,
			n.keywords = $keywords,
			n.timestamp = $timestamp,
			n.created_at = $created_at
		RETURN n.uuid AS uuid
	`, label)
}

// Relationship types cannot be bound as Cypher parameters inside MERGE
// patterns, so edge-creation queries for a dynamic type are rendered here.
// Callers must validate the type against the model vocabulary first.
func CreateInteractionEdgeQuery(relType string) string {
	return fmt.Sprintf(`
		MATCH (a {uuid: $from_uuid})
		MATCH (b {uuid: $to_uuid})
		MERGE (a)-[r:%s]->(b)
		SET r.strength = $strength,
			r.interaction_count = $interaction_count,
			r.first_seen = $first_seen,
			r.last_interaction = $last_interaction,
			r.pruned = false
		RETURN a.uuid AS uuid
	`, relType)
}

func LinkEventToTimeBlockQuery(relType string) string {
	return fmt.Sprintf(`
		MATCH (e {uuid: $event_uuid})
		MATCH (tb:TimeBlock {id: $timeblock_id})
		MERGE (e)-[r:%s]->(tb)
		ON CREATE SET r.created_at = $created_at
		RETURN tb.id AS id
	`, relType)
}

func CreateCorrelationEdgeQuery(relType string) string {
	return fmt.Sprintf(`
		MATCH (a {uuid: $from_uuid})
		MATCH (b {uuid: $to_uuid})
		MERGE (a)-[r:%s]->(b)
		SET r.confidence = $confidence,
			r.correlation_type = $correlation_type,
			r.context = $context,
			r.discovered_at = $discovered_at,
			r.cross_app = $cross_app,
			r.target_source = $target_source
		RETURN a.uuid AS uuid
	`, relType)
}
