package driver

// IndexQueries are run once at startup by BuildIndices.
var IndexQueries = []string{
	"CREATE INDEX ON :Memory(uuid);",
	"CREATE INDEX ON :Memory(created_at);",
}

const (
	SaveMemoryQuery = `
		CREATE (m:Memory {uuid: $uuid})
		SET m.entities = $entities,
			m.topics = $topics,
			m.fact = $fact,
			m.created_at = $created_at
		RETURN m.uuid AS uuid
	`

	// SearchMemoriesQuery matches any keyword against the fact, entities or
	// topics of a memory, case-insensitively, newest first.
	SearchMemoriesQuery = `
		MATCH (m:Memory)
		WHERE any(k IN $keywords WHERE
			toLower(m.fact) CONTAINS k OR
			toLower(m.entities) CONTAINS k OR
			toLower(m.topics) CONTAINS k)
		RETURN m.fact AS fact
		ORDER BY m.created_at DESC
		LIMIT $limit
	`
)
