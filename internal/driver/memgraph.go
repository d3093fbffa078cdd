package driver

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphDriver(uri, username, password string) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to Memgraph")
	return &MemgraphDriver{Driver: driver}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Person(uuid);",
		"CREATE INDEX ON :Contact(uuid);",
		"CREATE INDEX ON :User(uuid);",
		"CREATE INDEX ON :Email(uuid);",
		"CREATE INDEX ON :Message(uuid);",
		"CREATE INDEX ON :CalendarEvent(uuid);",
		"CREATE INDEX ON :ActionItem(uuid);",
		"CREATE INDEX ON :Document(uuid);",
		"CREATE INDEX ON :Topic(uuid);",
		"CREATE INDEX ON :Episode(uuid);",
		"CREATE INDEX ON :TimeBlock(id);",

		"CREATE INDEX ON :Person(user_id);",
		"CREATE INDEX ON :Contact(user_id);",
		"CREATE INDEX ON :Topic(user_id);",
		"CREATE INDEX ON :Episode(user_id);",
		"CREATE INDEX ON :TimeBlock(user_id);",

		"CREATE INDEX ON :Person(email);",
		"CREATE INDEX ON :Contact(email);",
		"CREATE INDEX ON :User(email);",
		"CREATE INDEX ON :Topic(name);",
		"CREATE INDEX ON :TimeBlock(granularity);",
	}

	for _, q := range queries {
		_, err := d.ExecuteQuery(ctx, q, nil)
		if err != nil {
			log.Printf("Warning: failed to create index '%s': %v", q, err)
			// Continue, as index might already exist
		}
	}

	return nil
}
