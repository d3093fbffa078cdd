//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core"
	"github.com/agenthands/cortex/internal/core/assembler"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
	"github.com/agenthands/cortex/internal/llm"
)

// setupEngine connects to a live Memgraph and returns a ready Engine plus a
// unique user ID so parallel runs don't see each other's data. The LLM and
// embedder are optional: without LLM_PROVIDER the engine runs in structural
// mode (no topic tagging, no vector correlation), which is enough for the
// resolution, strength and temporal flows below.
func setupEngine(t *testing.T) (*core.Engine, driver.GraphDriver, int64) {
	t.Helper()
	_ = godotenv.Load("../../.env") // Try root .env

	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	user := os.Getenv("MEMGRAPH_USER")
	pwd := os.Getenv("MEMGRAPH_PASSWORD")

	d, err := driver.NewMemgraphDriver(uri, user, pwd)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })

	ctx := context.Background()

	var llmClient llm.LLMClient
	var embedder llm.EmbedderClient
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		llmCfg := config.LLMConfig{
			Provider: provider,
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("OLLAMA_BASE_URL"),
			APIKey:   os.Getenv("LLM_API_KEY"),
		}
		llmClient, embedder, err = llm.NewClient(ctx, llmCfg)
		require.NoError(t, err)
	}

	cfg, err := config.Load("../../config/config.toml")
	if err != nil {
		cfg = config.Default()
	}

	eng := core.NewEngine(d, llmClient, embedder, cfg)
	require.NoError(t, eng.BuildIndices(ctx))

	// Memgraph keeps data between runs; a fresh user ID isolates this one.
	userID := time.Now().UnixNano() % 1_000_000_000

	return eng, d, userID
}

func TestFullFlow(t *testing.T) {
	eng, d, userID := setupEngine(t)
	ctx := context.Background()

	// Step 1: save a Person and a Contact that should resolve to each other
	// by nickname (Bob -> Robert, matching last names).
	robert, err := eng.SaveEntity(ctx, model.Entity{
		UUID:   uuid.New().String(),
		Type:   model.NodePerson,
		Name:   "Robert Smith",
		Source: "gmail",
		UserID: userID,
	})
	require.NoError(t, err)

	bob, err := eng.SaveEntity(ctx, model.Entity{
		UUID:   uuid.New().String(),
		Type:   model.NodeContact,
		Name:   "Bob Smith",
		Source: "slack",
		UserID: userID,
	})
	require.NoError(t, err)

	// Step 2: index an email mentioning Robert. This creates the content
	// node, links it into hour and day time blocks, and reinforces the
	// MENTIONS edge for every participant with a resolvable address.
	emailNode, _, err := eng.IndexContent(ctx, model.ContentNode{
		UUID:         uuid.New().String(),
		Type:         model.NodeEmail,
		Title:        "Project Phoenix kickoff",
		Content:      "Robert, can you share the launch checklist before Friday?",
		Source:       "gmail",
		UserID:       userID,
		Participants: []string{"robert@example.com"},
		Timestamp:    time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotNil(t, emailNode)

	// The graph source only surfaces entities through strength-bearing
	// edges, so tie Robert to the email explicitly.
	edge, err := eng.Strength.Reinforce(ctx, robert.UUID, emailNode.UUID, model.EdgeMentions, 1.0)
	require.NoError(t, err)
	assert.Greater(t, edge.Strength, 0.5)

	// Step 3: run a resolution cycle and verify the SAME_AS edge landed.
	stats := eng.Resolution.RunResolutionCycle(ctx)
	assert.Zero(t, stats.Errors)
	assert.GreaterOrEqual(t, stats.Nickname, 1)

	cypher := `MATCH (a {uuid: $a})-[r:SAME_AS]-(b {uuid: $b}) RETURN count(r) AS cnt`
	res, err := d.ExecuteQuery(ctx, cypher, map[string]interface{}{"a": robert.UUID, "b": bob.UUID})
	require.NoError(t, err)
	require.NotEmpty(t, res.Records)
	cnt, _ := res.Records[0].Get("cnt")
	assert.EqualValues(t, 1, cnt)

	// Step 4: decay is a no-op for edges inside the grace period.
	decay, err := eng.Strength.ApplyDecayAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, decay.Pruned)

	// Step 5: assemble context. The graph source should surface Robert.
	assembled := eng.AssembleContext(ctx, assembler.Request{
		Query:        "What is Robert working on?",
		UserID:       userID,
		TokenBudget:  4000,
		IncludeGraph: true,
	})
	assert.True(t, assembled.HasContext())
	assert.Contains(t, assembled.Rendered, "Robert Smith")
	assert.Greater(t, assembled.TokenCount, 0)

	t.Logf("Assembled %d tokens for user %d", assembled.TokenCount, userID)

	// Cleanup: remove everything this run created.
	_, err = d.ExecuteQuery(ctx, `MATCH (n {user_id: $uid}) DETACH DELETE n`,
		map[string]interface{}{"uid": userID})
	require.NoError(t, err)
}

func TestTemporalFlow(t *testing.T) {
	eng, d, userID := setupEngine(t)
	ctx := context.Background()

	// Index a burst of messages across three consecutive days, enough to
	// clear the episode materialization gate.
	base := time.Now().UTC().AddDate(0, 0, -10).Truncate(24 * time.Hour)
	for day := 0; day < 3; day++ {
		for i := 0; i < 10; i++ {
			_, _, err := eng.IndexContent(ctx, model.ContentNode{
				UUID:      uuid.New().String(),
				Type:      model.NodeMessage,
				Title:     fmt.Sprintf("standup note %d", i),
				Content:   "Phoenix rollout status update",
				Source:    "slack",
				UserID:    userID,
				Timestamp: base.AddDate(0, 0, day).Add(time.Duration(9+i) * time.Hour / 2),
			})
			require.NoError(t, err)
		}
	}

	// Timeline over the burst window shows activity on each day.
	buckets, err := eng.Temporal.GetTimeline(ctx, userID, base.AddDate(0, 0, -1), base.AddDate(0, 0, 4), model.GranularityDay)
	require.NoError(t, err)
	active := 0
	for _, b := range buckets {
		if b.EventCount > 0 {
			active++
		}
	}
	assert.Equal(t, 3, active)

	// The three-day run materializes as one episode.
	episodes, err := eng.Temporal.DetectEpisodes(ctx, userID, base.AddDate(0, 0, -1), base.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.EqualValues(t, 30, episodes[0].EventCount)

	heat, err := eng.Temporal.GetUserActivityHeatmap(ctx, userID, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 30, heat.TotalEvents)

	_, err = d.ExecuteQuery(ctx, `MATCH (n {user_id: $uid}) DETACH DELETE n`,
		map[string]interface{}{"uid": userID})
	require.NoError(t, err)
}
