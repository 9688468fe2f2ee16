package main

import (
	"context"
	"log"
	"time"

	"github.com/scouting/core/catalogue"
	"github.com/scouting/core/config"
	"github.com/scouting/core/metricengine"
	"github.com/scouting/core/parser"
	"github.com/scouting/core/query"
	"github.com/scouting/core/roleengine"
	"github.com/scouting/core/similarity"
	"github.com/scouting/core/store"
)

// main wires the core's components into a ready-to-query instance and then
// exits. Argument parsing, HTTP serving, and job scheduling are explicitly
// out of scope; a hosting process embeds this wiring and drives
// query.Executor.Execute itself.
func main() {
	cfg := config.LoadFromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.RequestTimeoutMS)*time.Millisecond)
	defer cancel()

	gw, err := store.Open(store.Config{
		Host:      cfg.StoreHost,
		Port:      cfg.StorePort,
		Name:      cfg.StoreName,
		User:      cfg.StoreUser,
		Password:  cfg.StorePassword,
		PoolSize:  cfg.StorePoolSize,
		TimeoutMS: cfg.StoreTimeout,
	})
	if err != nil {
		log.Fatalf("🔴 store gateway: %v", err)
	}
	defer gw.Close()

	repo := store.NewRepository(gw)

	schema, err := repo.FetchSchema(ctx)
	if err != nil {
		log.Fatalf("🔴 fetch schema: %v", err)
	}
	checker := catalogue.NewSchemaChecker(ctx, schema.Tables["player_season_stats"])

	cat, err := catalogue.Load(cfg.CatalogueFilePath, checker)
	if err != nil {
		log.Fatalf("🔴 catalogue: %v", err)
	}
	log.Printf("✅ catalogue loaded: %d metrics, %d presets", len(cat.Entries()), len(cat.Presets()))

	roles := roleengine.New(repo, cfg.RoleMinEvents)
	metrics := metricengine.New(cat, repo, cfg.MinMinutesDefault, cfg.MinCohortSize)
	sim := similarity.New(cat, repo, roles, metrics, cfg.SimilarityClamp)
	executor := query.NewExecutor(cat, metrics, sim, repo)
	_ = executor

	if cfg.LLM.Enabled {
		leagues, err := repo.FetchLeagues(ctx)
		if err != nil {
			log.Fatalf("🔴 fetch leagues: %v", err)
		}
		llm := parser.NewLLMClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature,
			time.Duration(cfg.LLM.TimeoutMS)*time.Millisecond)
		_ = parser.New(cat, llm, leagues, repo)
		log.Println("✅ query parser ready")
	} else {
		log.Println("ℹ️ query parser disabled (LLM_ENABLED=false); structured queries must be supplied directly")
	}

	log.Println("✅ scouting analytics core ready")
}
