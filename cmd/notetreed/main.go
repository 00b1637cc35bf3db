package main

import (
	"context"

	"notetree/internal/config"
	"notetree/internal/domain"
	"notetree/internal/infra/authority"
	"notetree/internal/infra/db"
	"notetree/internal/infra/engine"
	"notetree/internal/infra/eventlog"
	httpinfra "notetree/internal/infra/http"
	"notetree/internal/infra/policy"
	"notetree/internal/infra/treemem"
	"notetree/internal/logging"
	"notetree/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	logging.SetLevel(cfg.LogLevel)
	log := logging.Logger()

	registry := engine.NewRegistry()

	var trees domain.TreeRepository
	var sink domain.EventSink
	var events domain.NoteEventRepository
	if cfg.PostgresDSN != "" {
		conn, err := db.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		if err := db.AutoMigrate(conn); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
		trees = db.NewTreeRepository(conn)
		repo := db.NewNoteEventRepository(conn)
		sink, events = repo, repo
		// The in-process registry starts empty, so after a restart stored
		// trees stay readable but reject mutations until recreated.
		// TODO: rehydrate the registry from the stored tree shape and the
		// event stream at startup.
		log.Info().Msg("using postgres persistence")
	} else {
		trees = treemem.New()
		memlog := eventlog.New()
		sink, events = memlog, memlog
		log.Warn().Msg("POSTGRES_DSN not set, trees and events are in-memory only")
	}

	var policyEngine domain.PolicyEngine
	if cfg.PolicyBundlePath != "" {
		eng, err := policy.NewEngineFromBundlePath(context.Background(), cfg.PolicyBundlePath, cfg.PolicyBundleID)
		if err != nil {
			log.Fatal().Err(err).Msg("load policy bundle")
		}
		policyEngine = eng
		log.Info().
			Str("bundle_id", cfg.PolicyBundleID).
			Str("bundle_hash", eng.BundleHash()).
			Msg("policy bundle loaded")
	}

	locks := usecase.NewTreeLocks()
	srv := httpinfra.NewServerWithDeps(cfg, httpinfra.ServerDeps{
		Create: &usecase.CreateTree{
			Engine:    registry,
			Trees:     trees,
			Authority: authority.Derive,
		},
		Append: &usecase.AppendMessage{
			Engine:    registry,
			Trees:     trees,
			Events:    sink,
			Authority: authority.Derive,
			Locks:     locks,
		},
		Update: &usecase.UpdateMessage{
			Engine:    registry,
			Trees:     trees,
			Events:    sink,
			Authority: authority.Derive,
			Locks:     locks,
		},
		Trees:  trees,
		Events: events,
		Policy: policyEngine,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("starting server")
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
