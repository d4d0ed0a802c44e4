package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/migration"
	"github.com/smallbiznis/tutorly/internal/observability"
	"github.com/smallbiznis/tutorly/internal/server"
	"github.com/smallbiznis/tutorly/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Directory API
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
