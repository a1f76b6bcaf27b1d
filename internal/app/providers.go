package app

import (
	"github.com/google/wire"

	"github.com/zeusync/muvr/internal/config"
	"github.com/zeusync/muvr/internal/core/observability/log"
	"github.com/zeusync/muvr/internal/core/postprocess"
	"github.com/zeusync/muvr/internal/core/scene"
	"github.com/zeusync/muvr/internal/core/systems/physics"
	"github.com/zeusync/muvr/internal/server"
)

// ProviderSet builds an App from a config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvidePolicy,
	scene.NewRegistry,
	ProvidePostProcess,
	physics.NewJointSystem,
	server.NewBroadcaster,
	ProvideHTTPServer,
	ProvideQUICPublisher,
	New,
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	lc, err := cfg.Log.Logger()
	if err != nil {
		return nil, err
	}
	return log.NewWithConfig(lc)
}

func ProvidePolicy(cfg config.Config) postprocess.Policy {
	return cfg.Blend.Policy()
}

func ProvidePostProcess(cfg config.Config, sc *scene.Registry, policy postprocess.Policy, logger log.Log) *postprocess.System {
	return postprocess.NewSystem(sc, policy, cfg.Scheduler.Processor(), logger)
}

func ProvideHTTPServer(cfg config.Config, b *server.Broadcaster, logger log.Log) *server.HTTPServer {
	return server.NewHTTPServer(cfg.Server.Addr(), b, logger)
}

// ProvideQUICPublisher returns nil when no QUIC port is configured.
func ProvideQUICPublisher(cfg config.Config, logger log.Log) *server.QUICPublisher {
	if cfg.Server.QUICPort == 0 {
		return nil
	}
	return server.NewQUICPublisher(cfg.Server.QUICAddr(), nil, logger)
}
