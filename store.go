package zpt

import (
	"github.com/aretw0/zpt/pkg/adapters/file"
	"github.com/aretw0/zpt/pkg/adapters/redis"
	"github.com/aretw0/zpt/pkg/config"
	"github.com/aretw0/zpt/pkg/ports"
)

// OpenStore builds the source store described by cfg: Redis when
// cfg.Redis.Addr is set, otherwise the template directory.
func OpenStore(cfg config.Config) (ports.WritableSourceStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Redis.Addr != "" {
		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		), nil
	}
	return file.New(cfg.TemplateDir, cfg.Extensions...), nil
}
