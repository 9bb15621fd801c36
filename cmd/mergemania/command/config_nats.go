package command

import (
	"github.com/timvisee/merge-mania/internal/config"
	"github.com/timvisee/merge-mania/internal/messaging"
)

func buildNatsServer(c config.NatsConfig) (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if d := c.StartTimeoutDuration(); d > 0 {
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, messaging.WithPort(c.Port))
	}

	return messaging.NewNatsServer(opts...)
}
