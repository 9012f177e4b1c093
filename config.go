package notifykit

import (
	"log/slog"

	"github.com/agathaorg/notifykit/pkg/backoff"
	"github.com/agathaorg/notifykit/pkg/config"
	"github.com/agathaorg/notifykit/pkg/pushreg"
	"github.com/agathaorg/notifykit/pkg/transport"
)

// NewFromConfig builds a Listener from cfg. opts are applied last, so a
// store, dispatcher or client id source is passed there.
func NewFromConfig(cfg config.Config, log *slog.Logger, opts ...Option) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	base := []Option{
		WithLogger(log),
		WithEndpoint(cfg.WSBase, cfg.SocketPath),
		WithReconnectPolicy(backoff.Policy{
			Initial: cfg.ReconnectInitial,
			Max:     cfg.ReconnectMax,
			Factor:  cfg.ReconnectFactor,
		}),
		WithPollInterval(cfg.TokenPollInterval),
		WithTransport(transport.ForMode(cfg.Transport,
			transport.WithHandshakeTimeout(cfg.ConnectTimeout),
			transport.WithLogger(log),
		)),
	}

	if !cfg.RegisterDisabled {
		client, err := pushreg.NewClient(cfg.APIBase,
			pushreg.WithTimeout(cfg.RegisterTimeout),
			pushreg.WithSigningSecret(cfg.RegisterSecret),
		)
		if err != nil {
			return nil, err
		}
		base = append(base, WithRegistration(client, pushreg.StaticClientID(cfg.ClientID),
			pushreg.WithPlatform(cfg.Platform),
			pushreg.WithAppID(cfg.AppID),
		))
	}

	return New(append(base, opts...)...)
}
