package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-service"
	"github.com/pixil98/go-skirmish/internal/driver"
	"github.com/pixil98/go-skirmish/internal/match"
	"github.com/pixil98/go-skirmish/internal/messaging"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	maps, err := cfg.Storage.BuildMapStore()
	if err != nil {
		return nil, fmt.Errorf("creating map store: %w", err)
	}

	// Responses flow broker -> listener -> manager; the listener is also a
	// bridge so its subscriptions follow match lifecycles.
	responses := messaging.NewResponseListener(natsServer)
	manager := match.NewManager(
		maps,
		messaging.NewTransports(natsServer),
		messaging.NewEventBridge(natsServer),
		responses,
	)
	responses.SetRouter(manager)

	var driverOpts []driver.DriverOpt
	if cfg.TickInterval != "" {
		d, err := time.ParseDuration(cfg.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_interval: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}

	return service.WorkerList{
		"nats":    natsServer,
		"matches": manager,
		"lobby":   messaging.NewLobby(natsServer, manager),
		"driver":  driver.NewDriver([]driver.Ticker{manager}, driverOpts...),
	}, nil
}
