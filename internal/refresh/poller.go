// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/logging"
)

// minPollInterval guards against configuration that would hammer the
// backend.
const minPollInterval = 10 * time.Second

// Poller triggers periodic refresh cycles so the session snapshot stays
// warm even without API traffic.
type Poller struct {
	controller *Controller
	interval   time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a poller around the controller. Intervals below the
// minimum are raised to it.
func NewPoller(controller *Controller, interval time.Duration) *Poller {
	if interval < minPollInterval {
		logging.Warn().
			Dur("configured", interval).
			Dur("effective", minPollInterval).
			Msg("poll interval below minimum, clamping")
		interval = minPollInterval
	}

	return &Poller{
		controller: controller,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start launches the poll loop. An immediate first refresh warms the store
// before the first tick.
func (p *Poller) Start() {
	p.wg.Add(1)
	go p.run()
	logging.Info().Dur("interval", p.interval).Msg("session poller started")
}

func (p *Poller) run() {
	defer p.wg.Done()

	p.controller.Refresh(context.Background())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.controller.Refresh(context.Background())
		}
	}
}

// Stop halts the poll loop and waits for the in-flight cycle to observe
// cancellation.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.controller.Blur()
	})
	p.wg.Wait()
	logging.Info().Msg("session poller stopped")
}
