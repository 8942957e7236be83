package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/pairing-relay-go/internal/repository"
)

const sweepTimeout = 30 * time.Second

// Sweeper deletes expired pairing records.
type Sweeper interface {
	Sweep(ctx context.Context) (repository.PruneResult, error)
}

// SweepJob runs a Sweeper on a fixed interval. Mutations already prune, so
// this only bounds table growth when the service sits idle.
type SweepJob struct {
	sweeper  Sweeper
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSweepJob(sweeper Sweeper, interval time.Duration) *SweepJob {
	return &SweepJob{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	j.wg.Add(1)
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sweep job started")
}

// Stop waits for an in-flight sweep to finish.
func (j *SweepJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.wg.Wait()
		log.Info().Msg("sweep job stopped")
	})
}

func (j *SweepJob) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	res, err := j.sweeper.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep expired pairing records")
		return
	}
	if res.Total() > 0 {
		log.Info().
			Int64("requests", res.Requests).
			Int64("codes", res.Codes).
			Int64("sessions", res.Sessions).
			Msg("swept expired pairing records")
	}
}
