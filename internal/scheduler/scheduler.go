package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

const syncTag = "folder-sync"

// Syncer rebuilds the index from the upload folder.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// Scheduler re-syncs the upload folder at a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel}
}

// ScheduleSync runs syncer every interval, first after one interval has passed.
func (s *Scheduler) ScheduleSync(interval time.Duration, syncer Syncer) error {
	if interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", interval)
	}
	_, err := s.scheduler.Every(interval).WaitForSchedule().Tag(syncTag).Do(func() {
		chunks, err := syncer.Sync(s.ctx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled sync failed")
			return
		}
		log.Info().Int("chunks", chunks).Msg("Scheduled sync finished")
	})
	return err
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop cancels a running sync and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}
