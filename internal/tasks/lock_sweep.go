package tasks

import (
	"log"
	"time"

	"github.com/opuslog/backend/internal/repositories"
	"github.com/robfig/cron/v3"
)

// Lease windows for the group-writing lock. X is the frequent keep-alive
// heartbeat from the actively-writing client, Y the slower human-challenge
// refresh; either lapsing independently voids the session.
const (
	LockSweepInterval = 2 * time.Minute
	XValidationWindow = 5*time.Minute + 30*time.Second
	YValidationWindow = 20*time.Minute + 30*time.Second
)

// Scheduler runs the periodic maintenance tasks.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// RegisterLockSweep schedules validate_locked_group_writing_event: every two
// minutes, void every active group-writing session whose X or Y timer lapsed
// and release the affected articles' lock flags.
func (s *Scheduler) RegisterLockSweep(repo repositories.GroupWritingRepository, activity repositories.ActivityLogRepository) error {
	_, err := s.cron.AddFunc("@every 2m", func() {
		voided, err := repo.SweepExpired(time.Now(), XValidationWindow, YValidationWindow)
		if err != nil {
			log.Printf("task %s failed: %v", TaskValidateLockedGroupWriting, err)
			if activity != nil {
				activity.Log("C", "", "", "Error in group writing lock sweep", map[string]interface{}{
					"task":    TaskValidateLockedGroupWriting,
					"message": err.Error(),
				})
			}
			return
		}
		if voided > 0 {
			log.Printf("%s voided %d stale sessions", TaskValidateLockedGroupWriting, voided)
		}
	})
	return err
}

// Start begins the schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("Periodic task scheduler started.")
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
