package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/sanctum-auth/internal/entities"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// checkTimeout bounds one keepalive round trip.
const checkTimeout = 30 * time.Second

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// KeepaliveScheduler periodically refreshes the signed in user so the
// backend session does not idle out, and logs when the session is lost or
// comes back.
type KeepaliveScheduler struct {
	client   *sanctum.Client
	rc       sanctum.RequestContext
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isChecking bool
	signedInAs string
	cancelFunc context.CancelFunc
}

// NewKeepaliveScheduler creates a scheduler for the visitor behind rc.
func NewKeepaliveScheduler(client *sanctum.Client, rc sanctum.RequestContext, schedule string) *KeepaliveScheduler {
	return &KeepaliveScheduler{
		client:   client,
		rc:       rc,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start schedules the keepalive. It stops by itself when ctx is cancelled.
func (s *KeepaliveScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.Check(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule keepalive job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("[KEEPALIVE] started with schedule '%s'. Next run: %v", s.schedule, s.cron.Entry(entryID).Next)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *KeepaliveScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	// A running check takes the lock to finish, so wait for it unlocked
	<-s.cron.Stop().Done()
	if cancel != nil {
		cancel()
	}

	log.Printf("[KEEPALIVE] stopped")
}

// IsRunning returns whether the scheduler is active
func (s *KeepaliveScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next check will occur
func (s *KeepaliveScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.cron.Entry(s.entryID).Next
	return &t
}

// Check refreshes the user now and returns it, nil when nobody is signed in
// or the backend could not be reached. Overlapping checks are skipped.
func (s *KeepaliveScheduler) Check(ctx context.Context) entities.User {
	s.mu.Lock()
	if s.isChecking {
		s.mu.Unlock()
		log.Printf("[KEEPALIVE] skipped (previous check still running)")
		return nil
	}
	s.isChecking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isChecking = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if s.client.Config().Token {
		s.client.GetToken(ctx, s.rc)
	}
	user := s.client.GetUser(ctx, s.rc, true)

	s.mu.Lock()
	previous := s.signedInAs
	s.signedInAs = describeUser(user)
	current := s.signedInAs
	s.mu.Unlock()

	switch {
	case previous == "" && current != "":
		log.Printf("[KEEPALIVE] signed in as %s", current)
	case previous != "" && current == "":
		log.Printf("[KEEPALIVE] session lost for %s", previous)
	case current != "" && current != previous:
		log.Printf("[KEEPALIVE] now signed in as %s (was %s)", current, previous)
	case current == "":
		log.Printf("[KEEPALIVE] not signed in")
	}

	return user
}

// describeUser names a user for the log, "" for nobody.
func describeUser(user entities.User) string {
	if user == nil {
		return ""
	}
	if email := user.String("email"); email != "" {
		return email
	}
	if id := user.ID(); id != "" {
		return "user " + id
	}
	return "unknown user"
}
