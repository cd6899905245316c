package jobs

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"WarrenFinSaas/internal/config"
	"WarrenFinSaas/internal/logger"
	"WarrenFinSaas/internal/serviceiface"
	"WarrenFinSaas/internal/session"
)

// CleanupConfig holds configuration for the mapping-session reaper.
type CleanupConfig struct {
	Schedule string // cron schedule (default every 10 minutes)
	TimeZone string
}

// NewDefaultCleanupConfig builds the reaper config with env overrides.
func NewDefaultCleanupConfig() *CleanupConfig {
	schedule := os.Getenv("SESSION_CLEANUP_SCHEDULE")
	if schedule == "" {
		schedule = config.DefaultSessionCleanupSchedule
	}
	return &CleanupConfig{
		Schedule: schedule,
		TimeZone: config.DefaultTimeZone,
	}
}

// RunSessionCleanupScheduler starts the cron job that reaps expired mapping
// sessions so abandoned uploads don't pin their sheets in memory.
func RunSessionCleanupScheduler(cfg *CleanupConfig, sessions *session.Manager) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultSessionCleanupSchedule
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
		logger.Audit(fmt.Sprintf("Invalid timezone %s, falling back to UTC: %v", cfg.TimeZone, err))
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		removed := sessions.CleanupExpired()
		if removed > 0 {
			logger.Audit(fmt.Sprintf("Session cleanup removed %d expired mapping sessions (%d live)", removed, sessions.Count()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule session cleanup: %v", err)
	}

	c.Start()
	logger.Audit(fmt.Sprintf("Session cleanup scheduler started with schedule: %s (timezone: %s)", cfg.Schedule, cfg.TimeZone))
	return c, nil
}

// CronService wraps the schedulers behind the service manager interface.
type CronService struct {
	config   map[string]interface{}
	sessions *session.Manager
	cron     *cron.Cron
}

// NewCronService builds the cron service over the shared session manager.
func NewCronService(cfg map[string]interface{}, sessions *session.Manager) serviceiface.Service {
	return &CronService{config: cfg, sessions: sessions}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	cleanupCfg := NewDefaultCleanupConfig()
	if s.config != nil {
		if schedule, ok := s.config["session_cleanup_schedule"].(string); ok && schedule != "" {
			cleanupCfg.Schedule = schedule
		}
	}

	c, err := RunSessionCleanupScheduler(cleanupCfg, s.sessions)
	if err != nil {
		return fmt.Errorf("failed to start session cleanup scheduler: %v", err)
	}
	s.cron = c
	log.Println("Cron service started, session cleanup scheduled")
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	return nil
}
