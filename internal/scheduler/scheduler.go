package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec fires daily at 21:00 UTC.
const DefaultSpec = "0 21 * * *"

// Scheduler runs the periodic report job.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	spec       string
	reportFunc func(ctx context.Context) error
}

func New(spec string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if spec == "" {
		spec = DefaultSpec
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		spec:   spec,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		log.Println("⚠️ Report function not set, scheduler will not generate reports")
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, s.runReport)
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started - reports on %q (UTC)", s.spec)
	return nil
}

func (s *Scheduler) runReport() {
	log.Println("🕘 Triggered daily report generation")
	if err := s.reportFunc(s.ctx); err != nil {
		log.Printf("❌ Daily report generation failed: %v", err)
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
