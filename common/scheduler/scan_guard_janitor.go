package scheduler

import (
	"time"

	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/scanguard"
)

// ScanGuardJanitor periodically drops expired cool-down entries so the
// in-memory scan guard does not grow with every ticket ever scanned.
type ScanGuardJanitor struct {
	guard    scanguard.Purger
	interval time.Duration
	stopChan chan bool
	log      *logger.Logger
}

// NewScanGuardJanitor creates a new janitor
func NewScanGuardJanitor(guard scanguard.Purger, interval time.Duration) *ScanGuardJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ScanGuardJanitor{
		guard:    guard,
		interval: interval,
		stopChan: make(chan bool),
		log:      logger.With("job", "scan_guard_janitor"),
	}
}

// Start begins the periodic purge
func (s *ScanGuardJanitor) Start() {
	s.log.Info("Scan guard janitor started (runs every %v)", s.interval)

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.purge()
			case <-s.stopChan:
				ticker.Stop()
				s.log.Info("Scan guard janitor stopped")
				return
			}
		}
	}()
}

// Stop stops the janitor
func (s *ScanGuardJanitor) Stop() {
	s.stopChan <- true
}

func (s *ScanGuardJanitor) purge() {
	if n := s.guard.Purge(); n > 0 {
		s.log.Debug("Purged %d expired scan entries", n)
	}
}
