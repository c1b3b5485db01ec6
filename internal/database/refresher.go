package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/logging"
)

// DailyEventCountsView backs the admin time series.
const DailyEventCountsView = "daily_event_counts"

// ViewRefresher periodically refreshes materialized views.
type ViewRefresher struct {
	views    map[string]time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewViewRefresher schedules the funnel views with their refresh intervals.
func NewViewRefresher(interval time.Duration) *ViewRefresher {
	return &ViewRefresher{
		views:    map[string]time.Duration{DailyEventCountsView: interval},
		stopChan: make(chan struct{}),
	}
}

// Start launches one refresh loop per view.
func (vr *ViewRefresher) Start() {
	logging.L().Info("starting materialized view refresher", zap.Int("views", len(vr.views)))
	for name, interval := range vr.views {
		vr.wg.Add(1)
		go vr.loop(name, interval)
	}
}

// Stop ends the loops and waits for an in-flight refresh.
func (vr *ViewRefresher) Stop() {
	vr.stopOnce.Do(func() { close(vr.stopChan) })
	vr.wg.Wait()
}

func (vr *ViewRefresher) loop(view string, interval time.Duration) {
	defer vr.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	vr.refresh(view)
	for {
		select {
		case <-ticker.C:
			vr.refresh(view)
		case <-vr.stopChan:
			return
		}
	}
}

func (vr *ViewRefresher) refresh(view string) {
	if DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	if err := RefreshView(ctx, view); err != nil {
		logging.L().Warn("failed to refresh materialized view", zap.String("view", view), zap.Error(err))
		return
	}
	logging.L().Debug("refreshed materialized view", zap.String("view", view), zap.Duration("duration", time.Since(start)))
}

// RefreshView runs a concurrent refresh of one view.
func RefreshView(ctx context.Context, view string) error {
	if _, err := DB.ExecContext(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", view)); err != nil {
		return fmt.Errorf("refresh %s: %w", view, err)
	}
	return nil
}
