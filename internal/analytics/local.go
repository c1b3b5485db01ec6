package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/logging"
)

// LocalStore keeps the event log and applications in memory and rewrites a JSON
// file after every mutation.
type LocalStore struct {
	mu           sync.RWMutex
	path         string
	events       []Event
	applications []Application
	now          func() time.Time
}

type localDocument struct {
	Events       []Event       `json:"events"`
	Applications []Application `json:"applications"`
}

// NewLocalStore persists to dataDir/analytics.json. An empty dataDir keeps
// everything in memory.
func NewLocalStore(dataDir string) *LocalStore {
	s := &LocalStore{now: time.Now}
	if dataDir != "" {
		s.path = filepath.Join(dataDir, "analytics.json")
	}
	return s
}

// Open loads the stored log, if any.
func (s *LocalStore) Open(context.Context) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create analytics dir: %w", err)
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read analytics log: %w", err)
	}
	var doc localDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Keep the damaged file for inspection and start a fresh log.
		aside := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format("20060102T150405"))
		if rerr := os.Rename(s.path, aside); rerr != nil {
			return fmt.Errorf("parse analytics log: %w (move aside: %w)", err, rerr)
		}
		logging.L().Warn("analytics log is corrupt, starting empty",
			zap.String("moved_to", aside), zap.Error(err))
		return nil
	}
	s.mu.Lock()
	s.events, s.applications = doc.Events, doc.Applications
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) Close() error { return nil }

func (s *LocalStore) AppendEvent(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if err := s.flush(); err != nil {
		s.events = s.events[:len(s.events)-1]
		return err
	}
	return nil
}

func (s *LocalStore) AppendApplication(_ context.Context, a Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = append(s.applications, a)
	if err := s.flush(); err != nil {
		s.applications = s.applications[:len(s.applications)-1]
		return err
	}
	return nil
}

// flush writes the full document. Callers hold the write lock.
func (s *LocalStore) flush() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.Marshal(localDocument{Events: s.events, Applications: s.applications})
	if err != nil {
		return fmt.Errorf("encode analytics log: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o640); err != nil {
		return fmt.Errorf("write analytics log: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *LocalStore) counts() Counts {
	var c Counts
	visitors := make(map[string]struct{})
	for _, e := range s.events {
		switch e.Type {
		case EventPageView:
			c.TotalVisits++
			visitors[e.SessionID] = struct{}{}
		case EventCTAClick:
			c.CTAClicks++
		case EventFormStart:
			c.FormStarts++
		}
	}
	c.UniqueVisitors = len(visitors)
	c.Applications = len(s.applications)
	return c
}

func (s *LocalStore) QueryStats(context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BuildStats(s.counts()), nil
}

func (s *LocalStore) QueryFunnel(context.Context) ([]FunnelStage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BuildFunnel(s.counts()), nil
}

func (s *LocalStore) QueryUTMStats(context.Context) ([]UTMStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := make(map[utmKey]*utmTally)
	for _, e := range s.events {
		if e.Type != EventPageView && e.Type != EventFormSubmit {
			continue
		}
		k := utmKey{source: e.UTM.SourceOr(DirectSource), campaign: e.UTM.CampaignOr("")}
		t := groups[k]
		if t == nil {
			t = &utmTally{}
			groups[k] = t
		}
		if e.Type == EventPageView {
			t.clicks++
		} else {
			t.submissions++
		}
	}
	return finishUTM(groups), nil
}

func (s *LocalStore) QueryRecentApplications(_ context.Context, limit int) ([]Application, error) {
	s.mu.RLock()
	out := slices.Clone(s.applications)
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Application) int { return b.SubmittedAt.Compare(a.SubmittedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *LocalStore) QueryTimeSeries(_ context.Context, eventType string, days int) ([]TimePoint, error) {
	dates := DayRange(s.now(), days)
	index := make(map[string]int, len(dates))
	points := make([]TimePoint, len(dates))
	for i, d := range dates {
		index[d] = i
		points[i] = TimePoint{Date: d}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.Type != eventType {
			continue
		}
		if i, ok := index[e.CreatedAt.UTC().Format(time.DateOnly)]; ok {
			points[i].Count++
		}
	}
	return points, nil
}
