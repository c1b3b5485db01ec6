// Package progress persists in-flight questionnaire state between requests.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/wizard"
)

// ErrNotFound is returned by a Backend when no snapshot exists for a key.
var ErrNotFound = errors.New("progress: snapshot not found")

// Backend stores raw snapshot documents by session key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, doc []byte) error
	Delete(ctx context.Context, key string) error
}

// Snapshot is the stored record: the answers, the step index, and the save time in
// Unix milliseconds.
type Snapshot struct {
	Answers   wizard.Answers `json:"answers"`
	Step      int            `json:"step"`
	Timestamp int64          `json:"timestamp"`
}

// Keeper binds a Backend to one session. It implements wizard.Persister.
type Keeper struct {
	backend Backend
	key     string
	logger  *zap.Logger
	now     func() time.Time
}

// NewKeeper returns the progress store of one session.
func NewKeeper(backend Backend, key string, logger *zap.Logger) *Keeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keeper{backend: backend, key: key, logger: logger, now: time.Now}
}

// Save writes the full snapshot stamped with the current time.
func (k *Keeper) Save(ctx context.Context, s wizard.State) error {
	doc, err := json.Marshal(Snapshot{Answers: s.Answers, Step: s.Step, Timestamp: k.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return k.backend.Save(ctx, k.key, doc)
}

// Clear removes the stored snapshot. A missing snapshot is not an error.
func (k *Keeper) Clear(ctx context.Context) error {
	if err := k.backend.Delete(ctx, k.key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Restore loads the stored state. Missing, unreadable or corrupt snapshots yield
// the default state with restored=false; failures other than absence are logged.
func (k *Keeper) Restore(ctx context.Context, mode wizard.GoalsMode) (state wizard.State, restored bool) {
	fresh := wizard.State{Answers: wizard.DefaultAnswers(mode)}

	doc, err := k.backend.Load(ctx, k.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			k.logger.Warn("failed to load wizard progress", zap.String("key", k.key), zap.Error(err))
		}
		return fresh, false
	}

	snap := Snapshot{Answers: wizard.DefaultAnswers(mode)}
	if err := json.Unmarshal(doc, &snap); err != nil {
		k.logger.Warn("discarding unreadable wizard progress", zap.String("key", k.key), zap.Error(err))
		return fresh, false
	}
	snap.Answers.Goals = snap.Answers.Goals.As(mode)
	return wizard.State{Step: snap.Step, Answers: snap.Answers}, true
}
