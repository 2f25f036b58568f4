package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/livme/livme/internal/gateway"
)

// ErrLoad marks a failed fetch of an event list.
var ErrLoad = errors.New("live: event list load failed")

// Grouped fetches a user's events through the gateway and groups them by
// month.
func Grouped(ctx context.Context, gw gateway.Gateway, userID string) ([]MonthGroup, error) {
	events, err := gw.ListEventsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return GroupByMonth(events), nil
}

// List is the timeline of one user as a client holds it. A failed reload
// keeps the groups from the last successful one.
type List struct {
	gw     gateway.Gateway
	userID string
	logger *slog.Logger

	mu     sync.RWMutex
	groups []MonthGroup
	loaded bool
}

func NewList(gw gateway.Gateway, userID string, logger *slog.Logger) *List {
	return &List{gw: gw, userID: userID, logger: logger, groups: []MonthGroup{}}
}

func (l *List) Load(ctx context.Context) error {
	groups, err := Grouped(ctx, l.gw, l.userID)
	if err != nil {
		l.logger.Warn("loading live list",
			slog.String("userID", l.userID),
			slog.String("error", err.Error()),
		)
		return err
	}

	l.mu.Lock()
	l.groups = groups
	l.loaded = true
	l.mu.Unlock()
	return nil
}

func (l *List) Groups() []MonthGroup {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.groups
}

// Loaded reports whether at least one Load has succeeded.
func (l *List) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}
