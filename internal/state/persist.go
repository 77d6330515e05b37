package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/arnavshah/oh-scheduler-go/pkg/blobstore"
)

const keySuffix = ".state"

// Key is where a week of a chain is stored.
func Key(prefix string, week int) string {
	return fmt.Sprintf("%s/%d%s", prefix, week, keySuffix)
}

// persistedWeeks lists the week numbers stored under prefix, ascending.
func persistedWeeks(ctx context.Context, store blobstore.Store, prefix string) ([]int, error) {
	keys, err := store.List(ctx, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	var weeks []int
	for _, k := range keys {
		name := strings.TrimPrefix(k, prefix+"/")
		if !strings.HasSuffix(name, keySuffix) || strings.Contains(name, "/") {
			continue
		}
		w, err := strconv.Atoi(strings.TrimSuffix(name, keySuffix))
		if err != nil {
			continue
		}
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks, nil
}

// Save writes the weeks added to the chain since it was loaded or last
// saved, oldest first, and returns them. Writes are create-only: finding
// one of those weeks already stored fails with ErrConflict and leaves the
// stored week untouched.
func Save(ctx context.Context, store blobstore.Store, prefix string, c *Chain) ([]int, error) {
	var written []int
	for _, s := range c.states[c.persisted:] {
		data, err := Encode(s, c.cfg.WeeksSkipped)
		if err != nil {
			return written, err
		}
		err = store.Create(ctx, Key(prefix, s.week), data)
		if errors.Is(err, blobstore.ErrExists) {
			return written, fmt.Errorf("%w: week %d", ErrConflict, s.week)
		}
		if err != nil {
			return written, fmt.Errorf("persist week %d: %w", s.week, err)
		}
		c.persisted++
		written = append(written, s.week)
	}
	return written, nil
}

// Load rebuilds a chain from the first week of the semester through the
// latest stored week. A missing week in between is an integrity error.
func Load(ctx context.Context, store blobstore.Store, prefix string, cfg ChainConfig) (*Chain, error) {
	c, err := NewChain(cfg)
	if err != nil {
		return nil, err
	}
	weeks, err := persistedWeeks(ctx, store, prefix)
	if err != nil {
		return nil, err
	}
	if len(weeks) == 0 {
		return c, nil
	}

	last := weeks[len(weeks)-1]
	if weeks[0] < cfg.FirstWeek() {
		return nil, fmt.Errorf("%w: week %d stored before first week %d", ErrChainIntegrity, weeks[0], cfg.FirstWeek())
	}
	for week := cfg.FirstWeek(); week <= last; week++ {
		data, err := store.Get(ctx, Key(prefix, week))
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: week %d missing before week %d", ErrChainIntegrity, week, last)
		}
		if err != nil {
			return nil, fmt.Errorf("load week %d: %w", week, err)
		}
		s, skipped, err := Decode(data)
		if err != nil {
			return nil, err
		}
		if skipped != cfg.WeeksSkipped {
			return nil, fmt.Errorf("%w: week %d was saved with %d skipped weeks, config has %d",
				ErrChainIntegrity, week, skipped, cfg.WeeksSkipped)
		}
		if len(s.demand) != cfg.WeeksTotal {
			return nil, fmt.Errorf("%w: week %d demand covers %d weeks, config has %d",
				ErrChainIntegrity, week, len(s.demand), cfg.WeeksTotal)
		}
		if err := c.append(s); err != nil {
			return nil, err
		}
	}
	c.persisted = len(c.states)
	return c, nil
}
