package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
)

// parseClock parses an "HH:MM" string. Falls back to 09:00 on bad input.
func parseClock(s string) (hour, minute int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 9, 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 9, 0
	}
	return h, m
}

// nextRun returns the next weekday occurrence of hour:minute in loc strictly
// after now. Saturdays and Sundays are skipped; a Friday-evening call lands
// on Monday morning.
func nextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// startPriceScheduler refreshes investment prices at the configured wall
// clock time on weekdays.
func startPriceScheduler(ctx context.Context, investments interfaces.InvestmentService, logger *common.Logger, config common.SchedulerConfig) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", config.Timezone).Msg("Price scheduler: unknown timezone, using UTC")
		loc = time.UTC
	}
	hour, minute := parseClock(config.PriceUpdateTime)

	for {
		next := nextRun(time.Now(), hour, minute, loc)
		wait := time.Until(next)
		logger.Info().Time("next_run", next).Msg("Price scheduler: sleeping until next run")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info().Msg("Price scheduler: stopped")
			return
		case <-timer.C:
		}

		start := time.Now()
		updated, err := investments.RefreshPrices(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Price scheduler: refresh failed")
			continue
		}
		logger.Info().
			Int("updated", updated).
			Dur("elapsed", time.Since(start)).
			Msg("Price scheduler: refresh complete")
	}
}
