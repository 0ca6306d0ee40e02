package account

import (
	"time"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// Restore rebuilds the account by replaying fills in execution order. PAPER
// fills are re-applied to cash and positions; LIVE fills only count toward
// daily statistics. Daily statistics are rebuilt from fills executed on the
// current day at or after dailySince. If any fill fails to replay the
// account is left as it was.
func (a *Account) Restore(fills []models.Fill, dailySince time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	savedCash, savedRealized := a.cash, a.realized
	savedBook, savedHistory, savedDaily := a.book, a.history, a.daily

	a.resetLocked()

	replayed := make([]models.Fill, 0, len(fills))
	for i, f := range fills {
		if f.Mode == models.TradingModeLive {
			replayed = append(replayed, f)
			continue
		}
		fill, err := a.applyLocked(f.Order(), f.OrderID, f.ExecutedAt)
		if err != nil {
			a.cash, a.realized = savedCash, savedRealized
			a.book, a.history, a.daily = savedBook, savedHistory, savedDaily
			return errors.Wrapf(err, "failed to replay fill %d (%s)", i, f.OrderID)
		}
		replayed = append(replayed, *fill)
	}

	// Daily stats come from the recomputed fills so realized P&L does not
	// depend on what the journal stored.
	now := a.now()
	today := now.Format(DateLayout)
	a.daily = newDailyStats(now)
	for _, f := range replayed {
		if f.ExecutedAt.Before(dailySince) || f.ExecutedAt.In(now.Location()).Format(DateLayout) != today {
			continue
		}
		a.recordDailyLocked(f)
	}
	return nil
}
