package usecase

import (
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// ScheduleAllUnscheduled assigns future publish dates to every item
// with no scheduledFor: the first unscheduled item gets today+1 day,
// the second today+2, and so on, in library order. It returns how many
// items were assigned; 0 means there was nothing to schedule.
func ScheduleAllUnscheduled(library []domain.Content, now ports.Clock) int {
	if now == nil {
		now = time.Now
	}

	today := now().UTC().Truncate(24 * time.Hour)

	assigned := 0
	for _, item := range library {
		meta := item.Meta()
		if meta.ScheduledFor != nil {
			continue
		}

		assigned++
		when := today.AddDate(0, 0, assigned)
		meta.ScheduledFor = &when
	}

	return assigned
}
