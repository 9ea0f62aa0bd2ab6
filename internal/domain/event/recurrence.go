package event

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/backend/internal/domain/events"
	"github.com/gatherly/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// generationWindowDays bounds how far back from the lookahead horizon a
// single cycle will scan for due occurrences.
const generationWindowDays = 30

// Deadlines for generated instances, relative to the occurrence start
const (
	generatedRsvpLead   = 48 * time.Hour
	generatedVotingLead = 24 * time.Hour
)

// RecurrenceEngine materializes event instances from recurring templates
type RecurrenceEngine struct {
	repo   Repository
	redis  *cache.RedisClient
	logger *zap.Logger
	now    func() time.Time
}

// NewRecurrenceEngine creates a new recurrence engine instance. The redis
// client may be nil, in which case no dashboard events are published.
func NewRecurrenceEngine(repo Repository, redis *cache.RedisClient, logger *zap.Logger) *RecurrenceEngine {
	return &RecurrenceEngine{repo: repo, redis: redis, logger: logger, now: time.Now}
}

// GenerateDueOccurrences processes every active template and returns the
// number of event instances created. A failure on one template is logged and
// does not stop the others.
func (e *RecurrenceEngine) GenerateDueOccurrences(ctx context.Context) (int, error) {
	templates, err := e.repo.GetActiveRecurringTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active templates: %w", err)
	}

	created := 0
	for i := range templates {
		template := &templates[i]
		n, err := e.processTemplate(ctx, template)
		if err != nil {
			e.logger.Error("Failed to process recurring template",
				zap.String("template_id", template.ID.String()),
				zap.Error(err),
			)
			continue
		}
		created += n
	}
	return created, nil
}

// processTemplate scans the template's lookahead window and creates one draft
// event per due calendar date that has none yet. LastGeneratedAt is advanced
// even when nothing was due this cycle.
func (e *RecurrenceEngine) processTemplate(ctx context.Context, template *RecurringTemplate) (int, error) {
	now := e.now().UTC()
	today := truncateToDay(now)
	horizon := today.AddDate(0, 0, template.DaysInAdvance)

	windowStart := horizon.AddDate(0, 0, -generationWindowDays)
	if windowStart.Before(today) {
		windowStart = today
	}

	existing, err := e.repo.GetGeneratedEventDatesFor(ctx, template.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load generated dates: %w", err)
	}
	occupied := make(map[string]bool, len(existing))
	for _, d := range existing {
		occupied[d.UTC().Format("2006-01-02")] = true
	}

	created := 0
	for date := windowStart; !date.After(horizon); date = date.AddDate(0, 0, 1) {
		if !e.occursOn(template, date) {
			continue
		}
		if template.OccurrenceCount != nil && len(existing)+created >= *template.OccurrenceCount {
			break
		}
		key := date.Format("2006-01-02")
		if occupied[key] {
			continue
		}
		if err := e.materialize(ctx, template, date); err != nil {
			e.logger.Error("Failed to materialize occurrence",
				zap.String("template_id", template.ID.String()),
				zap.String("date", key),
				zap.Error(err),
			)
			continue
		}
		occupied[key] = true
		created++
	}

	genTime := now
	template.LastGeneratedAt = &genTime
	if err := e.repo.UpdateTemplate(ctx, template); err != nil {
		return created, fmt.Errorf("failed to update template: %w", err)
	}

	if created > 0 && e.redis != nil {
		dashboardEvent := &events.DashboardEvent{
			EventType: events.EventTypeSeriesGeneration,
			UserID:    template.OrganizerID,
			EntityID:  template.ID,
			Timestamp: now,
			Details: map[string]interface{}{
				"created": created,
			},
		}
		if err := e.redis.PublishDashboardEvent(ctx, dashboardEvent); err != nil {
			e.logger.Error("Failed to publish series generation event",
				zap.String("template_id", template.ID.String()),
				zap.Error(err),
			)
		}
	}

	return created, nil
}

// occursOn decides whether the template has an occurrence on the given
// calendar date
func (e *RecurrenceEngine) occursOn(template *RecurringTemplate, date time.Time) bool {
	if date.Before(truncateToDay(template.StartDate.UTC())) {
		return false
	}
	if template.EndDate != nil && date.After(template.EndDate.UTC()) {
		return false
	}

	switch template.Pattern {
	case PatternDaily:
		return true

	case PatternWeekly:
		set := ParseWeekdaySet(template.WeekDays)
		if len(set) == 0 {
			// Empty or unparseable weekday set falls back to the start
			// date's weekday.
			return date.Weekday() == template.StartDate.UTC().Weekday()
		}
		return set[date.Weekday()]

	case PatternMonthly:
		if template.MonthDay != nil {
			return date.Day() == *template.MonthDay
		}
		return date.Day() == lastDayOfMonth(date)

	case PatternYearly:
		if template.YearMonth == nil || template.YearDay == nil {
			return false
		}
		return int(date.Month()) == *template.YearMonth && date.Day() == *template.YearDay

	default:
		return false
	}
}

// materialize creates the draft event for the date plus the organizer's
// auto-accepted participant row
func (e *RecurrenceEngine) materialize(ctx context.Context, template *RecurringTemplate, date time.Time) error {
	start, err := combineDateAndTime(date, template.ScheduledTime)
	if err != nil {
		return err
	}
	end := start.Add(time.Duration(template.DurationMinutes) * time.Minute)

	now := e.now().UTC()
	instance := &Event{
		OrganizerID:         template.OrganizerID,
		Title:               template.Title,
		Description:         template.Description,
		Status:              StatusDraft,
		StartTime:           start,
		EndTime:             end,
		VotingDeadline:      start.Add(-generatedVotingLead),
		RsvpDeadline:        start.Add(-generatedRsvpLead),
		AcceptanceThreshold: 0.5,
		RecurringTemplateID: &template.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := e.repo.CreateEvent(ctx, instance); err != nil {
		return fmt.Errorf("failed to create event instance: %w", err)
	}

	// The organizer is auto-RSVPed into their own instance.
	respondedAt := now
	organizer := &Participant{
		EventID:          instance.ID,
		UserID:           template.OrganizerID,
		Email:            template.OrganizerEmail,
		InvitationStatus: InvitationAccepted,
		InvitedBy:        template.OrganizerID,
		InvitedAt:        now,
		RespondedAt:      &respondedAt,
	}
	if err := e.repo.AddParticipant(ctx, organizer); err != nil {
		return fmt.Errorf("failed to create organizer participant: %w", err)
	}

	e.logger.Info("Materialized recurring event instance",
		zap.String("template_id", template.ID.String()),
		zap.String("event_id", instance.ID.String()),
		zap.Time("start_time", start),
	)
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(date time.Time) int {
	firstOfNext := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

func combineDateAndTime(date time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid scheduled time %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}
