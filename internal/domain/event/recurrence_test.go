package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intPtr(i int) *int { return &i }

// fixedNow is a Monday.
var fixedNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func newTestEngine(repo Repository) *RecurrenceEngine {
	engine := NewRecurrenceEngine(repo, nil, zap.NewNop())
	engine.now = func() time.Time { return fixedNow }
	return engine
}

func weeklyTemplate() *RecurringTemplate {
	return &RecurringTemplate{
		ID:              uuid.New(),
		OrganizerID:     uuid.New(),
		OrganizerEmail:  "organizer@example.com",
		Title:           "Team dinner",
		Pattern:         PatternWeekly,
		WeekDays:        StringArray{"MO", "FR"},
		ScheduledTime:   "18:30",
		DurationMinutes: 90,
		StartDate:       time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		DaysInAdvance:   7,
		Active:          true,
	}
}

func generatedEvents(t *testing.T, repo *MemoryRepository, templateID uuid.UUID) []time.Time {
	t.Helper()
	dates, err := repo.GetGeneratedEventDatesFor(context.Background(), templateID)
	require.NoError(t, err)
	return dates
}

func TestGenerateWeeklyOccurrences(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)

	// Mondays Mar 2 and Mar 9, Friday Mar 6 inside the 7-day lookahead.
	assert.Equal(t, 3, created)

	dates := generatedEvents(t, repo, template.ID)
	got := make(map[string]bool, len(dates))
	for _, d := range dates {
		got[d.UTC().Format("2006-01-02 15:04")] = true
	}
	assert.True(t, got["2026-03-02 18:30"])
	assert.True(t, got["2026-03-06 18:30"])
	assert.True(t, got["2026-03-09 18:30"])
}

func TestGenerateIsIdempotentAcrossCycles(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	require.NoError(t, repo.CreateTemplate(ctx, template))
	engine := newTestEngine(repo)

	created, err := engine.GenerateDueOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	created, err = engine.GenerateDueOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, generatedEvents(t, repo, template.ID), 3)
}

func TestGenerateWeeklyEmptySetFallsBackToStartWeekday(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	template.WeekDays = nil
	// A Tuesday.
	template.StartDate = time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)

	// Only Tuesday Mar 3 falls in the window.
	assert.Equal(t, 1, created)
	dates := generatedEvents(t, repo, template.ID)
	require.Len(t, dates, 1)
	assert.Equal(t, time.Tuesday, dates[0].UTC().Weekday())
}

func TestGenerateMonthlyLastDayWhenMonthDayNil(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	template.Pattern = PatternMonthly
	template.MonthDay = nil
	template.WeekDays = nil
	template.DaysInAdvance = 30
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, created)
	dates := generatedEvents(t, repo, template.ID)
	require.Len(t, dates, 1)
	assert.Equal(t, "2026-03-31", dates[0].UTC().Format("2006-01-02"))
}

func TestGenerateYearly(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	template.Pattern = PatternYearly
	template.WeekDays = nil
	template.YearMonth = intPtr(3)
	template.YearDay = intPtr(15)
	template.DaysInAdvance = 20
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, created)
	dates := generatedEvents(t, repo, template.ID)
	require.Len(t, dates, 1)
	assert.Equal(t, "2026-03-15", dates[0].UTC().Format("2006-01-02"))
}

func TestGenerateRespectsOccurrenceCap(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	template.Pattern = PatternDaily
	template.WeekDays = nil
	template.OccurrenceCount = intPtr(3)
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// With the cap reached, later cycles add nothing.
	created, err = newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestGenerateSkipsInactiveTemplates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	template.Active = false
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, generatedEvents(t, repo, template.ID))
}

func TestGenerateStampsLastGeneratedEvenWhenNothingDue(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	endDate := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	template.EndDate = &endDate
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	templates, err := repo.GetActiveRecurringTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.NotNil(t, templates[0].LastGeneratedAt)
	assert.Equal(t, fixedNow, templates[0].LastGeneratedAt.UTC())
}

func TestMaterializedInstanceShape(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	template := weeklyTemplate()
	template.Pattern = PatternDaily
	template.WeekDays = nil
	template.DaysInAdvance = 1
	require.NoError(t, repo.CreateTemplate(ctx, template))

	created, err := newTestEngine(repo).GenerateDueOccurrences(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, created)

	dates := generatedEvents(t, repo, template.ID)
	require.Len(t, dates, 2)

	var instance *Event
	for _, e := range repo.events {
		if e.StartTime.Format("2006-01-02") == "2026-03-02" {
			instance = e
		}
	}
	require.NotNil(t, instance)

	assert.Equal(t, StatusDraft, instance.Status)
	assert.Equal(t, template.Title, instance.Title)
	assert.Equal(t, instance.StartTime.Add(90*time.Minute), instance.EndTime)
	assert.Equal(t, instance.StartTime.Add(-24*time.Hour), instance.VotingDeadline)
	assert.Equal(t, instance.StartTime.Add(-48*time.Hour), instance.RsvpDeadline)
	require.NotNil(t, instance.RecurringTemplateID)
	assert.Equal(t, template.ID, *instance.RecurringTemplateID)

	organizer, err := repo.GetParticipant(ctx, instance.ID, template.OrganizerID)
	require.NoError(t, err)
	assert.Equal(t, InvitationAccepted, organizer.InvitationStatus)
	assert.Equal(t, template.OrganizerEmail, organizer.Email)
	assert.NotNil(t, organizer.RespondedAt)
}
