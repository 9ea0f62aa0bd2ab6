package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubNotifier records in-app notifications and email dispatches
type stubNotifier struct {
	mu       sync.Mutex
	notified []uuid.UUID
	emails   []string
	fail     bool
}

func (n *stubNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, title, message, notificationType string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return ErrNotFound
	}
	n.notified = append(n.notified, userID)
	return nil
}

func (n *stubNotifier) SendEventReminderEmail(ctx context.Context, toEmail string, e *Event, kind ReminderKind) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, toEmail)
	return nil
}

func (n *stubNotifier) SendVotingDeadlineReminderEmail(ctx context.Context, toEmail string, e *Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, toEmail)
	return nil
}

func (n *stubNotifier) SendRsvpDeadlineReminderEmail(ctx context.Context, toEmail string, e *Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, toEmail)
	return nil
}

func (n *stubNotifier) notifiedUsers() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uuid.UUID(nil), n.notified...)
}

func newTestService(repo Repository) (Service, *stubNotifier) {
	notifier := &stubNotifier{}
	svc := NewService(repo, NewTally(repo), notifier, nil, zap.NewNop())
	return svc, notifier
}

// seedEvent stores an event in the given status with deadlines already in
// the past, which is what the worker-facing paths expect
func seedEvent(t *testing.T, repo Repository, status Status) *Event {
	t.Helper()
	now := time.Now().UTC()
	e := &Event{
		ID:                  uuid.New(),
		OrganizerID:         uuid.New(),
		Title:               "Game night",
		Status:              status,
		StartTime:           now.Add(-2 * time.Hour),
		EndTime:             now.Add(-time.Hour),
		VotingDeadline:      now.Add(-24 * time.Hour),
		RsvpDeadline:        now.Add(-48 * time.Hour),
		AcceptanceThreshold: 0.5,
	}
	require.NoError(t, repo.CreateEvent(context.Background(), e))
	return e
}

func seedParticipant(t *testing.T, repo Repository, eventID uuid.UUID, status InvitationStatus) *Participant {
	t.Helper()
	p := &Participant{
		ID:               uuid.New(),
		EventID:          eventID,
		UserID:           uuid.New(),
		Email:            "guest@example.com",
		InvitationStatus: status,
		InvitedBy:        uuid.New(),
		InvitedAt:        time.Now().UTC(),
	}
	require.NoError(t, repo.AddParticipant(context.Background(), p))
	return p
}

func TestCreateEventAddsOrganizerParticipant(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	organizerID := uuid.New()

	now := time.Now().UTC()
	e, err := svc.CreateEvent(ctx, CreateEventRequest{
		Title:          "Birthday brunch",
		StartTime:      now.Add(72 * time.Hour),
		EndTime:        now.Add(75 * time.Hour),
		VotingDeadline: now.Add(48 * time.Hour),
		RsvpDeadline:   now.Add(24 * time.Hour),
		OrganizerEmail: "organizer@example.com",
	}, organizerID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlanning, e.Status)
	assert.Equal(t, 0.5, e.AcceptanceThreshold)

	organizer, err := repo.GetParticipant(ctx, e.ID, organizerID)
	require.NoError(t, err)
	assert.Equal(t, InvitationAccepted, organizer.InvitationStatus)
	assert.NotNil(t, organizer.RespondedAt)

	// The history opens with the draft-to-planning creation entry.
	history, err := repo.GetStatusHistory(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusDraft, history[0].OldStatus)
	assert.Equal(t, StatusPlanning, history[0].NewStatus)
	assert.Equal(t, "event created", history[0].Reason)
}

func TestCreateEventRejectsInvalidTimeRange(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)

	now := time.Now().UTC()
	_, err := svc.CreateEvent(context.Background(), CreateEventRequest{
		Title:     "Backwards",
		StartTime: now.Add(2 * time.Hour),
		EndTime:   now.Add(time.Hour),
	}, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestCancelNotifiesEveryoneButDeclined(t *testing.T) {
	repo := NewMemoryRepository()
	svc, notifier := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusPlanning)
	accepted := seedParticipant(t, repo, e.ID, InvitationAccepted)
	pending := seedParticipant(t, repo, e.ID, InvitationPending)
	declined := seedParticipant(t, repo, e.ID, InvitationDeclined)

	require.NoError(t, svc.Cancel(ctx, e.ID, "venue fell through", "organizer"))

	got, err := repo.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "venue fell through", *got.CancellationReason)

	notified := notifier.notifiedUsers()
	assert.Contains(t, notified, accepted.UserID)
	assert.Contains(t, notified, pending.UserID)
	assert.NotContains(t, notified, declined.UserID)

	history, err := repo.GetStatusHistory(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusCancelled, history[0].NewStatus)
}

func TestCancelOnTerminalEventIsNoOp(t *testing.T) {
	repo := NewMemoryRepository()
	svc, notifier := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusCompleted)

	require.NoError(t, svc.Cancel(ctx, e.ID, "too late", "system:auto_cancel"))

	got, err := repo.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Nil(t, got.CancellationReason)
	assert.Empty(t, notifier.notifiedUsers())

	history, err := repo.GetStatusHistory(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFinalizeConfirmsWinningOption(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusVoting)
	voter := seedParticipant(t, repo, e.ID, InvitationAccepted)

	loser := &PlaceOption{EventID: e.ID, Name: "Quiet cafe", AddedAt: time.Now().UTC()}
	winner := &PlaceOption{EventID: e.ID, Name: "Rooftop bar", AddedAt: time.Now().UTC().Add(time.Second)}
	require.NoError(t, repo.AddPlaceOption(ctx, loser))
	require.NoError(t, repo.AddPlaceOption(ctx, winner))

	require.NoError(t, repo.UpsertVote(ctx, &Vote{EventID: e.ID, OptionID: loser.ID, VoterID: voter.UserID, Value: 2}))
	require.NoError(t, repo.UpsertVote(ctx, &Vote{EventID: e.ID, OptionID: winner.ID, VoterID: voter.UserID, Value: 5}))

	require.NoError(t, svc.Finalize(ctx, e.ID, "system:auto_finalize"))

	got, err := repo.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	require.NotNil(t, got.FinalPlaceID)
	assert.Equal(t, winner.ID, *got.FinalPlaceID)
	assert.NotNil(t, got.ConfirmedAt)

	history, err := repo.GetStatusHistory(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "venue decided: Rooftop bar", history[0].Reason)
}

func TestFinalizeDefersWhenNoVotesCast(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusVoting)
	require.NoError(t, repo.AddPlaceOption(ctx, &PlaceOption{EventID: e.ID, Name: "Somewhere", AddedAt: time.Now().UTC()}))

	err := svc.Finalize(ctx, e.ID, "system:auto_finalize")
	assert.ErrorIs(t, err, ErrNoVotesCast)

	got, err := repo.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVoting, got.Status)
	assert.Nil(t, got.FinalPlaceID)
}

func TestFinalizeRejectsNonVotingEvent(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)

	e := seedEvent(t, repo, StatusConfirmed)
	err := svc.Finalize(context.Background(), e.ID, "system:auto_finalize")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteRequiresEndedConfirmedEvent(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusConfirmed)
	require.NoError(t, svc.Complete(ctx, e.ID, "system:completion"))

	got, err := repo.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	// Not confirmed yet, cannot complete.
	other := seedEvent(t, repo, StatusVoting)
	assert.ErrorIs(t, svc.Complete(ctx, other.ID, "system:completion"), ErrInvalidTransition)
}

func TestCompleteRejectsFutureEndTime(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusConfirmed)
	e.EndTime = time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.UpdateEvent(ctx, e))

	assert.Error(t, svc.Complete(ctx, e.ID, "system:completion"))
}

func TestInviteRejectsDuplicates(t *testing.T) {
	repo := NewMemoryRepository()
	svc, notifier := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusPlanning)
	userID := uuid.New()

	require.NoError(t, svc.Invite(ctx, e.ID, userID, e.OrganizerID, "guest@example.com"))
	assert.Contains(t, notifier.notifiedUsers(), userID)

	err := svc.Invite(ctx, e.ID, userID, e.OrganizerID, "guest@example.com")
	assert.ErrorIs(t, err, ErrAlreadyInvited)
}

func TestInviteRejectsTerminalEvent(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)

	e := seedEvent(t, repo, StatusCancelled)
	err := svc.Invite(context.Background(), e.ID, uuid.New(), e.OrganizerID, "guest@example.com")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRespondToInvite(t *testing.T) {
	repo := NewMemoryRepository()
	svc, notifier := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusPlanning)
	p := seedParticipant(t, repo, e.ID, InvitationPending)

	require.NoError(t, svc.RespondToInvite(ctx, e.ID, p.UserID, true))

	got, err := repo.GetParticipant(ctx, e.ID, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, InvitationAccepted, got.InvitationStatus)
	assert.NotNil(t, got.RespondedAt)
	assert.Contains(t, notifier.notifiedUsers(), e.OrganizerID)

	// A stranger cannot respond.
	assert.ErrorIs(t, svc.RespondToInvite(ctx, e.ID, uuid.New(), true), ErrNotParticipant)
}

func TestCastVote(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusVoting)
	e.VotingDeadline = time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.UpdateEvent(ctx, e))

	voter := seedParticipant(t, repo, e.ID, InvitationAccepted)
	option := &PlaceOption{EventID: e.ID, Name: "Bowling alley", AddedAt: time.Now().UTC()}
	require.NoError(t, repo.AddPlaceOption(ctx, option))

	require.NoError(t, svc.CastVote(ctx, e.ID, option.ID, voter.UserID, 4))

	// Re-voting replaces the previous ballot.
	require.NoError(t, svc.CastVote(ctx, e.ID, option.ID, voter.UserID, -1))
	votes, err := repo.ListVotes(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, -1, votes[0].Value)

	// Guard rails.
	assert.ErrorIs(t, svc.CastVote(ctx, e.ID, option.ID, voter.UserID, 9), ErrInvalidVoteValue)
	assert.ErrorIs(t, svc.CastVote(ctx, e.ID, option.ID, uuid.New(), 3), ErrNotParticipant)
}

func TestCastVoteRejectsClosedVoting(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusPlanning)
	voter := seedParticipant(t, repo, e.ID, InvitationAccepted)
	option := &PlaceOption{EventID: e.ID, Name: "Anywhere", AddedAt: time.Now().UTC()}
	require.NoError(t, repo.AddPlaceOption(ctx, option))

	assert.ErrorIs(t, svc.CastVote(ctx, e.ID, option.ID, voter.UserID, 3), ErrInvalidStatus)
}

func TestCreateAndDeactivateRecurringTemplate(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	template := &RecurringTemplate{
		OrganizerID:    uuid.New(),
		OrganizerEmail: "organizer@example.com",
		Title:          "Monthly board games",
		Pattern:        PatternMonthly,
		ScheduledTime:  "19:00",
		StartDate:      time.Now().UTC(),
		DaysInAdvance:  14,
	}
	require.NoError(t, svc.CreateRecurringTemplate(ctx, template))
	assert.True(t, template.Active)

	active, err := repo.GetActiveRecurringTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, svc.DeactivateRecurringTemplate(ctx, template.ID))
	active, err = repo.GetActiveRecurringTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, svc.DeactivateRecurringTemplate(ctx, uuid.New()), ErrNotFound)
}

func TestCreateRecurringTemplateRejectsBadSchedule(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)

	template := &RecurringTemplate{
		Title:         "Broken",
		Pattern:       PatternDaily,
		ScheduledTime: "7pm",
		DaysInAdvance: 14,
	}
	assert.Error(t, svc.CreateRecurringTemplate(context.Background(), template))
}

func TestAddPlaceOptionClosedAfterVoting(t *testing.T) {
	repo := NewMemoryRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	e := seedEvent(t, repo, StatusConfirmed)
	_, err := svc.AddPlaceOption(ctx, e.ID, "Late idea", "", nil, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidStatus)

	open := seedEvent(t, repo, StatusPlanning)
	option, err := svc.AddPlaceOption(ctx, open.ID, "Park", "ref-123", floatPtr(0.8), uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, option.ID)
	assert.False(t, option.AddedAt.IsZero())
}
