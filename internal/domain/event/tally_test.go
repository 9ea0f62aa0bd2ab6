package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func makeOption(eventID uuid.UUID, aiScore *float64, addedAt time.Time) PlaceOption {
	return PlaceOption{
		ID:      uuid.New(),
		EventID: eventID,
		Name:    "place",
		AIScore: aiScore,
		AddedAt: addedAt,
	}
}

func makeVotes(eventID, optionID uuid.UUID, values ...int) []Vote {
	votes := make([]Vote, 0, len(values))
	for _, v := range values {
		votes = append(votes, Vote{
			ID:       uuid.New(),
			EventID:  eventID,
			OptionID: optionID,
			VoterID:  uuid.New(),
			Value:    v,
		})
	}
	return votes
}

func TestRankOptionsVoteTotalBeatsAIScore(t *testing.T) {
	eventID := uuid.New()
	base := time.Now()

	// 5 points with a better AI score versus 7 points with a worse one.
	optA := makeOption(eventID, floatPtr(0.70), base)
	optB := makeOption(eventID, floatPtr(0.60), base.Add(time.Minute))

	votes := append(
		makeVotes(eventID, optA.ID, 2, 3),
		makeVotes(eventID, optB.ID, 4, 3)...,
	)

	scores := RankOptions([]PlaceOption{optA, optB}, votes)
	require.Len(t, scores, 2)
	assert.Equal(t, optB.ID, scores[0].OptionID)
	assert.Equal(t, 7, scores[0].Total)
	assert.Equal(t, optA.ID, scores[1].OptionID)
}

func TestRankOptionsAIScoreBreaksVoteTie(t *testing.T) {
	eventID := uuid.New()
	base := time.Now()

	optA := makeOption(eventID, floatPtr(0.55), base)
	optB := makeOption(eventID, floatPtr(0.90), base.Add(time.Minute))

	votes := append(
		makeVotes(eventID, optA.ID, 5),
		makeVotes(eventID, optB.ID, 5)...,
	)

	scores := RankOptions([]PlaceOption{optA, optB}, votes)
	require.Len(t, scores, 2)
	assert.Equal(t, optB.ID, scores[0].OptionID)
}

func TestRankOptionsEarliestSuggestionBreaksFullTie(t *testing.T) {
	eventID := uuid.New()
	base := time.Now()

	first := makeOption(eventID, floatPtr(0.5), base)
	second := makeOption(eventID, floatPtr(0.5), base.Add(time.Hour))

	votes := append(
		makeVotes(eventID, first.ID, 3),
		makeVotes(eventID, second.ID, 3)...,
	)

	scores := RankOptions([]PlaceOption{second, first}, votes)
	require.Len(t, scores, 2)
	assert.Equal(t, first.ID, scores[0].OptionID)
}

func TestRankOptionsVetoDragsTotalDown(t *testing.T) {
	eventID := uuid.New()
	base := time.Now()

	optA := makeOption(eventID, nil, base)
	optB := makeOption(eventID, nil, base.Add(time.Minute))

	// A: 3 - 1 = 2, B: 3
	votes := append(
		makeVotes(eventID, optA.ID, 3, -1),
		makeVotes(eventID, optB.ID, 3)...,
	)

	scores := RankOptions([]PlaceOption{optA, optB}, votes)
	require.Len(t, scores, 2)
	assert.Equal(t, optB.ID, scores[0].OptionID)
	assert.Equal(t, 2, scores[1].Total)
}

func TestRankOptionsExcludesUnvotedAndOrphans(t *testing.T) {
	eventID := uuid.New()
	base := time.Now()

	voted := makeOption(eventID, nil, base)
	unvoted := makeOption(eventID, floatPtr(0.99), base)

	votes := makeVotes(eventID, voted.ID, 1)
	// A ballot for an option that was since removed is skipped.
	votes = append(votes, makeVotes(eventID, uuid.New(), 5)...)

	scores := RankOptions([]PlaceOption{voted, unvoted}, votes)
	require.Len(t, scores, 1)
	assert.Equal(t, voted.ID, scores[0].OptionID)
}

func TestComputeWinnerNoVotesCast(t *testing.T) {
	repo := NewMemoryRepository()
	eventID := uuid.New()
	require.NoError(t, repo.AddPlaceOption(context.Background(), &PlaceOption{
		ID:      uuid.New(),
		EventID: eventID,
		Name:    "lonely place",
		AddedAt: time.Now(),
	}))

	tally := NewTally(repo)
	_, err := tally.ComputeWinner(context.Background(), eventID)
	assert.ErrorIs(t, err, ErrNoVotesCast)
}

func TestComputeWinner(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	eventID := uuid.New()

	optA := makeOption(eventID, nil, time.Now())
	optB := makeOption(eventID, nil, time.Now().Add(time.Minute))
	require.NoError(t, repo.AddPlaceOption(ctx, &optA))
	require.NoError(t, repo.AddPlaceOption(ctx, &optB))

	for _, v := range makeVotes(eventID, optB.ID, 4, 5) {
		vote := v
		require.NoError(t, repo.UpsertVote(ctx, &vote))
	}

	tally := NewTally(repo)
	winnerID, err := tally.ComputeWinner(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, optB.ID, winnerID)
}
