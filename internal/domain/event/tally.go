package event

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// OptionScore is the aggregated tally for one place option
type OptionScore struct {
	OptionID uuid.UUID
	Total    int
	Ballots  int
	AIScore  float64
	addedAt  int64
}

// Tally aggregates votes for an event and picks the winning place option
type Tally struct {
	repo Repository
}

// NewTally creates a new vote tally instance
func NewTally(repo Repository) *Tally {
	return &Tally{repo: repo}
}

// ComputeWinner ranks the event's place options by vote total descending,
// then AI score descending, then earliest-suggested first. It returns
// ErrNoVotesCast when no votes exist across all options; the fallback policy
// in that case belongs to the caller.
func (t *Tally) ComputeWinner(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	options, err := t.repo.ListPlaceOptions(ctx, eventID)
	if err != nil {
		return uuid.Nil, err
	}
	votes, err := t.repo.ListVotes(ctx, eventID)
	if err != nil {
		return uuid.Nil, err
	}

	scores := RankOptions(options, votes)
	if len(scores) == 0 {
		return uuid.Nil, ErrNoVotesCast
	}
	return scores[0].OptionID, nil
}

// RankOptions aggregates votes per option and sorts best-first. Options with
// zero ballots are excluded; an empty result means nobody voted.
func RankOptions(options []PlaceOption, votes []Vote) []OptionScore {
	byOption := make(map[uuid.UUID]*OptionScore, len(options))
	for _, opt := range options {
		score := &OptionScore{OptionID: opt.ID, addedAt: opt.AddedAt.UnixNano()}
		if opt.AIScore != nil {
			score.AIScore = *opt.AIScore
		}
		byOption[opt.ID] = score
	}

	for _, vote := range votes {
		score, ok := byOption[vote.OptionID]
		if !ok {
			// vote for an option that no longer exists
			continue
		}
		score.Total += vote.Value
		score.Ballots++
	}

	scores := make([]OptionScore, 0, len(byOption))
	for _, score := range byOption {
		if score.Ballots == 0 {
			continue
		}
		scores = append(scores, *score)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		if scores[i].AIScore != scores[j].AIScore {
			return scores[i].AIScore > scores[j].AIScore
		}
		return scores[i].addedAt < scores[j].addedAt
	})

	return scores
}
