package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by tests and local
// tooling. It mirrors the query semantics of the Postgres implementation.
type MemoryRepository struct {
	mu sync.RWMutex

	events       map[uuid.UUID]*Event
	participants map[uuid.UUID]*Participant
	options      map[uuid.UUID]*PlaceOption
	votes        map[uuid.UUID]*Vote
	templates    map[uuid.UUID]*RecurringTemplate
	history      []StatusChange
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events:       make(map[uuid.UUID]*Event),
		participants: make(map[uuid.UUID]*Participant),
		options:      make(map[uuid.UUID]*PlaceOption),
		votes:        make(map[uuid.UUID]*Vote),
		templates:    make(map[uuid.UUID]*RecurringTemplate),
	}
}

func (r *MemoryRepository) CreateEvent(ctx context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *event
	return &clone, nil
}

func (r *MemoryRepository) UpdateEvent(ctx context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return ErrNotFound
	}
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *MemoryRepository) SaveTransition(ctx context.Context, event *Event, change *StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return ErrNotFound
	}
	clone := *event
	r.events[event.ID] = &clone
	r.history = append(r.history, *change)
	return nil
}

func (r *MemoryRepository) SaveStatusChange(ctx context.Context, change *StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, *change)
	return nil
}

func (r *MemoryRepository) GetStatusHistory(ctx context.Context, eventID uuid.UUID) ([]StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var history []StatusChange
	for _, change := range r.history {
		if change.EventID == eventID {
			history = append(history, change)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].ChangedAt.Before(history[j].ChangedAt)
	})
	return history, nil
}

func (r *MemoryRepository) GetEventsWithExpiredRsvpAndInsufficientParticipants(ctx context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now().UTC()
	var events []Event
	for _, event := range r.events {
		switch event.Status {
		case StatusPlanning, StatusVoting, StatusConfirmed:
		default:
			continue
		}
		if !event.RsvpDeadline.Before(now) {
			continue
		}
		if r.countByStatusLocked(event.ID, InvitationAccepted) <= 1 {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (r *MemoryRepository) GetEventsInVotingPastDeadline(ctx context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now().UTC()
	var events []Event
	for _, event := range r.events {
		if event.Status == StatusVoting && !event.VotingDeadline.After(now) {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (r *MemoryRepository) GetEventsToComplete(ctx context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now().UTC()
	var events []Event
	for _, event := range r.events {
		if event.Status == StatusConfirmed && event.EndTime.Before(now) {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (r *MemoryRepository) GetUpcomingEvents(ctx context.Context, windowStart, windowEnd time.Time, statuses []Status) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	allowed := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var events []Event
	for _, event := range r.events {
		if !allowed[event.Status] {
			continue
		}
		if event.StartTime.Before(windowStart) || !event.StartTime.Before(windowEnd) {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

func (r *MemoryRepository) GetEventsWithVotingDeadlineBetween(ctx context.Context, start, end time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var events []Event
	for _, event := range r.events {
		if event.Status != StatusVoting {
			continue
		}
		if event.VotingDeadline.Before(start) || !event.VotingDeadline.Before(end) {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

func (r *MemoryRepository) GetEventsWithRsvpDeadlineBetween(ctx context.Context, start, end time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var events []Event
	for _, event := range r.events {
		if event.Status != StatusPlanning && event.Status != StatusVoting {
			continue
		}
		if event.RsvpDeadline.Before(start) || !event.RsvpDeadline.Before(end) {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

func (r *MemoryRepository) AddParticipant(ctx context.Context, participant *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if participant.ID == uuid.Nil {
		participant.ID = uuid.New()
	}
	for _, p := range r.participants {
		if p.EventID == participant.EventID && p.UserID == participant.UserID {
			return ErrAlreadyInvited
		}
	}
	clone := *participant
	r.participants[participant.ID] = &clone
	return nil
}

func (r *MemoryRepository) UpdateParticipant(ctx context.Context, participant *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[participant.ID]; !ok {
		return ErrNotFound
	}
	clone := *participant
	r.participants[participant.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetParticipant(ctx context.Context, eventID, userID uuid.UUID) (*Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.participants {
		if p.EventID == eventID && p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var participants []Participant
	for _, p := range r.participants {
		if p.EventID == eventID {
			participants = append(participants, *p)
		}
	}
	return participants, nil
}

func (r *MemoryRepository) ListParticipantsByStatus(ctx context.Context, eventID uuid.UUID, status InvitationStatus) ([]Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var participants []Participant
	for _, p := range r.participants {
		if p.EventID == eventID && p.InvitationStatus == status {
			participants = append(participants, *p)
		}
	}
	return participants, nil
}

func (r *MemoryRepository) CountParticipantsByStatus(ctx context.Context, eventID uuid.UUID, status InvitationStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(r.countByStatusLocked(eventID, status)), nil
}

func (r *MemoryRepository) countByStatusLocked(eventID uuid.UUID, status InvitationStatus) int {
	count := 0
	for _, p := range r.participants {
		if p.EventID == eventID && p.InvitationStatus == status {
			count++
		}
	}
	return count
}

func (r *MemoryRepository) AddPlaceOption(ctx context.Context, option *PlaceOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}
	clone := *option
	r.options[option.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetPlaceOption(ctx context.Context, id uuid.UUID) (*PlaceOption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	option, ok := r.options[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *option
	return &clone, nil
}

func (r *MemoryRepository) ListPlaceOptions(ctx context.Context, eventID uuid.UUID) ([]PlaceOption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var options []PlaceOption
	for _, option := range r.options {
		if option.EventID == eventID {
			options = append(options, *option)
		}
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].AddedAt.Before(options[j].AddedAt)
	})
	return options, nil
}

func (r *MemoryRepository) UpsertVote(ctx context.Context, vote *Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.votes {
		if existing.EventID == vote.EventID && existing.OptionID == vote.OptionID && existing.VoterID == vote.VoterID {
			existing.Value = vote.Value
			existing.CreatedAt = vote.CreatedAt
			r.votes[id] = existing
			return nil
		}
	}
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	clone := *vote
	r.votes[vote.ID] = &clone
	return nil
}

func (r *MemoryRepository) ListVotes(ctx context.Context, eventID uuid.UUID) ([]Vote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var votes []Vote
	for _, vote := range r.votes {
		if vote.EventID == eventID {
			votes = append(votes, *vote)
		}
	}
	return votes, nil
}

func (r *MemoryRepository) CreateTemplate(ctx context.Context, template *RecurringTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	clone := *template
	r.templates[template.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*RecurringTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	template, ok := r.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *template
	return &clone, nil
}

func (r *MemoryRepository) UpdateTemplate(ctx context.Context, template *RecurringTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[template.ID]; !ok {
		return ErrNotFound
	}
	clone := *template
	r.templates[template.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetActiveRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var templates []RecurringTemplate
	for _, template := range r.templates {
		if template.Active {
			templates = append(templates, *template)
		}
	}
	return templates, nil
}

func (r *MemoryRepository) GetGeneratedEventDatesFor(ctx context.Context, templateID uuid.UUID) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var dates []time.Time
	for _, event := range r.events {
		if event.RecurringTemplateID != nil && *event.RecurringTemplateID == templateID {
			dates = append(dates, event.StartTime)
		}
	}
	return dates, nil
}
