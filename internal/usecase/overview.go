package usecase

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const defaultRecentConversations = 5

// Overview summarises the console's resources for the dashboard.
type Overview struct {
	Agents        int
	Drivers       int
	Conversations int
	ByStatus      map[model.ConversationStatus]int
	Recent        []model.ConversationListItem
	// Busiest is the agent with the highest conversation count, if any.
	Busiest *model.AgentListItem
}

// Overview loads agents, drivers and conversations concurrently. The first
// failure cancels the remaining loads.
func (s *ConsoleService) Overview(ctx context.Context, recent int) (*Overview, error) {
	if recent <= 0 {
		recent = defaultRecentConversations
	}

	var (
		agents        []model.AgentListItem
		drivers       []model.Driver
		conversations []model.ConversationListItem
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		agents, err = s.ListAgents(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		drivers, err = s.ListDrivers(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		conversations, err = s.ListConversations(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	out := &Overview{
		Agents:        len(agents),
		Drivers:       len(drivers),
		Conversations: len(conversations),
		ByStatus:      make(map[model.ConversationStatus]int, len(model.AllStatuses)),
	}
	for _, st := range model.AllStatuses {
		out.ByStatus[st] = 0
	}
	for _, c := range conversations {
		out.ByStatus[c.Status]++
	}

	sorted := append([]model.ConversationListItem(nil), conversations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartedAt.After(sorted[j].StartedAt) })
	if len(sorted) > recent {
		sorted = sorted[:recent]
	}
	out.Recent = sorted

	for i := range agents {
		if agents[i].ConversationCount == 0 {
			continue
		}
		if out.Busiest == nil || agents[i].ConversationCount > out.Busiest.ConversationCount {
			a := agents[i]
			out.Busiest = &a
		}
	}
	return out, nil
}
