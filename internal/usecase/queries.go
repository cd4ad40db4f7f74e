package usecase

import (
	"fmt"
	"sort"
	"strings"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

// SortOrder names a list ordering offered by the console.
type SortOrder string

const (
	SortCreatedDesc       SortOrder = "created_desc"
	SortCreatedAsc        SortOrder = "created_asc"
	SortLastUsedDesc      SortOrder = "last_used_desc"
	SortLastUsedAsc       SortOrder = "last_used_asc"
	SortConversationsDesc SortOrder = "conversations_desc"
	SortConversationsAsc  SortOrder = "conversations_asc"
	SortNameAsc           SortOrder = "name_asc"
	SortNameDesc          SortOrder = "name_desc"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// AgentQuery filters and orders an agent list.
type AgentQuery struct {
	Search string
	Sort   SortOrder
}

// DriverQuery filters and orders a driver list.
type DriverQuery struct {
	Search string
	Sort   SortOrder
}

// ConversationQuery filters and orders a conversation list.
type ConversationQuery struct {
	Search  string
	Status  string
	AgentID string
	Sort    SortOrder
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func unsupportedSort(order SortOrder) error {
	return fmt.Errorf("%w: unsupported sort order %q", apperrors.ErrValidation, order)
}

// FilterAgents returns the agents whose name matches the search, in the requested order.
// The input slice is not modified.
func FilterAgents(items []model.AgentListItem, q AgentQuery) ([]model.AgentListItem, error) {
	out := make([]model.AgentListItem, 0, len(items))
	for _, a := range items {
		if q.Search == "" || containsFold(a.Name, q.Search) {
			out = append(out, a)
		}
	}

	var less func(a, b model.AgentListItem) bool
	switch q.Sort {
	case "", SortCreatedDesc:
		less = func(a, b model.AgentListItem) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortCreatedAsc:
		less = func(a, b model.AgentListItem) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortLastUsedDesc, SortLastUsedAsc:
		desc := q.Sort == SortLastUsedDesc
		// Never-used agents always sort last.
		less = func(a, b model.AgentListItem) bool {
			switch {
			case a.LastUsedAt == nil:
				return false
			case b.LastUsedAt == nil:
				return true
			case desc:
				return a.LastUsedAt.After(*b.LastUsedAt)
			default:
				return a.LastUsedAt.Before(*b.LastUsedAt)
			}
		}
	case SortConversationsDesc:
		less = func(a, b model.AgentListItem) bool { return a.ConversationCount > b.ConversationCount }
	case SortConversationsAsc:
		less = func(a, b model.AgentListItem) bool { return a.ConversationCount < b.ConversationCount }
	default:
		return nil, unsupportedSort(q.Sort)
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// FilterDrivers matches the search against name (case-insensitive) and phone number.
func FilterDrivers(items []model.Driver, q DriverQuery) ([]model.Driver, error) {
	out := make([]model.Driver, 0, len(items))
	for _, d := range items {
		if q.Search == "" || containsFold(d.Name, q.Search) || strings.Contains(d.PhoneNumber, q.Search) {
			out = append(out, d)
		}
	}

	var less func(a, b model.Driver) bool
	switch q.Sort {
	case "", SortCreatedDesc:
		less = func(a, b model.Driver) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortCreatedAsc:
		less = func(a, b model.Driver) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortNameAsc:
		less = func(a, b model.Driver) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNameDesc:
		less = func(a, b model.Driver) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	default:
		return nil, unsupportedSort(q.Sort)
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// FilterConversations matches the search against agent name, driver name and
// load number, and narrows by status and agent.
func FilterConversations(items []model.ConversationListItem, q ConversationQuery) ([]model.ConversationListItem, error) {
	if q.Status != "" && q.Status != StatusAll && !model.ConversationStatus(q.Status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, q.Status)
	}

	out := make([]model.ConversationListItem, 0, len(items))
	for _, c := range items {
		if q.AgentID != "" && c.AgentID != q.AgentID {
			continue
		}
		if q.Status != "" && q.Status != StatusAll && string(c.Status) != q.Status {
			continue
		}
		if q.Search != "" &&
			!containsFold(c.AgentName, q.Search) &&
			!containsFold(c.DriverName, q.Search) &&
			!containsFold(c.LoadNumber, q.Search) {
			continue
		}
		out = append(out, c)
	}

	switch q.Sort {
	case "", SortCreatedDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	case SortCreatedAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	default:
		return nil, unsupportedSort(q.Sort)
	}
	return out, nil
}
