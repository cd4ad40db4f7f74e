package usecase

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/voice-agent-console/internal/api"
	"gitlab.com/timkado/api/voice-agent-console/internal/cache"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const testAPIKey = "console-test-key"

// fakeBackend is an in-memory rendition of the console REST API.
type fakeBackend struct {
	mu            sync.Mutex
	agents        map[string]*model.Agent
	drivers       map[string]*model.Driver
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
	// statusScript is consumed one entry per status request; the last entry repeats.
	statusScript map[string][]model.ConversationStatus
	nextStatuses []model.ConversationStatus
	hits         map[string]int
	ended        []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		agents:        make(map[string]*model.Agent),
		drivers:       make(map[string]*model.Driver),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
		statusScript:  make(map[string][]model.ConversationStatus),
		hits:          make(map[string]int),
	}
}

// newTestService starts the fake backend and returns a service talking to it.
func newTestService(t *testing.T) (*ConsoleService, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	log := zaptest.NewLogger(t)
	client := api.NewClient(srv.URL, testAPIKey, api.WithLogger(log))
	return NewConsoleServiceFromClient(client, cache.New(log)), b
}

func (b *fakeBackend) addAgent(a *model.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents[a.ID] = a
}

func (b *fakeBackend) addDriver(d *model.Driver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drivers[d.ID] = d
}

func (b *fakeBackend) addConversation(c *model.Conversation, msgs ...model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[c.ID] = c
	b.messages[c.ID] = msgs
}

// scriptNextCall sets the status sequence of the next test call started.
func (b *fakeBackend) scriptNextCall(statuses ...model.ConversationStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextStatuses = statuses
}

func (b *fakeBackend) scriptStatuses(id string, statuses ...model.ConversationStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusScript[id] = statuses
}

func (b *fakeBackend) hitCount(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func (b *fakeBackend) endedCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ended...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": what + " not found"})
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h func(w http.ResponseWriter, r *http.Request)) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(api.APIKeyHeader) != testAPIKey {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid API key"})
				return
			}
			b.mu.Lock()
			b.hits[pattern]++
			b.mu.Unlock()
			h(w, r)
		})
	}

	route("GET /api/agents", b.listAgents)
	route("GET /api/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		a, ok := b.agents[r.PathValue("id")]
		if !ok {
			notFound(w, "Agent")
			return
		}
		writeJSON(w, http.StatusOK, a)
	})
	route("POST /api/agents", func(w http.ResponseWriter, r *http.Request) {
		var in model.AgentCreate
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		a := model.NewAgent(&model.Agent{Name: in.Name, Prompts: in.Prompts, AdditionalDetails: in.AdditionalDetails})
		b.addAgent(a)
		writeJSON(w, http.StatusCreated, a)
	})
	route("PUT /api/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in model.AgentUpdate
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		a, ok := b.agents[r.PathValue("id")]
		if !ok {
			notFound(w, "Agent")
			return
		}
		if in.Name != nil {
			a.Name = *in.Name
		}
		if in.Prompts != nil {
			a.Prompts = *in.Prompts
		}
		if in.AdditionalDetails != nil {
			a.AdditionalDetails = in.AdditionalDetails
		}
		writeJSON(w, http.StatusOK, a)
	})
	route("DELETE /api/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.agents[r.PathValue("id")]; !ok {
			notFound(w, "Agent")
			return
		}
		delete(b.agents, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	route("POST /api/agents/generate-prompt", func(w http.ResponseWriter, r *http.Request) {
		var in model.GeneratePromptRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusOK, model.GeneratePromptResponse{SystemPrompt: "You are a dispatcher. " + in.ScenarioDescription})
	})

	route("GET /api/drivers", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := make([]model.Driver, 0, len(b.drivers))
		for _, d := range b.drivers {
			out = append(out, *d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		writeJSON(w, http.StatusOK, out)
	})
	route("GET /api/drivers/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		d, ok := b.drivers[r.PathValue("id")]
		if !ok {
			notFound(w, "Driver")
			return
		}
		writeJSON(w, http.StatusOK, d)
	})
	route("POST /api/drivers", func(w http.ResponseWriter, r *http.Request) {
		var in model.DriverCreate
		_ = json.NewDecoder(r.Body).Decode(&in)
		d := model.NewDriver(&model.Driver{Name: in.Name, PhoneNumber: in.PhoneNumber})
		b.addDriver(d)
		writeJSON(w, http.StatusCreated, d)
	})
	route("DELETE /api/drivers/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.drivers, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	route("GET /api/conversations", b.listConversations)
	route("GET /api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		c, ok := b.conversations[r.PathValue("id")]
		if !ok {
			notFound(w, "Conversation")
			return
		}
		writeJSON(w, http.StatusOK, c)
	})
	route("GET /api/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		msgs, ok := b.messages[r.PathValue("id")]
		if !ok {
			notFound(w, "Conversation")
			return
		}
		if msgs == nil {
			msgs = []model.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	})
	route("GET /api/conversations/{id}/status", b.status)
	route("GET /api/conversations/{id}/structured-data", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		c, ok := b.conversations[r.PathValue("id")]
		if !ok || c.StructuredData == nil {
			notFound(w, "Structured data")
			return
		}
		writeJSON(w, http.StatusOK, model.StructuredDataResponse{
			ConversationID: c.ID,
			StructuredData: c.StructuredData,
			RecordingURL:   c.RecordingURL,
			DurationMs:     c.DurationMs,
		})
	})

	route("POST /api/test-calls/start", b.startCall)
	route("POST /api/test-calls/{id}/end", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.ended = append(b.ended, r.PathValue("id"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
	})

	return mux
}

func (b *fakeBackend) listAgents(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[string]int)
	for _, c := range b.conversations {
		counts[c.AgentID]++
	}
	out := make([]model.AgentListItem, 0, len(b.agents))
	for _, a := range b.agents {
		out = append(out, model.AgentListItem{
			ID:                a.ID,
			Name:              a.Name,
			Prompts:           a.Prompts,
			AdditionalDetails: a.AdditionalDetails,
			CreatedAt:         a.CreatedAt,
			LastUsedAt:        a.LastUsedAt,
			ConversationCount: counts[a.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) listConversations(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.ConversationListItem, 0, len(b.conversations))
	for _, c := range b.conversations {
		item := model.ConversationListItem{
			ID:          c.ID,
			AgentID:     c.AgentID,
			DriverID:    c.DriverID,
			LoadNumber:  c.LoadNumber,
			Status:      c.Status,
			StartedAt:   c.StartedAt,
			CompletedAt: c.CompletedAt,
			DurationMs:  c.DurationMs,
		}
		if a, ok := b.agents[c.AgentID]; ok {
			item.AgentName = a.Name
		}
		if d, ok := b.drivers[c.DriverID]; ok {
			item.DriverName = d.Name
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) status(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	c, ok := b.conversations[id]
	if !ok {
		notFound(w, "Conversation")
		return
	}
	if script := b.statusScript[id]; len(script) > 0 {
		next := script[0]
		if len(script) > 1 {
			b.statusScript[id] = script[1:]
		}
		if c.Status.CanTransitionTo(next) && c.Status != next {
			c.Status = next
			if next.IsTerminal() {
				done := time.Now().UTC()
				c.CompletedAt = &done
			}
		}
	}
	writeJSON(w, http.StatusOK, model.ConversationStatusResponse{ID: c.ID, Status: c.Status, CompletedAt: c.CompletedAt})
}

func (b *fakeBackend) startCall(w http.ResponseWriter, r *http.Request) {
	var in model.StartTestCallRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	agent, ok := b.agents[in.AgentID]
	if !ok {
		notFound(w, "Agent")
		return
	}
	driverID := in.DriverID
	if driverID == "" {
		d := model.NewDriver(&model.Driver{Name: in.DriverName, PhoneNumber: in.DriverPhone})
		b.drivers[d.ID] = d
		driverID = d.ID
	} else if _, ok := b.drivers[driverID]; !ok {
		notFound(w, "Driver")
		return
	}

	now := time.Now().UTC()
	agent.LastUsedAt = &now
	callID := "call_" + gofakeit.LetterN(12)
	token := gofakeit.LetterN(24)
	c := &model.Conversation{
		ID:                gofakeit.UUID(),
		AgentID:           agent.ID,
		DriverID:          driverID,
		LoadNumber:        in.LoadNumber,
		Status:            model.StatusPending,
		StartedAt:         now,
		RetellCallID:      &callID,
		RetellAccessToken: &token,
	}
	b.conversations[c.ID] = c
	b.messages[c.ID] = nil
	if len(b.nextStatuses) > 0 {
		b.statusScript[c.ID] = b.nextStatuses
		b.nextStatuses = nil
	}
	writeJSON(w, http.StatusCreated, c)
}
