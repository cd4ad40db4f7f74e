package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/poller"
	"gitlab.com/timkado/api/voice-agent-console/internal/usecase"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
)

func (a *app) cmdConversations(ctx context.Context, args []string) error {
	subcmd := "list"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcmd, args = args[0], args[1:]
	}

	switch subcmd {
	case "list", "ls":
		ctx, cancel := withTimeout(ctx)
		defer cancel()
		return a.conversationsList(ctx, args)
	case "show", "get":
		ctx, cancel := withTimeout(ctx)
		defer cancel()
		id, err := splitID(newFlagSet("conversations show"), args, "conversations show <id>")
		if err != nil {
			return err
		}
		return a.showConversation(ctx, id)
	case "watch":
		id, err := splitID(newFlagSet("conversations watch"), args, "conversations watch <id>")
		if err != nil {
			return err
		}
		return a.watchConversation(ctx, id)
	default:
		return fmt.Errorf("unknown conversations subcommand: %s (use list, show, watch)", subcmd)
	}
}

func (a *app) conversationsList(ctx context.Context, args []string) error {
	fs := newFlagSet("conversations list")
	search := fs.String("search", "", "filter by agent, driver or load number")
	status := fs.String("status", usecase.StatusAll, "all|pending|in_progress|completed|failed")
	agentID := fs.String("agent", "", "only conversations of this agent")
	sort := fs.String("sort", string(usecase.SortCreatedDesc), "created_desc|created_asc")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := a.service.ListConversations(ctx)
	if err != nil {
		return err
	}
	filtered, err := usecase.FilterConversations(items, usecase.ConversationQuery{
		Search:  *search,
		Status:  *status,
		AgentID: *agentID,
		Sort:    usecase.SortOrder(*sort),
	})
	if err != nil {
		return err
	}
	renderConversations(a.out, "Conversations", filtered)
	return nil
}

// showConversation loads the conversation, its transcript and its structured data together.
// Missing structured data is normal for calls that are still running.
func (a *app) showConversation(ctx context.Context, id string) error {
	var (
		conv       *model.Conversation
		convErr    error
		messages   []model.Message
		msgErr     error
		structured *model.StructuredDataResponse
		sdErr      error
	)
	var wg conc.WaitGroup
	wg.Go(func() { conv, convErr = a.service.GetConversation(ctx, id) })
	wg.Go(func() { messages, msgErr = a.service.GetMessages(ctx, id) })
	wg.Go(func() { structured, sdErr = a.service.GetStructuredData(ctx, id) })
	wg.Wait()

	if convErr != nil {
		return convErr
	}
	if msgErr != nil {
		return msgErr
	}
	if sdErr != nil {
		if !errors.Is(sdErr, apperrors.ErrNotFound) {
			return sdErr
		}
		structured = nil
	}
	if structured != nil {
		*conv = conv.WithStructuredData(*structured)
	}
	renderConversation(a.out, conv, messages, structured)
	return nil
}

// watchConversation polls a conversation and prints every status change until it is terminal.
func (a *app) watchConversation(ctx context.Context, id string) error {
	var last model.ConversationStatus
	ctrl := poller.New(a.service,
		poller.WithInterval(a.cfg.Polling.Interval),
		poller.WithLogger(logger.Log),
		poller.WithObserver(func(obs poller.Observation) {
			if obs.Err != nil {
				fmt.Fprintf(a.out, "  %s  %s\n", obs.ObservedAt.Format("15:04:05"), obs.Err)
				return
			}
			if obs.Status == last {
				return
			}
			last = obs.Status
			fmt.Fprintf(a.out, "  %s  %s\n", obs.ObservedAt.Format("15:04:05"), statusBadge(obs.Status))
		}),
	)

	heading(a.out, "Watching "+id)
	if err := ctrl.Enable(ctx, id); err != nil {
		return err
	}
	select {
	case <-ctrl.Done():
	case <-ctx.Done():
		ctrl.Disable()
		<-ctrl.Done()
		return nil
	}
	if ctrl.State() != poller.StateFinished {
		return nil
	}

	showCtx, cancel := withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	return a.showConversation(showCtx, id)
}

func (a *app) cmdOverview(ctx context.Context, args []string) error {
	fs := newFlagSet("overview")
	recent := fs.Int("recent", 5, "number of recent conversations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	ov, err := a.service.Overview(ctx, *recent)
	if err != nil {
		return err
	}
	renderOverview(a.out, ov)
	return nil
}
