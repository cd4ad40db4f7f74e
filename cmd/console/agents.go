package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/fatih/color"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/usecase"
)

// optionalString lets a flag distinguish "not given" from "set to empty".
type optionalString struct {
	value *string
}

func (o *optionalString) String() string {
	if o.value == nil {
		return ""
	}
	return *o.value
}

func (o *optionalString) Set(s string) error {
	o.value = &s
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// splitID takes the leading positional id and parses the remaining flags.
func splitID(fs *flag.FlagSet, args []string, usage string) (string, error) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", fmt.Errorf("usage: %s", usage)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return "", fmt.Errorf("%w (usage: %s)", err, usage)
	}
	return args[0], nil
}

func (a *app) cmdAgents(ctx context.Context, args []string) error {
	subcmd := "list"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcmd, args = args[0], args[1:]
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	switch subcmd {
	case "list", "ls":
		return a.agentsList(ctx, args)
	case "show", "get":
		return a.agentsShow(ctx, args)
	case "create", "add":
		return a.agentsCreate(ctx, args)
	case "update", "edit":
		return a.agentsUpdate(ctx, args)
	case "delete", "rm", "remove":
		return a.agentsDelete(ctx, args)
	case "generate-prompt":
		return a.agentsGeneratePrompt(ctx, args)
	default:
		return fmt.Errorf("unknown agents subcommand: %s (use list, show, create, update, delete, generate-prompt)", subcmd)
	}
}

func (a *app) agentsList(ctx context.Context, args []string) error {
	fs := newFlagSet("agents list")
	search := fs.String("search", "", "filter by name")
	sort := fs.String("sort", string(usecase.SortCreatedDesc), "created_desc|created_asc|last_used_desc|last_used_asc|conversations_desc|conversations_asc")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := a.service.ListAgents(ctx)
	if err != nil {
		return err
	}
	filtered, err := usecase.FilterAgents(items, usecase.AgentQuery{Search: *search, Sort: usecase.SortOrder(*sort)})
	if err != nil {
		return err
	}
	renderAgents(a.out, filtered)
	return nil
}

func (a *app) agentsShow(ctx context.Context, args []string) error {
	id, err := splitID(newFlagSet("agents show"), args, "agents show <id>")
	if err != nil {
		return err
	}
	agent, err := a.service.GetAgent(ctx, id)
	if err != nil {
		return err
	}
	renderAgent(a.out, agent)
	return nil
}

func (a *app) agentsCreate(ctx context.Context, args []string) error {
	fs := newFlagSet("agents create")
	name := fs.String("name", "", "agent name")
	prompts := fs.String("prompts", "", "scenario description")
	var details optionalString
	fs.Var(&details, "details", "additional details")
	if err := fs.Parse(args); err != nil {
		return err
	}

	agent, err := a.service.CreateAgent(ctx, model.AgentCreate{Name: *name, Prompts: *prompts, AdditionalDetails: details.value})
	if err != nil {
		return err
	}
	color.Green("Created agent %s (%s)\n", agent.Name, agent.ID)
	return nil
}

func (a *app) agentsUpdate(ctx context.Context, args []string) error {
	fs := newFlagSet("agents update")
	var name, prompts, details optionalString
	fs.Var(&name, "name", "agent name")
	fs.Var(&prompts, "prompts", "scenario description")
	fs.Var(&details, "details", "additional details")
	id, err := splitID(fs, args, "agents update <id> [-name N] [-prompts P] [-details D]")
	if err != nil {
		return err
	}

	agent, err := a.service.UpdateAgent(ctx, id, model.AgentUpdate{
		Name:              name.value,
		Prompts:           prompts.value,
		AdditionalDetails: details.value,
	})
	if err != nil {
		return err
	}
	color.Green("Updated agent %s\n", agent.ID)
	return nil
}

func (a *app) agentsDelete(ctx context.Context, args []string) error {
	id, err := splitID(newFlagSet("agents delete"), args, "agents delete <id>")
	if err != nil {
		return err
	}
	if err := a.service.DeleteAgent(ctx, id); err != nil {
		return err
	}
	color.Green("Deleted agent %s\n", id)
	return nil
}

func (a *app) agentsGeneratePrompt(ctx context.Context, args []string) error {
	fs := newFlagSet("agents generate-prompt")
	scenario := fs.String("scenario", "", "scenario description")
	var extra optionalString
	fs.Var(&extra, "context", "additional context")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := a.service.GeneratePrompt(ctx, model.GeneratePromptRequest{ScenarioDescription: *scenario, AdditionalContext: extra.value})
	if err != nil {
		return err
	}
	heading(a.out, "Generated system prompt")
	fmt.Fprintf(a.out, "  %s\n\n", resp.SystemPrompt)
	return nil
}
