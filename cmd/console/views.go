package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/session"
	"gitlab.com/timkado/api/voice-agent-console/internal/usecase"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

const timeLayout = "Jan 02 15:04"

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func heading(w io.Writer, title string) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(w)
	cyan.Fprintln(w, "  "+title)
	cyan.Fprintln(w, "  "+strings.Repeat("-", len(title)))
}

func newTable(w io.Writer, columns ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  "+strings.Join(columns, "\t"))
	dashes := make([]string, len(columns))
	for i, c := range columns {
		dashes[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, "  "+strings.Join(dashes, "\t"))
	return tw
}

// statusBadge colours a conversation status the way list views show it.
func statusBadge(s model.ConversationStatus) string {
	switch s {
	case model.StatusPending:
		return color.YellowString(s.Label())
	case model.StatusInProgress:
		return color.BlueString(s.Label())
	case model.StatusCompleted:
		return color.GreenString(s.Label())
	case model.StatusFailed:
		return color.RedString(s.Label())
	}
	return s.Label()
}

func sessionBadge(s session.State) string {
	switch s {
	case session.StateActive:
		return color.GreenString(string(s))
	case session.StateFailed:
		return color.RedString(string(s))
	case session.StateEnded:
		return color.New(color.Faint).Sprint(string(s))
	}
	return color.YellowString(string(s))
}

func durationLabel(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return model.FormatDuration(*ms)
}

func renderAgents(w io.Writer, items []model.AgentListItem) {
	heading(w, "Agents")
	if len(items) == 0 {
		fmt.Fprintln(w, "  (no agents)")
		fmt.Fprintln(w)
		return
	}
	tw := newTable(w, "ID", "NAME", "CONVERSATIONS", "LAST USED", "CREATED")
	for _, a := range items {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\t%s\n",
			truncate(a.ID, 36), truncate(a.Name, 32), a.ConversationCount, a.LastUsedLabel(), a.CreatedAt.Format(timeLayout))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func renderAgent(w io.Writer, a *model.Agent) {
	heading(w, a.Name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  ID\t%s\n", a.ID)
	fmt.Fprintf(tw, "  Created\t%s\n", a.CreatedAt.Format(timeLayout))
	fmt.Fprintf(tw, "  Last used\t%s\n", utils.FormatOptional(a.LastUsedAt, "Never"))
	if a.RetellAgentID != nil {
		fmt.Fprintf(tw, "  Voice agent\t%s\n", *a.RetellAgentID)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n  Prompts:\n  %s\n", a.Prompts)
	if a.AdditionalDetails != nil {
		fmt.Fprintf(w, "\n  Additional details:\n  %s\n", *a.AdditionalDetails)
	}
	if a.SystemPrompt != nil {
		fmt.Fprintf(w, "\n  System prompt:\n  %s\n", *a.SystemPrompt)
	}
	fmt.Fprintln(w)
}

func renderDrivers(w io.Writer, items []model.Driver) {
	heading(w, "Drivers")
	if len(items) == 0 {
		fmt.Fprintln(w, "  (no drivers)")
		fmt.Fprintln(w)
		return
	}
	tw := newTable(w, "ID", "NAME", "PHONE", "CREATED")
	for _, d := range items {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", truncate(d.ID, 36), truncate(d.Name, 32), d.PhoneNumber, d.CreatedAt.Format(timeLayout))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func renderConversations(w io.Writer, title string, items []model.ConversationListItem) {
	heading(w, title)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (no conversations)")
		fmt.Fprintln(w)
		return
	}
	tw := newTable(w, "ID", "AGENT", "DRIVER", "LOAD", "STATUS", "DURATION", "STARTED")
	for _, c := range items {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(c.ID, 36), truncate(c.AgentName, 24), truncate(c.DriverName, 24), c.LoadNumber,
			statusBadge(c.Status), durationLabel(c.DurationMs), c.StartedAt.Format(timeLayout))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func renderConversation(w io.Writer, c *model.Conversation, messages []model.Message, structured *model.StructuredDataResponse) {
	heading(w, "Conversation "+c.ID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  Status\t%s\n", statusBadge(c.Status))
	fmt.Fprintf(tw, "  Load\t%s\n", c.LoadNumber)
	fmt.Fprintf(tw, "  Started\t%s\n", c.StartedAt.Format(timeLayout))
	fmt.Fprintf(tw, "  Completed\t%s\n", utils.FormatOptional(c.CompletedAt, "-"))
	fmt.Fprintf(tw, "  Duration\t%s\n", durationLabel(c.DurationMs))
	if c.RecordingURL != nil {
		fmt.Fprintf(tw, "  Recording\t%s\n", *c.RecordingURL)
	}
	tw.Flush()

	fmt.Fprintln(w)
	color.New(color.FgYellow).Fprintln(w, "  Transcript")
	if len(messages) == 0 {
		fmt.Fprintln(w, "  (no messages)")
	}
	model.SortMessages(messages)
	for _, m := range messages {
		speaker := color.CyanString("Agent")
		if m.Role == model.RoleHuman {
			speaker = color.MagentaString("Driver")
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), speaker, m.Content)
	}

	if structured != nil && len(structured.StructuredData) > 0 {
		fmt.Fprintln(w)
		color.New(color.FgYellow).Fprintln(w, "  Structured data")
		sw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, f := range model.StructuredFields(structured.StructuredData) {
			value := f.Value
			if f.Bool != nil {
				if *f.Bool {
					value = color.GreenString(value)
				} else {
					value = color.RedString(value)
				}
			}
			fmt.Fprintf(sw, "  %s\t%s\n", f.Label, value)
		}
		sw.Flush()
	}
	fmt.Fprintln(w)
}

func renderOverview(w io.Writer, ov *usecase.Overview) {
	heading(w, "Overview")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  Agents\t%d\n", ov.Agents)
	fmt.Fprintf(tw, "  Drivers\t%d\n", ov.Drivers)
	fmt.Fprintf(tw, "  Conversations\t%d\n", ov.Conversations)
	for _, st := range model.AllStatuses {
		fmt.Fprintf(tw, "    %s\t%s\n", statusBadge(st), strconv.Itoa(ov.ByStatus[st]))
	}
	if ov.Busiest != nil {
		fmt.Fprintf(tw, "  Busiest agent\t%s (%d)\n", ov.Busiest.Name, ov.Busiest.ConversationCount)
	}
	tw.Flush()
	renderConversations(w, "Recent conversations", ov.Recent)
}

// renderCallLine prints one status line of a live call.
func renderCallLine(w io.Writer, at time.Time, snap session.Snapshot, status model.ConversationStatus) {
	speaking := ""
	if snap.AgentSpeaking {
		speaking = color.CyanString(" (agent speaking)")
	}
	fmt.Fprintf(w, "  %s  session=%s  status=%s%s\n", at.Format("15:04:05"), sessionBadge(snap.State), statusBadge(status), speaking)
}
