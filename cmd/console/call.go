package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/session"
	"gitlab.com/timkado/api/voice-agent-console/internal/session/wstransport"
	"gitlab.com/timkado/api/voice-agent-console/internal/usecase"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
)

// finalStatusWait bounds how long the console waits for the backend to close
// the conversation after the operator hung up.
const finalStatusWait = 30 * time.Second

// promptPermission asks on the terminal before the microphone is used.
type promptPermission struct {
	in  io.Reader
	out io.Writer
}

func (p promptPermission) RequestMicrophone(ctx context.Context) error {
	fmt.Fprint(p.out, "  Allow microphone access for this call? [y/N] ")
	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.in).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()
	select {
	case a := <-answer:
		if a == "y" || a == "yes" {
			return nil
		}
		return errors.New("operator declined microphone access")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *app) cmdCall(ctx context.Context, args []string) error {
	fs := newFlagSet("call")
	agentID := fs.String("agent", "", "agent id")
	driverID := fs.String("driver", "", "existing driver id")
	driverName := fs.String("driver-name", "", "new driver name")
	driverPhone := fs.String("driver-phone", "", "new driver phone")
	load := fs.String("load", "", "load number")
	yes := fs.Bool("yes", false, "grant microphone access without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := model.StartTestCallRequest{
		AgentID:     *agentID,
		DriverID:    *driverID,
		DriverName:  *driverName,
		DriverPhone: *driverPhone,
		LoadNumber:  *load,
	}

	var permission session.PermissionRequester = promptPermission{in: os.Stdin, out: a.out}
	if *yes {
		permission = session.StaticPermission{}
	}

	var (
		mu         sync.Mutex
		lastSess   session.Snapshot
		lastStatus = model.StatusPending
		transcript string
	)
	printLine := func() {
		renderCallLine(a.out, time.Now(), lastSess, lastStatus)
	}

	opts := usecase.LiveCallOptions{
		Permission:      permission,
		PollInterval:    a.cfg.Polling.Interval,
		FinalizeTimeout: a.cfg.Session.FinalizeTimeout,
		OnStatus: func(c model.Conversation) {
			mu.Lock()
			defer mu.Unlock()
			if c.Status != lastStatus {
				lastStatus = c.Status
				printLine()
			}
		},
		OnSession: func(s session.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			if s.Transcript != "" && s.Transcript != transcript {
				transcript = s.Transcript
				fmt.Fprintf(a.out, "  %s\n", color.New(color.Faint).Sprint(lastLine(transcript)))
			}
			changed := s.State != lastSess.State || s.AgentSpeaking != lastSess.AgentSpeaking
			lastSess = s
			if !changed {
				return
			}
			printLine()
			if s.Message != "" {
				color.New(color.FgRed).Fprintf(a.out, "  %s\n", s.Message)
			}
		},
	}

	startCtx, cancel := withTimeout(ctx)
	defer cancel()
	lc, err := a.service.StartLiveCall(startCtx, req, wstransport.Factory(a.cfg.Session, logger.Log), opts)
	if lc == nil {
		return err
	}
	defer lc.Close()

	heading(a.out, fmt.Sprintf("Test call %s (load %s)", lc.ID(), lc.Conversation().LoadNumber))
	if err != nil {
		printError(os.Stderr, err)
	} else {
		fmt.Fprintln(a.out, "  Press Ctrl-C to hang up.")
	}

	if waitErr := lc.Wait(ctx); waitErr != nil {
		// Interrupted: hang up and give the backend time to close the conversation.
		fmt.Fprintln(a.out)
		if err := lc.End(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Debug("Nothing to hang up")
		}
		finalCtx, cancelFinal := context.WithTimeout(context.WithoutCancel(ctx), finalStatusWait)
		defer cancelFinal()
		if err := lc.Wait(finalCtx); err != nil {
			color.Yellow("  Conversation still %s; check it later with: conversations show %s\n", lc.Conversation().Status.Label(), lc.ID())
			return nil
		}
	}

	showCtx, cancelShow := withTimeout(context.WithoutCancel(ctx))
	defer cancelShow()
	return a.showConversation(showCtx, lc.ID())
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
