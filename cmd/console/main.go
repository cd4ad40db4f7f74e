package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/api"
	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/cache"
	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/internal/reqctx"
	"gitlab.com/timkado/api/voice-agent-console/internal/usecase"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
)

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	service *usecase.ConsoleService
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage(os.Stdout)
		return
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// The console is interactive; only warnings and errors reach the terminal unless asked for.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	if err := logger.Initialize(level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	observer.InitMetrics(false)

	if cfg.API.APIKey == "" {
		color.Red("Error: CONSOLE_API_KEY environment variable is required\n")
		os.Exit(1)
	}

	client := api.NewClientFromConfig(cfg.API, logger.Log)
	a := &app{
		cfg:     cfg,
		service: usecase.NewConsoleServiceFromClient(client, cache.New(logger.Log)),
		out:     os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = reqctx.WithRequestID(ctx, uuid.NewString())
	ctx = logger.WithLogger(ctx, logger.Log.With(zap.String("command", cmd)))

	switch cmd {
	case "agents":
		err = a.cmdAgents(ctx, args)
	case "drivers":
		err = a.cmdDrivers(ctx, args)
	case "conversations", "convs":
		err = a.cmdConversations(ctx, args)
	case "call":
		err = a.cmdCall(ctx, args)
	case "overview", "dashboard":
		err = a.cmdOverview(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(w, "Usage: console <command> [args]")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  overview                         Counts per status and recent conversations")
	fmt.Fprintln(w, "  agents [list] [-search] [-sort]  List agents")
	fmt.Fprintln(w, "  agents show <id>                 Show one agent with its system prompt")
	fmt.Fprintln(w, "  agents create -name -prompts     Create an agent")
	fmt.Fprintln(w, "  agents update <id> [-name] ...   Update an agent")
	fmt.Fprintln(w, "  agents delete <id>               Delete an agent")
	fmt.Fprintln(w, "  agents generate-prompt -scenario Generate a system prompt")
	fmt.Fprintln(w, "  drivers [list] [-search] [-sort] List drivers")
	fmt.Fprintln(w, "  drivers show <id>                Show one driver")
	fmt.Fprintln(w, "  drivers create -name -phone      Create a driver")
	fmt.Fprintln(w, "  drivers update <id> ...          Update a driver")
	fmt.Fprintln(w, "  drivers delete <id>              Delete a driver")
	fmt.Fprintln(w, "  conversations [list] [-status]   List conversations")
	fmt.Fprintln(w, "  conversations show <id>          Transcript and structured data")
	fmt.Fprintln(w, "  conversations watch <id>         Poll a conversation until it finishes")
	fmt.Fprintln(w, "  call -agent -load (-driver | -driver-name -driver-phone)")
	fmt.Fprintln(w, "                                   Start a live test call")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CONSOLE_API_URL   Backend base URL (default: "+config.DefaultAPIBaseURL+")")
	fmt.Fprintln(w, "  CONSOLE_API_KEY   Backend API key (required)")
	fmt.Fprintln(w, "  LOG_LEVEL         Log level (default: warn)")
}

// printError renders err according to its category.
func printError(w io.Writer, err error) {
	switch apperrors.Classify(err) {
	case apperrors.CategoryValidation:
		color.New(color.FgYellow).Fprintf(w, "Invalid input: %v\n", err)
	case apperrors.CategoryAuthorization:
		color.New(color.FgRed).Fprintln(w, "Authorization failed: check CONSOLE_API_KEY")
	case apperrors.CategorySession:
		color.New(color.FgRed).Fprintf(w, "Call failed: %v\n", err)
	default:
		color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
	}
}

// withTimeout bounds one request-style command.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}
