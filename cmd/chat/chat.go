package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/davidbz/ember/internal/chat"
	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
	"github.com/davidbz/ember/internal/preferences"
)

const (
	backendFile   = "file"
	backendRedis  = "redis"
	backendMemory = "memory"

	userPrompt      = "you> "
	assistantPrompt = "assistant> "
)

type chatCommander struct {
	relayURL     string
	model        string
	apiKey       string
	prefsBackend string
	prefsFile    string
	redisAddr    string
	debug        bool

	in  io.Reader
	out io.Writer
}

const chatLongDesc = `Start an interactive chat session through the ember relay.

Messages are sent to the relay, which budgets the conversation history and
streams the Cerebras reply back. Throughput statistics are shown after
every answer.

In-session commands:
  /model <name>   switch model (saved to preferences)
  /models         list known models
  /key <key>      save a Cerebras API key
  /exit           quit

Examples:
  ember-chat --api-key csk-... --model llama-3.1-8b
  ember-chat --relay-url http://localhost:8080 --prefs-backend redis`

func newChatCmd() *cobra.Command {
	cmder := &chatCommander{in: os.Stdin, out: os.Stdout}

	cmd := &cobra.Command{
		Use:           "ember-chat",
		Short:         "Interactive chat through the ember relay",
		Long:          chatLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&cmder.relayURL, "relay-url", "r", "http://localhost:8080", "Relay base URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model to use (saved to preferences)")
	cmd.Flags().StringVarP(&cmder.apiKey, "api-key", "k", "", "Cerebras API key (saved to preferences)")
	cmd.Flags().StringVar(&cmder.prefsBackend, "prefs-backend", backendFile, "Preferences backend: file, redis or memory")
	cmd.Flags().StringVar(&cmder.prefsFile, "prefs-file", "", "Preferences file (default: user config dir)")
	cmd.Flags().StringVar(&cmder.redisAddr, "redis-addr", "localhost:6379", "Redis address for the redis backend")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	logCfg := &observability.LogConfig{Level: "warn", Development: c.debug}
	if c.debug {
		logCfg.Level = "debug"
	}
	logger, err := observability.InitLogger(logCfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := c.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	prefs := preferences.New(store, domain.DefaultModel)
	if err := c.applyFlags(ctx, prefs); err != nil {
		return err
	}

	model, err := prefs.Model(ctx)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}

	client := chat.NewClient(c.relayURL, prefs, chat.NewTranscript())

	fmt.Fprintf(c.out, "\n  Model: %s\n", model)
	fmt.Fprintf(c.out, "  Type your message and press Enter. /exit or Ctrl+D to quit.\n\n")

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}
		if strings.HasPrefix(input, "/") {
			c.command(ctx, prefs, input)
			continue
		}

		c.send(ctx, client, line)

		if ctx.Err() != nil {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) send(ctx context.Context, client *chat.Client, input string) {
	fmt.Fprint(c.out, assistantPrompt)

	printer := &deltaPrinter{out: c.out}
	turn, err := client.Send(ctx, input, printer.update)
	fmt.Fprintln(c.out)

	entries := client.Transcript().Entries()
	if len(entries) > 0 && entries[len(entries)-1].IsError {
		fmt.Fprintf(c.out, "  ! %s\n\n", entries[len(entries)-1].Content)
		return
	}
	if err != nil || turn == nil {
		fmt.Fprintf(c.out, "  ! %s\n\n", chat.MsgGeneric)
		return
	}

	fmt.Fprintf(c.out, "  %s\n\n", formatStats(turn.Stats()))
}

func (c *chatCommander) command(ctx context.Context, prefs *preferences.Preferences, input string) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/models":
		for _, m := range domain.KnownModels() {
			fmt.Fprintf(c.out, "  %s\n", m)
		}
	case "/model":
		if arg == "" {
			current, err := prefs.Model(ctx)
			if err != nil {
				fmt.Fprintf(c.out, "  ! %v\n", err)
				return
			}
			fmt.Fprintf(c.out, "  %s\n", current)
			return
		}
		if err := prefs.SetModel(ctx, arg); err != nil {
			fmt.Fprintf(c.out, "  ! %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "  model set to %s\n", arg)
	case "/key":
		if arg == "" {
			fmt.Fprintln(c.out, "  usage: /key <cerebras api key>")
			return
		}
		if err := prefs.SetCredential(ctx, arg); err != nil {
			fmt.Fprintf(c.out, "  ! %v\n", err)
			return
		}
		fmt.Fprintln(c.out, "  API key saved")
	default:
		fmt.Fprintf(c.out, "  unknown command %s\n", name)
	}
}

func (c *chatCommander) applyFlags(ctx context.Context, prefs *preferences.Preferences) error {
	if c.apiKey != "" {
		if err := prefs.SetCredential(ctx, c.apiKey); err != nil {
			return fmt.Errorf("saving API key: %w", err)
		}
	}
	if c.model != "" {
		if err := prefs.SetModel(ctx, c.model); err != nil {
			return fmt.Errorf("saving model: %w", err)
		}
	}
	return nil
}

func (c *chatCommander) openStore() (preferences.Store, func(), error) {
	noop := func() {}

	switch c.prefsBackend {
	case backendMemory:
		return preferences.NewMemoryStore(), noop, nil
	case backendRedis:
		client := redis.NewClient(&redis.Options{Addr: c.redisAddr})
		store, err := preferences.NewRedisStore(client, preferences.DefaultRedisPrefix)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return store, func() { _ = client.Close() }, nil
	case backendFile:
		path := c.prefsFile
		if path == "" {
			var err error
			path, err = preferences.DefaultFilePath()
			if err != nil {
				return nil, noop, err
			}
		}
		store, err := preferences.NewFileStore(path)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	default:
		return nil, noop, errors.New("unknown preferences backend: " + c.prefsBackend)
	}
}

// deltaPrinter prints only the text an entry update adds.
type deltaPrinter struct {
	out     io.Writer
	printed int
}

func (p *deltaPrinter) update(entry chat.Entry) {
	if len(entry.Content) <= p.printed {
		return
	}
	fmt.Fprint(p.out, entry.Content[p.printed:])
	p.printed = len(entry.Content)
}

func formatStats(stats chat.Stats) string {
	return fmt.Sprintf("[%d tokens, %.1fs, %.1f tokens/s]", stats.Tokens, stats.ElapsedSeconds, stats.TokensPerSecond)
}
