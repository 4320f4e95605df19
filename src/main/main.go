package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"glass-notify/src/clipboard"
	"glass-notify/src/config"
	"glass-notify/src/credential"
	"glass-notify/src/eventloop"
	"glass-notify/src/gui"
	"glass-notify/src/hotkey"
	"glass-notify/src/logutil"
	"glass-notify/src/notification"
	"glass-notify/src/popup"
	"glass-notify/src/runtimeinit"
	"glass-notify/src/selection"
	"glass-notify/src/singleinstance"
	"glass-notify/src/tray"
	"glass-notify/src/worker"
)

const (
	appID         = "io.github.glass-notify"
	enrichWorkers = 2
	delegateWait  = 3 * time.Second
	copyWait      = 2 * time.Second
)

type mainOptions struct {
	notify     string
	dismiss    bool
	setAPIKey  string
	apiKeyPath string
	verbose    bool
}

// delegator is the part of singleinstance.Client used by the short-lived modes.
type delegator interface {
	TrySend(ctx context.Context, req singleinstance.Request) (bool, error)
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{config.AppName}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Show selected text in a glass notification with an AI explanation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.notify, "notify", "", "Show TEXT in the resident notification (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.dismiss, "dismiss", false, "Dismiss the resident notification and exit")
	cmd.Flags().StringVar(&opts.setAPIKey, "set-api-key", "", "Store the API key in the credential file and exit")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.MarkFlagsMutuallyExclusive("notify", "dismiss", "set-api-key")

	return cmd
}

func runWithOptions(opts mainOptions, out io.Writer) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are applied before delegation scan.
	cfg, err := config.LoadWithOptions(config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch {
	case opts.setAPIKey != "":
		return storeAPIKey(credential.NewFileStore(cfg.CredentialFile), opts.setAPIKey, out)
	case opts.dismiss:
		delegated, err := delegate(singleinstance.NewClient(cfg.ResidentPorts()), singleinstance.Request{Command: singleinstance.Dismiss})
		if err != nil {
			return err
		}
		if !delegated {
			fmt.Fprintln(out, "no resident instance is running")
		}
		return nil
	case opts.notify != "":
		text, err := readNotifyText(opts.notify, os.Stdin)
		if err != nil {
			return err
		}
		var runErr error
		handleNotifyWithDelegation(text, singleinstance.NewClient(cfg.ResidentPorts()), func() {
			runErr = runResident(opts, text)
		})
		return runErr
	default:
		return runResident(opts, "")
	}
}

func readNotifyText(arg string, stdin io.Reader) (string, error) {
	text := arg
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("nothing to notify: text is empty")
	}
	return text, nil
}

func delegate(client delegator, req singleinstance.Request) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), delegateWait)
	defer cancel()
	return client.TrySend(ctx, req)
}

// handleNotifyWithDelegation hands text to a resident instance, or calls
// fallback to become the resident when none answers.
func handleNotifyWithDelegation(text string, client delegator, fallback func()) {
	delegated, err := delegate(client, singleinstance.Request{Command: singleinstance.Notify, Text: text})
	if err != nil {
		zap.S().Warnw("Delegation failed; starting resident", "error", err)
		fallback()
		return
	}
	if delegated {
		zap.S().Infow("Delegated to resident")
		return
	}
	zap.S().Infow("No resident detected; starting resident")
	fallback()
}

func storeAPIKey(store credential.Store, value string, out io.Writer) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("API key is empty")
	}
	if err := store.Set(value); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	fmt.Fprintln(out, "API key saved; restart the resident instance to use it")
	return nil
}

func loopOptions(cfg *config.Config) eventloop.Options {
	return eventloop.Options{
		PollInterval: cfg.PollInterval,
		Notification: notification.Config{
			GraceDelay:        cfg.GraceDelay,
			TickInterval:      cfg.TypewriterTick,
			EnrichmentEnabled: cfg.EnrichmentEnabled,
			AutoTimeout:       cfg.AutoTimeout,
			DismissOnClear:    cfg.DismissOnClear,
		},
	}
}

func runResident(opts mainOptions, initial string) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath},
		Verbose:     opts.verbose,
	})
	if err != nil {
		return err
	}
	defer rt.Flush()
	log := rt.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	detectCtx, detectCancel := context.WithTimeout(ctx, delegateWait)
	ports := rt.Config.ResidentPorts()
	port, running := singleinstance.DetectResidentPort(detectCtx, ports)
	detectCancel()
	if running {
		return fmt.Errorf("%s is already running on port %d", config.AppName, port)
	}

	srv := singleinstance.NewServer(singleinstance.WithPorts(ports), singleinstance.WithLogger(log))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("another instance already owns ports %d-%d: %w", ports.Start, ports.End, err)
	}
	defer srv.Close()

	if err := clipboard.Init(); err != nil {
		log.Warnw("Clipboard unavailable; Copy Explanation disabled", "error", err)
	}

	a := app.NewWithID(appID)
	guiOpts := gui.DefaultOptions()
	guiOpts.ShowSourceText = rt.Config.ShowSourceText
	surface := popup.NewLogged(gui.NewSurface(a, guiOpts, log), log)

	pool := worker.New(enrichWorkers, log)
	defer pool.Close()

	var menu *tray.Menu
	loop := eventloop.New(loopOptions(rt.Config), eventloop.Deps{
		Probe:      selection.NewSystemProbe(selection.NewPlatformFocus(), os.Getpid()),
		Surface:    surface,
		Fetcher:    rt.Fetcher,
		Credential: rt.Credential.Get,
		Runner:     pool,
		Log:        log,
		OnState: func(st notification.State) {
			if menu != nil {
				menu.SetStatus(st.String())
			}
		},
	})

	menu, ok := tray.Install(a, tray.Actions{
		TestNotification: loop.TestNotification,
		SetAPIKey: func() {
			gui.PromptAPIKey(a, rt.Credential.Get(), func(value string) error {
				if err := rt.Store.Set(value); err != nil {
					return err
				}
				rt.Credential.Set(value)
				log.Infow("API key updated", "key", logutil.RedactKey(value))
				return nil
			})
		},
		CopyExplanation: func() { go copyExplanation(ctx, loop, log) },
		Quit:            cancel,
	})
	if !ok {
		log.Warnw("System tray unavailable; use --dismiss and signals to control the resident")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error { return loop.ServeResident(gctx, srv) })
	g.Go(func() error {
		if err := hotkey.Listen(gctx, rt.Config.Hotkey, loop, log); err != nil {
			log.Warnw("Input monitoring unavailable; relying on selection polling", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = srv.Close()
		fyne.Do(a.Quit)
		return nil
	})

	if initial != "" {
		loop.Notify(initial)
	}
	log.Infow("Resident started", "hotkey", rt.Config.Hotkey, "port", srv.Port())

	a.Run()
	cancel()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("resident stopped: %w", err)
	}
	log.Infow("Resident stopped")
	return nil
}

func copyExplanation(ctx context.Context, loop *eventloop.Loop, log *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(ctx, copyWait)
	defer cancel()
	text, ok, err := loop.Explanation(ctx)
	if err != nil {
		log.Warnw("Copy Explanation failed", "error", err)
		return
	}
	if !ok {
		log.Infow("No explanation to copy")
		return
	}
	if err := clipboard.Write(text); err != nil {
		log.Warnw("Copy Explanation failed", "error", err)
		return
	}
	log.Infow("Explanation copied", "words", len(strings.Fields(text)))
}

var legacyFlags = []string{"notify", "dismiss", "set-api-key", "api-key-path", "verbose"}

// normalizeLegacyArgs accepts the single-dash long flags older launch scripts use.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range legacyFlags {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}
