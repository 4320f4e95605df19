package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glass-notify/src/config"
	"glass-notify/src/llm"
	"glass-notify/src/runtimeinit"
	"glass-notify/src/typewriter"
)

type cliOptions struct {
	text       string
	jsonOutput bool
	reveal     bool
	verbose    bool
	apiKeyPath string
}

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// ExplainResult is the --json output.
type ExplainResult struct {
	Text        string  `json:"text"`
	Explanation string  `json:"explanation,omitempty"`
	Error       string  `json:"error,omitempty"`
	ErrorKind   string  `json:"error_kind,omitempty"`
	Model       string  `json:"model"`
	Timestamp   string  `json:"timestamp"`
	Duration    float64 `json:"duration_seconds"`
	WordCount   int     `json:"word_count"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
}

func runWithArgs(args []string, s streams) error {
	if len(args) == 0 {
		args = []string{"glass-explain"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, s)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "glass-explain",
		Short:         "Explain text with the notification's language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, s)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "Text to explain (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.reveal, "reveal", false, "Replay the typewriter reveal on stderr")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, s streams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	text, err := readText(opts.text, s.in)
	if err != nil {
		return err
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath},
		Verbose:     opts.verbose,
	})
	if err != nil {
		return err
	}
	defer rt.Flush()

	if opts.verbose {
		fmt.Fprintf(s.err, "[verbose] Config loaded: Model=%s Endpoint=%s\n", rt.Config.Model, rt.Config.Endpoint)
		fmt.Fprintf(s.err, "[verbose] Effective API key path: %s\n", rt.Config.APIKeyPath)
	}

	start := time.Now()
	explanation, fetchErr := rt.Client.Fetch(ctx, text, rt.Credential.Get())
	elapsed := time.Since(start)

	if opts.verbose {
		fmt.Fprintf(s.err, "[verbose] Request finished in %s\n", elapsed.Round(time.Millisecond))
	}

	if fetchErr == nil && opts.reveal {
		replay(explanation, rt.Config.TypewriterTick, s.err)
	}
	return outputResult(text, explanation, fetchErr, rt.Config.Model, elapsed, opts.jsonOutput, s.out)
}

func readText(arg string, stdin io.Reader) (string, error) {
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
		return "", errors.New("no text to explain")
	}
	return text, nil
}

// replay redraws each reveal frame on one terminal line.
func replay(text string, tick time.Duration, w io.Writer) {
	for frame := range typewriter.Frames(text) {
		fmt.Fprintf(w, "\r\033[K%s", frame)
		if tick > 0 {
			time.Sleep(tick)
		}
	}
	fmt.Fprintln(w)
}

func outputResult(text, explanation string, fetchErr error, model string, elapsed time.Duration, jsonOutput bool, w io.Writer) error {
	if jsonOutput {
		result := ExplainResult{
			Text:        text,
			Explanation: explanation,
			Model:       model,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Duration:    elapsed.Seconds(),
			WordCount:   len(strings.Fields(explanation)),
		}
		if fetchErr != nil {
			result.Error = fetchErr.Error()
			var f *llm.Failure
			if errors.As(fetchErr, &f) {
				result.ErrorKind = f.Kind.String()
			}
		}

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return fetchErr
	}

	if fetchErr != nil {
		return fetchErr
	}
	fmt.Fprintln(w, explanation)
	return nil
}

var legacyFlags = []string{"text", "json", "reveal", "verbose", "api-key-path"}

// normalizeLegacyArgs rewrites Go-flag style single-dash long flags for cobra.
func normalizeLegacyArgs(args []string) []string {
	if len(args) < 2 {
		return args
	}

	normalized := append([]string(nil), args...)
	for i, arg := range normalized[1:] {
		name, _, _ := strings.Cut(strings.TrimPrefix(arg, "-"), "=")
		if strings.HasPrefix(arg, "--") || !strings.HasPrefix(arg, "-") {
			continue
		}
		if slices.Contains(legacyFlags, name) {
			normalized[i+1] = "-" + arg
		}
	}
	return normalized
}
