package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragchat/internal/config"
	"ragchat/internal/conversation"
	"ragchat/internal/document"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/generation"
	"ragchat/internal/index"
	"ragchat/internal/retrieval"
	"ragchat/internal/session"
	"ragchat/internal/tracing"
	"ragchat/internal/tui"
	"ragchat/internal/vectorstore"
)

type options struct {
	configPath  string
	doc         string
	indexDir    string
	logLevel    string
	provider    string
	apiKey      string
	rebuild     bool
	useTUI      bool
	topK        int
	history     int
	showSources bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+domain.Describe(err))
		if errors.Is(err, domain.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "ragchat --doc FILE",
		Short: "Ask questions about a text document, with conversation memory",
		Long: `ragchat indexes a .txt or .md document and answers questions about it
with a remote LLM, feeding the recent conversation back into every retrieval.

Examples:
  ragchat --doc notes.md                        # chat using OpenAI
  ragchat --doc notes.md --provider claude      # chat using Claude
  ragchat --doc notes.md --rebuild --tui        # rebuild the index, full-screen UI
  ragchat index --doc notes.md                  # only (re)build the index`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, &opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.doc, "doc", "d", "", "document to index (.txt or .md)")
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default ./config.yaml or ~/.config/ragchat/config.yaml)")
	pf.StringVar(&opts.indexDir, "index-dir", "", "directory holding the persisted index")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	f := cmd.Flags()
	f.StringVarP(&opts.provider, "provider", "p", "", "LLM provider: claude, gemini, openai, openrouter")
	f.StringVar(&opts.apiKey, "api-key", "", "LLM API key (default from the provider's environment variable)")
	f.BoolVar(&opts.rebuild, "rebuild", false, "discard the persisted index and rebuild it")
	f.BoolVar(&opts.useTUI, "tui", false, "use the full-screen terminal UI")
	f.IntVarP(&opts.topK, "top-k", "k", 0, "chunks retrieved per question")
	f.IntVar(&opts.history, "history", 0, "conversation turns kept as context")
	f.BoolVar(&opts.showSources, "sources", false, "print the retrieved chunks under each answer")

	cmd.AddCommand(indexCmd(&opts))
	return cmd
}

func indexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build or rebuild the persisted index without starting a chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging.Level, os.Stderr)
			ctx := cmd.Context()
			shutdown, err := tracing.Setup(ctx, tracingConfig(cfg))
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
			}
			defer flushTraces(shutdown)

			doc, err := document.Load(cfg.Document)
			if err != nil {
				return err
			}
			mgr, _, store, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := mgr.Rebuild(ctx, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s: %d chunks (%s, %s, dim %d) in %s\n",
				doc.Path, st.Chunks, st.Manifest.Chunker, st.Manifest.Embedder, st.Manifest.Dimension, cfg.Index.Dir)
			return nil
		},
	}
}

func runChat(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logOut := io.Writer(os.Stderr)
	if opts.useTUI {
		// stderr would draw over the full-screen UI
		if err := os.MkdirAll(cfg.Index.Dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Index.Dir, "ragchat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	setupLogging(cfg.Logging.Level, logOut)

	ctx := cmd.Context()
	shutdown, err := tracing.Setup(ctx, tracingConfig(cfg))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	defer flushTraces(shutdown)

	doc, err := document.Load(cfg.Document)
	if err != nil {
		return err
	}
	client, err := buildLLM(cfg, opts.apiKey)
	if err != nil {
		return err
	}

	mgr, emb, store, err := buildIndex(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var st index.Status
	if opts.rebuild {
		st, err = mgr.Rebuild(ctx, doc)
	} else {
		st, err = mgr.Open(ctx, doc)
	}
	if err != nil {
		return err
	}
	if st.Stale {
		fmt.Fprintf(os.Stderr, "Warning: the index in %s is out of date (%s). Run with --rebuild to refresh it.\n",
			cfg.Index.Dir, strings.Join(st.StaleReasons, "; "))
	}

	summary, err := summarize(cfg, doc)
	if err != nil {
		return err
	}

	// The index was built with the raw embedder; queries go through the cache.
	queryEmbedder, err := embedding.NewCached(emb, cfg.Embedder.CacheSize)
	if err != nil {
		return fmt.Errorf("%w: embedding cache: %w", domain.ErrConfiguration, err)
	}

	sess := session.New(
		conversation.NewTracker(cfg.Conversation.MaxTurns),
		retrieval.New(queryEmbedder, store, cfg.Retrieval.TopK),
		generation.New(client, time.Duration(cfg.Provider.TimeoutSecs)*time.Second),
		session.Options{ShowSources: cfg.Retrieval.ShowSources},
	)
	slog.Info("session ready", "id", sess.ID(), "provider", client.Name(), "model", client.Model(), "chunks", st.Chunks)

	if opts.useTUI {
		_, err := tea.NewProgram(tui.New(ctx, sess, summary), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}

	out := cmd.OutOrStdout()
	if summary != "" {
		fmt.Fprintf(out, "Document: %s\nSummary: %s\n\n", doc.Path, summary)
	}
	return sess.Run(ctx, cmd.InOrStdin(), out)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *options) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if opts.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load config: %w", domain.ErrConfiguration, err)
	}

	flags := cmd.Flags()
	if opts.doc != "" {
		cfg.Document = opts.doc
	}
	if opts.indexDir != "" {
		cfg.Index.Dir = opts.indexDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("provider") {
		if opts.provider != cfg.Provider.Name {
			// model and endpoint in the file belong to the old provider
			cfg.Provider.Model = ""
			cfg.Provider.BaseURL = ""
			cfg.Provider.APIKeyEnv = ""
		}
		cfg.Provider.Name = opts.provider
	}
	if flags.Changed("top-k") {
		cfg.Retrieval.TopK = opts.topK
	}
	if flags.Changed("history") {
		cfg.Conversation.MaxTurns = opts.history
	}
	if flags.Changed("sources") {
		cfg.Retrieval.ShowSources = opts.showSources
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildIndex(cfg *config.AppConfig) (*index.Manager, domain.Embedder, vectorstore.Storage, error) {
	ch, err := buildChunker(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return index.NewManager(cfg.Index.Dir, ch, emb, store), emb, store, nil
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}

func tracingConfig(cfg *config.AppConfig) tracing.Config {
	return tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Protocol:    cfg.Tracing.Protocol,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	}
}

func flushTraces(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Warn("trace flush failed", "error", err)
	}
}
