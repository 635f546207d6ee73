package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/asyncdoc/internal/asyncapi"
	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/internal/feed"
	"github.com/yourorg/asyncdoc/internal/generator"
	"github.com/yourorg/asyncdoc/internal/ingest"
	"github.com/yourorg/asyncdoc/internal/schema"
	"github.com/yourorg/asyncdoc/internal/server"
	"github.com/yourorg/asyncdoc/internal/store"
	"github.com/yourorg/asyncdoc/pkg/types"
)

const defaultConfigContent = `mqtt:
  broker_url: "tcp://127.0.0.1:1883"
  client_id: "asyncdoc"
  username: ""
  password: ""
  topics:
    - "#"
  qos: 0

generator:
  channel_mode: verbose
  dialect: a
  include_examples: true
  collision_policy: merge
  min_param_variants: 2

substitutions: []

info:
  title: "Sampled API"
  version: "0.1.0"
  description: ""

servers: []

filter:
  ignore_topics: []
  ignore_prefixes:
    - "$SYS/"

sanitize:
  fields:
    - password
    - secret
    - token
    - api_key
    - access_token
    - credential
  replacement: "***REDACTED***"

output:
  dir: "./output"
  formats:
    - yaml
    - json

server:
  host: "127.0.0.1"
  port: 3000

log:
  level: "info"
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "asyncdoc",
		Short: "Generate AsyncAPI documents from sampled pub/sub traffic",
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	root.AddCommand(newInitCmd())
	root.AddCommand(newImportCmd(&cfgPath))
	root.AddCommand(newGenerateCmd(&cfgPath))
	root.AddCommand(newListenCmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newDeleteCmd())

	return root
}

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".asyncdoc"), nil
}

func openStore() (store.Store, error) {
	dir, err := baseDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(filepath.Join(dir, "asyncdoc.db"))
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.asyncdoc directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := baseDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			cfgFile := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			dbPath := filepath.Join(dir, "asyncdoc.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", dbPath)
			return nil
		},
	}
}

func newImportCmd(cfgPath *string) *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a sample file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(*cfgPath); err != nil {
				return err
			}
			records, err := ingest.ParseFile(filePath)
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sess, err := st.CreateSession("file", filePath)
			if err != nil {
				return err
			}
			msgs, err := store.FromRecords(records, 1)
			if err != nil {
				return err
			}
			if err := st.SaveMessages(sess.ID, msgs); err != nil {
				return err
			}
			if err := st.UpdateSessionStatus(sess.ID, "captured"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records into %s\n", len(records), sess.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "sample file path (JSON array or NDJSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newGenerateCmd(cfgPath *string) *cobra.Command {
	var filePath, sessionID, mergePath string
	var detectParams bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an AsyncAPI document from a session or sample file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateGenerate(); err != nil {
				return err
			}
			if (filePath == "") == (sessionID == "") {
				return errors.New("exactly one of --file or --session is required")
			}
			logger := newLogger(cfg.Log.Level)

			var records []types.Record
			var st store.Store
			if filePath != "" {
				if records, err = ingest.ParseFile(filePath); err != nil {
					return err
				}
			} else {
				if st, err = openStore(); err != nil {
					return err
				}
				defer st.Close()
				msgs, err := st.GetMessages(sessionID)
				if err != nil {
					return err
				}
				if len(msgs) == 0 {
					return fmt.Errorf("session %s has no messages", sessionID)
				}
				if records, err = store.ToRecords(msgs); err != nil {
					return err
				}
			}

			if detectParams {
				rules := generator.DetectRules(records, cfg.Generator.MinParamVariants)
				cfg.Substitutions = append(cfg.Substitutions, rules...)
				cfg.Generator.ChannelMode = "parameterized"
				for _, r := range rules {
					logger.Info().Int("level", r.LevelIndex).Str("parameter", r.Parameter).Msg("detected parameter")
				}
			}

			result, err := generator.Build(records, cfg)
			if err != nil {
				return err
			}
			for _, w := range result.Warnings {
				logger.Warn().Msg(w)
			}

			doc := result.Document
			if mergePath != "" {
				if doc, err = mergeExisting(mergePath, doc, cfg.Generator.Dialect); err != nil {
					return err
				}
			}

			if err := generator.Render(doc, cfg.Output.Dir, cfg.Output.Formats); err != nil {
				return err
			}
			if st != nil {
				if err := st.UpdateSessionStatus(sessionID, "generated"); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d channels, %d schemas to %s\n",
				len(result.Channels), len(result.Schemas), cfg.Output.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "sample file path (JSON array or NDJSON)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().StringVar(&mergePath, "merge", "", "existing document to merge the result into")
	cmd.Flags().BoolVar(&detectParams, "detect-params", false, "detect topic parameters and parameterize channels")
	return cmd
}

// mergeExisting folds the freshly built document into one loaded from
// disk. The existing document wins on conflicts.
func mergeExisting(path string, doc any, dialect string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var existing any
	switch schema.Dialect(dialect) {
	case schema.DialectB:
		existing = &asyncapi.DocumentV3{}
	default:
		existing = &asyncapi.DocumentV2{}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, existing)
	default:
		err = json.Unmarshal(data, existing)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	merged, err := asyncapi.Merge(existing, doc)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", path, err)
	}
	return merged, nil
}

func newListenCmd(cfgPath *string) *cobra.Command {
	var duration time.Duration
	var maxMessages int
	var generate bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Capture live broker traffic into a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateListen(); err != nil {
				return err
			}
			logger := newLogger(cfg.Log.Level)

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			sess, err := st.CreateSession("live", cfg.MQTT.BrokerURL)
			if err != nil {
				return err
			}
			logger.Info().Str("session", sess.ID).Msg("capture started")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if duration > 0 {
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			var mu sync.Mutex
			var captured []types.Record
			handler := feed.Handler{
				OnMessage: func(rec types.Record) {
					mu.Lock()
					captured = append(captured, rec)
					n := len(captured)
					mu.Unlock()
					if maxMessages > 0 && n >= maxMessages {
						cancel()
					}
				},
				OnDisconnected: func(err error) {
					logger.Warn().Err(err).Msg("broker connection lost")
				},
			}

			listener := feed.NewMQTT(cfg.MQTT, handler, logger)
			if err := listener.Start(ctx); err != nil {
				return err
			}
			defer listener.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			select {
			case <-ctx.Done():
			case <-sigCh:
			}
			listener.Stop()

			mu.Lock()
			records := captured
			mu.Unlock()
			if len(records) == 0 {
				logger.Warn().Msg("no messages captured")
				return st.UpdateSessionStatus(sess.ID, "empty")
			}
			msgs, err := store.FromRecords(records, 1)
			if err != nil {
				return err
			}
			if err := st.SaveMessages(sess.ID, msgs); err != nil {
				return err
			}
			if err := st.UpdateSessionStatus(sess.ID, "captured"); err != nil {
				return err
			}
			logger.Info().Str("session", sess.ID).Int("messages", len(records)).Msg("capture finished")

			if generate {
				if err := cfg.ValidateGenerate(); err != nil {
					return err
				}
				result, err := generator.Build(records, cfg)
				if err != nil {
					return err
				}
				if err := generator.Render(result.Document, cfg.Output.Dir, cfg.Output.Formats); err != nil {
					return err
				}
				if err := st.UpdateSessionStatus(sess.ID, "generated"); err != nil {
					return err
				}
				logger.Info().Str("dir", cfg.Output.Dir).Msg("document written")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "capture duration (0 runs until interrupted)")
	cmd.Flags().IntVar(&maxMessages, "max-messages", 0, "stop after this many messages (0 is unlimited)")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate the document when capture ends")
	return cmd
}

func newServeCmd(cfgPath *string) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preview UI and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg.Log.Level)

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			srv, err := server.New(cfg, st, logger)
			if err != nil {
				return err
			}
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVar(&port, "port", 3000, "server port")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			sessions, err := st.ListSessions()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d msgs\t%s\n",
					s.ID, s.Source, s.Status, s.MessageCount, s.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show session details",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			sess, err := st.GetSession(sessionID)
			if err != nil {
				return fmt.Errorf("session %s not found", sessionID)
			}
			msgs, err := st.GetMessages(sessionID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %s\n", sess.ID)
			fmt.Fprintf(out, "source:   %s (%s)\n", sess.Source, sess.Origin)
			fmt.Fprintf(out, "status:   %s\n", sess.Status)
			fmt.Fprintf(out, "messages: %d\n", sess.MessageCount)
			fmt.Fprintf(out, "created:  %s\n", sess.CreatedAt.Format(time.RFC3339))

			byTopic := map[string]int{}
			for _, m := range msgs {
				byTopic[m.Topic]++
			}
			fmt.Fprintf(out, "topics:   %d\n", len(byTopic))
			for t, n := range byTopic {
				fmt.Fprintf(out, "  %s (%d)\n", t, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a session and its messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if _, err := st.GetSession(sessionID); err != nil {
				return fmt.Errorf("session %s not found", sessionID)
			}
			if err := st.DeleteSession(sessionID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", sessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
