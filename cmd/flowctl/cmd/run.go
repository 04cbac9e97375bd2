package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowmaestro/flowmaestro-go/flow"
	"github.com/flowmaestro/flowmaestro-go/flow/emit"
	"github.com/flowmaestro/flowmaestro-go/flow/handlers"
	"github.com/flowmaestro/flowmaestro-go/flow/model"
	"github.com/flowmaestro/flowmaestro-go/flow/model/anthropic"
	"github.com/flowmaestro/flowmaestro-go/flow/model/google"
	"github.com/flowmaestro/flowmaestro-go/flow/model/openai"
	"github.com/flowmaestro/flowmaestro-go/flow/store"
)

var (
	runInputsFile  string
	runExecutionID string
	runStore       string
	runSQLitePath  string
	runMySQLDSN    string
	runEvents      string
	runProvider    string
	runModel       string
	runMaxSteps    int
	runMaxParallel int
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.json>",
	Short: "Execute a workflow definition",
	Long: `Execute a workflow definition against the built-in node handlers.

Workflow inputs are read from the --inputs JSON file. Final outputs are
written to stdout as JSON; execution events and logs go to stderr.

LLM-backed nodes (llm, router) need a provider selected with --provider and
an API key in the matching environment variable (FLOWMAESTRO_OPENAI_API_KEY,
FLOWMAESTRO_ANTHROPIC_API_KEY or FLOWMAESTRO_GOOGLE_API_KEY).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read workflow file: %w", err)
		}
		def, err := flow.ParseDefinition(data)
		if err != nil {
			return err
		}
		g, err := def.BuildGraph()
		if err != nil {
			return err
		}

		inputs, err := loadInputs(runInputsFile)
		if err != nil {
			return err
		}

		chat, closeChat, err := buildChatModel(cmd)
		if err != nil {
			return err
		}
		if closeChat != nil {
			defer closeChat()
		}

		registry := flow.NewRegistry()
		if err := handlers.RegisterBuiltins(registry, chat); err != nil {
			return err
		}

		opts, closeStore, err := engineOptions()
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}

		engine := flow.NewEngine(registry, opts...)

		logger.Infow("starting workflow", "name", def.Name, "nodes", len(g.NodeIDs()))
		result, runErr := engine.Run(cmd.Context(), runExecutionID, g, inputs)
		if runErr != nil {
			logger.Errorw("workflow failed", "execution_id", result.ExecutionID, "error", runErr)
		} else {
			logger.Infow("workflow completed", "execution_id", result.ExecutionID, "steps", result.Steps)
		}

		out, err := json.MarshalIndent(result.Outputs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runInputsFile, "inputs", "i", "", "JSON file with workflow inputs")
	runCmd.Flags().StringVar(&runExecutionID, "execution-id", "", "execution ID (random when empty)")
	runCmd.Flags().StringVar(&runStore, "store", "", "run persistence: memory, sqlite or mysql")
	runCmd.Flags().StringVar(&runSQLitePath, "sqlite-path", "flowmaestro.db", "SQLite database path (with --store sqlite)")
	runCmd.Flags().StringVar(&runMySQLDSN, "mysql-dsn", "", "MySQL DSN (with --store mysql)")
	runCmd.Flags().StringVar(&runEvents, "events", "text", "event stream: text, json or none")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider: openai, anthropic or google")
	runCmd.Flags().StringVar(&runModel, "model", "", "LLM model name (provider default when empty)")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", flow.DefaultMaxSteps, "scheduling round limit")
	runCmd.Flags().IntVar(&runMaxParallel, "max-concurrent", flow.DefaultMaxConcurrent, "max nodes dispatched per round")

	_ = viper.BindPFlag("mysql-dsn", runCmd.Flags().Lookup("mysql-dsn"))
}

func loadInputs(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs file: %w", err)
	}
	var inputs map[string]any
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse inputs file: %w", err)
	}
	return inputs, nil
}

// buildChatModel constructs the configured LLM provider. The returned close
// function is non-nil when the provider holds a connection.
func buildChatModel(cmd *cobra.Command) (model.ChatModel, func(), error) {
	switch runProvider {
	case "":
		return nil, nil, nil
	case "openai":
		m, err := openai.NewChatModel(viper.GetString("openai-api-key"), runModel)
		return m, nil, err
	case "anthropic":
		m, err := anthropic.NewChatModel(viper.GetString("anthropic-api-key"), runModel)
		return m, nil, err
	case "google":
		m, err := google.NewChatModel(cmd.Context(), viper.GetString("google-api-key"), runModel)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider: %s", runProvider)
	}
}

func engineOptions() ([]flow.Option, func(), error) {
	opts := []flow.Option{
		flow.WithMaxSteps(runMaxSteps),
		flow.WithMaxConcurrent(runMaxParallel),
	}

	switch runEvents {
	case "none":
		opts = append(opts, flow.WithEmitter(emit.NewNullEmitter()))
	case "json":
		opts = append(opts, flow.WithEmitter(emit.NewLogEmitter(os.Stderr, true)))
	case "text", "":
		opts = append(opts, flow.WithEmitter(emit.NewLogEmitter(os.Stderr, false)))
	default:
		return nil, nil, fmt.Errorf("unknown event stream format: %s", runEvents)
	}

	var closer io.Closer
	switch runStore {
	case "":
	case "memory":
		opts = append(opts, flow.WithStore(store.NewMemStore()))
	case "sqlite":
		s, err := store.NewSQLiteStore(runSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, flow.WithStore(s))
		closer = s
	case "mysql":
		dsn := viper.GetString("mysql-dsn")
		if dsn == "" {
			return nil, nil, fmt.Errorf("mysql store needs --mysql-dsn or FLOWMAESTRO_MYSQL_DSN")
		}
		s, err := store.NewMySQLStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, flow.WithStore(s))
		closer = s
	default:
		return nil, nil, fmt.Errorf("unknown store: %s", runStore)
	}

	var closeFn func()
	if closer != nil {
		closeFn = func() { _ = closer.Close() }
	}
	return opts, closeFn, nil
}
