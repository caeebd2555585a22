package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"testlab/internal/app"
	"testlab/internal/config"
	"testlab/internal/db"
	"testlab/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "testlab regression workflow CLI",
	Long: `testlab keeps a library of regression test scripts and tracks their execution.
- Folders: a two-level tree; root folders hold subfolders, subfolders hold scripts.
- Scripts: the catalog of test cases (id, environment, type, steps, expected results).
- Projects: owned by one user; scripts are imported into them as independent snapshots.
- Lab: execute imported scripts; pending -> in-progress (save) -> completed (complete).
- Issues: numbered per project, linked to any number of imported scripts; open -> fixed -> reopened.
State lives in the workspace's .testlab directory; settings in testlab.yml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	// values in the workspace .env do not override the real environment
	if err := godotenv.Load(filepath.Join(viper.GetString("workspace"), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	viper.SetEnvPrefix("TESTLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("user", "u", "", "acting user id (defaults to user.id from testlab.yml)")
	rootCmd.PersistentFlags().StringP("project", "p", "", "project id (defaults to the user's only project)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging to stderr")
	for _, name := range []string{"workspace", "json", "user", "project", "verbose"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(folderCmd())
	rootCmd.AddCommand(scriptCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(labCmd())
	rootCmd.AddCommand(issueCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	var driver string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create testlab.yml and the workspace store",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			cfg := config.Default()
			if driver != "" {
				cfg.Storage.Driver = driver
			}
			if user := viper.GetString("user"); user != "" {
				cfg.User.ID = user
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Write(workspace, cfg, force); err != nil {
				return err
			}
			svc, err := app.Open(cmd.Context(), workspace, cfg, nil)
			if err != nil {
				return err
			}
			defer svc.Close()
			fmt.Printf("Initialized %s (storage: %s)\n", config.Path(workspace), cfg.Storage.Driver)
			v, ok, err := svc.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("Schema version %d\n", v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "storage driver (sqlite, json, memory)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing testlab.yml")
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Activity log"}
	lg.AddCommand(logTailCmd())
	return lg
}

// --- helpers ---

type session struct {
	Svc    *app.Service
	Config *config.Config
	UserID string
}

func withService(ctx context.Context, fn func(context.Context, session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if viper.GetBool("verbose") {
		opts.Level = "debug"
	}
	log, err := logging.New(opts)
	if err != nil {
		return err
	}
	defer log.Sync()
	svc, err := app.Open(ctx, workspace, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()
	userID := viper.GetString("user")
	if userID == "" {
		userID = cfg.User.ID
	}
	log.Debug("session", zap.String("workspace", workspace), zap.String("user_id", userID))
	return fn(ctx, session{Svc: svc, Config: cfg, UserID: userID})
}

// withProject is withService plus resolution of the active project.
func withProject(ctx context.Context, fn func(context.Context, session, string) error) error {
	return withService(ctx, func(ctx context.Context, s session) error {
		projectID, err := s.Svc.ResolveProject(ctx, viper.GetString("project"), s.UserID)
		if err != nil {
			return err
		}
		return fn(ctx, s, projectID)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setEnvValue sets key in the dotenv file at path, keeping other entries.
func setEnvValue(path, key, value string) error {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return err
	}
	env[key] = value
	return godotenv.Write(env, path)
}
