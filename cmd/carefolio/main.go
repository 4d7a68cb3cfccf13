// Command carefolio 运行健身推荐、饮食计划与健身问答服务。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/rushteam/carefolio/config/builders"

	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/logging"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "carefolio",
	Short: "Workout and meal-plan prediction services",
	Long: `carefolio serves two tabular-model prediction services behind one HTTP API:

  POST /api/v1/workout/recommend  workout type recommendation
  POST /api/v1/mealplan/predict   nutrition targets and meal plan labels
  POST /api/v1/coach/chat         fitness Q&A over a hosted chat model

Configuration is read from defaults, then a YAML file, then CAREFOLIO_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $CAREFOLIO_CONFIG or ./carefolio.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(serveCmd, checkCmd, artifactsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
