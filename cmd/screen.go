package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spigell/hr-copilot/internal/agents"
	"github.com/spigell/hr-copilot/internal/ingest"
	"github.com/spigell/hr-copilot/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run a one-shot resume screening against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		screen(cmd)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().String("job", "", "job description file (.txt, .md, .pdf or .docx)")
	screenCmd.Flags().String("resume", "", "resume file (.txt, .md, .pdf or .docx)")
	screenCmd.MarkFlagRequired("job")
	screenCmd.MarkFlagRequired("resume")
}

func screen(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	jobDescription, err := ingest.Load(cmd.Flag("job").Value.String())
	if err != nil {
		logger.Fatal("loading job description", zap.Error(err))
	}

	resumeText, err := ingest.Load(cmd.Flag("resume").Value.String())
	if err != nil {
		logger.Fatal("loading resume", zap.Error(err))
	}

	gateway, err := newGateway(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the model gateway", zap.Error(err))
	}

	recordStore, closeStore, err := newStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("building the record store", zap.Error(err))
	}
	defer closeStore()

	screener := agents.NewScreener(gateway, recordStore, logger)
	defer screener.Wait()

	result, err := screener.Screen(ctx, resolveIdentity(config.User), jobDescription, resumeText)
	if err != nil {
		var screeningErr *agents.ScreeningError
		if errors.As(err, &screeningErr) {
			logger.Fatal("analysis failed, please try the screening again", zap.Error(err))
		}
		logger.Fatal("screening failed", zap.Error(err))
	}

	printScreeningResult(result)
	fmt.Println("Screening recorded.")
}
