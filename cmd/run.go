package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spigell/hr-copilot/internal/agents"
	"github.com/spigell/hr-copilot/internal/identity"
	"github.com/spigell/hr-copilot/internal/ingest"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptPolicyAssistant   = "Policy assistant"
	PromptResumeScreening   = "Resume screening"
	PromptInterviewPractice = "Interview practice"
	PromptScreeningHistory  = "Screening history"
	PromptExit              = "Exit"
)

var errExit = errors.New("exit requested")

var agentPrompt = promptui.Select{
	Label: "Choose an agent",
	Items: []string{
		PromptPolicyAssistant,
		PromptResumeScreening,
		PromptInterviewPractice,
		PromptScreeningHistory,
		PromptExit,
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive hr-copilot agent menu",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run is the main interactive command for the cli.
func run() {
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

	logger.Info("starting the hr-copilot", zap.String("version", version))

	gateway, err := newGateway(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the model gateway", zap.Error(err))
	}

	recordStore, closeStore, err := newStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("building the record store", zap.Error(err))
	}
	defer closeStore()

	who := resolveIdentity(config.User)
	screener := agents.NewScreener(gateway, recordStore, logger)
	defer screener.Wait()

	for {
		_, action, err := agentPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, config, gateway, screener, recordStore, who, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Warn("agent loop failed", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, config *Config, gateway agents.Invoker, screener *agents.Screener, recordStore store.Store, who identity.Identity, logger *zap.Logger) error {
	switch action {
	case PromptPolicyAssistant:
		return runChat(ctx, config, gateway, who, logger)
	case PromptResumeScreening:
		return runScreening(ctx, screener, who)
	case PromptInterviewPractice:
		return runInterview(ctx, config, gateway, logger)
	case PromptScreeningHistory:
		return showHistory(ctx, recordStore)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func runChat(ctx context.Context, config *Config, gateway agents.Invoker, who identity.Identity, logger *zap.Logger) error {
	policy, err := loadPolicy(config.Policy)
	if err != nil {
		return err
	}

	session := agents.NewChatSession(gateway, logger, policy, who.DisplayName)

	fmt.Println("Policy assistant. Ask a question, /reset to start over, /back to return.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "/back":
			return nil
		case "/reset":
			session.Reset()
			fmt.Println("Conversation cleared.")
			continue
		}

		reply, err := session.Ask(ctx, input)
		if err != nil {
			if errors.Is(err, agents.ErrEmptyInput) {
				continue
			}
			return err
		}

		fmt.Printf("assistant> %s\n", reply)
	}
}

func runScreening(ctx context.Context, screener *agents.Screener, who identity.Identity) error {
	jobPath, err := (&promptui.Prompt{Label: "Job description file"}).Run()
	if err != nil {
		return err
	}

	resumePath, err := (&promptui.Prompt{Label: "Resume file"}).Run()
	if err != nil {
		return err
	}

	jobDescription, err := ingest.Load(strings.TrimSpace(jobPath))
	if err != nil {
		return err
	}

	resumeText, err := ingest.Load(strings.TrimSpace(resumePath))
	if err != nil {
		return err
	}

	result, err := screener.Screen(ctx, who, jobDescription, resumeText)
	if err != nil {
		var screeningErr *agents.ScreeningError
		if errors.As(err, &screeningErr) {
			fmt.Println("Analysis failed, please try the screening again.")
			return nil
		}
		return err
	}

	printScreeningResult(result)
	return nil
}

func printScreeningResult(result *agents.ScreeningResult) {
	fmt.Printf("\nMatch score: %d/100\nRecommendation: %s\n", result.Score, result.Recommendation)
	fmt.Println("Strengths:")
	for _, s := range result.Strengths {
		fmt.Printf("  + %s\n", s)
	}
	fmt.Println("Gaps:")
	for _, g := range result.Gaps {
		fmt.Printf("  - %s\n", g)
	}
	fmt.Printf("Summary: %s\n\n", result.Summary)
}

func runInterview(ctx context.Context, config *Config, gateway agents.Invoker, logger *zap.Logger) error {
	roleTitle, err := (&promptui.Prompt{Label: "Role title"}).Run()
	if err != nil {
		return err
	}

	opts := []agents.InterviewOption{}
	if config.Interview != nil && config.Interview.MaxCandidateTurns > 0 {
		opts = append(opts, agents.WithMaxCandidateTurns(config.Interview.MaxCandidateTurns))
	}

	session := agents.NewInterviewSession(gateway, logger, opts...)
	if err := session.Start(roleTitle); err != nil {
		return err
	}
	defer session.End()

	turns := session.Turns()
	fmt.Printf("interviewer> %s\n", turns[len(turns)-1].Text)

	scanner := bufio.NewScanner(os.Stdin)
	for session.State() == agents.StateActive {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		reply, err := session.HandleResponse(ctx, scanner.Text())
		if err != nil {
			if errors.Is(err, agents.ErrEmptyInput) {
				continue
			}
			return err
		}

		fmt.Printf("interviewer> %s\n", reply)
	}

	if feedback := session.Feedback(); feedback != nil {
		fmt.Printf("\nInterview feedback: %d/100\n", feedback.Score)
		for _, pro := range feedback.Pros {
			fmt.Printf("  + %s\n", pro)
		}
		for _, con := range feedback.Cons {
			fmt.Printf("  - %s\n", con)
		}
	} else {
		fmt.Println("\nFeedback is not available for this session.")
	}

	return nil
}

func showHistory(ctx context.Context, recordStore store.Store) error {
	sub, err := recordStore.Subscribe(ctx, agents.ScreeningCollection)
	if err != nil {
		return err
	}
	defer sub.Close()

	snapshot, ok := <-sub.Updates()
	if !ok {
		return nil
	}

	records := agents.ScreeningRecords(snapshot)
	if len(records) == 0 {
		fmt.Println("No screenings recorded yet.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %3d/100  %-12s  %s  (%s)\n",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Score,
			rec.Recommendation,
			rec.JobTitlePreview,
			rec.CreatedBy,
		)
	}

	return nil
}
