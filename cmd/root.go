package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hr-copilot"
)

type Config struct {
	AI        *AIConfig        `mapstructure:"ai"`
	Store     *StoreConfig     `mapstructure:"store"`
	Policy    *PolicyConfig    `mapstructure:"policy"`
	Interview *InterviewConfig `mapstructure:"interview"`
	User      *UserConfig      `mapstructure:"user"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout-seconds"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type StoreConfig struct {
	// Driver selects the record store backend: "memory" (default) or
	// "postgres".
	Driver              string `mapstructure:"driver"`
	URL                 string `mapstructure:"url"`
	PollIntervalSeconds int    `mapstructure:"poll-interval-seconds"`
}

type PolicyConfig struct {
	// File points to the company policy document used by the Q&A assistant.
	File string `mapstructure:"file"`
}

type InterviewConfig struct {
	MaxCandidateTurns int `mapstructure:"max-candidate-turns"`
}

type UserConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hr-copilot is a cli with AI agents for HR teams: policy Q&A, resume screening and interview practice",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-copilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the agent commands. If there is no config,
	// we can skip initialization.
	if runCmd.CalledAs() == "" && screenCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
