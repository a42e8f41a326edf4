package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "interview-engine"
)

type Config struct {
	Oracle    *OracleConfig    `mapstructure:"oracle"`
	Session   *SessionConfig   `mapstructure:"session"`
	Interview *InterviewConfig `mapstructure:"interview"`
}

type OracleConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type SessionConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max-sessions"`
}

type InterviewConfig struct {
	Kind        string         `mapstructure:"kind"`
	Respondents []string       `mapstructure:"respondents"`
	Questions   []string       `mapstructure:"questions"`
	Profile     *ProfileConfig `mapstructure:"profile"`
	Prior       *PriorConfig   `mapstructure:"prior"`
}

type ProfileConfig struct {
	Name   string   `mapstructure:"name"`
	Role   string   `mapstructure:"role"`
	Skills []string `mapstructure:"skills"`
}

type PriorConfig struct {
	KeyThemes         []string `mapstructure:"key-themes"`
	TechnicalKeywords []string `mapstructure:"technical-keywords"`
	Summary           string   `mapstructure:"summary"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-engine is a cli for running adaptive interviews and synthesizing team answers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("oracle.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
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
