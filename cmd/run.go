package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hireround/interview-engine/internal/interview"
	"github.com/hireround/interview-engine/internal/logger"
	"github.com/hireround/interview-engine/internal/oracle"
	"github.com/hireround/interview-engine/internal/oracle/gemini"
	"github.com/hireround/interview-engine/internal/secrets"
	"github.com/hireround/interview-engine/internal/sequencer"
	"github.com/hireround/interview-engine/internal/session"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultRespondent = "candidate"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive interview session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("kind", "k", "", "interview kind: general, team-review, technical or situational")

	viper.BindPFlag("interview.kind", runCmd.Flags().Lookup("kind"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interview-engine", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil || config.Interview == nil {
		logger.Fatal("an interview section is required in the configuration file")
	}

	client, err := newOracleClient(ctx, config.Oracle, logger)
	if err != nil {
		logger.Fatal("building the oracle client", zap.Error(err))
	}

	store := session.NewStore(client, storeOptions(config.Session), logger)

	kind := interview.Kind(strings.TrimSpace(config.Interview.Kind))
	if kind == "" {
		kind = interview.KindGeneral
	}

	started, err := store.Start(ctx, kind, buildSeed(config.Interview))
	if err != nil {
		logger.Fatal("starting the session", zap.Error(err))
	}

	logger.Info("session started",
		zap.String("session_id", started.SessionID),
		zap.String("kind", string(kind)),
		zap.Int("total_questions", started.Total),
	)

	respondents := config.Interview.Respondents
	if kind != interview.KindTeamReview || len(respondents) == 0 {
		respondents = []string{defaultRespondent}
	}

	if err := interviewLoop(ctx, store, started.SessionID, respondents); err != nil {
		logger.Fatal("running the interview", zap.Error(err))
	}

	result, err := store.Result(ctx, started.SessionID)
	if err != nil {
		logger.Fatal("building the result", zap.Error(err))
	}

	pretty, err = json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("encoding the result", zap.Error(err))
	}

	fmt.Println(string(pretty))
}

// interviewLoop walks the session until it finishes, asking every respondent
// in turn for the current question.
func interviewLoop(ctx context.Context, store *session.Store, sessionID string, respondents []string) error {
	respondentIdx := 0

	for {
		question, err := store.NextQuestion(ctx, sessionID)
		if err != nil {
			return err
		}
		if question == nil {
			return nil
		}

		fmt.Printf("\n%s\n", question.Text)

		respondent := respondents[respondentIdx%len(respondents)]
		answer, err := askAnswer(respondent)
		if err != nil {
			return err
		}

		result, err := store.Answer(ctx, sessionID, respondent, answer)
		if err != nil {
			return err
		}

		switch result.Transition.Outcome {
		case sequencer.OutcomeWaiting:
			respondentIdx++
			fmt.Printf("waiting for %d more respondent(s)\n", result.Transition.WaitingFor)
		default:
			respondentIdx = 0
			fmt.Printf("progress: %d/%d\n", result.Answered, result.Total)
		}

		if result.Next == nil {
			return nil
		}
	}
}

func askAnswer(respondent string) (string, error) {
	prompt := promptui.Prompt{
		Label: fmt.Sprintf("%s, your answer", respondent),
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("an answer cannot be empty")
			}
			return nil
		},
	}

	return prompt.Run()
}

func newOracleClient(ctx context.Context, config *OracleConfig, logger *zap.Logger) (*oracle.Client, error) {
	if config == nil {
		return nil, errors.New("an oracle section is required in the configuration file")
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported oracle provider: %s", config.Provider)
	}

	if config.Gemini == nil {
		return nil, errors.New("a gemini configuration is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set oracle.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.Gemini.Model, logger)
	if err != nil {
		return nil, err
	}

	return oracle.NewClient(generator, config.Timeout, logger), nil
}

func storeOptions(config *SessionConfig) session.Options {
	if config == nil {
		return session.Options{}
	}
	return session.Options{
		TTL:         config.TTL,
		MaxSessions: config.MaxSessions,
	}
}

func buildSeed(config *InterviewConfig) session.Seed {
	seed := session.Seed{
		Respondents: config.Respondents,
	}

	for i, text := range config.Questions {
		seed.Questions = append(seed.Questions, interview.Question{
			ID:   fmt.Sprintf("q-%d", i+1),
			Text: text,
		})
	}

	if config.Profile != nil {
		seed.Profile = interview.Profile{
			Name:   config.Profile.Name,
			Role:   config.Profile.Role,
			Skills: config.Profile.Skills,
		}
	}

	if config.Prior != nil {
		seed.Prior = interview.PriorAnalysis{
			KeyThemes:         config.Prior.KeyThemes,
			TechnicalKeywords: config.Prior.TechnicalKeywords,
			Summary:           config.Prior.Summary,
		}
	}

	return seed
}
