package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	stdlog "github.com/rs/zerolog/log"

	"github.com/opencourse/problem-bank/internal/category"
	"github.com/opencourse/problem-bank/internal/config"
	"github.com/opencourse/problem-bank/internal/db/repository"
	"github.com/opencourse/problem-bank/internal/question"
)

// questionImport mirrors the question seed document. Choices carry canonical
// labels; answer labels reference them.
type questionImport struct {
	Title              string              `json:"title"`
	Text               string              `json:"text"`
	Category           string              `json:"category"`
	Difficulty         string              `json:"difficulty"`
	Choices            map[string]string   `json:"choices"`
	AnswerLabels       []string            `json:"answer_labels"`
	VisibleDistractors int                 `json:"visible_distractors"`
	Variables          []map[string]string `json:"variables"`
}

func main() {
	var (
		seedCategories = flag.Bool("categories", false, "Seed categories from the cluster import document")
		seedQuestions  = flag.Bool("questions", false, "Seed multiple choice questions")
		seedAll        = flag.Bool("all", false, "Seed everything")
		categoriesPath = flag.String("categories-file", "import/categories.json", "Category cluster document")
		questionsPath  = flag.String("questions-file", "import/multiple_choice_questions.json", "Question seed document")
	)
	flag.Parse()

	stdlog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger := stdlog.Logger

	if !*seedAll && !*seedCategories && !*seedQuestions {
		logger.Fatal().Msg("nothing to do: pass -categories, -questions or -all")
	}

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			logger.Warn().Err(err).Msg("could not load .env file")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	categoryRepo := repository.NewCategoryRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	categorySvc := category.NewService(categoryRepo, logger)
	questionSvc := question.NewService(
		questionRepo,
		nil, nil,
		question.NewRenderer([]byte(cfg.Security.RenderHMACSecret)),
		nil,
		question.ServiceOptions{DefaultMaxSubmissions: cfg.Grading.DefaultMaxSubmissions},
		logger,
	)

	if *seedAll || *seedCategories {
		if err := importCategories(ctx, categorySvc, *categoriesPath); err != nil {
			logger.Fatal().Err(err).Msg("category import failed")
		}
		logger.Info().Str("file", *categoriesPath).Msg("categories imported")
	}

	if *seedAll || *seedQuestions {
		count, err := importQuestions(ctx, categoryRepo, questionRepo, questionSvc, *questionsPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("question import failed")
		}
		logger.Info().Int("questions", count).Str("file", *questionsPath).Msg("questions imported")
	}
}

func importCategories(ctx context.Context, svc *category.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var doc category.ClusterImport
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return svc.ImportClusters(ctx, doc)
}

// importQuestions wipes existing multiple choice questions and recreates them
// from the seed document, so re-running never accumulates duplicates.
func importQuestions(ctx context.Context, categories *repository.CategoryRepository, questions *repository.QuestionRepository, svc *question.Service, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	var docs []questionImport
	if err := json.Unmarshal(data, &docs); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	byName, err := categoriesByName(ctx, categories)
	if err != nil {
		return 0, err
	}

	if err := questions.DeleteByKind(ctx, question.KindMultipleChoice); err != nil {
		return 0, fmt.Errorf("clear multiple choice questions: %w", err)
	}

	verified := true
	for i, doc := range docs {
		var categoryID *uuid.UUID
		if doc.Category != "" {
			id, ok := byName[doc.Category]
			if !ok {
				return 0, fmt.Errorf("question %d references unknown category %q", i, doc.Category)
			}
			categoryID = &id
		}

		visible := doc.VisibleDistractors
		if visible == 0 {
			visible = len(doc.Choices) - len(doc.AnswerLabels)
			if visible > 3 {
				visible = 3
			}
		}

		_, err := svc.CreateMultipleChoice(ctx, question.CreateChoiceParams{
			Title:              doc.Title,
			Text:               doc.Text,
			CategoryID:         categoryID,
			Difficulty:         doc.Difficulty,
			VisibleDistractors: visible,
			Choices:            doc.Choices,
			AnswerLabels:       doc.AnswerLabels,
			Variables:          doc.Variables,
			Verified:           &verified,
		})
		if err != nil {
			return 0, fmt.Errorf("question %d (%q): %w", i, doc.Title, err)
		}
	}
	return len(docs), nil
}

func categoriesByName(ctx context.Context, repo *repository.CategoryRepository) (map[string]uuid.UUID, error) {
	all, err := repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	byName := make(map[string]uuid.UUID, len(all))
	for _, c := range all {
		byName[c.Name] = c.ID
	}
	return byName, nil
}
