package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	pgRepo "github.com/yourusername/examprep-api/internal/repository/postgres"
	"github.com/yourusername/examprep-api/internal/service/selection"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List exam domains present in the question bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		examType, err := examTypeFlag(cmd)
		if err != nil {
			return err
		}
		selector, err := newSelector(cmd)
		if err != nil {
			return err
		}

		for _, domain := range selector.GetExamDomains(cmd.Context(), examType) {
			fmt.Fprintln(cmd.OutOrStdout(), domain)
		}
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Preview the questions the selector would pick for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		examType, err := examTypeFlag(cmd)
		if err != nil {
			return err
		}
		rawUser, _ := cmd.Flags().GetString("user")
		userID, err := uuid.Parse(rawUser)
		if err != nil {
			return fmt.Errorf("invalid --user %q: %w", rawUser, err)
		}
		mode, _ := cmd.Flags().GetString("mode")
		domain, _ := cmd.Flags().GetString("domain")
		count, _ := cmd.Flags().GetInt("count")

		selector, err := newSelector(cmd)
		if err != nil {
			return err
		}

		result := selector.SelectQuestions(cmd.Context(), selection.Request{
			UserID:   userID,
			ExamType: examType,
			Mode:     entity.SelectionMode(mode),
			Domain:   strings.TrimSpace(domain),
			Count:    count,
		})
		if result.IsEmpty() {
			fmt.Fprintf(cmd.OutOrStdout(), "no questions selected (reason: %s)\n", result.Reason)
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tID\tEXAM\tDOMAIN\tTYPE")
		for i, q := range result.Questions {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, q.ID, q.ExamType, q.Domain, q.QuestionType)
		}
		return tw.Flush()
	},
}

func init() {
	domainsCmd.Flags().String("exam", string(entity.ExamTypeBoth), "Exam type: ENCOR, ENARSI or BOTH")

	selectCmd.Flags().String("exam", string(entity.ExamTypeBoth), "Exam type: ENCOR, ENARSI or BOTH")
	selectCmd.Flags().String("user", "", "User ID whose history drives the selection")
	selectCmd.Flags().String("mode", string(entity.SelectionModeRandom), "random, unanswered, weak_points or hard_questions")
	selectCmd.Flags().String("domain", "", "Restrict to a single domain")
	selectCmd.Flags().Int("count", 10, "Number of questions")
	selectCmd.MarkFlagRequired("user")
}

func examTypeFlag(cmd *cobra.Command) (entity.ExamType, error) {
	raw, _ := cmd.Flags().GetString("exam")
	examType, ok := entity.ParseExamType(raw)
	if !ok {
		return "", fmt.Errorf("invalid --exam %q (expected ENCOR, ENARSI or BOTH)", raw)
	}
	return examType, nil
}

func newSelector(cmd *cobra.Command) (*selection.QuestionSelector, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	selectionConfig := selection.DefaultConfig()
	selectionConfig.GlobalStatsCacheTTL = cfg.Selection.GlobalStatsCacheTTL
	// предпросмотр всегда читает домены из базы
	selectionConfig.DomainsCacheTTL = 0

	return selection.NewQuestionSelector(selectionConfig, pgRepo.NewQuestionRepo(db), pgRepo.NewAnswerRepo(db), openCache(cfg)), nil
}
