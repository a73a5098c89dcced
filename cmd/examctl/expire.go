package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pgRepo "github.com/yourusername/examprep-api/internal/repository/postgres"
	"github.com/yourusername/examprep-api/internal/service"
	"github.com/yourusername/examprep-api/internal/service/selection"
)

var expireCmd = &cobra.Command{
	Use:   "expire-sessions",
	Short: "Expire and score practice sessions past their deadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}

		questionRepo := pgRepo.NewQuestionRepo(db)
		answerRepo := pgRepo.NewAnswerRepo(db)
		cache := openCache(cfg)
		selector := selection.NewQuestionSelector(selection.DefaultConfig(), questionRepo, answerRepo, cache)

		// письма из CLI не отправляются
		practiceService := service.NewPracticeService(cfg.Practice, selector,
			pgRepo.NewSessionRepo(db), questionRepo, answerRepo, pgRepo.NewUserRepo(db), cache, nil)

		expired, err := practiceService.ExpireOverdueSessions(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "expired sessions: %d\n", expired)
		return nil
	},
}
