package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"claim-pipeline-be/internal/bootstrap"
	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/realtime"
	"claim-pipeline-be/internal/repository/memory"
	"claim-pipeline-be/pkg/evidence"
	"claim-pipeline-be/pkg/llm/factory"
	"claim-pipeline-be/pkg/pipeline"
	"claim-pipeline-be/pkg/storage"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run [claim-file]",
		Short: "Process a claim in-process and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			claim := demoClaim(now)
			if len(args) == 1 {
				var err error
				if claim, err = loadClaimFile(args[0], now); err != nil {
					return err
				}
			}

			provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.LLMBaseURL, cfg.Ai.LLMAPIKey, cfg.Ai.LLMTimeout)
			if err != nil {
				return err
			}

			var images evidence.ImageSource
			if cfg.Storage.Endpoint != "" {
				store, err := storage.NewImageStore(minioConfig())
				if err != nil {
					return err
				}
				images = store
			}

			log := logger.NewZapLogger(cfg.App.LogFilePath, false)
			defer log.Sync()

			session, err := runClaim(cmd.Context(), claim, pipeline.DefaultStages(bootstrap.NewCollaborators(cfg.Ai, provider, images)), pipeline.NewSynthesizer(provider), log, !quiet && !jsonOutput)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(session)
			}
			printReport(os.Stdout, claim, session)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print the final report")
	return cmd
}

// runClaim drives one claim through an in-memory pipeline. With live set,
// events are printed as they are emitted.
func runClaim(ctx context.Context, claim entity.ClaimRecord, stages []pipeline.Stage, synth *pipeline.Synthesizer, log logger.ILogger, live bool) (*entity.Session, error) {
	hub := realtime.NewHub(nil, "claimctl", logger.NewNopLogger())
	tracker := pipeline.NewSessionTracker(memory.NewSessionRepository(), hub, log)
	hub.OnIdle(func(sessionID string) { tracker.Release(sessionID) })

	orchestrator := pipeline.NewOrchestrator(pipeline.Dependencies{
		Claims:      memory.NewClaimRepository(),
		Logs:        memory.NewAgentLogRepository(),
		Tracker:     tracker,
		Synthesizer: synth,
		Stages:      stages,
		Broadcaster: hub,
		Logger:      log,
	})

	if claim.ClaimID == "" {
		return nil, pipeline.ErrEmptyClaimID
	}
	session := tracker.Create(ctx, claim.ClaimID)

	printed := make(chan struct{})
	if live {
		go func() {
			defer close(printed)
			_ = hub.Follow(ctx, tracker, session.SessionID, 0, func(ev entity.Event) error {
				printEvent(os.Stdout, ev)
				return nil
			})
		}()
	} else {
		close(printed)
	}

	final := orchestrator.Run(ctx, session, claim)
	<-printed
	if final == nil {
		return nil, fmt.Errorf("session %s was lost before completion", session.SessionID)
	}
	return final, nil
}
