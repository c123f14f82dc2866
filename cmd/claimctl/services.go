package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/pkg/events"
	pktNats "claim-pipeline-be/pkg/nats"
	"claim-pipeline-be/pkg/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func minioConfig() storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		URLExpiry: cfg.Storage.URLExpiry,
	}
}

func submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <claim-id>",
		Short: "Publish CLAIM_SUBMITTED so a running server processes the claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.App.NatsURL == "" {
				return fmt.Errorf("NATS_URL is not set")
			}
			pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
			if err != nil {
				return err
			}
			defer pub.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			ev := events.NewClaimEvent(events.ClaimSubmitted, args[0], nil, time.Now())
			if err := pub.Publish(ctx, ev); err != nil {
				return err
			}
			color.Green("Submitted %s on %s", args[0], events.ClaimSubmittedSubject)
			return nil
		},
	}
}

func uploadXRayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload-xray <claim-id> <image>...",
		Short: "Upload x-ray images for a claim",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Storage.Endpoint == "" {
				return fmt.Errorf("MINIO_ENDPOINT is not set")
			}
			store, err := storage.NewImageStore(minioConfig())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := store.EnsureBucket(ctx); err != nil {
				return err
			}

			prefix := storage.ClaimPrefix(args[0], entity.DocumentKindXRay)
			for _, path := range args[1:] {
				if err := uploadFile(ctx, store, prefix, path); err != nil {
					return fmt.Errorf("upload %s: %w", path, err)
				}
				color.Green("Uploaded %s", prefix+filepath.Base(path))
			}
			return nil
		},
	}
}

func uploadFile(ctx context.Context, store *storage.ImageStore, prefix, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return store.Upload(ctx, prefix+filepath.Base(path), f, info.Size(), contentType)
}
