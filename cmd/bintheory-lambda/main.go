// Command bintheory-lambda serves query invocations on AWS Lambda.
//
// The function reads its configuration from the YAML file named by
// BINTHEORY_CONFIG (optional) and BINTHEORY_* environment overrides.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/theory-cloud/bintheory"
	"github.com/theory-cloud/bintheory/pkg/interfaces"
	"github.com/theory-cloud/bintheory/pkg/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := session.LoadConfig(os.Getenv("BINTHEORY_CONFIG"))
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := bintheory.New(ctx, cfg, bintheory.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}

	s3Client, err := client.Session().S3()
	if err != nil {
		logger.Error("failed to create S3 client", "error", err)
		os.Exit(1)
	}

	handler := bintheory.NewLambdaHandler(client, interfaces.NewS3ClientWrapper(s3Client))
	lambda.Start(handler.Handle)
}
