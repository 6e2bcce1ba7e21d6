package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const (
	defaultParamsPath   = "/notekeeper/prod/"
	defaultParamsRegion = "us-east-2"
)

// LoadEnvironment exports the deployment's settings as environment variables
// so the CLI flags can pick them up. Production reads AWS SSM Parameter Store,
// everything else an optional .env file.
func LoadEnvironment(ctx context.Context) error {
	if os.Getenv("GO_ENV") != "production" {
		return loadDotEnv(".env")
	}

	region := os.Getenv("SSM_REGION")
	if region == "" {
		region = defaultParamsRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	path := os.Getenv("SSM_PATH")
	if path == "" {
		path = defaultParamsPath
	}
	return loadParameters(ctx, ssm.NewFromConfig(cfg), path)
}

func loadDotEnv(filename string) error {
	err := godotenv.Load(filename)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("no %s file found, using the process environment only", filename)
		return nil
	}
	return err
}

// loadParameters exports every parameter under path, named after the part of
// its name that follows the path. Variables already set in the process win.
func loadParameters(ctx context.Context, client ssm.GetParametersByPathAPIClient, path string) error {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	loaded := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("unable to load prod environment: %w", err)
		}

		for _, param := range page.Parameters {
			key := strings.TrimPrefix(aws.ToString(param.Name), path)
			if _, set := os.LookupEnv(key); set {
				continue
			}
			if err := os.Setenv(key, aws.ToString(param.Value)); err != nil {
				return fmt.Errorf("unable to set environment variable %s: %w", key, err)
			}
			loaded++
		}
	}

	log.Debugf("loaded %d prod environment variables", loaded)
	return nil
}
