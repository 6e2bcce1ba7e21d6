package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func parse(t *testing.T, args ...string) *Config {
	t.Helper()

	var cfg *Config
	app := &cli.App{
		Name:  "test",
		Flags: Flags(),
		Action: func(cCtx *cli.Context) error {
			cfg = FromCLI(cCtx)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parse(t, "--firebase-project-id", "notes-app")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "firebase", cfg.Auth.Provider)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.CORSOrigins)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, log.INFO, lvl)
}

func TestEnvVars(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MONGO")
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("AUTH_PROVIDER", "cognito")
	t.Setenv("AWS_COGNITO_REGION", "us-east-2")
	t.Setenv("AWS_COGNITO_USER_POOL_ID", "us-east-2_abc")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("WRITE_TIMEOUT", "5s")

	cfg := parse(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.URL)
	assert.Equal(t, "notekeeper", cfg.Store.MongoDatabase)
	assert.Equal(t, "us-east-2_abc", cfg.Auth.CognitoUserPoolID)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
}

func TestFlagsAreNotShared(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "cognito")
	t.Setenv("AWS_COGNITO_REGION", "us-east-2")
	t.Setenv("AWS_COGNITO_USER_POOL_ID", "us-east-2_abc")
	require.NoError(t, parse(t).Validate())

	os.Unsetenv("AUTH_PROVIDER")
	os.Unsetenv("AWS_COGNITO_REGION")
	os.Unsetenv("AWS_COGNITO_USER_POOL_ID")

	cfg := parse(t)
	assert.Equal(t, ProviderFirebase, cfg.Auth.Provider)
	assert.Empty(t, cfg.Auth.CognitoRegion)
	assert.Empty(t, cfg.Auth.CognitoUserPoolID)
	assert.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string][]string{
		"unknown driver":         {"--firebase-project-id", "p", "--store-driver", "postgres"},
		"mongo needs a URI":      {"--firebase-project-id", "p", "--store-driver", "mongo", "--database-url", "notes.db"},
		"firebase needs project": {},
		"cognito needs pool":     {"--auth-provider", "cognito", "--cognito-region", "us-east-2"},
		"remote needs region":    {"--auth-provider", "cognito-remote"},
		"unknown provider":       {"--auth-provider", "auth0"},
		"node id too big":        {"--firebase-project-id", "p", "--node-id", "1024"},
		"bad body limit":         {"--firebase-project-id", "p", "--body-limit", "lots"},
		"bad log level":          {"--firebase-project-id", "p", "--log-level", "loud"},
		"no shutdown time":       {"--firebase-project-id", "p", "--shutdown-timeout", "0s"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, parse(t, args...).Validate())
		})
	}

	ok := parse(t, "--auth-provider", "cognito-remote", "--cognito-region", "eu-west-1", "--store-driver", "mysql",
		"--database-url", "user:pass@tcp(127.0.0.1:3306)/notes?parseTime=true")
	assert.NoError(t, ok.Validate())
}

func TestValidate_ReportsEverything(t *testing.T) {
	err := parse(t, "--store-driver", "postgres", "--auth-provider", "auth0").Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "store-driver")
	assert.ErrorContains(t, err, "auth-provider")
}

type mockSSM struct {
	mock.Mock
}

func (m *mockSSM) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	args := m.Called(aws.ToString(params.NextToken))
	out, _ := args.Get(0).(*ssm.GetParametersByPathOutput)
	return out, args.Error(1)
}

func param(name, value string) types.Parameter {
	return types.Parameter{Name: aws.String(name), Value: aws.String(value)}
}

func TestLoadParameters_FollowsPages(t *testing.T) {
	t.Setenv("NOTEKEEPER_TEST_A", "")
	t.Setenv("NOTEKEEPER_TEST_B", "")
	t.Setenv("NOTEKEEPER_TEST_KEEP", "from-process")
	os.Unsetenv("NOTEKEEPER_TEST_A")
	os.Unsetenv("NOTEKEEPER_TEST_B")

	client := new(mockSSM)
	client.On("GetParametersByPath", "").Return(&ssm.GetParametersByPathOutput{
		Parameters: []types.Parameter{param("/notekeeper/prod/NOTEKEEPER_TEST_A", "1")},
		NextToken:  aws.String("page-2"),
	}, nil)
	client.On("GetParametersByPath", "page-2").Return(&ssm.GetParametersByPathOutput{
		Parameters: []types.Parameter{
			param("/notekeeper/prod/NOTEKEEPER_TEST_B", "2"),
			param("/notekeeper/prod/NOTEKEEPER_TEST_KEEP", "from-ssm"),
		},
	}, nil)

	require.NoError(t, loadParameters(context.Background(), client, "/notekeeper/prod"))
	assert.Equal(t, "1", os.Getenv("NOTEKEEPER_TEST_A"))
	assert.Equal(t, "2", os.Getenv("NOTEKEEPER_TEST_B"))
	assert.Equal(t, "from-process", os.Getenv("NOTEKEEPER_TEST_KEEP"))
	client.AssertExpectations(t)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))

	t.Setenv("NOTEKEEPER_TEST_DOTENV", "")
	os.Unsetenv("NOTEKEEPER_TEST_DOTENV")

	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("NOTEKEEPER_TEST_DOTENV=hello\n"), 0o600))
	require.NoError(t, loadDotEnv(file))
	assert.Equal(t, "hello", os.Getenv("NOTEKEEPER_TEST_DOTENV"))
}
