package config

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Credentials may reference a secret instead of holding it:
// sm://projects/<p>/secrets/<s>/versions/<v> for Google Secret Manager and
// awssm://<name-or-arn> for AWS Secrets Manager.
const (
	gcpSecretPrefix = "sm://"
	awsSecretPrefix = "awssm://"
)

type secretAccessor interface {
	Access(ctx context.Context, name string) (string, error)
}

type gcpSecrets struct {
	client *secretmanager.Client
}

func (g *gcpSecrets) Access(ctx context.Context, name string) (string, error) {
	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

type awsSecrets struct {
	client *secretsmanager.Client
}

func (a *awsSecrets) Access(ctx context.Context, name string) (string, error) {
	resp, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if resp.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return strings.TrimSpace(*resp.SecretString), nil
}

// secretFields lists every credential that may hold a secret reference.
func secretFields(cfg *Config) []*string {
	return []*string{
		&cfg.GroqAPIKey,
		&cfg.DeepSeekAPIKey,
		&cfg.OpenAIAPIKey,
		&cfg.AnthropicAPIKey,
		&cfg.GeminiAPIKey,
		&cfg.ElevenLabsAPIKey,
	}
}

func hasSecretRefs(cfg *Config, prefix string) bool {
	for _, f := range secretFields(cfg) {
		if strings.HasPrefix(*f, prefix) {
			return true
		}
	}
	return false
}

func resolveSecrets(ctx context.Context, cfg *Config) error {
	accessors := make(map[string]secretAccessor)

	if hasSecretRefs(cfg, gcpSecretPrefix) {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create secret manager client: %w", err)
		}
		defer client.Close()
		accessors[gcpSecretPrefix] = &gcpSecrets{client: client}
	}

	if hasSecretRefs(cfg, awsSecretPrefix) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		accessors[awsSecretPrefix] = &awsSecrets{client: secretsmanager.NewFromConfig(awsCfg)}
	}

	if len(accessors) == 0 {
		return nil
	}
	return resolveWith(ctx, cfg, accessors)
}

// resolveWith replaces every reference whose scheme has an accessor.
func resolveWith(ctx context.Context, cfg *Config, accessors map[string]secretAccessor) error {
	for _, f := range secretFields(cfg) {
		for prefix, accessor := range accessors {
			if !strings.HasPrefix(*f, prefix) {
				continue
			}
			value, err := accessor.Access(ctx, strings.TrimPrefix(*f, prefix))
			if err != nil {
				return err
			}
			*f = value
			break
		}
	}
	return nil
}
