package main

import (
	"strings"
	"testing"

	"mercator-hq/chatrelay/pkg/cli"
	"mercator-hq/chatrelay/pkg/config"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantCode int
		wantOut  []string
	}{
		{
			name:     "valid",
			yaml:     scriptedYAML,
			wantCode: cli.ExitOK,
			wantOut:  []string{"✓ Configuration valid"},
		},
		{
			name: "invalid fields",
			yaml: `
model:
  provider: bogus
server:
  listen_address: nope
`,
			wantCode: cli.ExitConfig,
			wantOut:  []string{"✗ model.provider", "✗ server.listen_address"},
		},
		{
			name:     "unparsable",
			yaml:     "model: [",
			wantCode: cli.ExitConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			out, err := execute(t, "validate", "--config", path)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Fatalf("ExitCode() = %d, want %d (err = %v)", got, tt.wantCode, err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", "--config", "/nonexistent/chatrelay.yaml")
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
}

func TestRunDryRun(t *testing.T) {
	path := writeConfig(t, scriptedYAML)

	out, err := execute(t, "run", "--dry-run", "--config", path, "--listen", "127.0.0.1:9090")
	if err != nil {
		t.Fatalf("run --dry-run error = %v", err)
	}
	if !strings.Contains(out, "✓ Configuration valid") {
		t.Errorf("output = %q", out)
	}

	_, err = execute(t, "run", "--dry-run", "--config", path, "--log-level", "loud")
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("invalid --log-level: ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
}

func TestValidateResolvesSecrets(t *testing.T) {
	path := writeConfig(t, scriptedYAML+`
security:
  authentication:
    enabled: true
    tokens:
      - token: ${secret:relay-token}
`)

	if _, err := execute(t, "validate", "--config", path); cli.ExitCode(err) != cli.ExitConfig {
		t.Fatalf("unresolved secret: ExitCode() = %d, want %d (err = %v)", cli.ExitCode(err), cli.ExitConfig, err)
	}

	t.Setenv("CHATRELAY_SECRET_RELAY_TOKEN", "s3cret")
	if _, err := execute(t, "validate", "--config", path); err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if got := config.GetConfig().Security.Authentication.Tokens[0].Token; got != "s3cret" {
		t.Errorf("token = %q, want resolved value", got)
	}
}
