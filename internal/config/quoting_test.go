package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func TestDotenv_QuotedCookiesReachJiraConfig(t *testing.T) {
	// Browser-copied cookies often carry quotes and '=' padding
	content := "JIRA_SESSION_ID='abc=\"def\"=='\nJIRA_GCLB=\"CJ-t=x\"\nCLM_PROJECT=CHG # change requests\n"
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"JIRA_SESSION_ID", "JIRA_GCLB", "CLM_PROJECT"} {
		unsetenv(t, key)
	}
	if err := godotenv.Load(path); err != nil {
		t.Fatalf("Error loading env: %v", err)
	}
	t.Setenv("DATA_PATH", t.TempDir())

	cfg := FromEnv("")
	if cfg.Jira.SessionID != `abc="def"==` {
		t.Errorf("SessionID = %q", cfg.Jira.SessionID)
	}
	if cfg.Jira.GCLB != "CJ-t=x" {
		t.Errorf("GCLB = %q", cfg.Jira.GCLB)
	}
	if cfg.CLMProject != "CHG" {
		t.Errorf("CLMProject = %q", cfg.CLMProject)
	}
}
