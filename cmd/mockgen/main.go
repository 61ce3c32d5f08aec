package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"jira-charts/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos")
	projects := flag.String("projects", "CORE,WEB,OPS", "Comma-separated project keys")
	clm := flag.String("clm", "CLM", "Project whose issues link to the generated work; empty disables")
	out := flag.String("out", "./.cache/mock_issues.json", "Output file, usable as JIRA_MOCK_FILE")
	count := flag.Int("count", 200, "Number of issues to generate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:   *scenario,
		Projects:   strings.Split(*projects, ","),
		CLMProject: *clm,
		Count:      *count,
		Seed:       *seed,
		Now:        time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Projects: %s, Count: %d) to %s...\n", cfg.Scenario, *projects, cfg.Count, *out)

	issues := engine.Generate(cfg)
	if err := engine.Save(*out, issues); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d issues written.\n", len(issues))
}
