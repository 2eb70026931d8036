package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/syou6162/git-rebuild-history/internal/advisor"
	"github.com/syou6162/git-rebuild-history/internal/diffengine"
	"github.com/syou6162/git-rebuild-history/internal/executor"
	"github.com/syou6162/git-rebuild-history/internal/logger"
	"github.com/syou6162/git-rebuild-history/internal/reorg"
)

func main() {
	var (
		base       = flag.String("base", "", "Base commit to reorganize onto")
		groupsPath = flag.String("groups", "", "Path to a JSON file describing the grouping plan")
		advisorCmd = flag.String("advisor-cmd", "", "External advisor executable; receives the full diff on stdin and emits a grouping plan as JSON on stdout")
		dryRun     = flag.Bool("dry-run", false, "Parse and validate the partition without mutating the repository")
		showHunks  = flag.Bool("show-hunks", false, "Print every parsed hunk with its id and file path")
		verbose    = flag.Bool("verbose", false, "Raise the logger to debug level")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -base=<ref> (-groups=<path> | -advisor-cmd=<path>)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nReplays the diff between -base and HEAD as a sequence of commits\n")
		fmt.Fprintf(os.Stderr, "grouped according to a grouping plan.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nDebug:\n")
		fmt.Fprintf(os.Stderr, "  %s -base=main -show-hunks\n", os.Args[0])
	}

	flag.Parse()

	if *verbose {
		os.Setenv("GIT_REORG_VERBOSE", "1")
	}
	log := logger.NewFromEnv()

	if *base == "" {
		fmt.Fprintf(os.Stderr, "Error: -base flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	exec := executor.NewRealCommandExecutor()
	ctx := context.Background()

	fullDiff, err := exec.Execute(ctx, "git", "diff", fmt.Sprintf("%s..HEAD", *base))
	if err != nil {
		log.Error("failed to read diff: %v", err)
		os.Exit(1)
	}

	hunks, err := diffengine.ParseDiff(fullDiff)
	if err != nil {
		log.Error("failed to parse diff: %v", err)
		os.Exit(1)
	}

	if *showHunks {
		showParsedHunks(hunks)
		return
	}

	if *groupsPath == "" && *advisorCmd == "" {
		fmt.Fprintf(os.Stderr, "Error: one of -groups or -advisor-cmd is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	plan, err := loadPlan(ctx, *groupsPath, *advisorCmd, fullDiff)
	if err != nil {
		log.Error("failed to obtain grouping plan: %v", err)
		os.Exit(1)
	}

	if err := advisor.Validate(plan, hunks); err != nil {
		log.Error("grouping plan failed validation: %v", err)
		os.Exit(1)
	}

	if *dryRun {
		printPlan(plan)
		return
	}

	result, err := reorg.Run(ctx, exec, *base, plan)
	if err != nil {
		handleRunError(result, err)
	}

	fmt.Printf("Reorganized onto %d commit(s), new tip %s (backup: %s)\n",
		len(plan.Groups), result.NewTip, result.BackupRef)
}

func loadPlan(ctx context.Context, groupsPath, advisorCmd string, fullDiff []byte) (advisor.GroupingPlan, error) {
	var source advisor.Source
	switch {
	case advisorCmd != "":
		source = advisor.CommandSource{Path: advisorCmd}
	default:
		source = advisor.FileSource{Path: groupsPath}
	}
	return source.Plan(ctx, fullDiff)
}

func showParsedHunks(hunks []*diffengine.Hunk) {
	for _, h := range hunks {
		fmt.Printf("%s\t%s\t%s\n", h.ID, h.FilePath, h.ChangeKind)
	}
}

func printPlan(plan advisor.GroupingPlan) {
	for i, group := range plan.Groups {
		fmt.Printf("Group %d: %s\n", i+1, group.Message)
		for _, id := range group.HunkIDs {
			fmt.Printf("  %s\n", id)
		}
	}
}

func handleRunError(result reorg.RunResult, err error) {
	fmt.Fprintf(os.Stderr, "Failed to reorganize: %v\n\n", err)
	if result.Restored {
		fmt.Fprintf(os.Stderr, "Repository was restored from backup ref %s\n", result.BackupRef)
	} else if result.BackupRef != "" {
		fmt.Fprintf(os.Stderr, "Backup ref %s was created but not automatically restored\n", result.BackupRef)
	}
	fmt.Fprintf(os.Stderr, "Troubleshooting tips:\n")
	fmt.Fprintf(os.Stderr, "1. Run 'git status' to check the current state\n")
	fmt.Fprintf(os.Stderr, "2. Use -show-hunks to see all parsed hunks and their ids\n")
	fmt.Fprintf(os.Stderr, "3. Use -dry-run to check the grouping plan before applying it\n")
	log.Fatalf("exit code 1 after reorg failure of kind %s", result.Error)
}
