package reorg

import (
	"context"

	"github.com/syou6162/git-rebuild-history/internal/advisor"
	"github.com/syou6162/git-rebuild-history/internal/executor"
	"github.com/syou6162/git-rebuild-history/internal/logger"
)

// Run is the package-level entry point spec.md §6 describes: reorganize
// the current repository's HEAD, relative to baseRef, according to plan.
// It operates on the current working directory and HEAD; callers needing
// a different repository path or head ref should construct a Coordinator
// directly via NewCoordinator and call its Run method.
func Run(ctx context.Context, exec executor.CommandExecutor, baseRef string, plan advisor.GroupingPlan) (RunResult, error) {
	coord := NewCoordinator(exec, ".", logger.NewFromEnv())
	return coord.Run(ctx, baseRef, "HEAD", plan)
}
