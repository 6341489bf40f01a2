package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/Aman-CERP/docqa/internal/embed"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/index"
)

// CheckDocsDir reports how many PDFs the documents folder holds. A missing
// or empty folder is a warning: the index is simply empty.
func (c *Checker) CheckDocsDir() CheckResult {
	result := CheckResult{
		Name:     "documents",
		Required: false,
		Details:  c.cfg.Paths.DocsDir,
	}

	if _, err := os.Stat(c.cfg.Paths.DocsDir); os.IsNotExist(err) {
		result.Status = StatusWarn
		result.Message = "documents folder does not exist"
		return result
	}

	names, err := index.ListPDFs(c.cfg.Paths.DocsDir)
	if err != nil {
		result.Status = StatusFail
		result.Required = true
		result.Message = fmt.Sprintf("cannot read documents folder: %v", err)
		return result
	}
	if len(names) == 0 {
		result.Status = StatusWarn
		result.Message = "no PDFs found"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d PDF(s)", len(names))
	return result
}

// CheckIndex loads the persisted index and verifies its consistency. A
// missing index is a warning; a corrupt or inconsistent one fails.
func (c *Checker) CheckIndex() CheckResult {
	result := CheckResult{
		Name:     "index",
		Required: true,
		Details:  c.cfg.Paths.IndexPath(),
	}

	idx, err := index.NewStore(c.cfg.Paths.IndexPath(), nil).Load()
	if docqaerrors.HasCode(err, docqaerrors.ErrCodeIndexNotFound) {
		result.Status = StatusWarn
		result.Message = "not built yet (run 'docqa index')"
		return result
	}
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot load index: %v", err)
		return result
	}
	if check := idx.Check(); !check.OK() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%d inconsistencies in %d rows (run 'docqa index')",
			len(check.Inconsistencies), check.Checked)
		return result
	}

	stats := idx.Stats()
	if c.embedder != nil && (stats.EmbeddingModel != c.embedder.ModelName() || stats.Dimensions != c.embedder.Dimensions()) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("built with %s (%d dims) but %s (%d dims) is configured; run 'docqa index'",
			stats.EmbeddingModel, stats.Dimensions, c.embedder.ModelName(), c.embedder.Dimensions())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d chunks from %d documents", stats.Chunks, stats.Documents)
	return result
}

// CheckRebuildLock reports whether another process holds the rebuild lock.
// The lock is taken and released at once; a held lock is only a warning.
func (c *Checker) CheckRebuildLock() CheckResult {
	store := index.NewStore(c.cfg.Paths.IndexPath(), nil)
	result := CheckResult{
		Name:     "rebuild_lock",
		Required: false,
		Details:  store.LockPath(),
	}

	if _, err := os.Stat(c.cfg.Paths.DataDir); os.IsNotExist(err) {
		result.Status = StatusPass
		result.Message = "free"
		return result
	}

	unlock, err := store.TryLock()
	if docqaerrors.HasCode(err, docqaerrors.ErrCodeReindexLocked) {
		result.Status = StatusWarn
		result.Message = "a rebuild is in progress"
		return result
	}
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot take lock: %v", err)
		return result
	}
	unlock()

	result.Status = StatusPass
	result.Message = "free"
	return result
}

// CheckEmbedder verifies the configured embedder answers.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
	}

	info := embed.GetInfo(ctx, c.embedder)
	result.Details = fmt.Sprintf("%s, %d dims", info.Model, info.Dimensions)
	if !info.Available {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not reachable", info.Model)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s ready", info.Model)
	return result
}
