package media

import "log/slog"

// CleanupUnused deletes every stored file that inUse does not claim. Failures
// are logged and skipped per item so one stuck file never aborts the sweep.
// Returns the number of files removed.
func CleanupUnused(p Provider, inUse func(name string) bool, logger *slog.Logger) int {
	files, err := p.List()
	if err != nil {
		logger.Warn("media cleanup: list failed", slog.String("error", err.Error()))
		return 0
	}

	removed := 0
	for _, f := range files {
		if inUse(f.Name) {
			continue
		}
		if err := p.Delete(f.Name); err != nil {
			logger.Warn("media cleanup: delete failed", slog.String("name", f.Name), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("media cleanup: removed", slog.String("name", f.Name))
		removed++
	}
	if removed > 0 {
		logger.Info("media cleanup: done", slog.Int("removed", removed))
	}
	return removed
}
