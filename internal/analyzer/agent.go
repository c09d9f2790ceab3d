package analyzer

import (
	"log/slog"

	"github.com/bdougie/visionstream/internal/config"
	"github.com/bdougie/visionstream/internal/gemini"
)

// NewDescriber returns the Gemini client the worker calls, configured from
// cfg. Extra options are applied after the timeout.
func NewDescriber(cfg config.Config, logger *slog.Logger, opts ...gemini.Option) *gemini.Client {
	all := make([]gemini.Option, 0, len(opts)+1)
	if cfg.RequestTimeout > 0 {
		all = append(all, gemini.WithTimeout(cfg.RequestTimeout))
	}
	all = append(all, opts...)
	return gemini.NewClient(logger, all...)
}
