package controller

import (
	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/target"
)

// BuildRequest assembles a RunRequest from cfg. targets overrides
// cfg.Targets when non-empty.
func BuildRequest(cfg *config.Config, cat *catalog.Catalog, targets []string) (RunRequest, error) {
	if len(targets) > 0 {
		c := *cfg
		c.Targets = targets
		cfg = &c
	}
	pairs, err := cfg.Pairs()
	if err != nil {
		return RunRequest{}, err
	}
	sel, err := target.NewSelection(cat, pairs)
	if err != nil {
		return RunRequest{}, err
	}
	return RunRequest{
		Selection:  sel,
		Apply:      cfg.Buttons.Apply,
		Change:     cfg.Buttons.Change,
		Region:     cfg.Region,
		Settle:     cfg.Timing.Settle,
		ClickDelay: cfg.Timing.ClickDelay,
	}, nil
}
