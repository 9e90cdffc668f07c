package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/dpuprov/internal/config"
)

// confirmReprovision shows the workers about to be touched and asks for
// confirmation. Flashing cannot be undone.
func confirmReprovision(ctx context.Context, cfg *config.Config, action string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s on %d worker(s)?", capitalize(action), len(cfg.Workers))).
				Description(strings.Join(cfg.WorkerNames(), ", ")).
				Affirmative("Proceed").
				Negative("Cancel").
				Value(&ok),
		).Title("dpuprov"),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
