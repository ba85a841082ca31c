package admin

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/authz"
	"github.com/clearpath-coaching/hugoctx/internal/config"
	"github.com/clearpath-coaching/hugoctx/internal/database"
	"github.com/clearpath-coaching/hugoctx/internal/repository"
	"github.com/clearpath-coaching/hugoctx/internal/service"
	"github.com/spf13/cobra"
)

// DecayCmd returns the one-shot memory decay command, for cron-style
// scheduling instead of the in-process worker.
func DecayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Run one memory decay pass",
		Long:  "Apply one importance decay step to inactive memories and remove expired ones",
		RunE:  runDecay,
	}

	cmd.Flags().Duration("inactivity-threshold", 0, "Override the inactivity threshold (default from config)")

	return cmd
}

func runDecay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	threshold := cfg.DecayInactivityThreshold
	if flagThreshold, _ := cmd.Flags().GetDuration("inactivity-threshold"); flagThreshold > 0 {
		threshold = flagThreshold
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	memorySvc := service.NewMemoryService(repository.NewUserMemoryRepository(pool), authz.NewOwnerAuthorizer())

	start := time.Now()
	decayed, err := memorySvc.RunDecay(ctx, threshold)
	if err != nil {
		return fmt.Errorf("decay pass failed: %w", err)
	}

	log.Printf("decay pass complete: %d memories decayed in %s", decayed, time.Since(start).Round(time.Millisecond))
	return nil
}
