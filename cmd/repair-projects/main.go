package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dimitrije/teamboard/internal/config"
	"github.com/dimitrije/teamboard/internal/logging"
	"github.com/dimitrije/teamboard/internal/services"
	"github.com/dimitrije/teamboard/internal/storage"
)

// repair-projects restores missing creator and membership fields on every
// project and recomputes stored progress. Safe to run repeatedly.
func main() {
	if len(os.Args) > 2 || (len(os.Args) == 2 && os.Args[1] != "-dry-run") {
		fmt.Println("Usage: repair-projects [-dry-run]")
		os.Exit(1)
	}
	dryRun := len(os.Args) == 2

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Log)
	ctx := context.Background()

	store, release, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer release()

	users := services.NewUserService(store, logger)
	projects := services.NewProjectService(store, logger)
	activity := services.NewActivityService(store, logger)
	aggregation := services.NewAggregationService(store, logger)
	membership := services.NewMembershipService(store, projects, users, activity, nil, cfg.BaseURL, logger)

	all, err := projects.All(ctx)
	if err != nil {
		log.Fatalf("Failed to list projects: %v", err)
	}

	var repaired, failed int
	for _, p := range all {
		if dryRun {
			if p.NeedsRepair() {
				fmt.Printf("would repair %s (%s)\n", p.ID, p.Title)
				repaired++
			}
			continue
		}

		fixed, err := membership.RepairProject(ctx, p)
		if err != nil {
			fmt.Printf("failed to repair %s: %v\n", p.ID, err)
			failed++
			continue
		}
		if fixed {
			repaired++
		}
		if _, err := aggregation.RefreshProgress(ctx, p.ID); err != nil {
			fmt.Printf("failed to refresh progress of %s: %v\n", p.ID, err)
			failed++
		}
	}

	fmt.Printf("Checked %d projects: %d repaired, %d failed\n", len(all), repaired, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
