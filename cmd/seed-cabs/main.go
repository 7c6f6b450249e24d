// README: Seeds the fleet with a handful of active cabs for local runs.
package main

import (
	"context"
	"flag"
	"log"

	"hubpool/internal/config"
	"hubpool/internal/infra"
	"hubpool/internal/modules/fleet"
)

func main() {
	count := flag.Int("count", 5, "number of cabs to create")
	reset := flag.Bool("reset", true, "delete existing cabs first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	if *reset {
		for _, table := range []string{"ride_requests", "ride_groups", "cabs"} {
			if _, err := dbPool.Exec(ctx, "DELETE FROM "+table); err != nil {
				log.Fatalf("clear %s: %v", table, err)
			}
		}
	}

	store := fleet.NewStore(dbPool)
	for i := 0; i < *count; i++ {
		if _, err := store.Create(ctx, cfg.Pooling.SeatCapacity, cfg.Pooling.LuggageCapacity); err != nil {
			log.Fatalf("seed cab: %v", err)
		}
	}
	log.Printf("%d cabs seeded", *count)
}
