package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/yungbote/infographic-backend/internal/app"
	"github.com/yungbote/infographic-backend/internal/services"
)

func main() {
	var (
		tenant string
		limit  int
		dryRun bool
	)
	flag.StringVar(&tenant, "tenant", "", "tenant id to backfill (default: every tenant)")
	flag.IntVar(&limit, "limit", 20, "maximum number of styles processed (capped at 100)")
	flag.BoolVar(&dryRun, "dry-run", false, "compute embeddings without persisting them")
	flag.Parse()

	_ = godotenv.Load()

	var tenantID *uuid.UUID
	if t := strings.TrimSpace(tenant); t != "" {
		id, err := uuid.Parse(t)
		if err != nil || id == uuid.Nil {
			fmt.Printf("invalid -tenant %q\n", t)
			os.Exit(2)
		}
		tenantID = &id
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := application.Services.Backfill.Run(ctx, services.BackfillRequest{
		TenantID: tenantID,
		Limit:    limit,
		DryRun:   dryRun,
	})
	if err != nil {
		fmt.Printf("backfill failed: %v\n", err)
		application.Close()
		os.Exit(1)
	}
	for _, f := range res.Failed {
		if f.Cause != nil {
			fmt.Printf("failed style_id=%s reason=%s error=%v\n", f.StyleID, f.Reason, f.Cause)
			continue
		}
		fmt.Printf("failed style_id=%s reason=%s\n", f.StyleID, f.Reason)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
