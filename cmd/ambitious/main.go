package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ambitious/internal/api"
	"ambitious/internal/cmdlog"
	"ambitious/internal/config"
	"ambitious/internal/jobs"
	"ambitious/internal/logging"
	"ambitious/internal/metrics"
	"ambitious/internal/schedule"
	"ambitious/internal/theme"
)

const defaultConfig = "./ambitious.yaml"

func main() {
	_ = godotenv.Load()
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "serve":
		cmdServe()
	case "generate":
		cmdGenerate()
	case "batch":
		cmdBatch()
	case "refill":
		cmdRefill()
	case "engage":
		cmdEngage()
	case "publish":
		cmdPublish()
	case "schedule":
		cmdSchedule()
	case "migrate":
		cmdMigrate()
	case "token":
		cmdToken()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: ambitious <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./ambitious.yaml")
	fmt.Println("  serve       Run the admin API and scheduled jobs")
	fmt.Println("  generate    Generate queued posts for one NPC")
	fmt.Println("  batch       Generate posts for every active NPC")
	fmt.Println("  refill      Top up pending queues to a minimum size")
	fmt.Println("  engage      Run one engagement sweep over active NPCs")
	fmt.Println("  publish     Publish due queue items")
	fmt.Println("  schedule    Preview an NPC's next posting times")
	fmt.Println("  migrate     Create or update the database schema")
	fmt.Println("  token       Issue an admin API token")
}

func die(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

// loadConfig registers -config on fs. A missing file falls back to defaults plus environment.
func loadConfig(fs *flag.FlagSet) func() config.Config {
	cfgPath := fs.String("config", defaultConfig, "config path")
	return func() config.Config {
		cfg, err := config.Load(*cfgPath)
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
			cfg.ResolveEnv()
			err = cfg.Validate()
		}
		if err != nil {
			die(err)
		}
		return cfg
	}
}

func mustApp(ctx context.Context, cfg config.Config) *app {
	a, err := newApp(ctx, cfg)
	if err != nil {
		die(err)
	}
	return a
}

func cmdInit() {
	out := flag.NewFlagSet("init", flag.ExitOnError)
	path := out.String("path", defaultConfig, "path to write config")
	_ = out.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		die(err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	load := loadConfig(fs)
	noJobs := fs.Bool("no-jobs", false, "serve the API without scheduled jobs")
	_ = fs.Parse(os.Args[2:])
	cfg := load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a := mustApp(ctx, cfg)
	defer a.Close()

	metrics.StartServer(cfg.Metrics.Addr)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.NewRouter(a.apiDeps()), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logging.Info("admin api listening", map[string]any{"addr": cfg.Server.Addr, "auth": cfg.Server.JWTSecret != ""})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("admin api stopped", map[string]any{"error": err})
			stop()
		}
	}()

	if !*noJobs {
		s, err := jobs.NewScheduler(ctx, cfg.Jobs, a.jobDeps())
		if err != nil {
			die(err)
		}
		go func() { _ = s.Run(ctx) }()
	}

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdown)
	logging.Info("shutdown complete", nil)
}

func cmdGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	load := loadConfig(fs)
	npcID := fs.String("npc", "", "npc id")
	count := fs.Int("count", 3, "posts to generate")
	_ = fs.Parse(os.Args[2:])
	if *npcID == "" {
		die(errors.New("-npc is required"))
	}
	ctx := context.Background()
	a := mustApp(ctx, load())
	defer a.Close()
	err := cmdlog.Run("generate", func() error {
		posts, err := a.gen.GeneratePostsForNPC(ctx, *npcID, *count)
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d/%d posts\n", len(posts), *count)
		for _, p := range posts {
			fmt.Printf("%s [%s] %s\n", p.ScheduledFor.Format(time.RFC3339), p.PostType, p.Content)
		}
		return nil
	})
	if err != nil {
		die(err)
	}
}

func cmdBatch() {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	load := loadConfig(fs)
	perNPC := fs.Int("per-npc", -1, "posts per npc (0 sizes from each schedule; default from config)")
	_ = fs.Parse(os.Args[2:])
	cfg := load()
	if *perNPC < 0 {
		*perNPC = cfg.Jobs.PostsPerNPC
	}
	ctx := context.Background()
	a := mustApp(ctx, cfg)
	defer a.Close()
	err := cmdlog.Run("batch", func() error {
		res, err := a.gen.GenerateBatchForActiveNPCs(ctx, *perNPC)
		if err != nil {
			return err
		}
		printErrors(fmt.Sprintf("NPCs: %d  generated: %d", res.NPCs, res.Generated), res.Errors)
		return nil
	})
	if err != nil {
		die(err)
	}
}

func cmdRefill() {
	fs := flag.NewFlagSet("refill", flag.ExitOnError)
	load := loadConfig(fs)
	minSize := fs.Int("min", 0, "minimum pending queue size (default from config)")
	_ = fs.Parse(os.Args[2:])
	cfg := load()
	if *minSize <= 0 {
		*minSize = cfg.Jobs.MinQueueSize
	}
	ctx := context.Background()
	a := mustApp(ctx, cfg)
	defer a.Close()
	res, err := jobs.RunRefillOnce(ctx, a.jobDeps(), *minSize)
	if err != nil {
		die(err)
	}
	printErrors(fmt.Sprintf("NPCs: %d  generated: %d", res.NPCs, res.Generated), res.Errors)
}

func cmdEngage() {
	fs := flag.NewFlagSet("engage", flag.ExitOnError)
	load := loadConfig(fs)
	_ = fs.Parse(os.Args[2:])
	ctx := context.Background()
	a := mustApp(ctx, load())
	defer a.Close()
	res, err := jobs.RunEngagementOnce(ctx, a.jobDeps())
	if err != nil {
		die(err)
	}
	printErrors(fmt.Sprintf("NPCs: %d  likes: %d  comments: %d", res.NPCs, res.Likes, res.Comments), res.Errors)
}

func cmdPublish() {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	load := loadConfig(fs)
	limit := fs.Int("limit", 0, "max items (default from config)")
	_ = fs.Parse(os.Args[2:])
	cfg := load()
	if *limit <= 0 {
		*limit = cfg.Jobs.PublishBatch
	}
	ctx := context.Background()
	a := mustApp(ctx, cfg)
	defer a.Close()
	res, err := jobs.RunPublishOnce(ctx, a.jobDeps(), *limit)
	if err != nil {
		die(err)
	}
	printErrors(fmt.Sprintf("published: %d  failed: %d  skipped: %d", res.Published, res.Failed, res.Skipped), res.Errors)
}

func cmdSchedule() {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	load := loadConfig(fs)
	npcID := fs.String("npc", "", "npc id")
	count := fs.Int("count", 5, "times to preview")
	_ = fs.Parse(os.Args[2:])
	if *npcID == "" {
		die(errors.New("-npc is required"))
	}
	ctx := context.Background()
	a := mustApp(ctx, load())
	defer a.Close()
	npc, err := a.db.GetNPCByID(ctx, *npcID)
	if err != nil {
		die(err)
	}
	if npc.PostingTimes == nil {
		fmt.Println("No posting schedule; legacy spacing applies")
	} else {
		fmt.Printf("Mode: %s  active %02d:00-%02d:00  batch size %d\n", npc.PostingTimes.Mode,
			npc.PostingTimes.ActiveHours.StartHour, npc.PostingTimes.ActiveHours.EndHour, schedule.PostsToGenerate(*npc.PostingTimes))
	}
	for _, t := range a.sched.PostTimes(npc.PostingTimes, *count, time.Now().UTC()) {
		fmt.Println(t.Format(time.RFC3339))
	}
}

func cmdMigrate() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	load := loadConfig(fs)
	_ = fs.Parse(os.Args[2:])
	cfg := load()
	a := mustApp(context.Background(), cfg)
	defer a.Close()
	fmt.Println("Schema up to date:", cfg.Database.Driver)
}

func cmdToken() {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	load := loadConfig(fs)
	subject := fs.String("sub", "admin", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(os.Args[2:])
	cfg := load()
	tok, err := api.IssueToken(cfg.Server.JWTSecret, *subject, *ttl)
	if err != nil {
		die(err)
	}
	fmt.Println(tok)
}

func printErrors(summary string, errs []string) {
	fmt.Println(summary)
	for _, e := range errs {
		fmt.Println("  -", e)
	}
}
