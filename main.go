package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"reelforge/analyze"
	"reelforge/api"
	"reelforge/config"
	"reelforge/describe"
	"reelforge/events"
	"reelforge/export"
	"reelforge/publish"
	"reelforge/render"
	"reelforge/session"
	"reelforge/statuslog"
	"reelforge/storage"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	ctx := context.Background()
	activity := session.NewActivity()
	statusLog := statuslog.NewRegistry()

	store := initializeStore(activity)
	clips := initializeClipStore(ctx)

	describer := describe.NewDescriberFromEnv()
	rewriter := describe.NewRewriterFromEnv()

	pub, err := events.NewPublisherFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	defer pub.Close()

	youtube, err := publish.NewUploaderFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize YouTube uploader: %v", err)
	}
	if youtube != nil {
		log.Println("YouTube publishing enabled")
	}

	processor := analyze.NewProcessor(store, clips, describer, activity, statusLog)
	scheduler := export.NewScheduler(store, clips, render.NewFFmpegEngine(), pub, youtube, activity, statusLog, export.Options{
		PoolSize: envInt("EXPORT_POOL_SIZE", config.ExportPoolSize),
	})

	r := api.NewRouter(api.Deps{
		Store:     store,
		Processor: processor,
		Scheduler: scheduler,
		Rewriter:  rewriter,
		Log:       statusLog,
	})

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET    /api/health")
	log.Println("  GET    /api/sessions/:id")
	log.Println("  DELETE /api/sessions/:id")
	log.Println("  POST   /api/sessions/:id/files")
	log.Println("  GET    /api/sessions/:id/status")
	log.Println("  POST   /api/sessions/:id/analyze/start")
	log.Println("  POST   /api/sessions/:id/analyze/step")
	log.Println("  POST   /api/sessions/:id/analyze/run")
	log.Println("  GET    /api/sessions/:id/analyze/status")
	log.Println("  GET    /api/sessions/:id/analyze/results")
	log.Println("  POST   /api/sessions/:id/timings")
	log.Println("  POST   /api/sessions/:id/storyboard/generate")
	log.Println("  GET    /api/sessions/:id/config")
	log.Println("  PUT    /api/sessions/:id/config")
	log.Println("  GET    /api/sessions/:id/captions")
	log.Println("  POST   /api/sessions/:id/captions")
	log.Println("  POST   /api/sessions/:id/overlay")
	log.Println("  POST   /api/sessions/:id/tts")
	log.Println("  POST   /api/sessions/:id/cta")
	log.Println("  POST   /api/sessions/:id/fgscale")
	log.Println("  GET    /api/sessions/:id/export_mode")
	log.Println("  POST   /api/sessions/:id/export_mode")
	log.Println("  POST   /api/sessions/:id/export")
	log.Println("  GET    /api/exports/:task_id")
	log.Println("  POST   /api/exports/:task_id/cancel")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// initializeStore prefers Redis when configured; otherwise sessions live
// in process memory.
func initializeStore(activity *session.Activity) session.Store {
	if os.Getenv("REDIS_ADDR") == "" {
		log.Println("REDIS_ADDR not set; using in-memory session store")
		return session.NewMemoryStore(activity)
	}
	store, err := session.NewRedisStoreFromEnv(activity)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Session store: Redis")
	return store
}

// initializeClipStore prefers S3 when a bucket is configured, falling back
// to a local directory tree.
func initializeClipStore(ctx context.Context) storage.ClipStore {
	s3Store, err := storage.NewS3StoreFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}
	if s3Store != nil {
		log.Println("Clip store: S3")
		return s3Store
	}

	root := config.GetEnvOrDefault("CLIP_STORE_DIR", "./clips")
	local, err := storage.NewLocalStore(root)
	if err != nil {
		log.Fatalf("Failed to initialize local clip storage at %s: %v", root, err)
	}
	log.Printf("Clip store: local directory %s", root)
	return local
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
