package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/tkoenig/genealogybackend/config"
	"github.com/tkoenig/genealogybackend/handlers"
	"github.com/tkoenig/genealogybackend/media"
	"github.com/tkoenig/genealogybackend/realtime"
	"github.com/tkoenig/genealogybackend/store"
	"github.com/tkoenig/genealogybackend/utils"
	"github.com/tkoenig/genealogybackend/watcher"
	"github.com/tkoenig/genealogybackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.ArchiveRoot, cfg.PeoplePath, cfg.ExportsPath}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	personStore := store.NewPersonStore(cfg.DataFilePath)
	importLog := utils.NewImportLog(cfg.ImportLogPath)
	mediaArea := media.NewArea(cfg.PeoplePath, importLog)
	photoIndex := media.NewIndex(mediaArea)

	log.Printf("Initializing photo processor worker pool (Workers: %d, Queue Size: %d)...", cfg.NumPhotoWorkers, cfg.PhotoQueueSize)
	photoProcessor := workers.NewPhotoProcessor(mediaArea, cfg.ThumbnailMaxSize, cfg.PhotoQueueSize, cfg.NumPhotoWorkers)
	defer photoProcessor.Stop()

	hub := realtime.NewHub()
	go hub.Run()

	archiveWatcher, err := watcher.New(cfg.ArchiveRoot, time.Duration(cfg.WatchDebounceMS)*time.Millisecond, func(paths []string) {
		photoIndex.Invalidate()
		hub.Broadcast(realtime.Event{Type: realtime.EventArchiveChanged, Paths: paths})
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to start archive watcher: %v", err)
	}
	go archiveWatcher.Run()
	defer archiveWatcher.Stop()

	log.Printf("Archive root: %s", cfg.ArchiveRoot)
	log.Printf("People document: %s", cfg.DataFilePath)
	log.Printf("Exports written to: %s", cfg.ExportsPath)
	log.Printf("Thumbnail max size (longest side): %dpx", cfg.ThumbnailMaxSize)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	personHandler := &handlers.PersonHandler{Store: personStore, Media: mediaArea, Hub: hub, Validate: validator.New()}
	mediaHandler := &handlers.MediaHandler{Store: personStore, Media: mediaArea, Index: photoIndex, Processor: photoProcessor, Hub: hub}
	exportHandler := &handlers.ExportHandler{Media: mediaArea, Index: photoIndex, ExportsPath: cfg.ExportsPath, Hub: hub}
	statsHandler := &handlers.StatsHandler{ArchiveRoot: cfg.ArchiveRoot, Store: personStore}

	r.Route("/api", func(r chi.Router) {
		r.Route("/people", func(r chi.Router) {
			r.Post("/", personHandler.CreatePerson)
			r.Get("/", personHandler.ListPeople)
			r.Post("/upsert", personHandler.UpsertPerson)
			r.Post("/import", personHandler.ImportPeople)
			r.Route("/{person_id}", func(r chi.Router) {
				r.Get("/", personHandler.GetPerson)
				r.Put("/", personHandler.UpdatePerson)
				r.Patch("/", personHandler.PatchPerson)
				r.Delete("/", personHandler.DeletePerson)

				r.Route("/avatar", func(r chi.Router) {
					r.Get("/", mediaHandler.GetAvatar)
					r.Put("/", mediaHandler.PutAvatar)
					r.Delete("/", mediaHandler.DeleteAvatar)
				})
				r.Route("/biography", func(r chi.Router) {
					r.Get("/", mediaHandler.GetBiography)
					r.Put("/", mediaHandler.PutBiography)
					r.Post("/images", mediaHandler.AddBiographyImage)
				})
				r.Route("/photos", func(r chi.Router) {
					r.Post("/", mediaHandler.UploadPhoto)
					r.Get("/", mediaHandler.ListPersonPhotos)
					r.Route("/{photo_id}", func(r chi.Router) {
						r.Put("/", mediaHandler.UpdatePhoto)
						r.Delete("/", mediaHandler.DeletePhoto)
					})
				})
			})
		})

		r.Route("/photos", func(r chi.Router) {
			r.Get("/", mediaHandler.ListAllPhotos)
			r.Get("/{photo_id}/path", mediaHandler.GetPhotoPath)
		})

		r.Route("/export", func(r chi.Router) {
			r.Post("/zip", exportHandler.ExportZip)
			r.Post("/pdf", exportHandler.ExportPDF)
		})

		r.Get("/stats", statsHandler.GetStats)
		r.Get("/ws", hub.ServeWS)
		r.Get("/media/*", handlers.AssetServer(cfg.PeoplePath))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
