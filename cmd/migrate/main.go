package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"skyvision/internal/config"
	"skyvision/internal/model"
	"skyvision/internal/repository/sqlite"
	"skyvision/internal/service"
	"skyvision/internal/service/storage"
)

// Reindexes uploads that exist on disk but are missing from the history database.
func main() {
	cfg := config.Load()

	uploadsDir := flag.String("uploads", cfg.UploadDirectory, "Directory containing uploads")
	resultsDir := flag.String("results", cfg.ResultDirectory, "Directory containing result images")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	cfg.UploadDirectory = *uploadsDir
	cfg.ResultDirectory = *resultsDir
	store := storage.NewStore(cfg)

	fmt.Printf("Reindexing uploads from %s into database %s\n", *uploadsDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	predictions := sqlite.NewPredictionRepository(db)

	names, err := store.UploadNames()
	if err != nil {
		log.Fatalf("Failed to read uploads directory: %v", err)
	}

	inserted, skipped := 0, 0
	for _, name := range names {
		alloc, err := storage.ParseName(name)
		if err != nil || !service.AllowedExtension(alloc.Extension) {
			log.Printf("⚠️  Skipping %s: not a stored upload", name)
			skipped++
			continue
		}

		exists, err := predictions.Exists(name)
		if err != nil {
			log.Fatalf("Failed to query database: %v", err)
		}
		if exists {
			continue
		}

		if _, err := store.FileSize(store.ResultPath(alloc.ResultName())); err != nil {
			log.Printf("⚠️  Skipping %s: result image missing", name)
			skipped++
			continue
		}

		size, err := store.FileSize(store.UploadPath(name))
		if err != nil {
			log.Printf("⚠️  Failed to get info for %s: %v", name, err)
			skipped++
			continue
		}

		_, err = predictions.Insert(&model.Prediction{
			Filename:       name,
			OriginalName:   alloc.Base + "." + alloc.Extension,
			ResultFilename: alloc.ResultName(),
			Timestamp:      time.Unix(alloc.Timestamp, 0),
			UploadPath:     store.UploadURL(name),
			ResultPath:     store.ResultURL(alloc.ResultName()),
			FileSize:       size,
		})
		if err != nil {
			log.Printf("⚠️  Failed to insert %s: %v", name, err)
			skipped++
			continue
		}
		inserted++
	}

	fmt.Printf("✅ Reindexed %d uploads\n", inserted)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid name or missing result)\n", skipped)
	}

	total, err := predictions.GetTotalCount(nil)
	if err == nil {
		fmt.Printf("\n📊 Database now holds %d predictions\n", total)
	}
	if size, err := store.Size(); err == nil {
		fmt.Printf("   Storage used: %d bytes\n", size)
	}
}
