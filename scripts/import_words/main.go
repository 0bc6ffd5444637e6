package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/mroshb/word_game/internal/config"
	"github.com/mroshb/word_game/internal/database"
	"github.com/mroshb/word_game/internal/grader"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/repositories"
	"github.com/mroshb/word_game/pkg/logger"
)

func main() {
	path := flag.String("file", "", "xlsx workbook, one sheet per language code")
	dryRun := flag.Bool("dry-run", false, "print what would be imported without touching the database")
	batch := flag.Int("batch", 500, "rows per insert batch")
	flag.Parse()

	if *path == "" {
		log.Fatal("-file is required")
	}

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	entries, err := grader.ReadWorkbook(*path)
	if err != nil {
		log.Fatal(err)
	}

	perSheet := make(map[string]int)
	for _, e := range entries {
		perSheet[e.Language]++
	}
	for lang, n := range perSheet {
		fmt.Printf("Sheet %s: %d words\n", lang, n)
	}

	if *dryRun {
		shown := make(map[string]int)
		for _, e := range entries {
			if shown[e.Language] >= 5 {
				continue
			}
			shown[e.Language]++
			fmt.Printf("  %s/%s: %s\n", e.Language, e.Category, e.Word)
		}
		return
	}

	logger.Init()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	words := make([]models.DictionaryWord, 0, len(entries))
	for _, e := range entries {
		words = append(words, models.DictionaryWord{Language: e.Language, Category: e.Category, Word: e.Word})
	}

	repo := repositories.NewDictionaryRepository(db)
	inserted, err := repo.BulkInsert(context.Background(), words, *batch)
	if err != nil {
		log.Fatal("Import failed: ", err)
	}

	fmt.Printf("Imported %d new words (%d read, duplicates skipped)\n", inserted, len(words))
	for lang := range perSheet {
		total, err := repo.Count(context.Background(), lang)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  %s now has %d words\n", lang, total)
	}
}
