package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"potholewatch/internal/repository/jsonstore"
	"potholewatch/internal/repository/sqlite"
)

// migrate imports a browser localStorage dump (a JSON object of key -> value)
// into the server database.
func main() {
	dumpPath := flag.String("dump", "localStorage.json", "localStorage dump to import")
	dbPath := flag.String("db", "data/potholewatch.db", "Database path")
	flag.Parse()

	fmt.Printf("Importing %s into database %s\n", *dumpPath, *dbPath)

	data, err := os.ReadFile(*dumpPath)
	if err != nil {
		log.Fatalf("Failed to read dump: %v", err)
	}
	var dump map[string]json.RawMessage
	if err := json.Unmarshal(data, &dump); err != nil {
		log.Fatalf("Dump is not a JSON object: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	store := sqlite.NewKeyValueRepository(db)
	defer store.Close()

	res, err := jsonstore.Import(store, dump)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("Imported %d history entries and %d reports\n", res.History, res.Reports)
	if res.SkippedHistory > 0 {
		fmt.Printf("Skipped %d history entries already stored\n", res.SkippedHistory)
	}
	if res.SkippedReports > 0 {
		fmt.Printf("Skipped %d reports (duplicate id or invalid)\n", res.SkippedReports)
	}
	if res.Theme != "" {
		fmt.Printf("Theme preference: %s\n", res.Theme)
	}
	for _, key := range res.Ignored {
		fmt.Printf("Ignored unknown key %q\n", key)
	}
}
