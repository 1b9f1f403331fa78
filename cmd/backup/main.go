package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"eduportal/internal/config"
	"eduportal/internal/repository"
	"eduportal/internal/securestore"
	"eduportal/internal/service"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Debug(err.Error())
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen})))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Replace existing data with the backup (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load configuration", err)
	}

	store, db, err := securestore.Open(ctx, cfg)
	if err != nil {
		fatal("Failed to open storage", err)
	}
	defer db.Close()

	familyRepo := repository.NewFamilyRepository(store, nil)
	calendarRepo := repository.NewCalendarRepository(store, nil)
	familyRepo.Load(ctx)
	calendarRepo.Load(ctx)

	backupService := service.NewBackupService(familyRepo, calendarRepo, repository.NewSettingsRepository(store), cfg.DatabaseType)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, backupService, *importInput, *importClear)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fatal("Failed to create output directory", err)
		}
	}

	slog.Info("exporting storage", "path", outputPath)
	if err := backupService.Export(ctx, outputPath); err != nil {
		fatal("Export failed", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err != nil {
		fatal("Failed to stat export", err)
	}
	slog.Info("export complete", "size_kb", fmt.Sprintf("%.1f", float64(fileInfo.Size())/1024))
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, replace bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		fatal("Input file does not exist", err)
	}

	if replace {
		fmt.Print("WARNING: This will replace all family members and events. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			slog.Info("import cancelled")
			return
		}
	}

	slog.Info("importing storage", "path", inputPath, "replace", replace)
	if err := backupService.Import(ctx, inputPath, replace); err != nil {
		fatal("Import failed", err)
	}
	slog.Info("import complete")
}

func printUsage() {
	fmt.Println("Edu Portal Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export family members and events to JSON")
	fmt.Println("  backup import [options]    Import family members and events from JSON")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Replace existing data instead of merging (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export -output mybackup.json")
	fmt.Println("  backup import -input backup.json")
	fmt.Println("  backup import -input backup.json -clear")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./eduportal.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  MASTER_KEY_HEX   Storage encryption key (default: read from MASTER_KEY_PATH)")
}
