package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/lecternfm/lectern-backend/internal/db"
	"github.com/lecternfm/lectern-backend/internal/importer"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/platform/s3"
	"github.com/lecternfm/lectern-backend/internal/repos"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(os.Args[2:])
	case "scan":
		err = runScan(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "repair":
		err = runRepair(os.Args[2:])
	case "cover-art":
		err = runCoverArt(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Printf("unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Printf("lecternctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`lecternctl maintains the lectern catalog.

Usage:
  lecternctl import -manifest catalog.yaml [-fresh] [-dry-run] [-emit-sql out.sql] [-concurrency n]
  lecternctl scan [-prefix p/] [-out manifest.yaml]
  lecternctl verify
  lecternctl repair [-dry-run]
  lecternctl cover-art [-font path.ttf]

Connection settings come from the same DB_* and S3_* environment variables the
server reads.
`)
}

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func openDB(log *logger.Logger) (*db.Service, db.Config, error) {
	var cfg db.Config
	if err := env.Parse(&cfg, env.Options{Prefix: "DB_"}); err != nil {
		return nil, cfg, fmt.Errorf("parse DB_ settings: %w", err)
	}
	service, err := db.NewService(cfg, log)
	if err != nil {
		return nil, cfg, err
	}
	if err := service.AutoMigrateAll(); err != nil {
		service.Close()
		return nil, cfg, err
	}
	return service, cfg, nil
}

func openBucket(log *logger.Logger) (s3.BucketService, error) {
	var cfg s3.Config
	if err := env.Parse(&cfg, env.Options{Prefix: "S3_"}); err != nil {
		return nil, fmt.Errorf("parse S3_ settings: %w", err)
	}
	return s3.NewBucketService(cfg, log)
}

func newImporter(log *logger.Logger, dbService *db.Service, bucket s3.BucketService) *importer.Importer {
	gdb := dbService.DB()
	return importer.NewImporter(gdb, log, bucket,
		repos.NewSpeakerRepo(gdb, log),
		repos.NewCollectionRepo(gdb, log),
		repos.NewLectureRepo(gdb, log),
		repos.NewCategoryRepo(gdb, log),
	)
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "manifest file (.yaml, .yml or .json)")
	fresh := fs.Bool("fresh", false, "bulk-load lectures with COPY; requires an empty lecture table")
	dryRun := fs.Bool("dry-run", false, "print the plan without writing anything")
	emitSQL := fs.String("emit-sql", "", "write idempotent SQL to this file instead of loading")
	concurrency := fs.Int("concurrency", 16, "parallel bucket stat requests")
	fs.Parse(args)

	if *manifestPath == "" {
		return fmt.Errorf("-manifest is required")
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	m, err := importer.LoadManifest(*manifestPath)
	if err != nil {
		return err
	}
	m.Normalize()
	if err := m.Validate(); err != nil {
		return err
	}

	bucket, err := openBucket(log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	report, err := importer.Stat(ctx, bucket, m, *concurrency)
	if err != nil {
		return err
	}
	for _, key := range report.Missing {
		fmt.Printf("missing object: %s\n", key)
	}

	stats := m.Stats()
	if *dryRun {
		fmt.Printf("[dry-run] would load %d categories, %d speakers, %d collections, %d lectures (%.1f MiB); %d missing objects skipped\n",
			stats.Categories, stats.Speakers, stats.Collections, report.Statted,
			float64(report.TotalBytes)/(1<<20), len(report.Missing))
		return nil
	}

	if *emitSQL != "" {
		f, err := os.Create(*emitSQL)
		if err != nil {
			return fmt.Errorf("create %s: %w", *emitSQL, err)
		}
		defer f.Close()
		if err := importer.WriteSQL(f, m); err != nil {
			return fmt.Errorf("write sql: %w", err)
		}
		fmt.Printf("wrote %s\n", *emitSQL)
		return nil
	}

	dbService, dbCfg, err := openDB(log)
	if err != nil {
		return err
	}
	defer dbService.Close()

	if *fresh && dbCfg.Driver != "postgres" {
		return fmt.Errorf("-fresh needs the postgres driver, not %q", dbCfg.Driver)
	}

	imp := newImporter(log, dbService, bucket)
	res, err := imp.Run(ctx, m, importer.RunOptions{
		Fresh: *fresh,
		DSN:   dbCfg.DSN(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("done; categories=%d speakers=%d collections=%d lectures=%d links=%d skipped=%d\n",
		res.Categories, res.Speakers, res.Collections, res.Lectures, res.Linked, res.Skipped)
	return nil
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	prefix := fs.String("prefix", "", "bucket prefix to scan")
	out := fs.String("out", "", "write the skeleton manifest here (default stdout)")
	fs.Parse(args)

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	bucket, err := openBucket(log)
	if err != nil {
		return err
	}
	dbService, _, err := openDB(log)
	if err != nil {
		return err
	}
	defer dbService.Close()

	imp := newImporter(log, dbService, bucket)
	result, err := imp.Scan(context.Background(), *prefix)
	if err != nil {
		return err
	}

	for _, key := range result.Skipped {
		fmt.Printf("skipped: %s\n", key)
	}
	newLectures := result.Manifest.Stats().Lectures
	if newLectures == 0 {
		fmt.Println("no unindexed audio objects found")
		return nil
	}

	raw, err := yaml.Marshal(result.Manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if *out == "" {
		os.Stdout.Write(raw)
		return nil
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Printf("wrote %s (%d new lectures)\n", *out, newLectures)
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	fs.Parse(args)

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	dbService, _, err := openDB(log)
	if err != nil {
		return err
	}
	defer dbService.Close()

	imp := newImporter(log, dbService, nil)
	report, err := imp.Verify(context.Background())
	if err != nil {
		return err
	}

	for _, lec := range report.SpeakerMismatches {
		fmt.Printf("speaker mismatch: lecture %s (%s)\n", lec.ID, lec.FileKey)
	}
	for _, lec := range report.Orphans {
		fmt.Printf("orphaned lecture: %s (%s)\n", lec.ID, lec.FileKey)
	}
	for _, d := range report.Drift {
		fmt.Printf("count drift: %s %s %s stored=%d actual=%d\n", d.Entity, d.Slug, d.Field, d.Stored, d.Actual)
	}

	if report.Clean() {
		fmt.Println("catalog is consistent")
		return nil
	}
	return fmt.Errorf("found %d speaker mismatches, %d orphaned lectures, %d drifted counts",
		len(report.SpeakerMismatches), len(report.Orphans), len(report.Drift))
}

func runRepair(args []string) error {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	fs.Parse(args)

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	dbService, _, err := openDB(log)
	if err != nil {
		return err
	}
	defer dbService.Close()

	imp := newImporter(log, dbService, nil)
	ctx := context.Background()

	report, err := imp.Verify(ctx)
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Printf("[dry-run] would fix %d speaker references and %d drifted counts; %d orphaned lectures need manual attention\n",
			len(report.SpeakerMismatches), len(report.Drift), len(report.Orphans))
		return nil
	}

	res, err := imp.Repair(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("repaired; speaker_refs=%d counts=%d\n", res.SpeakerIDsFixed, res.CountsFixed)
	if n := len(report.Orphans); n > 0 {
		fmt.Printf("%d orphaned lectures remain; re-import or remove them by hand\n", n)
	}
	return nil
}

func runCoverArt(args []string) error {
	fs := flag.NewFlagSet("cover-art", flag.ExitOnError)
	fontPath := fs.String("font", "", "TTF font for initials; without it the pass is skipped")
	fs.Parse(args)

	if *fontPath == "" {
		fmt.Println("no -font given; skipping cover generation")
		return nil
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	bucket, err := openBucket(log)
	if err != nil {
		return err
	}
	dbService, _, err := openDB(log)
	if err != nil {
		return err
	}
	defer dbService.Close()

	imp := newImporter(log, dbService, bucket)
	res, err := imp.GenerateCovers(context.Background(), *fontPath)
	if err != nil {
		return err
	}
	fmt.Printf("covers generated; speakers=%d collections=%d\n", res.Speakers, res.Collections)
	return nil
}
