package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"battdb/internal/config"
	"battdb/internal/logging"
	"battdb/internal/pipeline"
	"battdb/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("DB_PATH", cfg.DBPath))
	must(cfg.Require("OUTPUT_DIR", cfg.OutputDir))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	proc := pipeline.NewProcessingService(db, cfg, log)

	cmd := os.Args[1]
	switch cmd {
	case "ingest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "one source file")
		dir := fs.String("dir", "", "directory of source files")
		_ = fs.Parse(os.Args[2:])
		switch {
		case strings.TrimSpace(*file) != "":
			res, err := proc.IngestFile(*file)
			must(err)
			if !res.Claimed {
				fmt.Printf("not claimed: %s (%s)\n", res.Path, res.Reason)
				return
			}
			fmt.Printf("ingested %s records=%d warnings=%d\n", res.Path, res.Records, res.Warnings)
		case strings.TrimSpace(*dir) != "":
			results, err := proc.IngestDir(*dir)
			must(err)
			claimed, records := 0, 0
			for _, res := range results {
				if res.Claimed {
					claimed++
					records += res.Records
				}
			}
			fmt.Printf("ingested dir=%s files=%d claimed=%d records=%d\n", *dir, len(results), claimed, records)
		default:
			must(fmt.Errorf("--file or --dir is required"))
		}
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", cfg.InputDir, "directory of source files")
		out := fs.String("out", filepath.Join(cfg.OutputDir, "records.xlsx"), "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		results, err := proc.IngestDir(*dir)
		must(err)
		exported, err := proc.ExportXLSX(*out)
		must(err)
		fmt.Printf("run done files=%d records=%d output=%s\n", len(results), exported, *out)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		exported, err := proc.ExportXLSX(*out)
		must(err)
		fmt.Printf("exported %d records to %s\n", exported, *out)
	case "records:count":
		count, err := db.CountRecords()
		must(err)
		fmt.Printf("%d\n", count)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: battdb <command>")
	fmt.Println("commands:")
	fmt.Println("  ingest --file=./data/in/batteries.csv | --dir=./data/in")
	fmt.Println("  run [--dir=./data/in] [--out=./out/records.xlsx]")
	fmt.Println("  export:xlsx --out=./out/records.xlsx")
	fmt.Println("  records:count")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
