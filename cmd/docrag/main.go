package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/viant/docrag/service"
)

var version = "dev"

func main() {
	startGops()
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(os.Args[2:])
	case "rechunk":
		rechunkCmd(os.Args[2:])
	case "upload":
		uploadCmd(os.Args[2:])
	case "ask":
		askCmd(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: docrag <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve    Run the HTTP API (and the MCP server when configured)")
	fmt.Fprintln(os.Stderr, "  rechunk  Re-ingest the corpus with the given chunk parameters")
	fmt.Fprintln(os.Stderr, "  upload   Store a file under a category and ingest it")
	fmt.Fprintln(os.Stderr, "  ask      Answer a question from the indexed documents")
	fmt.Fprintln(os.Stderr, "  version  Print the build version")
}

func rechunkCmd(args []string) {
	flags := flag.NewFlagSet("rechunk", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml (optional, defaults to ~/docrag/config.yaml if present)")
	length := flags.Int("chunk-length", 0, "chunk length in characters (default from config)")
	overlap := flags.Int("chunk-overlap", -1, "chunk overlap in characters (default from config)")
	category := flags.String("category", "", "only documents in this category")
	file := flags.String("file", "", "only documents with this file name")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	svc := mustService(ctx, *configPath)
	defer func() { _ = svc.Close() }()

	req := &service.RechunkRequest{SpecificCategory: *category, SpecificFile: *file}
	if *length > 0 {
		req.ChunkLength = length
	}
	if *overlap >= 0 {
		req.ChunkOverlap = overlap
	}
	result, err := svc.Rechunk(ctx, req)
	if err != nil {
		log.Fatalf("rechunk: %v", err)
	}
	printJSON(result)
}

func uploadCmd(args []string) {
	flags := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml (optional, defaults to ~/docrag/config.yaml if present)")
	category := flags.String("category", "", "target category (required)")
	file := flags.String("file", "", "local file to upload (required)")
	flags.Parse(args)
	if strings.TrimSpace(*category) == "" || strings.TrimSpace(*file) == "" {
		flags.Usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	svc := mustService(ctx, *configPath)
	defer func() { _ = svc.Close() }()

	result, err := svc.Upload(ctx, &service.UploadRequest{Category: *category, Filename: filepath.Base(*file), Data: data})
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	printJSON(result)
}

func askCmd(args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml (optional, defaults to ~/docrag/config.yaml if present)")
	question := flags.String("question", "", "question to answer (or remaining args)")
	flags.Parse(args)
	q := *question
	if q == "" {
		q = strings.Join(flags.Args(), " ")
	}
	if strings.TrimSpace(q) == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	svc := mustService(ctx, *configPath)
	defer func() { _ = svc.Close() }()

	got, err := svc.Ask(ctx, q)
	if err != nil {
		log.Fatalf("ask: %v", err)
	}
	fmt.Println(got.Answer)
	for _, source := range got.Sources {
		fmt.Printf("- %s (category=%s chunk=%d score=%.4f)\n", source.Filename, source.Category, source.ChunkIndex, source.Score)
	}
}

func mustService(ctx context.Context, configPath string) *service.Service {
	cfg, err := service.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	svc, err := newService(ctx, cfg)
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	return svc
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}
