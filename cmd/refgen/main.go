package main

import (
	"bufio"
	"context"
	"flag"
	"os"

	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/csr"
	"github.com/pjavanrood/csrbench/pkg/edgelist"
	"github.com/pjavanrood/csrbench/pkg/verify"
)

var log = util.New("RefGen", util.LogLevelInfo)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	datasetName := flag.String("dataset", "", "Dataset to generate the reference for (default: first dataset)")
	source := flag.Int("source", -1, "Source vertex (default: the dataset's source)")
	outPath := flag.String("out", "", "Output file (default: the dataset's reference path)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.SetLevel(cfg.GetLogLevel())
	edgelist.SetLogLevel(cfg.GetLogLevel())

	ds := &cfg.Datasets[0]
	if *datasetName != "" {
		if ds, err = cfg.GetDatasetByName(*datasetName); err != nil {
			log.Fatalf("%v", err)
		}
	}
	src := *ds.Source
	if *source >= 0 {
		src = *source
	}
	out := *outPath
	if out == "" {
		out = ds.Reference
	}
	if out == "" {
		log.Fatalf("Dataset %s has no reference path; pass -out", ds.Name)
	}

	output, err := bfs.ParseOutput(cfg.Traversal.Output)
	if err != nil {
		log.Fatalf("%v", err)
	}

	edges, stats, err := edgelist.Load(ds.Edges, edgelist.Options{Symmetrize: ds.Symmetrize})
	if err != nil {
		log.Fatalf("Failed to load dataset %s: %v", ds.Name, err)
	}
	g := csr.Build(edges)
	log.Printf("Dataset %s: %d vertices, %d edges (%d lines skipped)", ds.Name, g.NumVertices(), g.NumEdges(), stats.Skipped)

	res, err := bfs.NewSequential().Traverse(context.Background(), g, src)
	if err != nil {
		log.Fatalf("Traversal from %d failed: %v", src, err)
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", out, err)
	}
	w := bufio.NewWriter(f)
	if err := verify.WriteReference(w, res.Values(output)); err != nil {
		log.Fatalf("Failed to write reference: %v", err)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("Failed to write reference: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to write reference: %v", err)
	}
	log.Printf("Wrote %s reference from source %d (%d vertices reached) to %s", output, src, len(res.Order), out)
}
