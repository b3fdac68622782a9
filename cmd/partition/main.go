package main

import (
	"flag"

	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/dist"
)

var log = util.New("PartitionMain", util.LogLevelInfo)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	backendName := flag.String("backend", "distributed", "Name of the distributed backend whose peers to serve")
	partitionID := flag.Int("id", -1, "The partition ID to be served")
	flag.Parse()

	log.Printf("Starting partition...")

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.SetLevel(cfg.GetLogLevel())
	dist.SetLogLevel(cfg.GetLogLevel())

	bc, err := cfg.GetBackendByName(*backendName)
	if err != nil {
		log.Fatalf("Failed to find backend: %v", err)
	}
	if bc.Kind != config.KindDistributed || bc.Transport != "tcp" {
		log.Fatalf("Backend %s is not a distributed backend with tcp transport", bc.Name)
	}

	// only ids of configured peers are valid
	var peer *config.PeerConfig
	for i := range bc.Peers {
		if bc.Peers[i].ID == *partitionID {
			peer = &bc.Peers[i]
		}
	}
	if peer == nil {
		log.Fatalf("Invalid partition ID, %d, for backend %s (%d peers), ensure proper partition ID is passed with '-id' flag", *partitionID, bc.Name, len(bc.Peers))
	}
	log.Printf("Partitioning: %s, %d partitions", bc.Partitioning, bc.Partitions)

	srv, err := dist.NewServer(dist.NewPartition(peer.ID))
	if err != nil {
		log.Fatalf("Failed to create partition %d: %v", peer.ID, err)
	}
	if err := srv.ListenAndServe(peer.GetAddress()); err != nil {
		log.Fatalf("Failed to serve partition %d: %v", peer.ID, err)
	}
}
