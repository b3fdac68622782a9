package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/pjavanrood/csrbench/internal/util"
)

var log = util.New("Cluster", util.LogLevelInfo)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	backendName := flag.String("backend", "distributed", "Name of the distributed backend whose peers to start")
	flag.Parse()

	log.Printf("Starting partition cluster...")

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	bc, err := cfg.GetBackendByName(*backendName)
	if err != nil {
		log.Fatalf("Failed to find backend: %v", err)
	}
	if bc.Transport != "tcp" {
		log.Fatalf("Backend %s uses %s transport; only tcp peers run as processes", bc.Name, bc.Transport)
	}

	var cmds []*exec.Cmd

	// Start all partitions
	for _, peer := range bc.Peers {
		log.Printf("Starting partition %d on %s...", peer.ID, peer.GetAddress())
		cmd := exec.Command("go", "run", "./cmd/partition",
			"-config", *configPath,
			"-backend", bc.Name,
			"-id", fmt.Sprintf("%d", peer.ID))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Setpgid: true,
		}
		if err := cmd.Start(); err != nil {
			log.Fatalf("Failed to start partition %d: %v", peer.ID, err)
		}
		cmds = append(cmds, cmd)
	}

	// Wait for partitions to be ready
	log.Printf("Waiting for partitions to start...")
	time.Sleep(3 * time.Second)

	log.Printf("Cluster started: %d partition(s), %s partitioning", len(bc.Peers), bc.Partitioning)
	log.Printf("Press Ctrl+C to stop the cluster...")

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Printf("Shutting down cluster...")
	for _, cmd := range cmds {
		if cmd.Process != nil {
			// Kill process group to ensure all child processes are terminated
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}
	log.Printf("Cluster stopped.")
}
