// Command ftshare runs the LAN file registry server: it accepts uploads,
// serves the catalog, and streams downloads to any device on the network.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/faizansabir7/fileTransfer/internal/events"
	"github.com/faizansabir7/fileTransfer/internal/history"
	"github.com/faizansabir7/fileTransfer/internal/netinfo"
	"github.com/faizansabir7/fileTransfer/internal/registry"
	"github.com/faizansabir7/fileTransfer/internal/server"
)

const (
	defaultPort = 8080
	// portProbeRange limits how far past the default we search for a free port.
	portProbeRange = 100
)

func main() {
	port := defaultPort
	if env := os.Getenv("PORT"); env != "" {
		p, err := strconv.Atoi(env)
		if err != nil {
			log.Fatalf("invalid PORT %q: %v", env, err)
		}
		port = p
	}

	dataDir := os.Getenv("FT_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	var maxBytes int64
	if env := os.Getenv("FT_MAX_CATALOG_BYTES"); env != "" {
		n, err := strconv.ParseInt(env, 10, 64)
		if err != nil {
			log.Fatalf("invalid FT_MAX_CATALOG_BYTES %q: %v", env, err)
		}
		maxBytes = n
	}

	hist, err := history.Open(filepath.Join(dataDir, "transfers.db"))
	if err != nil {
		log.Fatalf("open transfer history: %v", err)
	}
	defer hist.Close()

	// Bind the first free port at or above the requested one; only a fully
	// exhausted probe range is fatal.
	ln, boundPort, err := listen(port)
	if err != nil {
		log.Fatalf("bind: %v", err)
	}

	catalog := registry.New(maxBytes)
	hub := events.NewHub()
	srv := server.New(catalog, hist, hub, boundPort)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.StartWorkers(ctx)

	httpServer := &http.Server{Handler: srv}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	printBanner(boundPort)

	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
}

// listen binds the first available port at or above start.
func listen(start int) (net.Listener, int, error) {
	for port := start; port < start+portProbeRange; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err == nil {
			if port != start {
				log.Printf("port %d busy, using %d", start, port)
			}
			return ln, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d", start, start+portProbeRange-1)
}

func printBanner(port int) {
	ip, err := netinfo.LocalIP()
	if err != nil {
		log.Printf("warning: %v; other devices may not be able to reach this host", err)
	}
	fmt.Printf("\nLAN file share running\n")
	fmt.Printf("  Local:   http://localhost:%d\n", port)
	fmt.Printf("  Network: %s\n\n", netinfo.BaseURL(ip, port))
	fmt.Println("Open the network URL on any device in the same network to exchange files.")
	fmt.Println("Press Ctrl+C to stop.")
}
