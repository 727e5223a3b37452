// Command ftshare-client is a terminal browsing agent for a LAN file share
// host: list the catalog, download with progress, upload, and remove.
package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faizansabir7/fileTransfer/internal/client"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "info":
		cmdInfo()
	case "list":
		cmdList()
	case "get":
		cmdGet()
	case "put":
		cmdPut()
	case "rm":
		cmdRm()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ftshare-client <info|list|get|put|rm> [args]")
	fmt.Fprintln(os.Stderr, "  info            show the host's advertised address")
	fmt.Fprintln(os.Stderr, "  list            list shared files")
	fmt.Fprintln(os.Stderr, "  get <id> [out]  download a file (default: its shared name)")
	fmt.Fprintln(os.Stderr, "  put <path>      share a local file")
	fmt.Fprintln(os.Stderr, "  rm <id>         stop sharing a file")
	fmt.Fprintln(os.Stderr, "\nThe host base URL comes from --host or FT_HOST.")
}

// hostURL resolves the host base URL from --host=... or the FT_HOST env var.
func hostURL() string {
	for _, arg := range os.Args[2:] {
		if strings.HasPrefix(arg, "--host=") {
			return strings.TrimPrefix(arg, "--host=")
		}
	}
	if url := os.Getenv("FT_HOST"); url != "" {
		return url
	}
	fmt.Fprintln(os.Stderr, "Error: set FT_HOST or pass --host=http://<ip>:<port>")
	os.Exit(1)
	return ""
}

// positional returns non-flag arguments after the subcommand.
func positional() []string {
	var out []string
	for _, arg := range os.Args[2:] {
		if !strings.HasPrefix(arg, "--") {
			out = append(out, arg)
		}
	}
	return out
}

func newClient() *client.Client {
	return client.New(hostURL(), 15*time.Second)
}

func cmdInfo() {
	info, err := newClient().NetworkInfo(context.Background())
	if err != nil {
		fatal("network info: %v", err)
	}
	fmt.Printf("Host:   %s\n", info.ServerURL)
	fmt.Printf("IP:     %s\n", info.LocalIP)
	fmt.Printf("Status: %s\n", info.Status)
}

func cmdList() {
	files, err := newClient().ListFiles(context.Background())
	if err != nil {
		fatal("list files: %v", err)
	}
	if len(files) == 0 {
		fmt.Println("No files shared.")
		return
	}
	for _, f := range files {
		fmt.Printf("%-36s  %10s  %s\n", f.ID, formatSize(f.Size), f.Name)
	}
}

func cmdGet() {
	args := positional()
	if len(args) < 1 {
		fatal("usage: ftshare-client get <id> [out]")
	}
	id := args[0]
	c := newClient()

	// Resolve the shared name for the default output path.
	outPath := ""
	if len(args) > 1 {
		outPath = args[1]
	} else {
		files, err := c.ListFiles(context.Background())
		if err != nil {
			fatal("list files: %v", err)
		}
		for _, f := range files {
			if f.ID == id {
				outPath = filepath.Base(f.Name)
				break
			}
		}
		if outPath == "" {
			outPath = id
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		fatal("create %s: %v", outPath, err)
	}
	defer out.Close()

	lastPct := -1
	n, err := c.Download(context.Background(), id, out, func(received, total int64) {
		if total <= 0 {
			return
		}
		pct := int(received * 100 / total)
		if pct != lastPct {
			fmt.Printf("\r%3d%% (%s / %s)", pct, formatSize(received), formatSize(total))
			lastPct = pct
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr)
		os.Remove(outPath)
		fatal("download: %v", err)
	}
	fmt.Printf("\rSaved %s (%s)\n", outPath, formatSize(n))
}

func cmdPut() {
	args := positional()
	if len(args) < 1 {
		fatal("usage: ftshare-client put <path>")
	}
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		fatal("open %s: %v", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(name))

	meta, err := newClient().Upload(context.Background(), name, mimeType, f)
	if err != nil {
		fatal("upload: %v", err)
	}
	fmt.Printf("Shared %s (%s) as %s\n", meta.Name, formatSize(meta.Size), meta.ID)
}

func cmdRm() {
	args := positional()
	if len(args) < 1 {
		fatal("usage: ftshare-client rm <id>")
	}
	if err := newClient().Remove(context.Background(), args[0]); err != nil {
		fatal("remove: %v", err)
	}
	fmt.Println("Removed.")
}

// formatSize renders a byte count with a binary unit suffix.
func formatSize(n int64) string {
	const k = 1024
	switch {
	case n >= k*k*k:
		return fmt.Sprintf("%.1f GB", float64(n)/(k*k*k))
	case n >= k*k:
		return fmt.Sprintf("%.1f MB", float64(n)/(k*k))
	case n >= k:
		return fmt.Sprintf("%.1f KB", float64(n)/k)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
