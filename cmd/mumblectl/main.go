// mumblectl drives one capture through the mumble API: upload, transcription,
// context submission, image generation and export.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/pkg/client"
	"github.com/yungbote/mumble-backend/pkg/poller"
)

func main() {
	server := flag.String("server", envOr("MUMBLE_SERVER", "http://localhost:8080"), "API base URL")
	device := flag.String("device", os.Getenv("MUMBLE_DEVICE_ID"), "device id (random when empty)")
	lat := flag.Float64("lat", 0, "latitude")
	lon := flag.Float64("lon", 0, "longitude")
	duration := flag.Float64("duration", 5, "clip duration in seconds")
	style := flag.String("style", "", "style preference: balanced|realistic|artistic|abstract")
	out := flag.String("out", "", "directory to export the image into")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: mumblectl [flags] <audio-file>\n       mumblectl [flags] health|gallery\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *device == "" {
		*device = uuid.NewString()
	}
	api, err := client.New(*server, *device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	switch arg := flag.Arg(0); arg {
	case "health":
		os.Exit(runHealth(ctx, api))
	case "gallery":
		os.Exit(runGallery(ctx, api))
	default:
		if *lat == 0 || *lon == 0 {
			fmt.Fprintln(os.Stderr, "Error: -lat and -lon are required")
			os.Exit(2)
		}
		os.Exit(runCapture(ctx, api, captureArgs{
			file:     arg,
			duration: *duration,
			lat:      *lat,
			lon:      *lon,
			style:    *style,
			outDir:   *out,
		}))
	}
}

func runCapture(ctx context.Context, api *client.Client, args captureArgs) int {
	attempts := make(chan poller.Attempt, 16)
	opts := poller.DefaultOptions()
	opts.OnAttempt = func(a poller.Attempt) {
		select {
		case attempts <- a:
		default:
		}
	}

	m := newModel(ctx, api, poller.New(opts), attempts, args)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return 1
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		return 1
	}
	return 0
}

func runHealth(ctx context.Context, api *client.Client) int {
	h, err := api.Health(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("health check failed: "+err.Error()))
		return 1
	}
	status := okStyle.Render(h.Status)
	if h.Status != "ok" {
		status = warnStyle.Render(h.Status)
	}
	fmt.Printf("%s %s (version %s)\n", titleStyle.Render("mumble"), status, h.Version)
	for _, name := range []string{"database", "storage", "ai"} {
		fmt.Printf("  %-9s %s\n", name, h.Services[name])
	}
	if h.Status != "ok" {
		return 1
	}
	return 0
}

func runGallery(ctx context.Context, api *client.Client) int {
	page, err := api.Gallery(ctx, client.GalleryQuery{Limit: 20})
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("gallery failed: "+err.Error()))
		return 1
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("%d image(s) for %s", page.Total, api.DeviceID())))
	for _, img := range page.Images {
		fmt.Printf("  %s  %s  %s\n", img.ImageID, img.CreatedAt.Local().Format("2006-01-02 15:04"), dimStyle.Render(img.Location))
	}
	if page.HasMore {
		fmt.Println(dimStyle.Render("  ..."))
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
