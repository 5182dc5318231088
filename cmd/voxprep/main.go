package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mfreitas/voxprep/internal/bus"
	"github.com/mfreitas/voxprep/internal/capture"
	"github.com/mfreitas/voxprep/internal/client"
	"github.com/mfreitas/voxprep/internal/pcm"
	"github.com/mfreitas/voxprep/internal/playback"
	"github.com/mfreitas/voxprep/internal/relay"
)

func main() {
	serverFlag := flag.String("server", "ws://127.0.0.1:8080/ws", "relay websocket URL")
	userFlag := flag.String("user", "", "user id (required)")
	nameFlag := flag.String("name", "", "display name")
	roleFlag := flag.String("role", "candidate", "role (candidate or interviewer)")
	peerFlag := flag.String("peer", "", "default peer for chat and audio")
	inFlag := flag.String("in", "", "PCM16 LE file to stream to the peer (16 kHz mono)")
	outFlag := flag.String("out", "", "file for received audio (PCM16 LE, 24 kHz); empty = discard")
	flag.Parse()

	if *userFlag == "" {
		fmt.Fprintln(os.Stderr, "error: -user is required")
		printUsage()
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	name := *nameFlag
	if name == "" {
		name = *userFlag
	}

	outPath := *outFlag
	if outPath == "" {
		outPath = os.DevNull
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = out.Close() }()

	scheduler := playback.NewScheduler(playback.NewWriterRenderer(out), nil, logger)
	defer scheduler.Stop()

	b := bus.New()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := client.Dial(ctx, client.Options{
		ServerURL: *serverFlag,
		UserID:    *userFlag,
		Name:      name,
		Role:      *roleFlag,
	}, scheduler, b, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	go printEvents(ctx, b)

	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	if *inFlag != "" {
		if *peerFlag == "" {
			fmt.Fprintln(os.Stderr, "error: -in requires -peer")
			os.Exit(1)
		}
		if err := streamFile(ctx, c, *inFlag, *peerFlag); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	go readCommands(ctx, c, *peerFlag, cancel)

	select {
	case err := <-runDone:
		if err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "error: connection lost: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}
}

// streamFile sends a PCM16 file to the peer at capture pacing, the way a live
// microphone would.
func streamFile(ctx context.Context, c *client.Client, path, peer string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	dev := capture.NewReaderDevice(f, pcm.CaptureRate, true)
	stream := capture.NewStream(dev, pcm.FrameSamples, pcm.CaptureRate, zap.NewNop())
	if err := stream.Start(ctx); err != nil {
		return err
	}
	defer stream.Stop()

	return c.StreamCapture(ctx, stream, peer)
}

// readCommands turns stdin lines into chat messages to the default peer.
// Lines starting with "/" are commands.
func readCommands(ctx context.Context, c *client.Client, peer string, quit func()) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			quit()
			return
		case line == "/stop":
			c.Interrupt()
		case strings.HasPrefix(line, "/speak "):
			if err := c.Speak(strings.TrimPrefix(line, "/speak ")); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case strings.HasPrefix(line, "/"):
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", line)
		default:
			if peer == "" {
				fmt.Fprintln(os.Stderr, "no -peer set; cannot send chat")
				continue
			}
			if err := c.SendChat(peer, line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

func printEvents(ctx context.Context, b *bus.Bus) {
	events, unsub := b.Subscribe("", 64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			switch evt.Kind {
			case bus.KindChatReceived:
				msg := evt.Payload.(bus.ChatReceived)
				fmt.Printf("[%s] %s\n", msg.SenderID, msg.Content)
			case bus.KindRelayPresence:
				users := evt.Payload.([]relay.PresenceEntry)
				fmt.Printf("presence update: %d user(s) known\n", len(users))
			}
		}
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: voxprep -user <id> [-server <url>] [-peer <id>] [-in <pcm>] [-out <pcm>]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "stdin commands:")
	fmt.Fprintln(os.Stderr, "  <text>           Send chat to the default peer")
	fmt.Fprintln(os.Stderr, "  /speak <text>    Ask the relay to synthesize speech")
	fmt.Fprintln(os.Stderr, "  /stop            Stop playback immediately")
	fmt.Fprintln(os.Stderr, "  /quit            Exit")
}
