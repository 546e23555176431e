// ABOUTME: Headless diagnostic that measures clock sync against a server
// ABOUTME: Runs probe bursts and reports offset, drift, and burst tuning
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Unison-Protocol/unison-go/internal/version"
	"github.com/Unison-Protocol/unison-go/pkg/protocol"
	"github.com/Unison-Protocol/unison-go/pkg/timesync"
)

var (
	serverAddr = flag.String("server", fmt.Sprintf("localhost:%d", protocol.DefaultPort), "Server address")
	name       = flag.String("name", "sync-probe", "Player name")
	duration   = flag.Duration("duration", 30*time.Second, "How long to probe before exiting")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	fmt.Println("=== Unison Clock Sync Probe ===")
	fmt.Printf("Server:   %s\n", *serverAddr)
	fmt.Printf("Duration: %s\n", *duration)
	fmt.Println()

	client := protocol.NewClient(protocol.Config{
		ServerAddr: *serverAddr,
		ClientID:   uuid.New().String(),
		Name:       *name,
		Version:    1,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
		PlayerV1Support: protocol.PlayerV1Support{
			SupportedFormats: []protocol.AudioFormat{
				{Codec: "pcm", Channels: 2, SampleRate: 48000, BitDepth: 16},
			},
			BufferCapacity:    1048576,
			SupportedCommands: []string{},
		},
	})

	if err := client.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer client.Close()

	filter := timesync.NewFilter()
	controller := timesync.NewController(timesync.Config{}, client.SendTimeProbe, filter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller.Start(ctx)
	defer controller.Stop()

	// Feed completed exchanges into the controller
	go func() {
		for m := range client.TimeMeasurements {
			controller.Feed(m)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	report := time.NewTicker(time.Second)
	defer report.Stop()

	deadline := time.After(*duration)

	for {
		select {
		case <-report.C:
			printReport(filter, controller)
		case <-deadline:
			fmt.Println()
			printSummary(filter, controller)
			client.SendGoodbye("shutdown")
			return
		case <-sigChan:
			fmt.Println()
			printSummary(filter, controller)
			client.SendGoodbye("shutdown")
			return
		}
	}
}

// printReport logs one line of current sync state
func printReport(filter *timesync.Filter, controller *timesync.Controller) {
	if !filter.IsReady() {
		log.Printf("waiting for first measurement...")
		return
	}

	tuning := controller.Tuning()
	log.Printf("offset=%+dμs err=±%dμs rtt=%dμs drift=%+.1fppm jitter=%dμs burst=%d/%s quality=%s",
		filter.OffsetMicros(), filter.ErrorMicros(), filter.LastRTTMicros(),
		filter.DriftPPM(), controller.JitterMicros(),
		tuning.BurstCount, tuning.Interval, filter.CheckQuality())
}

// printSummary prints the final sync verdict
func printSummary(filter *timesync.Filter, controller *timesync.Controller) {
	fmt.Println("=== Summary ===")
	if !filter.IsReady() {
		fmt.Println("No measurements accepted. Is the server reachable?")
		return
	}

	fmt.Printf("Offset:    %+dμs (±%dμs)\n", filter.OffsetMicros(), filter.ErrorMicros())
	fmt.Printf("Drift:     %+.2f ppm\n", filter.DriftPPM())
	fmt.Printf("Last RTT:  %dμs\n", filter.LastRTTMicros())
	fmt.Printf("Jitter:    %dμs over %d samples\n", controller.JitterMicros(), controller.HistoryLen())
	fmt.Printf("Converged: %v\n", filter.IsConverged())
	fmt.Printf("Quality:   %s\n", filter.CheckQuality())
}
