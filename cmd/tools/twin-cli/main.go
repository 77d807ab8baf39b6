package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/annel0/twin-viewer/internal/feed"
)

const defaultNatsURL = "nats://localhost:4222"

// Оперативный CLI для двойника: хвост событий шины, инъекция телеметрии
// позиций и команд подсветки — всё через NATS.
func main() {
	var (
		natsURL    = flag.String("nats", defaultNatsURL, "NATS server URL")
		command    = flag.String("cmd", "tail", "Command: tail, pos, highlight")
		subjects   = flag.String("subjects", "twin.events.>", "Subjects filter for tail (comma-separated)")
		elementID  = flag.String("element", "", "Element ID (pos, highlight)")
		regionID   = flag.String("region", "", "Region ID (highlight)")
		x          = flag.Float64("x", 0, "X coordinate (pos)")
		y          = flag.Float64("y", 0, "Y coordinate (pos)")
		z          = flag.Float64("z", 0, "Z coordinate (pos)")
		color      = flag.String("color", "", "Highlight color hex, e.g. #FF0000 (highlight)")
		wantOff    = flag.Bool("off", false, "Request highlight off instead of on (highlight)")
		posSubject = flag.String("pos-subject", "twin.telemetry.position", "Position telemetry subject")
		cmdSubject = flag.String("cmd-subject", "twin.cmd.highlight", "Highlight command subject")
	)
	flag.Parse()

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer nc.Drain()

	switch *command {
	case "tail":
		if err := tailEvents(nc, parseStringList(*subjects)); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "pos":
		if *elementID == "" {
			log.Fatal("❌ -element is required for pos")
		}
		if err := publishJSON(nc, *posSubject, feed.PositionUpdate{
			ElementID: *elementID,
			X:         *x,
			Y:         *y,
			Z:         *z,
		}); err != nil {
			log.Fatalf("❌ Publish failed: %v", err)
		}
		fmt.Printf("📡 Position sent: %s → (%.2f, %.2f, %.2f)\n", *elementID, *x, *y, *z)

	case "highlight":
		if *elementID == "" || *regionID == "" {
			log.Fatal("❌ -element and -region are required for highlight")
		}
		if err := publishJSON(nc, *cmdSubject, feed.HighlightCommand{
			RegionID:        *regionID,
			ElementID:       *elementID,
			Color:           *color,
			WantHighlighted: !*wantOff,
		}); err != nil {
			log.Fatalf("❌ Publish failed: %v", err)
		}
		fmt.Printf("💡 Highlight command sent: %s/%s want=%v\n", *regionID, *elementID, !*wantOff)

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, pos, highlight")
		os.Exit(1)
	}
}

// tailEvents подписывается на subjects и выводит события до прерывания
func tailEvents(nc *nats.Conn, subjects []string) error {
	if len(subjects) == 0 {
		subjects = []string{"twin.events.>"}
	}

	fmt.Printf("🎬 Tailing %s (Ctrl+C to stop)\n", strings.Join(subjects, ", "))

	count := 0
	for _, subject := range subjects {
		_, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			printEvent(msg)
			count++
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Printf("\n📊 Total events: %d\n", count)
	return nil
}

// printEvent выводит событие шины в читаемом формате
func printEvent(msg *nats.Msg) {
	var ev struct {
		ID        string          `json:"ID"`
		Timestamp time.Time       `json:"Timestamp"`
		Source    string          `json:"Source"`
		EventType string          `json:"EventType"`
		Payload   json.RawMessage `json:"Payload"`
	}
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		fmt.Printf("[%s] %s\n", msg.Subject, string(msg.Data))
		return
	}

	fmt.Printf("[%s] %s [%s] %s\n",
		ev.Timestamp.Format("15:04:05"),
		ev.Source,
		ev.EventType,
		ev.ID)
	if len(ev.Payload) > 0 {
		fmt.Printf("  %s\n", string(ev.Payload))
	}
}

// publishJSON сериализует payload и публикует его в subject
func publishJSON(nc *nats.Conn, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := nc.Publish(subject, data); err != nil {
		return err
	}
	return nc.Flush()
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
