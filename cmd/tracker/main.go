// Command tracker streams target angles for a solar-system body to the
// mount controller, either over its TCP command socket or over a
// serial link. It is the command producer the controller expects: one
// "AZ:<az> ALT:<alt>" line per interval, fire and forget.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pebbe/novas"
	"github.com/tarm/serial"
)

var (
	addr       = flag.String("addr", "127.0.0.1:10000", "mount controller command socket")
	serialPort = flag.String("serial", "", "send over this serial port instead of TCP")
	baud       = flag.Int("baud", 115200, "serial baud rate")
	bodyName   = flag.String("body", "moon", "body to track")
	latitude   = flag.Float64("latitude", 42.360091, "observer latitude in degrees")
	longitude  = flag.Float64("longitude", -71.09416, "observer longitude in degrees")
	height     = flag.Float64("height", 0, "observer height in meters")
	interval   = flag.Duration("interval", time.Second, "time between position updates")
)

var bodies = map[string]func() *novas.Body{
	"sun":     novas.Sun,
	"moon":    novas.Moon,
	"mercury": novas.Mercury,
	"venus":   novas.Venus,
	"mars":    novas.Mars,
	"jupiter": novas.Jupiter,
	"saturn":  novas.Saturn,
	"uranus":  novas.Uranus,
	"neptune": novas.Neptune,
}

func bodyNames() string {
	var names []string
	for name := range bodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func main() {
	flag.Parse()

	newBody, ok := bodies[strings.ToLower(*bodyName)]
	if !ok {
		log.Fatalf("unknown body %q; known bodies: %s", *bodyName, bodyNames())
	}
	body := newBody()
	place := novas.NewPlace(*latitude, *longitude, *height, 10, 1010)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for ctx.Err() == nil {
		conn, err := open(ctx)
		if err != nil {
			log.Printf("opening output: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(1 * time.Second):
			}
			continue
		}
		if err := stream(ctx, conn, body, place); err != nil {
			log.Printf("streaming: %v", err)
		}
		conn.Close()
	}
}

func open(ctx context.Context) (io.WriteCloser, error) {
	if *serialPort != "" {
		return serial.OpenPort(&serial.Config{Name: *serialPort, Baud: *baud})
	}
	dialer := &net.Dialer{Timeout: time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", *addr)
	if err != nil {
		return nil, err
	}
	log.Printf("connected to %s", *addr)
	return conn, nil
}

func stream(ctx context.Context, w io.Writer, body *novas.Body, place *novas.Place) error {
	t := time.NewTicker(*interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		pos := body.Topo(novas.Now(), place, novas.REFR_STANDARD)
		alt := pos.Alt
		if _, err := fmt.Fprintf(w, "AZ:%.3f ALT:%.3f\n", pos.Az, alt); err != nil {
			return err
		}
	}
}
