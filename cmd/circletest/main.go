// Command circletest exercises the mount with a continuous circular
// trajectory: the azimuth sweeps at a constant rate while the altitude
// follows a sinusoid inside the travel limits. Useful for verifying
// shortest-path azimuth resolution across the 360 degree seam.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"time"
)

var (
	addr     = flag.String("addr", "127.0.0.1:10000", "mount controller command socket")
	azRate   = flag.Float64("az_rate", 2, "azimuth sweep rate in degrees/second")
	altMid   = flag.Float64("alt_mid", 0, "altitude midpoint in degrees")
	altSwing = flag.Float64("alt_swing", 30, "altitude sinusoid amplitude in degrees")
	period   = flag.Duration("alt_period", 2*time.Minute, "altitude sinusoid period")
	interval = flag.Duration("interval", 500*time.Millisecond, "time between updates")
)

func main() {
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("connecting to %s: %v", *addr, err)
	}
	defer conn.Close()
	log.Printf("connected to %s", *addr)

	start := time.Now()
	t := time.NewTicker(*interval)
	defer t.Stop()
	for now := range t.C {
		elapsed := now.Sub(start).Seconds()
		az := math.Mod(*azRate*elapsed, 360)
		alt := *altMid + *altSwing*math.Sin(2*math.Pi*elapsed/period.Seconds())
		if _, err := fmt.Fprintf(conn, "AZ:%.3f ALT:%.3f\n", az, alt); err != nil {
			log.Fatalf("writing: %v", err)
		}
	}
}
