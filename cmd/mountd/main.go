package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/eyesky/mount_interface/azalt"
	"github.com/eyesky/mount_interface/internal/config"
	"github.com/eyesky/mount_interface/internal/gpio"
	"github.com/eyesky/mount_interface/mount"
	"github.com/eyesky/mount_interface/power"
)

var (
	configPath  = flag.String("config", "", "path to yaml mount config (compiled-in defaults if empty)")
	credsPath   = flag.String("credentials", "", "path to key=value credentials file")
	commandAddr = flag.String("command_addr", "", "address for the AZ/ALT command socket (overrides config port)")
	httpAddr    = flag.String("http_addr", "127.0.0.1:8502", "address for the status API")
	rotctldAddr = flag.String("rotctld_addr", "", "optional address for the rotctld shim")
	mockGPIO    = flag.Bool("mock_gpio", false, "use the mock GPIO driver (development)")
	tick        = flag.Duration("tick", mount.DefaultTickInterval, "control loop period")
	powerSerial = flag.String("power_serial", "", "serial port of the optional drive power relay board")
	powerBaud   = flag.Int("power_baud", 19200, "relay board baud rate")
)

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *credsPath != "" {
		creds, err := config.LoadCredentials(*credsPath)
		if err != nil {
			log.Fatalf("loading credentials: %v", err)
		}
		log.Printf("network association configured for %q", creds.SSID)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading mount config: %v", err)
	}

	var io gpio.Driver
	if *mockGPIO {
		log.Print("using mock GPIO driver")
		io = gpio.NewMock()
	} else {
		rpi, err := gpio.OpenRPi()
		if err != nil {
			log.Fatalf("opening GPIO: %v", err)
		}
		io = rpi
	}
	defer func() {
		if err := io.Close(); err != nil {
			log.Printf("closing GPIO: %v", err)
		}
	}()

	srv := NewServer()
	statusCallback := srv.statusCallback

	if *powerSerial != "" {
		relay, err := power.Connect(ctx, *powerSerial, *powerBaud, func(status power.Status) {
			srv.powerCallback(status)
		})
		if err != nil {
			log.Fatalf("connecting relay board: %v", err)
		}
		statusCallback = followDrivePower(relay, srv.statusCallback)
	}

	c, err := mount.New(cfg, io, statusCallback)
	if err != nil {
		log.Fatalf("initializing mount: %v", err)
	}
	srv.c = c

	addr := *commandAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	listener := azalt.NewListener(c.ClientConnected, func(cmd azalt.Command) {
		c.Target(cmd.AzDeg, cmd.AltDeg)
	})

	if *rotctldAddr != "" {
		if err := srv.ListenRotctld(ctx, *rotctldAddr); err != nil {
			log.Fatalf("starting rotctld shim: %v", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(ctx, *tick)
	})
	g.Go(func() error {
		log.Printf("command socket listening on %s", addr)
		return listener.Serve(ctx, addr)
	})
	g.Go(func() error {
		r := mux.NewRouter()
		r.HandleFunc("/api/status", srv.StatusHandler)
		r.HandleFunc("/api/ws", srv.StatusSocketHandler)
		hs := &http.Server{
			Handler:      r,
			Addr:         *httpAddr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			<-ctx.Done()
			hs.Close()
		}()
		log.Printf("status API listening on %s", *httpAddr)
		return hs.ListenAndServe()
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}

// followDrivePower slaves the relay board to the safety interlock:
// power comes up when the mount reaches READY and is cut on emergency
// stop.
func followDrivePower(relay *power.Relay, next mount.StatusCallback) mount.StatusCallback {
	var powered bool
	return func(status mount.Status) {
		want := status.Ready && !status.EmergencyStopped
		if want != powered {
			powered = want
			if err := relay.SetDrivePower(want); err != nil {
				log.Printf("commanding drive power %v: %v", want, err)
			}
		}
		next(status)
	}
}
