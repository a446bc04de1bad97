// Package modbus wraps a Modbus RTU client with the reconnect-and-poll
// loop shared by the relay board driver.
package modbus

import (
	"context"
	"log"
	"time"

	"github.com/goburrow/modbus"
)

type Client struct {
	// Port and BaudRate select the local serial connection.
	Port string
	// BaudRate defaults to 19200.
	BaudRate int
	SlaveID  byte

	// Poll is called in a loop while the connection is active.
	Poll func() error

	handler *modbus.RTUClientHandler
	modbus.Client
}

func (c *Client) Connect(ctx context.Context) error {
	baud := c.BaudRate
	if baud == 0 {
		baud = 19200
	}
	handler := modbus.NewRTUClientHandler(c.Port)
	handler.BaudRate = baud
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.Timeout = 1 * time.Second
	handler.SlaveId = c.SlaveID
	c.handler = handler
	c.Client = modbus.NewClient(handler)
	go c.reconnectLoop(ctx)
	return nil
}

func (c *Client) reconnectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}

		if err := c.handler.Connect(); err != nil {
			log.Printf("opening %q: %v", c.Port, err)
			continue
		}
		if err := c.watch(ctx); err != nil {
			log.Printf("watching %q: %v", c.Port, err)
		}
	}
}

func (c *Client) watch(ctx context.Context) error {
	defer c.handler.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.Poll(); err != nil {
			return err
		}
	}
}

func (c *Client) WriteCoil(coil int, value bool) error {
	var v uint16
	if value {
		v = 0xFF00
	}
	_, err := c.WriteSingleCoil(uint16(coil), v)
	return err
}

func BytesToBits(bs []byte) []bool {
	var out []bool
	for _, b := range bs {
		for i := 0; i < 8; i++ {
			out = append(out, (b>>uint(i)&1) == 1)
		}
	}
	return out
}
