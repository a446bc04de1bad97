package azalt

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
)

// CommandCallback receives each parsed command in arrival order.
type CommandCallback func(cmd Command)

// ConnectCallback fires when a new command producer connects.
type ConnectCallback func()

// Listener serves the target protocol on a TCP port. One client is
// handled at a time; later connections wait in the accept backlog. No
// responses are ever written.
type Listener struct {
	onConnect ConnectCallback
	onCommand CommandCallback
}

func NewListener(onConnect ConnectCallback, onCommand CommandCallback) *Listener {
	return &Listener{onConnect: onConnect, onCommand: onCommand}
}

// Serve accepts connections until the context is canceled.
func (l *Listener) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing command socket")
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("failed to accept: %v", err)
			continue
		}
		l.handle(conn)
	}
}

// handle reads lines from one client until it disconnects. A partial
// line at disconnect is dropped; each new client starts with a fresh
// buffer.
func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()
	log.Printf("tracker connected from %v", conn.RemoteAddr())
	if l.onConnect != nil {
		l.onConnect()
	}
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			// A trailing fragment without its newline is dropped.
			if err != io.EOF {
				log.Printf("reading from %v: %v", conn.RemoteAddr(), err)
			}
			break
		}
		cmd, ok := ParseLine(line)
		if !ok {
			continue
		}
		if l.onCommand != nil {
			l.onCommand(cmd)
		}
	}
	log.Printf("tracker %v disconnected", conn.RemoteAddr())
}
