package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/eyesky/mount_interface/mount"
	"github.com/eyesky/mount_interface/power"
)

type Server struct {
	c *mount.Controller

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     apiStatus
	statusSeq  int
}

type apiStatus struct {
	Mount mount.Status
	Power *power.Status `json:",omitempty"`
}

func NewServer() *Server {
	s := &Server{}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

func (s *Server) statusCallback(status mount.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Mount = status
	s.statusSeq++
	s.statusCond.Broadcast()
}

func (s *Server) powerCallback(status power.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	copied := status
	s.status.Power = &copied
	s.statusSeq++
	s.statusCond.Broadcast()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(status)
	if err != nil {
		log.Print(err)
		return
	}
	w.Write(data)
}

type Command struct {
	Command   string  `json:"command"`
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// StatusSocketHandler pushes a status snapshot on every change and
// accepts target commands over the same socket.
func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				conn.Close()
				return
			}
			switch msg.Command {
			case "target":
				s.c.Target(msg.Azimuth, msg.Elevation)
			case "hold":
				status := s.c.Status()
				s.c.Target(status.AzPos, status.ElPos)
			}
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		// Wake the writer so it notices the closed connection.
		s.statusMu.Lock()
		s.statusCond.Broadcast()
		s.statusMu.Unlock()
		conn.Close()
	}()

	send := func(status apiStatus) error {
		data, err := json.Marshal(status)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	s.statusMu.RLock()
	status := s.status
	seq := s.statusSeq
	s.statusMu.RUnlock()
	if err := send(status); err != nil {
		return
	}

	for {
		s.statusMu.RLock()
		for s.statusSeq == seq {
			select {
			case <-done:
				s.statusMu.RUnlock()
				return
			default:
			}
			s.statusCond.Wait()
		}
		status = s.status
		seq = s.statusSeq
		s.statusMu.RUnlock()
		if err := send(status); err != nil {
			return
		}
	}
}
