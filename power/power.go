// Package power drives an optional Modbus RTU relay board that gates
// the motor drive supply. The relay is closed when the mount reaches
// READY and opened again on emergency stop, backing up the GPIO enable
// interlock with a hard power cut.
package power

import (
	"context"
	"sync"

	"github.com/eyesky/mount_interface/internal/modbus"
)

type Status struct {
	// CommandDrivePower mirrors the commanded relay coil.
	CommandDrivePower bool
	// DrivePowerGood is the supply-good feedback input.
	DrivePowerGood bool
	// StopChainClosed is the external emergency-stop chain input.
	StopChainClosed bool
}

type StatusCallback func(status Status)

type Relay struct {
	statusCallback StatusCallback
	mu             sync.Mutex
	client         *modbus.Client
	coils          []bool
	inputs         []bool
}

func Connect(ctx context.Context, port string, baud int, statusCallback StatusCallback) (*Relay, error) {
	r := &Relay{
		client: &modbus.Client{
			Port:     port,
			BaudRate: baud,
			SlaveID:  1,
		},
		statusCallback: statusCallback,
	}
	r.client.Poll = r.pollOnce
	return r, r.client.Connect(ctx)
}

func (r *Relay) pollOnce() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	coils, err := r.client.ReadCoils(0, 1)
	if err != nil {
		return err
	}
	inputs, err := r.client.ReadDiscreteInputs(0, 2)
	if err != nil {
		return err
	}
	r.coils = modbus.BytesToBits(coils)
	r.inputs = modbus.BytesToBits(inputs)
	r.notifyStatus()
	return nil
}

func (r *Relay) notifyStatus() {
	if r.statusCallback == nil {
		return
	}
	r.statusCallback(Status{
		CommandDrivePower: r.coils[0],
		DrivePowerGood:    r.inputs[0],
		StopChainClosed:   r.inputs[1],
	})
}

// SetDrivePower commands the drive supply relay.
func (r *Relay) SetDrivePower(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.WriteCoil(0, on)
}
