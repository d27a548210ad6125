// Package modbus implements device.Hardware on top of a Modbus TCP I/O module.
//
// Register map (all addresses configurable):
//
//	cover        discrete input    1 = cover present
//	temperature  input register    signed, tenths of a degree Celsius
//	user input   holding register  raw user setting
//	fans         coil              1 = fans on
//	output       holding register  output level 0..100
package modbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/robbyt/go-devicefsm/device"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

var (
	ErrNoEndpoint    = errors.New("modbus: endpoint required")
	ErrShortResponse = errors.New("modbus: short response")
)

// Client is the subset of modbus.Client used by Device.
type Client interface {
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleCoil(address, value uint16) ([]byte, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
}

// Registers holds the addresses of the device points.
type Registers struct {
	Cover       uint16
	Temperature uint16
	UserInput   uint16
	Fans        uint16
	Output      uint16
}

// Config is the transport and register configuration.
type Config struct {
	Endpoint  string
	UnitID    uint8
	Timeout   time.Duration
	Registers Registers
}

// Device talks to the I/O module. Requests are serialized.
type Device struct {
	mu      sync.Mutex
	cfg     Config
	handler *modbus.TCPClientHandler
	client  Client
	logger  *slog.Logger
}

var _ device.Hardware = (*Device)(nil)

// New creates a Device for a Modbus TCP endpoint. The connection is opened by
// InitBoard, so a missing module routes the device to Halt and is retried.
func New(cfg Config, handler slog.Handler) (*Device, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	d := NewWithClient(modbus.NewClient(h), cfg, handler)
	d.handler = h
	return d, nil
}

// NewWithClient creates a Device on an existing client.
func NewWithClient(client Client, cfg Config, handler slog.Handler) *Device {
	logger := slog.Default().WithGroup("modbus.Device")
	if handler != nil {
		logger = slog.New(handler.WithGroup("modbus.Device"))
	}
	return &Device{
		cfg:    cfg,
		client: client,
		logger: logger.With("endpoint", cfg.Endpoint, "unitID", cfg.UnitID),
	}
}

func (d *Device) String() string {
	return fmt.Sprintf("ModbusDevice{endpoint: %s, unit: %d}", d.cfg.Endpoint, d.cfg.UnitID)
}

// Close closes the TCP connection, if one was opened.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handler == nil {
		return nil
	}
	return d.handler.Close()
}

// CoverPresent implements device.Sensors.
func (d *Device) CoverPresent() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.client.ReadDiscreteInputs(d.cfg.Registers.Cover, 1)
	if err != nil {
		return false, fmt.Errorf("read cover: %w", err)
	}
	if len(b) < 1 {
		return false, fmt.Errorf("read cover: %w", ErrShortResponse)
	}
	return b[0]&0x01 == 1, nil
}

// TemperatureC implements device.Sensors.
func (d *Device) TemperatureC() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.readRegister(d.client.ReadInputRegisters, d.cfg.Registers.Temperature)
	if err != nil {
		return 0, fmt.Errorf("read temperature: %w", err)
	}
	return float64(int16(raw)) / 10, nil
}

// UserInput implements device.Sensors.
func (d *Device) UserInput() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.readRegister(d.client.ReadHoldingRegisters, d.cfg.Registers.UserInput)
	if err != nil {
		return 0, fmt.Errorf("read user input: %w", err)
	}
	return int(raw), nil
}

// FansOn implements device.Actuators.
func (d *Device) FansOn() error {
	return d.writeCoil(d.cfg.Registers.Fans, coilOn)
}

// FansOff implements device.Actuators.
func (d *Device) FansOff() error {
	return d.writeCoil(d.cfg.Registers.Fans, coilOff)
}

// SetOutput implements device.Actuators.
func (d *Device) SetOutput(level int) error {
	if level < device.OutputDisabled || level > device.OutputNormal {
		return fmt.Errorf("output level %d out of range", level)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.client.WriteSingleRegister(d.cfg.Registers.Output, uint16(level)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// InitBoard implements device.Board. It connects to the module and probes the
// cover input.
func (d *Device) InitBoard() bool {
	d.mu.Lock()
	if d.handler != nil {
		if err := d.handler.Connect(); err != nil {
			d.mu.Unlock()
			d.logger.Error("Unable to connect", "error", err)
			return false
		}
	}
	d.mu.Unlock()

	if _, err := d.CoverPresent(); err != nil {
		d.logger.Error("Board probe failed", "error", err)
		return false
	}
	d.logger.Info("Board initialized")
	return true
}

// InitOutputs implements device.Board.
func (d *Device) InitOutputs() {
	if err := d.FansOff(); err != nil {
		d.logger.Error("Unable to initialize fans", "error", err)
	}
	if err := d.SetOutput(device.OutputDisabled); err != nil {
		d.logger.Error("Unable to initialize output", "error", err)
	}
}

func (d *Device) writeCoil(addr, value uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.client.WriteSingleCoil(addr, value); err != nil {
		return fmt.Errorf("write fans: %w", err)
	}
	return nil
}

func (d *Device) readRegister(read func(address, quantity uint16) ([]byte, error), addr uint16) (uint16, error) {
	b, err := read(addr, 1)
	if err != nil {
		return 0, err
	}
	if len(b) < 2 {
		return 0, ErrShortResponse
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}
