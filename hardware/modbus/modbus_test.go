package modbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-devicefsm/device"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	args := m.Called(address, quantity)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockClient) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	args := m.Called(address, quantity)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	args := m.Called(address, quantity)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockClient) WriteSingleCoil(address, value uint16) ([]byte, error) {
	args := m.Called(address, value)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockClient) WriteSingleRegister(address, value uint16) ([]byte, error) {
	args := m.Called(address, value)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

var testRegisters = Registers{Cover: 1, Temperature: 2, UserInput: 3, Fans: 4, Output: 5}

func newTestDevice() (*Device, *mockClient) {
	c := &mockClient{}
	return NewWithClient(c, Config{Endpoint: "test:502", UnitID: 7, Registers: testRegisters}, nil), c
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.ErrorIs(t, err, ErrNoEndpoint)

	d, err := New(Config{Endpoint: "127.0.0.1:1502", UnitID: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ModbusDevice{endpoint: 127.0.0.1:1502, unit: 3}", d.String())
	require.NoError(t, d.Close())
}

func TestDevice_Sensors(t *testing.T) {
	t.Parallel()

	d, c := newTestDevice()
	c.On("ReadDiscreteInputs", uint16(1), uint16(1)).Return([]byte{0x01}, nil).Once()
	c.On("ReadInputRegisters", uint16(2), uint16(1)).Return([]byte{0x03, 0xE9}, nil).Once()
	c.On("ReadHoldingRegisters", uint16(3), uint16(1)).Return([]byte{0x00, 0x3C}, nil).Once()

	cover, err := d.CoverPresent()
	require.NoError(t, err)
	assert.True(t, cover)

	temp, err := d.TemperatureC()
	require.NoError(t, err)
	assert.InDelta(t, 100.1, temp, 0.001)

	in, err := d.UserInput()
	require.NoError(t, err)
	assert.Equal(t, 60, in)

	c.AssertExpectations(t)
}

func TestDevice_NegativeTemperature(t *testing.T) {
	t.Parallel()

	d, c := newTestDevice()
	c.On("ReadInputRegisters", uint16(2), uint16(1)).Return([]byte{0xFF, 0x9C}, nil)

	temp, err := d.TemperatureC()
	require.NoError(t, err)
	assert.InDelta(t, -10.0, temp, 0.001)
}

func TestDevice_ReadErrors(t *testing.T) {
	t.Parallel()

	d, c := newTestDevice()
	boom := errors.New("exception '2' (illegal data address)")
	c.On("ReadDiscreteInputs", uint16(1), uint16(1)).Return(nil, boom)
	c.On("ReadInputRegisters", uint16(2), uint16(1)).Return([]byte{0x01}, nil)

	_, err := d.CoverPresent()
	require.ErrorIs(t, err, boom)

	_, err = d.TemperatureC()
	require.ErrorIs(t, err, ErrShortResponse)
}

func TestDevice_Actuators(t *testing.T) {
	t.Parallel()

	d, c := newTestDevice()
	c.On("WriteSingleCoil", uint16(4), coilOn).Return([]byte{0xFF, 0x00}, nil).Once()
	c.On("WriteSingleCoil", uint16(4), coilOff).Return([]byte{0x00, 0x00}, nil).Once()
	c.On("WriteSingleRegister", uint16(5), uint16(device.OutputReduced)).Return([]byte{0x00, 0x28}, nil).Once()

	require.NoError(t, d.FansOn())
	require.NoError(t, d.FansOff())
	require.NoError(t, d.SetOutput(device.OutputReduced))
	require.Error(t, d.SetOutput(120))

	c.AssertExpectations(t)
}

func TestDevice_Board(t *testing.T) {
	t.Parallel()

	t.Run("probe succeeds", func(t *testing.T) {
		d, c := newTestDevice()
		c.On("ReadDiscreteInputs", uint16(1), uint16(1)).Return([]byte{0x00}, nil)
		assert.True(t, d.InitBoard())
	})

	t.Run("probe fails", func(t *testing.T) {
		d, c := newTestDevice()
		c.On("ReadDiscreteInputs", uint16(1), uint16(1)).Return(nil, errors.New("timeout"))
		assert.False(t, d.InitBoard())
	})

	t.Run("outputs initialized off", func(t *testing.T) {
		d, c := newTestDevice()
		c.On("WriteSingleCoil", uint16(4), coilOff).Return([]byte{0x00, 0x00}, nil).Once()
		c.On("WriteSingleRegister", uint16(5), uint16(0)).Return([]byte{0x00, 0x00}, nil).Once()
		d.InitOutputs()
		c.AssertExpectations(t)
	})

	t.Run("connect failure", func(t *testing.T) {
		d, err := New(Config{Endpoint: "127.0.0.1:1", Timeout: 100 * time.Millisecond, Registers: testRegisters}, nil)
		require.NoError(t, err)
		assert.False(t, d.InitBoard())
	})
}
