package main

import (
	"fmt"
	"log/slog"

	"github.com/stianeikeland/go-rpio/v4"
)

// mcp3008Channels is the number of single-ended inputs on the ADC.
const mcp3008Channels = 8

// HardwareConfig is the resolved pin map.
type HardwareConfig struct {
	DigitalPins   []int // switch inputs (BCM)
	PullUp        bool  // switches pull to ground when pressed
	SPIChipSelect uint8
	SPISpeedHz    int
}

// RPiSampler reads switches from GPIO and selectors from an MCP3008 on SPI0.
type RPiSampler struct {
	logger *slog.Logger
}

// OpenRPiSampler maps GPIO memory, configures the switch inputs and starts SPI.
// Close must be called to release both.
func OpenRPiSampler(cfg HardwareConfig, logger *slog.Logger) (*RPiSampler, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	for _, p := range cfg.DigitalPins {
		pin := rpio.Pin(p)
		pin.Input()
		if cfg.PullUp {
			pin.PullUp()
		} else {
			pin.PullDown()
		}
	}

	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("begin spi: %w", err)
	}
	rpio.SpiChipSelect(cfg.SPIChipSelect)
	rpio.SpiSpeed(cfg.SPISpeedHz)

	logger.Debug("hardware ready", "switch_pins", cfg.DigitalPins, "spi_cs", cfg.SPIChipSelect, "spi_hz", cfg.SPISpeedHz)
	return &RPiSampler{logger: logger}, nil
}

// ReadAnalog performs one single-ended MCP3008 conversion.
func (s *RPiSampler) ReadAnalog(channel int) (int, error) {
	buf, err := mcp3008Request(channel)
	if err != nil {
		return 0, err
	}
	rpio.SpiExchange(buf)
	return mcp3008Value(buf), nil
}

// ReadDigital reads a GPIO level.
func (s *RPiSampler) ReadDigital(pin int) (Level, error) {
	if rpio.Pin(pin).Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

// Close stops SPI and unmaps GPIO memory.
func (s *RPiSampler) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	return rpio.Close()
}

// mcp3008Request builds the 3-byte frame: start bit, single-ended flag plus
// channel, and a padding byte clocking out the low result bits.
func mcp3008Request(channel int) ([]byte, error) {
	if channel < 0 || channel >= mcp3008Channels {
		return nil, fmt.Errorf("adc channel %d out of range 0..%d", channel, mcp3008Channels-1)
	}
	return []byte{0x01, byte(0x80 | channel<<4), 0x00}, nil
}

// mcp3008Value extracts the 10-bit conversion from an exchanged frame.
func mcp3008Value(buf []byte) int {
	return int(buf[1]&0x03)<<8 | int(buf[2])
}
