// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyweave/keyweave/lib/config"
)

// ErrDisconnected is returned by Driver.Run when the host goes away.
var ErrDisconnected = errors.New("transport: host disconnected")

// Endpoint names one HID interface of the device.
type Endpoint uint8

const (
	// EndpointKeyboard carries 8-byte boot keyboard input reports.
	EndpointKeyboard Endpoint = iota + 1

	// EndpointOther carries auxiliary input reports (consumer
	// control).
	EndpointOther

	// EndpointLEDs carries keyboard output reports: the host's lock
	// indicator state.
	EndpointLEDs

	// EndpointConfig carries 32-byte remote configuration packets in
	// both directions.
	EndpointConfig
)

func (e Endpoint) String() string {
	switch e {
	case EndpointKeyboard:
		return "keyboard"
	case EndpointOther:
		return "other"
	case EndpointLEDs:
		return "leds"
	case EndpointConfig:
		return "config"
	default:
		return fmt.Sprintf("endpoint(%d)", uint8(e))
	}
}

// Identity is what the device presents to the host during
// enumeration.
type Identity struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	ProductName  string
	SerialNumber string
}

// Driver is a USB or radio HID link.
type Driver interface {
	// Run brings the link up with identity and services it until ctx
	// is cancelled or the link fails.
	Run(ctx context.Context, identity Identity) error

	// Write sends one report on endpoint.
	Write(ctx context.Context, endpoint Endpoint, report []byte) error

	// Read receives one report from endpoint into buf.
	Read(ctx context.Context, endpoint Endpoint, buf []byte) (int, error)
}

// Device owns the driver and hands out one handle per endpoint. It is
// created once and outlives every run of its job.
type Device struct {
	driver   Driver
	identity Identity

	keyboard *Writer
	other    *Writer
	leds     *Reader
	config   *Channel
}

// New returns the device for driver presenting cfg.
func New(driver Driver, cfg config.TransportConfig) *Device {
	return &Device{
		driver: driver,
		identity: Identity{
			VendorID:     cfg.VendorID,
			ProductID:    cfg.ProductID,
			Manufacturer: cfg.Manufacturer,
			ProductName:  cfg.ProductName,
			SerialNumber: cfg.SerialNumber,
		},
		keyboard: &Writer{driver: driver, endpoint: EndpointKeyboard},
		other:    &Writer{driver: driver, endpoint: EndpointOther},
		leds:     &Reader{driver: driver, endpoint: EndpointLEDs},
		config:   &Channel{driver: driver},
	}
}

// Identity returns the enumeration identity.
func (d *Device) Identity() Identity { return d.identity }

// Run is the transport job.
func (d *Device) Run(ctx context.Context) error {
	if err := d.driver.Run(ctx, d.identity); err != nil {
		return fmt.Errorf("running %s link: %w", d.identity.ProductName, err)
	}
	return nil
}

// Keyboard returns the keyboard report writer.
func (d *Device) Keyboard() *Writer { return d.keyboard }

// Other returns the auxiliary report writer.
func (d *Device) Other() *Writer { return d.other }

// LEDs returns the keyboard output report reader.
func (d *Device) LEDs() *Reader { return d.leds }

// Config returns the remote configuration channel.
func (d *Device) Config() *Channel { return d.config }

// Writer sends input reports on one endpoint.
type Writer struct {
	driver   Driver
	endpoint Endpoint
}

// WriteReport sends report.
func (w *Writer) WriteReport(ctx context.Context, report []byte) error {
	if err := w.driver.Write(ctx, w.endpoint, report); err != nil {
		return fmt.Errorf("writing %s report: %w", w.endpoint, err)
	}
	return nil
}

// Reader receives output reports from one endpoint.
type Reader struct {
	driver   Driver
	endpoint Endpoint
}

// ReadReport receives one report into buf.
func (r *Reader) ReadReport(ctx context.Context, buf []byte) (int, error) {
	n, err := r.driver.Read(ctx, r.endpoint, buf)
	if err != nil {
		return 0, fmt.Errorf("reading %s report: %w", r.endpoint, err)
	}
	return n, nil
}

// Channel is the bidirectional remote configuration endpoint.
type Channel struct {
	driver Driver
}

// Receive reads one request packet into buf.
func (c *Channel) Receive(ctx context.Context, buf []byte) (int, error) {
	n, err := c.driver.Read(ctx, EndpointConfig, buf)
	if err != nil {
		return 0, fmt.Errorf("receiving config packet: %w", err)
	}
	return n, nil
}

// Send writes one response packet.
func (c *Channel) Send(ctx context.Context, packet []byte) error {
	if err := c.driver.Write(ctx, EndpointConfig, packet); err != nil {
		return fmt.Errorf("sending config packet: %w", err)
	}
	return nil
}
