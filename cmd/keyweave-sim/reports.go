// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/scan"
	"github.com/keyweave/keyweave/lib/transport"
	"github.com/keyweave/keyweave/lib/transport/loopback"
)

// reportLine is one line of simulator output.
type reportLine struct {
	Endpoint  string   `json:"endpoint"`
	Data      string   `json:"data,omitempty"`
	Modifiers uint8    `json:"modifiers,omitempty"`
	Keys      []string `json:"keys,omitempty"`
	Usage     uint16   `json:"usage,omitempty"`
	Product   string   `json:"product,omitempty"`
}

// describe decodes a report read from endpoint for display.
func describe(endpoint transport.Endpoint, report []byte) reportLine {
	line := reportLine{Endpoint: endpoint.String(), Data: hex.EncodeToString(report)}
	switch endpoint {
	case transport.EndpointKeyboard:
		if len(report) != scan.KeyboardReportSize {
			break
		}
		line.Modifiers = report[0]
		for _, code := range report[2:] {
			if code != 0 {
				line.Keys = append(line.Keys, action.Key(code).String())
			}
		}
	case transport.EndpointOther:
		if len(report) == scan.ConsumerReportSize {
			line.Usage = binary.LittleEndian.Uint16(report)
		}
	}
	return line
}

// printReports writes every report and connection the host sees as
// one JSON object per line until ctx is cancelled.
func printReports(ctx context.Context, host *loopback.Host, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		var line reportLine
		select {
		case <-ctx.Done():
			return nil
		case report := <-host.KeyboardReports():
			line = describe(transport.EndpointKeyboard, report)
		case report := <-host.OtherReports():
			line = describe(transport.EndpointOther, report)
		case response := <-host.ConfigResponses():
			line = describe(transport.EndpointConfig, response)
		case identity := <-host.Connected():
			line = reportLine{Endpoint: "connected", Product: identity.ProductName}
		}
		if err := encoder.Encode(line); err != nil {
			return err
		}
	}
}
