// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package config defines the keyboard's runtime configuration.
//
// A [Config] has one group per subsystem: transport identity,
// persistence region, status indicators, the remote configuration
// channel's identification, and matrix timing. Firmware builds a Config
// in code, usually from [Default]; the host simulator loads one from
// YAML with [LoadFile] or, through KEYWEAVE_CONFIG, [Load].
//
// Every group is defaulted independently. In YAML an omitted group or
// field keeps its default because the file is decoded on top of
// Default(). In code, [Config.WithDefaults] fills zero-valued fields,
// so a Config literal that only sets Transport is complete.
//
// Hardware handles (indicator pins) live in the config structs but are
// never read from files.
package config
