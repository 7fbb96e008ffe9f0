// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/keyweave/keyweave/lib/codec"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/flash"
)

var (
	// ErrNoSnapshot is returned by Load when the region holds no
	// record at all.
	ErrNoSnapshot = errors.New("storage: no keymap snapshot")

	// ErrCorrupt is returned by Load when the region holds records
	// but none of them verifies and decodes.
	ErrCorrupt = errors.New("storage: keymap snapshot corrupt")

	// ErrInvalidRegion is returned by every operation of a Store
	// whose configured region does not fit the device.
	ErrInvalidRegion = errors.New("storage: invalid persistence region")

	// ErrTooLarge is returned by Save when the encoded snapshot does
	// not fit in a slot.
	ErrTooLarge = errors.New("storage: snapshot does not fit in a record slot")
)

// Store keeps keymap snapshots in a flash region split into two
// record slots. Each Save writes the slot not holding the newest
// record, so an interrupted Save leaves the previous snapshot intact.
//
// Store is safe for concurrent use.
type Store struct {
	device      flash.AsyncFlash
	logger      *slog.Logger
	start       uint32
	slotSize    uint32
	compression CompressionTag

	// err is set when the region is unusable. Every operation
	// returns it.
	err error

	mu       sync.Mutex
	scanned  bool
	newest   int // slot index of the newest valid record, or -1
	sequence uint32
	pending  bool

	flushed      chan struct{}
	disabledOnce sync.Once
}

// New validates the region described by cfg against device and, when
// cfg.ClearStorage is set, erases it. A region that does not fit
// leaves the Store failed: Load and Save return the validation error
// and Run saves nothing.
func New(ctx context.Context, device flash.AsyncFlash, cfg config.PersistenceConfig, logger *slog.Logger) *Store {
	store := &Store{
		device:  device,
		logger:  logger,
		start:   cfg.StartAddress,
		newest:  -1,
		flushed: make(chan struct{}, 1),
	}

	if err := store.configure(cfg); err != nil {
		store.err = fmt.Errorf("%w: %v", ErrInvalidRegion, err)
		logger.Error("keymap storage unavailable", "error", store.err)
		return store
	}

	if cfg.ClearStorage {
		if err := store.Clear(ctx); err != nil {
			logger.Warn("clearing keymap storage failed", "error", err)
		} else {
			logger.Info("keymap storage cleared",
				"start", cfg.StartAddress,
				"sectors", cfg.Sectors,
			)
		}
	}
	return store
}

func (s *Store) configure(cfg config.PersistenceConfig) error {
	if s.device == nil {
		return errors.New("no flash device")
	}
	eraseSize := s.device.EraseSize()
	if eraseSize == 0 {
		return errors.New("flash device reports zero erase size")
	}
	if cfg.Sectors < 2 || cfg.Sectors%2 != 0 {
		return fmt.Errorf("sector count %d is not a positive even number", cfg.Sectors)
	}
	if cfg.StartAddress%eraseSize != 0 {
		return fmt.Errorf("start address 0x%x is not aligned to sector size 0x%x", cfg.StartAddress, eraseSize)
	}
	end := uint64(cfg.StartAddress) + uint64(cfg.Sectors)*uint64(eraseSize)
	if end > uint64(s.device.Capacity()) {
		return fmt.Errorf("region [0x%x, 0x%x) exceeds capacity 0x%x", cfg.StartAddress, end, s.device.Capacity())
	}
	compression, err := ParseCompressionTag(cfg.Compression)
	if err != nil {
		return err
	}

	s.slotSize = uint32(cfg.Sectors/2) * eraseSize
	if s.slotSize <= headerSize {
		return fmt.Errorf("slot size %d cannot hold a record header", s.slotSize)
	}
	s.compression = compression
	return nil
}

// Err returns the region validation error, or nil for a usable Store.
func (s *Store) Err() error { return s.err }

func (s *Store) slotOffset(index int) uint32 {
	return s.start + uint32(index)*s.slotSize
}

// Clear erases both slots.
func (s *Store) Clear(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.device.Erase(ctx, s.start, s.start+2*s.slotSize); err != nil {
		return fmt.Errorf("erasing keymap region: %w", err)
	}
	s.scanned = true
	s.newest = -1
	s.sequence = 0
	return nil
}

// Load returns the newest snapshot that verifies and decodes. It
// returns ErrNoSnapshot for an erased region and ErrCorrupt when
// records exist but none is usable.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	if s.err != nil {
		return Snapshot{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.scanLocked(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if s.newest < 0 {
		for index, candidate := range slots {
			if candidate.state == slotInvalid {
				return Snapshot{}, fmt.Errorf("%w: slot %d: %s", ErrCorrupt, index, candidate.reason)
			}
		}
		return Snapshot{}, ErrNoSnapshot
	}

	record := slots[s.newest]
	raw, err := decompress(record.payload, record.header.Compression, int(record.header.RawSize))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: slot %d: %v", ErrCorrupt, s.newest, err)
	}
	var snapshot Snapshot
	if err := codec.Unmarshal(raw, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("%w: slot %d: decoding: %v", ErrCorrupt, s.newest, err)
	}
	if err := snapshot.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: slot %d: %v", ErrCorrupt, s.newest, err)
	}
	return snapshot, nil
}

// scanLocked reads both slots and records the newest valid one.
func (s *Store) scanLocked(ctx context.Context) ([2]slot, error) {
	var slots [2]slot
	for index := range slots {
		read, err := readSlot(ctx, s, s.slotOffset(index))
		if err != nil {
			return slots, err
		}
		slots[index] = read
	}

	s.newest = -1
	s.sequence = 0
	for index, candidate := range slots {
		if candidate.state != slotValid {
			continue
		}
		if s.newest < 0 || candidate.header.Sequence > s.sequence {
			s.newest = index
			s.sequence = candidate.header.Sequence
		}
	}
	s.scanned = true
	return slots, nil
}

// Save writes snapshot to the slot not holding the newest record.
func (s *Store) Save(ctx context.Context, snapshot Snapshot) error {
	if s.err != nil {
		return s.err
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("saving keymap: %w", err)
	}
	raw, err := codec.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding keymap: %w", err)
	}
	payload, tag, err := compress(raw, s.compression)
	if err != nil {
		return fmt.Errorf("compressing keymap: %w", err)
	}
	if uint64(len(payload)) > uint64(s.slotSize-headerSize) {
		return fmt.Errorf("%w: %d bytes, slot holds %d", ErrTooLarge, len(payload), s.slotSize-headerSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanned {
		if _, err := s.scanLocked(ctx); err != nil {
			return err
		}
	}

	target := 0
	if s.newest == 0 {
		target = 1
	}
	header := recordHeader{
		Compression: tag,
		Sequence:    s.sequence + 1,
		StoredSize:  uint32(len(payload)),
		RawSize:     uint32(len(raw)),
	}
	headerBytes := header.marshal(payload)

	offset := s.slotOffset(target)
	if err := s.device.Erase(ctx, offset, offset+s.slotSize); err != nil {
		return fmt.Errorf("erasing slot %d: %w", target, err)
	}
	if err := s.device.Write(ctx, offset+headerSize, payload); err != nil {
		return fmt.Errorf("writing slot %d payload: %w", target, err)
	}
	if err := s.device.Write(ctx, offset, headerBytes); err != nil {
		return fmt.Errorf("writing slot %d header: %w", target, err)
	}

	s.newest = target
	s.sequence = header.Sequence
	s.logger.Info("keymap saved",
		"slot", target,
		"sequence", header.Sequence,
		"bytes", len(payload),
		"compression", tag.String(),
	)
	return nil
}

// Run is the persistence job. It saves source after every change
// notification until ctx is cancelled or a save fails. A change that
// was received but not yet saved when a previous Run ended is saved
// first. A snapshot too large for a slot is logged and skipped rather
// than ending Run, since no retry could succeed. On a failed Store,
// Run waits for cancellation without saving.
func (s *Store) Run(ctx context.Context, source Source) error {
	if s.err != nil {
		s.disabledOnce.Do(func() {
			s.logger.Warn("keymap persistence disabled", "error", s.err)
		})
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		if s.isPending() {
			err := s.Save(ctx, source.Snapshot())
			switch {
			case errors.Is(err, ErrTooLarge):
				// Saving the same keymap again fails the same way, so
				// the change is dropped until the next one.
				s.logger.Warn("keymap does not fit in storage, change not saved", "error", err)
				s.setPending(false)
			case err != nil:
				return fmt.Errorf("persisting keymap: %w", err)
			default:
				s.setPending(false)
				select {
				case s.flushed <- struct{}{}:
				default:
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-source.Changed():
			s.setPending(true)
		}
	}
}

// Flushed delivers a value after Run completes a save. Notifications
// coalesce.
func (s *Store) Flushed() <-chan struct{} { return s.flushed }

func (s *Store) isPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Store) setPending(pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = pending
}
