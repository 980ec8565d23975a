// Package storage keeps an append-only pebble journal of every trade and of
// each participant's state at the end of every round.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

var ErrClosed = errors.New("journal closed")

// Snapshot is a participant's state at the end of a round.
type Snapshot struct {
	Round int64 `json:"round"`
	account.StateSummary
}

// Journal records one simulation run. It is audit output only and is never
// read back to restore market state.
type Journal struct {
	mu     sync.Mutex
	db     *pebble.DB
	runID  string
	seq    uint64 // trade sequence across the run
	closed bool
}

// OpenJournal opens a journal at path. An empty path keeps everything in
// memory.
func OpenJournal(path string) (*Journal, error) {
	opts := &pebble.Options{}
	if path == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db, runID: uuid.NewString()}, nil
}

// RunID identifies this run's keys.
func (j *Journal) RunID() string { return j.runID }

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

// RecordTrades appends the trades of a round in execution order.
func (j *Journal) RecordTrades(round int64, trades []orderbook.Trade) error {
	return j.RecordRound(round, trades, nil)
}

// RecordParticipants stores end-of-round snapshots.
func (j *Journal) RecordParticipants(round int64, states []account.StateSummary) error {
	return j.RecordRound(round, nil, states)
}

// RecordRound writes a round's trades and snapshots in one batch.
func (j *Journal) RecordRound(round int64, trades []orderbook.Trade, states []account.StateSummary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	batch := j.db.NewBatch()
	defer batch.Close()

	seq := j.seq
	for _, t := range trades {
		seq++
		val, err := encodeJSON(t)
		if err != nil {
			return err
		}
		if err := batch.Set(tradeKey(j.runID, round, seq), val, nil); err != nil {
			return fmt.Errorf("stage trade: %w", err)
		}
	}
	for _, s := range states {
		val, err := encodeJSON(Snapshot{Round: round, StateSummary: s})
		if err != nil {
			return err
		}
		if err := batch.Set(participantKey(j.runID, s.ID, round), val, nil); err != nil {
			return fmt.Errorf("stage snapshot: %w", err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit round %d: %w", round, err)
	}
	j.seq = seq
	return nil
}

// TradesForRound returns the recorded trades of round in execution order.
func (j *Journal) TradesForRound(round int64) ([]orderbook.Trade, error) {
	var out []orderbook.Trade
	err := j.scan(tradeRoundPrefix(j.runID, round), func(val []byte) error {
		var t orderbook.Trade
		if err := decodeJSON(val, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// ParticipantHistory returns every snapshot of participant, oldest round
// first.
func (j *Journal) ParticipantHistory(participant string) ([]Snapshot, error) {
	var out []Snapshot
	err := j.scan(participantPrefix(j.runID, participant), func(val []byte) error {
		var s Snapshot
		if err := decodeJSON(val, &s); err != nil {
			return err
		}
		if s.ID == participant {
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

func (j *Journal) scan(prefix []byte, fn func(val []byte) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
