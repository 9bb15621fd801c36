package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
)

// SnapshotVersion is the format written by this build.
const SnapshotVersion = 1

// Header is written as the first line of a snapshot so tools can inspect a
// save without decoding the body.
type Header struct {
	Version int       `json:"version"`
	GameID  string    `json:"game_id"`
	Tick    uint64    `json:"tick"`
	SavedAt time.Time `json:"saved_at"`
}

// SnapshotV1 is the durable form of a game. Catalog entries are never stored,
// only the item refs pointing at them.
type SnapshotV1 struct {
	Header  Header   `json:"header"`
	Running bool     `json:"running"`
	Users   []UserV1 `json:"users"`
}

type UserV1 struct {
	ID          uint32    `json:"id"`
	Money       uint64    `json:"money"`
	Energy      uint64    `json:"energy"`
	Grid        []*ItemV1 `json:"grid"`
	Discovered  []string  `json:"discovered"`
	Stats       StatsV1   `json:"stats"`
	LastOutpost *uint32   `json:"last_outpost,omitempty"`
}

type ItemV1 struct {
	Ref            string   `json:"ref"`
	NextDrop       *uint64  `json:"next_drop,omitempty"`
	RemainingDrops *uint32  `json:"remaining_drops,omitempty"`
	Queue          []string `json:"queue,omitempty"`
}

type StatsV1 struct {
	Merges       uint64 `json:"merges"`
	Buys         uint64 `json:"buys"`
	Sells        uint64 `json:"sells"`
	Swaps        uint64 `json:"swaps"`
	Scans        uint64 `json:"scans"`
	Drops        uint64 `json:"drops"`
	MoneySpent   uint64 `json:"money_spent"`
	MoneyEarned  uint64 `json:"money_earned"`
	EnergySpent  uint64 `json:"energy_spent"`
	EnergyEarned uint64 `json:"energy_earned"`
}

// Encode writes snap as a zstd stream holding a header line and a JSON body.
func Encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}

	bw := bufio.NewWriter(enc)
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		_ = enc.Close()
		return fmt.Errorf("marshalling header: %w", err)
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		_ = enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("marshalling snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1

	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, fmt.Errorf("creating decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("reading header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return snap, fmt.Errorf("unmarshalling header: %w", err)
	}
	if hdr.Version != SnapshotVersion {
		return snap, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}

	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	return snap, nil
}
