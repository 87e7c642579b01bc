// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists pools, positions and asset balances.
//
// Mutations are staged in a Diff layered over the ledger database. A Diff
// reads its own writes and lands all of them at once on Commit, so an
// operation that fails part way leaves no trace.
package state

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"

	"github.com/luxfi/lending/utils/math"
)

// custodyPrefix seeds the derivation of pool custody accounts.
const custodyPrefix uint64 = 0x6c656e64696e67 // "lending"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")

	poolPrefix     = []byte("pool")
	positionPrefix = []byte("position")
	balancePrefix  = []byte("balance")
)

// Reader exposes committed or staged records.
type Reader interface {
	// GetPool returns database.ErrNotFound if no pool exists for asset.
	GetPool(asset ids.ID) (*Pool, error)
	// GetPosition returns database.ErrNotFound if owner has no position.
	GetPosition(owner ids.ShortID) (*Position, error)
	GetBalance(account ids.ShortID, asset ids.ID) (uint64, error)
}

// Chain is a mutable view of the ledger.
type Chain interface {
	Reader

	PutPool(pool *Pool) error
	PutPosition(position *Position) error

	// Transfer moves amount of asset between accounts. It fails with
	// ErrInsufficientBalance without side effects if from cannot cover it.
	Transfer(from, to ids.ShortID, asset ids.ID, amount uint64) error
	// Mint credits amount of asset to account out of thin air.
	Mint(account ids.ShortID, asset ids.ID, amount uint64) error
}

// CustodyAccount returns the account holding the funds of the pool for asset.
func CustodyAccount(asset ids.ID) ids.ShortID {
	var account ids.ShortID
	derived := asset.Prefix(custodyPrefix)
	copy(account[:], derived[:])
	return account
}

var (
	_ Chain = (*Ledger)(nil)
	_ Chain = (*Diff)(nil)
)

type state struct {
	poolDB     database.Database
	positionDB database.Database
	balanceDB  database.Database
}

func newState(db database.Database) *state {
	return &state{
		poolDB:     prefixdb.New(poolPrefix, db),
		positionDB: prefixdb.New(positionPrefix, db),
		balanceDB:  prefixdb.New(balancePrefix, db),
	}
}

func (s *state) GetPool(asset ids.ID) (*Pool, error) {
	bytes, err := s.poolDB.Get(asset[:])
	if err != nil {
		return nil, err
	}
	pool := &Pool{}
	if _, err := Codec.Unmarshal(bytes, pool); err != nil {
		return nil, fmt.Errorf("failed to parse pool %s: %w", asset, err)
	}
	return pool, nil
}

func (s *state) PutPool(pool *Pool) error {
	bytes, err := Codec.Marshal(CodecVersion, pool)
	if err != nil {
		return fmt.Errorf("failed to serialize pool %s: %w", pool.Asset, err)
	}
	return s.poolDB.Put(pool.Asset[:], bytes)
}

func (s *state) GetPosition(owner ids.ShortID) (*Position, error) {
	bytes, err := s.positionDB.Get(owner[:])
	if err != nil {
		return nil, err
	}
	position := &Position{}
	if _, err := Codec.Unmarshal(bytes, position); err != nil {
		return nil, fmt.Errorf("failed to parse position %s: %w", owner, err)
	}
	return position, nil
}

func (s *state) PutPosition(position *Position) error {
	bytes, err := Codec.Marshal(CodecVersion, position)
	if err != nil {
		return fmt.Errorf("failed to serialize position %s: %w", position.Owner, err)
	}
	return s.positionDB.Put(position.Owner[:], bytes)
}

func balanceKey(account ids.ShortID, asset ids.ID) []byte {
	key := make([]byte, 0, len(account)+len(asset))
	key = append(key, account[:]...)
	return append(key, asset[:]...)
}

func (s *state) GetBalance(account ids.ShortID, asset ids.ID) (uint64, error) {
	balance, err := database.GetUInt64(s.balanceDB, balanceKey(account, asset))
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return balance, err
}

func (s *state) putBalance(account ids.ShortID, asset ids.ID, balance uint64) error {
	key := balanceKey(account, asset)
	if balance == 0 {
		return s.balanceDB.Delete(key)
	}
	return database.PutUInt64(s.balanceDB, key, balance)
}

func (s *state) Transfer(from, to ids.ShortID, asset ids.ID, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}

	fromBalance, err := s.GetBalance(from, asset)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d",
			ErrInsufficientBalance, from, fromBalance, asset, amount)
	}
	toBalance, err := s.GetBalance(to, asset)
	if err != nil {
		return err
	}
	newToBalance, err := math.Add(toBalance, amount)
	if err != nil {
		return err
	}

	if err := s.putBalance(from, asset, fromBalance-amount); err != nil {
		return err
	}
	return s.putBalance(to, asset, newToBalance)
}

func (s *state) Mint(account ids.ShortID, asset ids.ID, amount uint64) error {
	balance, err := s.GetBalance(account, asset)
	if err != nil {
		return err
	}
	newBalance, err := math.Add(balance, amount)
	if err != nil {
		return err
	}
	return s.putBalance(account, asset, newBalance)
}

// Ledger is the committed state of the lending pools.
type Ledger struct {
	*state

	db database.Database
}

// New returns a ledger persisted in db.
func New(db database.Database) *Ledger {
	return &Ledger{
		state: newState(db),
		db:    db,
	}
}

// NewDiff returns an empty set of staged changes on top of l.
//
// Diffs opened concurrently must touch disjoint keys.
func (l *Ledger) NewDiff() *Diff {
	vdb := versiondb.New(l.db)
	return &Diff{
		state: newState(vdb),
		db:    vdb,
	}
}

// Diff is a set of staged changes to a Ledger.
type Diff struct {
	*state

	db *versiondb.Database
}

// Commit writes every staged change to the ledger atomically.
func (d *Diff) Commit() error {
	return d.db.Commit()
}

// Abort discards every staged change.
func (d *Diff) Abort() {
	d.db.Abort()
}
