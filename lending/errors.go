// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"errors"

	"github.com/luxfi/lending/interest"
	"github.com/luxfi/lending/oracle"
	"github.com/luxfi/lending/utils/math"
)

var (
	ErrPoolNotFound           = errors.New("lending pool not found")
	ErrPositionNotFound       = errors.New("position not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidPoolConfig      = errors.New("invalid pool config")
	ErrSameAsset              = errors.New("collateral and borrow asset must differ")
	ErrDustAmount             = errors.New("amount too small to be represented by shares")
	ErrInsufficientFunds      = errors.New("amount exceeds deposited funds")
	ErrOverBorrowableAmount   = errors.New("borrow exceeds borrowable amount")
	ErrOverRepay              = errors.New("repayment exceeds owed debt")
	ErrNotUnderCollateralized = errors.New("position is not under-collateralized")
	ErrHealthFactorTooLow     = errors.New("health factor would be too low")

	// Errors raised by the packages the engine is built on, re-exported so
	// callers can match every failure against this package.
	ErrStalePrice          = oracle.ErrStalePrice
	ErrArithmeticOverflow  = math.ErrOverflow
	ErrArithmeticUnderflow = math.ErrUnderflow
	ErrDivisionByZero      = math.ErrDivisionByZero
	ErrInvalidTimestamp    = interest.ErrInvalidTimestamp
)
