package core

import "github.com/pkg/errors"

var (
	AlreadyInitialized   = errors.New("requirement state already initialized")
	StateNotFound        = errors.New("requirement state not found")
	StateVersionConflict = errors.New("requirement state version conflict")

	NoPriceFound   = errors.New("no usable price in feed")
	MathOverflow   = errors.New("math operation overflow")
	DivisionByZero = errors.New("division by zero")

	AssetMismatch = errors.New("token account does not belong to the governed asset")
	Unauthorized  = errors.New("caller is not the recorded authority")

	AssetCreationFailed  = errors.New("asset creation failed")
	MintFailed           = errors.New("mint failed")
	TokenAccountNotFound = errors.New("token account not found")
)
