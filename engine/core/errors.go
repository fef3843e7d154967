package core

import (
	"errors"

	"github.com/spaghettifunk/anima-assets/engine/containers"
)

var (
	ErrMailboxClosed       = containers.ErrMailboxClosed
	ErrUnknownAssetKind    = errors.New("unknown asset kind")
	ErrUnsupportedTexture  = errors.New("unsupported texture format")
	ErrMalformedAsset      = errors.New("malformed asset")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
	ErrUnknown             = errors.New("unknown")
)
