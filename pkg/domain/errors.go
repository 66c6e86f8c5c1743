package domain

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrUnrecognizedExtension = errors.New("unrecognized extension")
	ErrInternalInconsistency = errors.New("internal inconsistency")
	ErrDuplicateExtension    = errors.New("duplicate extension")
)
