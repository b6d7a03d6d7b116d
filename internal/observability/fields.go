package observability

import "go.uber.org/zap"

// Field constructors re-exported so call sites log through this package only.
//
//nolint:gochecknoglobals // Aliases of zap constructors
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Bool     = zap.Bool
	Float64  = zap.Float64
	Duration = zap.Duration
	Strings  = zap.Strings
	Error    = zap.Error
)
