package dynadoc

import "github.com/slackmgr/types"

// nopLogger discards everything. It is the default until [WithLogger] is used.
type nopLogger struct{}

//nolint:ireturn // Must return interface to implement types.Logger
func (l nopLogger) WithField(_ string, _ any) types.Logger { return l }

//nolint:ireturn // Must return interface to implement types.Logger
func (l nopLogger) WithFields(_ map[string]any) types.Logger { return l }
func (nopLogger) Debug(_ string)                             {}
func (nopLogger) Debugf(_ string, _ ...any)                  {}
func (nopLogger) Info(_ string)                              {}
func (nopLogger) Infof(_ string, _ ...any)                   {}
func (nopLogger) Warn(_ string)                              {}
func (nopLogger) Warnf(_ string, _ ...any)                   {}
func (nopLogger) Error(_ string)                             {}
func (nopLogger) Errorf(_ string, _ ...any)                  {}
func (nopLogger) Fatal(_ string)                             {}
func (nopLogger) Fatalf(_ string, _ ...any)                  {}
