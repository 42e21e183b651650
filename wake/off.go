package wake

import "errors"

// ErrDisabled is returned by the inhibitor from Off.
var ErrDisabled = errors.New("wake lock disabled in config")

type off struct{}

// Off returns an Inhibitor that never inhibits, for wake_lock: false.
func Off() Inhibitor { return off{} }

func (off) Inhibit(string) (func() error, error) { return nil, ErrDisabled }
func (off) Focus() error                         { return ErrDisabled }
func (off) Close() error                         { return nil }
