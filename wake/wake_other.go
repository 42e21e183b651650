//go:build !linux && !darwin

package wake

type unsupported struct{}

func New() Inhibitor {
	return unsupported{}
}

func (unsupported) Inhibit(string) (func() error, error) { return nil, ErrUnsupported }
func (unsupported) Focus() error                         { return ErrUnsupported }
func (unsupported) Close() error                         { return nil }

func Probe() error { return ErrUnsupported }
