//go:build linux

package button

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

type gpioLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// Open requests pin on chip as a pulled-up input. The button shorts the pin
// to ground, so a raw 0 means pressed.
func Open(chip string, pin int) (Line, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}
	l, err := c.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}
	return &gpioLine{chip: c, line: l}, nil
}

func (g *gpioLine) Pressed() (bool, error) {
	raw, err := g.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin: %w", err)
	}
	return raw == 0, nil
}

// Close puts the pin back to a pulled-down input, the Pi boot default,
// before releasing it.
func (g *gpioLine) Close() error {
	var errs []error
	if err := g.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
	}
	if err := g.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin: %w", err))
	}
	if err := g.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
