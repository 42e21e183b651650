package wake

import (
	"os"
	"os/exec"
	"strconv"
)

type caffeinate struct{}

// New returns an inhibitor backed by caffeinate(8).
func New() Inhibitor {
	return caffeinate{}
}

func (caffeinate) Inhibit(string) (func() error, error) {
	// -w ties the assertion to our pid so a crash cannot leak it
	cmd := exec.Command("caffeinate", "-d", "-i", "-w", strconv.Itoa(os.Getpid()))
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return func() error {
		cmd.Process.Kill()
		cmd.Wait()
		return nil
	}, nil
}

func (caffeinate) Focus() error {
	cmd := exec.Command("caffeinate", "-u", "-t", "2")
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func (caffeinate) Close() error { return nil }

func Probe() error {
	_, err := exec.LookPath("caffeinate")
	return err
}
