// Package hosts appends virtual-host mappings to /etc/hosts via an elevated
// tee subprocess, skipping hostnames that are already present.
package hosts

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

const hostsPath = "/etc/hosts"

// Writer appends entries to /etc/hosts. Confirm, when set, is consulted
// before writing unless Auto is true — mirroring the source tool's
// interactive confirmation prompt, with Auto=true used by the fuzzer's
// automatic vhost registration.
type Writer struct {
	Auto    bool
	Confirm func(ip, hostname string) bool
	log     *zap.Logger
}

// NewWriter returns a Writer that logs through logger.
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{log: logger}
}

// Register appends "<ip>\t<hostname>" to /etc/hosts unless hostname is
// already present, satisfying internal/fuzzer.HostRegistrar.
func (w *Writer) Register(ip, hostname string) error {
	content, err := readHostsFile()
	if err != nil {
		return fmt.Errorf("read %s: %w", hostsPath, err)
	}
	if bytes.Contains(content, []byte(hostname)) {
		if w.log != nil {
			w.log.Info("hostname already present in /etc/hosts", zap.String("hostname", hostname))
		}
		return nil
	}

	if !w.Auto && w.Confirm != nil && !w.Confirm(ip, hostname) {
		if w.log != nil {
			w.log.Info("skipped adding to /etc/hosts", zap.String("hostname", hostname))
		}
		return nil
	}

	entry := fmt.Sprintf("\n%s\t%s\n", ip, hostname)
	cmd := exec.Command("sudo", "tee", "-a", hostsPath)
	cmd.Stdin = bytes.NewReader([]byte(entry))
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("append to %s: %w", hostsPath, err)
	}
	if w.log != nil {
		w.log.Info("added hostname to /etc/hosts", zap.String("ip", ip), zap.String("hostname", hostname))
	}
	return nil
}

// readHostsFile reads /etc/hosts directly, falling back to an elevated
// `sudo cat` when the process lacks read permission.
func readHostsFile() ([]byte, error) {
	data, err := os.ReadFile(hostsPath)
	if err == nil {
		return data, nil
	}
	if !os.IsPermission(err) {
		return nil, err
	}
	out, cmdErr := exec.Command("sudo", "cat", hostsPath).Output()
	if cmdErr != nil {
		return nil, cmdErr
	}
	return out, nil
}
