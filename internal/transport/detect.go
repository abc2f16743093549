package transport

import (
	"fmt"
	"strconv"

	"go.bug.st/serial/enumerator"
)

// USB identifiers of the LED matrix input module.
const (
	VendorID  = 0x32AC // 12972
	ProductID = 0x0020 // 32
)

// PortInfo identifies one detected module.
type PortInfo struct {
	Name         string
	SerialNumber string
	Product      string
}

func (p PortInfo) String() string {
	if p.SerialNumber == "" {
		return p.Name
	}
	return p.Name + " (" + p.SerialNumber + ")"
}

var listPorts = enumerator.GetDetailedPortsList

// Detect returns every serial port whose USB VID/PID matches the module,
// in enumeration order.
func Detect() ([]PortInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	var found []PortInfo
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		if !matchID(p.VID, VendorID) || !matchID(p.PID, ProductID) {
			continue
		}
		found = append(found, PortInfo{
			Name:         p.Name,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return found, nil
}

// matchID compares a hex id string as reported by the OS ("32ac", "0x32AC").
func matchID(s string, want uint64) bool {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 16)
	return err == nil && v == want
}
