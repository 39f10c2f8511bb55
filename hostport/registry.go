package hostport

import (
	"fmt"
	"strconv"

	"go.bug.st/serial/enumerator"
)

// BridgeInfo identifies a USB serial bridge known to carry the QDD stream.
type BridgeInfo struct {
	VendorID  uint16
	ProductID uint16
	Name      string
}

var registeredBridges []BridgeInfo

// RegisterBridge adds a USB serial bridge to the detection list.
func RegisterBridge(vendorID, productID uint16, name string) {
	registeredBridges = append(registeredBridges, BridgeInfo{
		VendorID:  vendorID,
		ProductID: productID,
		Name:      name,
	})
}

func init() {
	RegisterBridge(0x0403, 0x6001, "FTDI FT232R")
	RegisterBridge(0x0403, 0x6014, "FTDI FT232H")
	RegisterBridge(0x10c4, 0xea60, "Silicon Labs CP210x")
	RegisterBridge(0x1a86, 0x7523, "WCH CH340")
}

// List returns the serial ports of the host.
func List() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Match returns the registered bridge of a port, if any.
func Match(port *enumerator.PortDetails) (BridgeInfo, bool) {
	if port == nil || !port.IsUSB {
		return BridgeInfo{}, false
	}
	vid, err := strconv.ParseUint(port.VID, 16, 16)
	if err != nil {
		return BridgeInfo{}, false
	}
	pid, err := strconv.ParseUint(port.PID, 16, 16)
	if err != nil {
		return BridgeInfo{}, false
	}
	for _, info := range registeredBridges {
		if uint16(vid) == info.VendorID && uint16(pid) == info.ProductID {
			return info, true
		}
	}
	return BridgeInfo{}, false
}

// Detect picks the first port behind a registered bridge.
func Detect(ports []*enumerator.PortDetails) (*enumerator.PortDetails, error) {
	for _, port := range ports {
		if _, ok := Match(port); ok {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no supported USB serial bridge found")
}
