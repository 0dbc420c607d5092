package usbtmc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DeviceInfo describes one instrument currently bound to the usbtmc kernel
// driver.
type DeviceInfo struct {
	VendorID  uint16
	ProductID uint16
	Serial    string

	// Path is the character device node, e.g. /dev/usbtmc0.
	Path string
}

// SysfsRoots points Enumerate at the kernel driver trees. Overridable so
// tests can run against a fabricated tree.
type SysfsRoots struct {
	USB    string
	USBTMC string
	Dev    string
}

// DefaultSysfsRoots returns the standard Linux locations.
func DefaultSysfsRoots() SysfsRoots {
	return SysfsRoots{
		USB:    "/sys/bus/usb/drivers/usb",
		USBTMC: "/sys/bus/usb/drivers/usbtmc",
		Dev:    "/dev",
	}
}

var busPortRe = regexp.MustCompile(`^\d+-\d+(\.\d+)*:\d+\.\d+$`)

// Enumerate lists every device bound to the usbtmc driver. It scans the
// driver's sysfs directory for bound interfaces, resolves each one's vendor
// ID, product ID, and serial from the parent USB device, and maps it to its
// /dev/usbtmcN node through the usbmisc class directory.
//
// The scan is stateless: attachment can change between calls, so nothing is
// cached process-wide.
func Enumerate(roots SysfsRoots) ([]DeviceInfo, error) {
	entries, err := os.ReadDir(roots.USBTMC)
	if err != nil {
		return nil, fmt.Errorf("scan usbtmc driver tree: %w", err)
	}

	var devices []DeviceInfo
	for _, e := range entries {
		name := e.Name()
		if !busPortRe.MatchString(name) {
			continue
		}
		// "3-1:1.0" -> parent USB device "3-1".
		parent := name[:strings.IndexByte(name, ':')]

		vid, err := readHexAttr(filepath.Join(roots.USB, parent, "idVendor"))
		if err != nil {
			return nil, err
		}
		pid, err := readHexAttr(filepath.Join(roots.USB, parent, "idProduct"))
		if err != nil {
			return nil, err
		}
		serial, err := readAttr(filepath.Join(roots.USB, parent, "serial"))
		if err != nil {
			return nil, err
		}

		node, err := usbmiscNode(filepath.Join(roots.USBTMC, name, "usbmisc"))
		if err != nil {
			return nil, err
		}

		devices = append(devices, DeviceInfo{
			VendorID:  vid,
			ProductID: pid,
			Serial:    serial,
			Path:      filepath.Join(roots.Dev, node),
		})
	}
	return devices, nil
}

// Find returns the first attached device matching the vendor/product pair.
func Find(roots SysfsRoots, vid, pid uint16) (DeviceInfo, error) {
	devices, err := Enumerate(roots)
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, d := range devices {
		if d.VendorID == vid && d.ProductID == pid {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: %04x:%04x", ErrNotFound, vid, pid)
}

// FindBySerial returns the attached device with the given serial number.
func FindBySerial(roots SysfsRoots, serial string) (DeviceInfo, error) {
	devices, err := Enumerate(roots)
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, d := range devices {
		if d.Serial == serial {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: serial %q", ErrNotFound, serial)
}

func readAttr(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read sysfs attribute: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func readHexAttr(path string) (uint16, error) {
	s, err := readAttr(path)
	if err != nil {
		return 0, err
	}
	var v uint16
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return 0, fmt.Errorf("parse sysfs id %q: %w", s, err)
	}
	return v, nil
}

// usbmiscNode returns the single usbtmcN entry under an interface's usbmisc
// class directory.
func usbmiscNode(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("resolve usbmisc node: %w", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "usbtmc") {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("resolve usbmisc node: no usbtmc entry in %s", dir)
}
