package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/delsi82/color-recognition/internal/services"
)

// Device describes a capture node found on the host.
type Device struct {
	Node  string // device node path, e.g. /dev/video0
	Index int    // numeric suffix of the node
	Name  string // driver-reported model name, title-cased
}

var videoNodePattern = regexp.MustCompile(`^video(\d+)$`)

// DiscoverDevices enumerates video capture nodes with their sysfs model
// names. A host without any nodes returns an empty slice, not an error.
func DiscoverDevices() ([]Device, error) {
	return discoverDevices("/dev", "/sys/class/video4linux")
}

func discoverDevices(devDir, sysDir string) ([]Device, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, services.Wrap(services.ErrDriver, "camera", "discover",
			fmt.Sprintf("read %s", devDir), err)
	}

	var devices []Device
	for _, entry := range entries {
		m := videoNodePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		devices = append(devices, Device{
			Node:  filepath.Join(devDir, entry.Name()),
			Index: idx,
			Name:  readModelName(sysDir, entry.Name()),
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })
	return devices, nil
}

// NodeForSelector resolves a configured device selector to its /dev node.
// Numeric selectors map to /dev/video<N>, absolute paths pass through, and
// anything else (URLs, container files) has no node and returns "".
func NodeForSelector(selector string) string {
	selector = strings.TrimSpace(selector)
	if idx, err := strconv.Atoi(selector); err == nil && idx >= 0 {
		return fmt.Sprintf("/dev/video%d", idx)
	}
	if strings.HasPrefix(selector, "/dev/") {
		return selector
	}
	return ""
}

// readModelName pulls the human-readable model from sysfs. Missing entries
// are normal for virtual nodes and yield an empty name.
func readModelName(sysDir, node string) string {
	raw, err := os.ReadFile(filepath.Join(sysDir, node, "name"))
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return ""
	}
	return cases.Title(language.Und).String(name)
}
