// Package platform identifies the host once, up front. The resulting
// Facts value is immutable and handed to every collector so that no code
// below the aggregator reads ambient process state.
package platform

import (
	"os"
	"runtime"
	"strings"
)

// OS is the host operating-system family.
type OS int

const (
	Other OS = iota
	Windows
	Linux
	Darwin
)

func (o OS) String() string {
	switch o {
	case Windows:
		return "Windows"
	case Linux:
		return "Linux"
	case Darwin:
		return "macOS"
	default:
		return "Other"
	}
}

// Facts describes the host as detected at startup.
type Facts struct {
	OS OS

	// SingleBoard is set when the device-tree model identifies the host
	// as a Raspberry Pi class single-board computer.
	SingleBoard bool

	// BoardModel is the raw device-tree model string, when present.
	BoardModel string
}

const deviceTreeModel = "/proc/device-tree/model"

// Detect probes the host. It never fails: an unreadable device-tree file
// simply means the host is not a single-board computer.
func Detect() Facts {
	return detect(runtime.GOOS, deviceTreeModel)
}

func detect(goos, modelPath string) Facts {
	f := Facts{}

	switch goos {
	case "windows":
		f.OS = Windows
	case "linux":
		f.OS = Linux
	case "darwin":
		f.OS = Darwin
	default:
		f.OS = Other
	}

	if f.OS == Linux {
		if data, err := os.ReadFile(modelPath); err == nil {
			model := strings.TrimRight(string(data), "\x00\n ")
			f.BoardModel = model
			f.SingleBoard = strings.Contains(model, "Raspberry Pi")
		}
	}

	return f
}
