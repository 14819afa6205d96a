package identity

import (
	"os"

	"github.com/guardeloo/occupancy-agent/pkg/file"
)

// Identity holds the monitor's unique identifier and the room it watches.
type Identity struct {
	ID   string `json:"monitor_id,omitempty"`
	Room string `json:"room,omitempty"`
	Name string `json:"monitor_name,omitempty"`
}

// MonitorInfoInterface defines methods for managing the monitor's identity.
type MonitorInfoInterface interface {
	LoadMonitorInfo() error
	SaveMonitorID(monitorID string) error
	GetMonitorID() string
	GetRoom() string
	GetIdentity() *Identity
}

// MonitorInfo manages the monitor identity and its associated file operations.
type MonitorInfo struct {
	MonitorInfoFile string
	Identity        Identity
	fileOps         file.FileOperations
}

// NewMonitorInfo initializes a new MonitorInfo instance.
func NewMonitorInfo(filePath string, fileOps file.FileOperations) MonitorInfoInterface {
	return &MonitorInfo{
		MonitorInfoFile: filePath,
		fileOps:         fileOps,
		Identity:        Identity{},
	}
}

// LoadMonitorInfo reads the monitor information from the file and populates
// the Identity field. A missing file is not an error; the identity starts
// empty and is written once an ID is assigned.
func (m *MonitorInfo) LoadMonitorInfo() error {
	err := m.fileOps.ReadJsonFile(m.MonitorInfoFile, &m.Identity)
	if err != nil {
		if os.IsNotExist(err) {
			m.Identity = Identity{}
			return nil
		}
		return err
	}

	return nil
}

// GetIdentity returns the current monitor Identity.
func (m *MonitorInfo) GetIdentity() *Identity {
	return &m.Identity
}

// GetMonitorID returns the current monitor ID.
func (m *MonitorInfo) GetMonitorID() string {
	return m.Identity.ID
}

// GetRoom returns the name of the monitored room.
func (m *MonitorInfo) GetRoom() string {
	return m.Identity.Room
}

// SaveMonitorID updates the monitor ID in the Identity field and writes it back to the file.
func (m *MonitorInfo) SaveMonitorID(monitorID string) error {
	m.Identity.ID = monitorID
	return m.fileOps.WriteJsonFile(m.MonitorInfoFile, m.Identity)
}
