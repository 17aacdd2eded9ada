package processfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-keeper/pkg/atomicfile"
	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/processstate"
)

// Default application name for HSU Keeper
const DefaultAppName = "hsu-keeper"

// ProcessFileConfig holds configuration for PID file placement
type ProcessFileConfig struct {
	// Base directory for PID files. If empty, uses OS-appropriate default
	BaseDirectory string

	// Service context - affects directory selection
	ServiceContext ServiceContext

	// Application name for subdirectory creation
	AppName string

	// Create subdirectory for the app (recommended for system services)
	UseSubdirectory bool
}

// ServiceContext defines the context in which the keeper runs
type ServiceContext string

const (
	// SystemService runs as a system service (daemon)
	SystemService ServiceContext = "system"

	// UserService runs as a user service
	UserService ServiceContext = "user"
)

// ProcessFileManager records the PIDs of spawned units so external tools can find them.
type ProcessFileManager struct {
	config ProcessFileConfig
	logger logging.Logger
}

// NewProcessFileManager creates a new process file manager with the given configuration
func NewProcessFileManager(config ProcessFileConfig, logger logging.Logger) *ProcessFileManager {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}

	if config.ServiceContext == "" {
		config.ServiceContext = SystemService
	}

	return &ProcessFileManager{
		config: config,
		logger: logger,
	}
}

// GeneratePIDFilePath generates the PID file path for the given unit ID
func (m *ProcessFileManager) GeneratePIDFilePath(unitID string) string {
	baseDir := m.getBaseDirectory()

	if m.config.UseSubdirectory {
		baseDir = filepath.Join(baseDir, m.config.AppName)
	}

	return filepath.Join(baseDir, unitID+".pid")
}

// WritePIDFile atomically writes the process PID for the given unit ID
func (m *ProcessFileManager) WritePIDFile(unitID string, pid int) error {
	pidFilePath := m.GeneratePIDFilePath(unitID)
	m.logger.Debugf("Writing PID file, unit: %s, pid: %d, path: %s", unitID, pid, pidFilePath)

	if err := ValidatePIDFileDirectory(pidFilePath); err != nil {
		m.logger.Errorf("PID file directory validation failed, unit: %s, path: %s, error: %v", unitID, pidFilePath, err)
		return errors.NewIOError("PID file directory validation failed", err).WithContext("pid_file", pidFilePath)
	}

	if previous, alive := m.LivePID(unitID); alive && previous != pid {
		m.logger.Warnf("Replacing PID file of a process that is still running, unit: %s, old pid: %d, new pid: %d", unitID, previous, pid)
	}

	pidContent := fmt.Sprintf("%d\n", pid)
	if err := atomicfile.WriteFile(pidFilePath, []byte(pidContent), 0644); err != nil {
		m.logger.Errorf("Failed to write PID file, unit: %s, pid: %d, path: %s, error: %v", unitID, pid, pidFilePath, err)
		return errors.NewIOError("failed to write PID file", err).WithContext("pid_file", pidFilePath).WithContext("pid", pid)
	}

	m.logger.Debugf("PID file written, unit: %s, pid: %d, path: %s", unitID, pid, pidFilePath)
	return nil
}

// ReadPIDFile reads the PID recorded for the given unit ID
func (m *ProcessFileManager) ReadPIDFile(unitID string) (int, error) {
	pidFilePath := m.GeneratePIDFilePath(unitID)

	content, err := os.ReadFile(pidFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.NewNotFoundError("PID file not found", err).WithContext("pid_file", pidFilePath)
		}
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", pidFilePath)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, errors.NewValidationError("invalid PID in PID file", err).WithContext("pid_file", pidFilePath).WithContext("content", pidStr)
	}

	return pid, nil
}

// LivePID returns the recorded PID of the given unit ID and whether that process is still running.
func (m *ProcessFileManager) LivePID(unitID string) (int, bool) {
	pid, err := m.ReadPIDFile(unitID)
	if err != nil {
		return 0, false
	}
	running, err := processstate.IsProcessRunning(pid)
	if err != nil {
		return pid, false
	}
	return pid, running
}

// RemovePIDFile removes the PID file of the given unit ID. A missing file is not an error.
func (m *ProcessFileManager) RemovePIDFile(unitID string) error {
	pidFilePath := m.GeneratePIDFilePath(unitID)

	if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
		m.logger.Warnf("Failed to remove PID file, unit: %s, path: %s, error: %v", unitID, pidFilePath, err)
		return errors.NewIOError("failed to remove PID file", err).WithContext("pid_file", pidFilePath)
	}

	m.logger.Debugf("PID file removed, unit: %s, path: %s", unitID, pidFilePath)
	return nil
}

// getBaseDirectory returns the appropriate base directory for PID files
func (m *ProcessFileManager) getBaseDirectory() string {
	if m.config.BaseDirectory != "" {
		return m.config.BaseDirectory
	}

	switch m.config.ServiceContext {
	case UserService:
		return m.getUserServiceDirectory()
	default:
		return m.getSystemServiceDirectory()
	}
}

// getSystemServiceDirectory returns the directory for system services
func (m *ProcessFileManager) getSystemServiceDirectory() string {
	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = "C:\\ProgramData"
		}
		return programData

	case "darwin":
		return "/var/run"

	default:
		// Modern standard is /run, with fallback to /var/run
		if _, err := os.Stat("/run"); err == nil {
			return "/run"
		}
		return "/var/run"
	}
}

// getUserServiceDirectory returns the directory for user services
func (m *ProcessFileManager) getUserServiceDirectory() string {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile != "" {
				localAppData = filepath.Join(userProfile, "AppData", "Local")
			} else {
				localAppData = "C:\\Users\\Default\\AppData\\Local"
			}
		}
		return localAppData

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "/tmp"
		}
		return filepath.Join(homeDir, "Library", "Application Support")

	default:
		if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
			return runtimeDir
		}
		return "/tmp"
	}
}

// ValidatePIDFileDirectory validates that the PID file directory exists and is writable
func ValidatePIDFileDirectory(pidFilePath string) error {
	dir := filepath.Dir(pidFilePath)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.NewIOError("failed to create PID file directory", err).WithContext("directory", dir)
			}
		} else {
			return errors.NewIOError("failed to access PID file directory", err).WithContext("directory", dir)
		}
	} else if !info.IsDir() {
		return errors.NewValidationError("PID file path is not a directory", nil).WithContext("path", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	if file, err := os.Create(testFile); err != nil {
		return errors.NewPermissionError("PID file directory is not writable", err).WithContext("directory", dir)
	} else {
		file.Close()
		os.Remove(testFile)
	}

	return nil
}
