package config

import "sync"

var (
	instance     ConfigManager
	instanceOnce sync.Once
	instanceMu   sync.RWMutex
)

// GetInstance returns the process-wide ConfigManager, creating it on
// first use.
func GetInstance() ConfigManager {
	instanceMu.RLock()
	if instance != nil {
		defer instanceMu.RUnlock()
		return instance
	}
	instanceMu.RUnlock()

	instanceOnce.Do(func() {
		instanceMu.Lock()
		defer instanceMu.Unlock()
		if instance == nil {
			instance = NewConfigManager()
		}
	})

	instanceMu.RLock()
	defer instanceMu.RUnlock()
	return instance
}

// ResetInstance discards the singleton so the next GetInstance call
// creates a fresh one. Intended for test teardown.
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
	instanceOnce = sync.Once{}
}

// SetInstanceForTesting installs cm as the singleton, bypassing the
// once-guarded construction. Intended for test setup.
func SetInstanceForTesting(cm ConfigManager) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = cm
	instanceOnce = sync.Once{}
}
