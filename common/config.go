// common/config.go

package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"RekordPdbPatcher/locales"
)

// GlobalConfig holds global application settings
type GlobalConfig struct {
	Language           string
	EncoderPath        string
	Concurrency        int
	TaskTimeoutSeconds int
	StagingRoot        string
	LibraryKey         string
	ExtraAIFF          []string
	ExtraMP3           []string
	LogMaxSizeMB       int
	LogMaxAgeDays      int
	Debug              bool
}

// ModuleConfig defines a configuration structure for modules
type ModuleConfig struct {
	Extra map[string]string
}

// ConfigManager handles application configuration
type ConfigManager struct {
	configPath    string
	globalConfig  GlobalConfig
	moduleConfigs map[string]ModuleConfig
	mutex         sync.Mutex
}

type configFile struct {
	Global  GlobalConfig            `json:"global"`
	Modules map[string]ModuleConfig `json:"modules"`
}

// NewConfigManager loads configPath, creating it with defaults when it is missing.
// A file that exists but cannot be parsed is reported and left untouched.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	mgr := &ConfigManager{
		configPath:    configPath,
		globalConfig:  DefaultGlobalConfig(),
		moduleConfigs: make(map[string]ModuleConfig),
	}

	if !FileExists(configPath) {
		if err := mgr.saveConfig(); err != nil {
			return mgr, err
		}
		return mgr, nil
	}

	if err := mgr.loadConfig(); err != nil {
		return mgr, err
	}
	return mgr, nil
}

// GetConfigPath returns the path of the backing settings file
func (mgr *ConfigManager) GetConfigPath() string {
	return mgr.configPath
}

// GetGlobalConfig returns the global configuration
func (mgr *ConfigManager) GetGlobalConfig() GlobalConfig {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	return mgr.globalConfig
}

// SaveGlobalConfig saves the global configuration
func (mgr *ConfigManager) SaveGlobalConfig(config GlobalConfig) error {
	mgr.mutex.Lock()
	mgr.globalConfig = config
	mgr.mutex.Unlock()

	return mgr.saveConfig()
}

// GetModuleConfig retrieves a module's configuration
func (mgr *ConfigManager) GetModuleConfig(moduleName string) ModuleConfig {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	if config, exists := mgr.moduleConfigs[moduleName]; exists && config.Extra != nil {
		return config
	}
	return NewModuleConfig()
}

// SaveModuleConfig saves a module's configuration
func (mgr *ConfigManager) SaveModuleConfig(moduleName string, config ModuleConfig) error {
	mgr.mutex.Lock()
	mgr.moduleConfigs[moduleName] = config
	mgr.mutex.Unlock()

	return mgr.saveConfig()
}

// loadConfig loads the configuration from a file
func (mgr *ConfigManager) loadConfig() error {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	data, err := os.ReadFile(mgr.configPath)
	if err != nil {
		return fmt.Errorf(locales.Translate("common.config.readerr"), err)
	}

	config := configFile{Global: DefaultGlobalConfig()}
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf(locales.Translate("common.config.parseerr"), err)
	}

	mgr.globalConfig = withDefaults(config.Global)
	if config.Modules != nil {
		mgr.moduleConfigs = config.Modules
	}

	return nil
}

// saveConfig saves the configuration to a file
func (mgr *ConfigManager) saveConfig() error {
	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	mgr.globalConfig = withDefaults(mgr.globalConfig)

	data, err := json.MarshalIndent(configFile{
		Global:  mgr.globalConfig,
		Modules: mgr.moduleConfigs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf(locales.Translate("common.config.marshalerr"), err)
	}

	if err := EnsureDirectoryExists(filepath.Dir(mgr.configPath)); err != nil {
		return fmt.Errorf("failed to ensure config directory exists: %w", err)
	}

	return os.WriteFile(mgr.configPath, data, 0644)
}

// NewModuleConfig creates a new empty module configuration
func NewModuleConfig() ModuleConfig {
	return ModuleConfig{
		Extra: make(map[string]string),
	}
}

// Get retrieves a string value from the module configuration
func (c ModuleConfig) Get(key string, defaultValue string) string {
	if value, exists := c.Extra[key]; exists {
		return value
	}
	return defaultValue
}

// Set stores a string value in the module configuration
func (c *ModuleConfig) Set(key string, value string) {
	if c.Extra == nil {
		c.Extra = make(map[string]string)
	}
	c.Extra[key] = value
}

// GetBool retrieves a boolean value from the module configuration
func (c ModuleConfig) GetBool(key string, defaultValue bool) bool {
	if value, exists := c.Extra[key]; exists {
		return value == "true"
	}
	return defaultValue
}

// SetBool stores a boolean value in the module configuration
func (c *ModuleConfig) SetBool(key string, value bool) {
	c.Set(key, fmt.Sprintf("%t", value))
}
