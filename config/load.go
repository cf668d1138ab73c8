package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	yaml "sigs.k8s.io/yaml/goyaml.v3"
)

type LoadConfigOpts struct {
	// Env var that can contain the path to the config file
	EnvVar string
	// Name of the folder searched in the home directory (as a dotfolder) and in /etc
	DirName string
	// Path to the config file; if set, it takes precedence over EnvVar and the search paths
	Path string
}

type ConfigDest interface {
	SetLoadedConfigPath(path string)
}

// Validator is implemented by config objects that check their values after they're loaded.
type Validator interface {
	Validate() error
}

func LoadConfig(dst ConfigDest, opts LoadConfigOpts) error {
	configFile, err := resolveConfigFile(opts)
	if err != nil {
		return err
	}

	err = loadConfigFile(dst, configFile)
	if err != nil {
		return NewConfigError(err, "Error loading config file")
	}

	if v, ok := dst.(Validator); ok {
		err = v.Validate()
		if err != nil {
			return NewConfigError(err, "Invalid configuration")
		}
	}

	dst.SetLoadedConfigPath(configFile)

	return nil
}

func resolveConfigFile(opts LoadConfigOpts) (string, error) {
	// An explicit path wins, then the env var
	switch {
	case opts.Path != "":
		if !fileExists(opts.Path) {
			return "", NewConfigError("File "+opts.Path+" does not exist", "Error loading config file")
		}
		return opts.Path, nil
	case opts.EnvVar != "" && os.Getenv(opts.EnvVar) != "":
		configFile := os.Getenv(opts.EnvVar)
		if !fileExists(configFile) {
			return "", NewConfigError("Environmental variable "+opts.EnvVar+" points to a file that does not exist", "Error loading config file")
		}
		return configFile, nil
	}

	// Look in the default paths
	searchPaths := []string{".", "~/." + opts.DirName, "/etc/" + opts.DirName}

	// Note: It's .yaml not .yml! https://yaml.org/faq.html
	configFile := findConfigFile("config.yaml", searchPaths...)
	if configFile == "" {
		configFile = findConfigFile("config.yml", searchPaths...)
	}
	if configFile == "" {
		return "", NewConfigError("Could not find a configuration file config.yaml in the current folder, '~/."+opts.DirName+"', or '/etc/"+opts.DirName+"'", "Error loading config file")
	}

	return configFile, nil
}

// Loads the configuration from a file.
// "dst" must be a pointer to a struct.
func loadConfigFile(dst any, filePath string) error {
	f, err := os.Open(filePath) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to open config file '%s': %w", filePath, err)
	}
	defer f.Close() //nolint:errcheck

	yamlDec := yaml.NewDecoder(f)
	yamlDec.KnownFields(true)
	err = yamlDec.Decode(dst)
	if err != nil {
		return fmt.Errorf("failed to decode config file '%s': %w", filePath, err)
	}

	return nil
}

func findConfigFile(fileName string, searchPaths ...string) string {
	for _, path := range searchPaths {
		// Skip entries like "~/." and "/etc/" that come from an empty DirName
		if path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, "/.") {
			continue
		}

		p, _ := homedir.Expand(path)
		if p != "" {
			path = p
		}

		search := filepath.Join(path, fileName)
		if fileExists(search) {
			return search
		}
	}

	return ""
}

// fileExists returns true if path exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
