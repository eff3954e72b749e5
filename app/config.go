package app

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultConfig = `# Filing Gateway

################################## LOGGING ####################################

[logging]

#
# Logging verbosity level.
# Supported values: "DEBUG", "INFO", "WARN", "ERROR", "FATAL" or "PANIC".
#
level = "INFO"

################################## GATEWAY ####################################

[gateway]

#
# Endpoint of the remote transaction gateway.
#
endpoint = "https://xmlgw.companieshouse.gov.uk/v1-0/xmlgw/Gateway"

#
# Presenter credentials, as issued by the registrar.
#
presenter_id = ""
presenter_code = ""
presenter_email = ""

#
# Package reference covering submission fees.
#
package_reference = ""

#
# When enabled, every request is flagged for the gateway test service.
#
test_mode = false

################################## DATABASE ###################################

[database]

#
# PostgreSQL connection string.
#
url = "postgres://filing@127.0.0.1:5432/filing"

################################## DOCUMENTS ##################################

[documents]

#
# Directory where fetched documents are written.
#
path = "/var/lib/filing-gateway/documents"

################################### WATCHER ###################################

[watcher]

#
# How often pending submissions are polled for status updates.
#
interval = "30s"
`

type Config struct {
	v *viper.Viper

	Logging struct {
		Level string
	}

	Gateway struct {
		Endpoint         string `mapstructure:"endpoint"`
		PresenterID      string `mapstructure:"presenter_id"`
		PresenterCode    string `mapstructure:"presenter_code"`
		PresenterEmail   string `mapstructure:"presenter_email"`
		PackageReference string `mapstructure:"package_reference"`
		TestMode         bool   `mapstructure:"test_mode"`
	} `mapstructure:"gateway"`

	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`

	Documents struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"documents"`

	Watcher struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"watcher"`
}

func (c Config) Validate() error {
	if c.Watcher.Interval <= 0 {
		return errors.New("watcher.interval must be positive")
	}
	return nil
}

func (c Config) String() string {
	tmpfile, err := os.CreateTemp("", "config.*.toml")
	if err != nil {
		return err.Error()
	}
	defer os.Remove(tmpfile.Name())
	err = c.v.WriteConfigAs(tmpfile.Name())
	if err != nil {
		return err.Error()
	}
	blob, err := os.ReadFile(tmpfile.Name())
	if err != nil {
		return err.Error()
	}
	return string(blob)
}

func loadConfig(c *Config) error {
	v := viper.New()

	v.SetEnvPrefix("FILING_GATEWAY")
	v.AutomaticEnv()

	v.SetConfigName("filing-gateway")
	v.SetConfigType("toml")
	v.AddConfigPath("$HOME/.config/")
	v.AddConfigPath("/etc/filing-gateway/")

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read our default configuration.
	if err := v.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		panic(err) // Not in the user path.
	}

	// Include configuration file provided by the user.
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return errors.Wrap(err, "configuration unmarshaling failed")
	}

	c.v = v

	return c.Validate()
}
