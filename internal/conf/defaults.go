// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("api.target", TargetDesktop)
	viper.SetDefault("api.baseurl", "")
	viper.SetDefault("api.connecttimeout", 10*time.Second)
	viper.SetDefault("api.jsontimeout", 10*time.Second)
	viper.SetDefault("api.uploadtimeout", 30*time.Second)
	viper.SetDefault("api.diagnosetimeout", 300*time.Second)
	viper.SetDefault("api.useragent", "VitalArbor-Go")
	viper.SetDefault("api.statusauthoritative", false)
	viper.SetDefault("api.uploadconcurrency", 3)

	viper.SetDefault("diagnosis.mode", ModeHosted)
	viper.SetDefault("diagnosis.local.interpreter", "python")
	viper.SetDefault("diagnosis.local.script", "Pipelines/risk_score.py")
	viper.SetDefault("diagnosis.local.timeout", 300*time.Second)

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "warn")
	viper.SetDefault("logging.file.enabled", false)
	viper.SetDefault("logging.file.path", "logs/vitalarbor.log")
	viper.SetDefault("logging.file.level", "info")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")

	viper.SetDefault("metrics.listen", "")

	viper.SetDefault("mock.listen", ":3000")
}
