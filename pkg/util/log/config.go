/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package log

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	logLevel      = "logging.level"
	logMaxAge     = "logging.max-age"
	logMaxBackups = "logging.max-backups"
	logMaxSize    = "logging.max-size"
	logFormatter  = "logging.formatter"
	logPath       = "logging.path"
	logStdout     = "logging.log-stdout"
)

// Config contains the settings of the logging system.
type Config struct {
	// Level is the minimum allowed log level.
	Level string `json:"level" yaml:"level"`
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `json:"max-age" yaml:"max-age"`
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"max-backups" yaml:"max-backups"`
	// MaxSize is the maximum size in megabytes of the log file before it gets rotated.
	MaxSize int `json:"max-size" yaml:"max-size"`
	// Formatter is the log formatter (json|text).
	Formatter string `json:"formatter" yaml:"formatter"`
	// Path is the logs directory.
	Path string `json:"path" yaml:"path"`
	// LogStdout indicates log lines are echoed to standard error in addition to the log file.
	LogStdout bool `json:"log-stdout" yaml:"log-stdout"`
}

// InitFromViper initializes logging configuration from Viper.
func (c *Config) InitFromViper(v *viper.Viper) {
	c.Level = v.GetString(logLevel)
	c.MaxAge = v.GetInt(logMaxAge)
	c.MaxBackups = v.GetInt(logMaxBackups)
	c.MaxSize = v.GetInt(logMaxSize)
	c.Formatter = v.GetString(logFormatter)
	c.Path = v.GetString(logPath)
	c.LogStdout = v.GetBool(logStdout)
}

// AddFlags registers persistent logging flags.
func (c *Config) AddFlags(flags *pflag.FlagSet) {
	flags.String(logLevel, "info", "Specifies the minimum allowed log level")
	flags.Int(logMaxAge, 0, "Sets the maximum number of days to retain old log files. By default no old log files are removed")
	flags.Int(logMaxBackups, 5, "Specifies the maximum number of old log files to retain")
	flags.Int(logMaxSize, 50, "Specifies the maximum size in megabytes of the log file before it gets rotated")
	flags.String(logFormatter, "json", "Represents the log formatter (json|text)")
	flags.String(logPath, "", "Specifies the alternative path for storing the logs")
	flags.Bool(logStdout, false, "Indicates whether log lines are echoed to the console in addition to the log file")
}
