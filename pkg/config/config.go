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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rabbitstack/sl2/pkg/util/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFile         = "config-file"
	targetsFile        = "targets.file"
	aslrMask           = "match.aslr-mask"
	strictBufferBounds = "match.strict-buffer-bounds"
	hashCacheSize      = "hash.cache-size"
	moduleBase         = "session.module-base"
	traceFile          = "replay.trace"
)

const (
	defaultASLRMask      uint64 = 0xffff
	defaultHashCacheSize        = 1024
)

// MatchConfig influences the target matching engine.
type MatchConfig struct {
	// ASLRMask is applied to both return address offsets before they are compared.
	ASLRMask uint64 `json:"aslr-mask" yaml:"aslr-mask"`
	// StrictBufferBounds rejects buffer comparisons when the transferred size is unknown.
	StrictBufferBounds bool `json:"strict-buffer-bounds" yaml:"strict-buffer-bounds"`
}

// HashConfig influences the argument hasher.
type HashConfig struct {
	// CacheSize is the capacity of the argument hash cache. Zero disables caching.
	CacheSize int `json:"cache-size" yaml:"cache-size"`
}

// Config stores the configuration options assembled from the config file,
// environment variables and command line flags, in increasing precedence.
type Config struct {
	// TargetsFile is the path of the targets document.
	TargetsFile string `json:"targets.file" yaml:"targets.file"`
	// Match contains the matching engine settings.
	Match MatchConfig `json:"match" yaml:"match"`
	// Hash contains the argument hasher settings.
	Hash HashConfig `json:"hash" yaml:"hash"`
	// ModuleBase is the load address of the instrumented module.
	ModuleBase uint64 `json:"session.module-base" yaml:"session.module-base"`
	// TraceFile is the path of the recorded trace to replay.
	TraceFile string `json:"replay.trace" yaml:"replay.trace"`
	// Log contains log-specific configuration options
	Log log.Config `json:"logging" yaml:"logging"`

	flags *pflag.FlagSet
	viper *viper.Viper
	opts  *Options
}

// Options determines which config flags are toggled depending on the command type.
type Options struct {
	targets bool
	replay  bool
}

// Option is the type alias for the config option.
type Option func(*Options)

// WithTargets determines the command operates on the targets document.
func WithTargets() Option {
	return func(o *Options) {
		o.targets = true
	}
}

// WithReplay determines the replay command is executed.
func WithReplay() Option {
	return func(o *Options) {
		o.targets = true
		o.replay = true
	}
}

// NewWithOpts builds a new configuration store from a variety of sources such as configuration files,
// environment variables or command line flags.
func NewWithOpts(options ...Option) *Config {
	opts := &Options{}

	for _, opt := range options {
		opt(opts)
	}

	v := viper.New()
	v.SetEnvPrefix("sl2")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.SetDefault(aslrMask, defaultASLRMask)
	v.SetDefault(hashCacheSize, defaultHashCacheSize)

	c := &Config{
		Log:   log.Config{},
		viper: v,
		flags: new(pflag.FlagSet),
		opts:  opts,
	}
	c.addFlags()

	return c
}

// MustViperize adds the flag set to the Cobra command and binds them within the Viper flags.
func (c *Config) MustViperize(cmd *cobra.Command) {
	cmd.PersistentFlags().AddFlagSet(c.flags)
	if err := c.viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if c.opts.replay {
		if err := cmd.MarkPersistentFlagRequired(traceFile); err != nil {
			panic(err)
		}
	}
}

// File returns the config file path.
func (c *Config) File() string { return c.viper.GetString(configFile) }

// TryLoadFile loads the configuration file if one was given. An absent
// config file is not an error, since every option has a default value.
func (c *Config) TryLoadFile(file string) error {
	if file == "" {
		return nil
	}
	c.viper.SetConfigFile(file)
	return c.viper.ReadInConfig()
}

// Init setups the configuration state from Viper.
func (c *Config) Init() error {
	c.TargetsFile = c.viper.GetString(targetsFile)
	c.Match.ASLRMask = c.viper.GetUint64(aslrMask)
	c.Match.StrictBufferBounds = c.viper.GetBool(strictBufferBounds)
	c.Hash.CacheSize = c.viper.GetInt(hashCacheSize)
	c.ModuleBase = c.viper.GetUint64(moduleBase)
	c.TraceFile = c.viper.GetString(traceFile)
	c.Log.InitFromViper(c.viper)

	if c.Match.ASLRMask == 0 {
		return fmt.Errorf("%s must be a non-zero mask", aslrMask)
	}
	if c.Hash.CacheSize < 0 {
		return fmt.Errorf("%s can't be negative", hashCacheSize)
	}
	return nil
}

// Validate ensures that all configuration options provided by user have the expected values. The
// config file, if any, is validated first and then the settings merged from all sources.
func (c *Config) Validate() error {
	if file := c.File(); file != "" {
		var out interface{}
		b, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		switch filepath.Ext(file) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(b, &out)
		case ".json":
			err = json.Unmarshal(b, &out)
		default:
			return fmt.Errorf("%s is not a supported config file extension", filepath.Ext(file))
		}
		if err != nil {
			return fmt.Errorf("couldn't read the config file: %v", err)
		}
		if valid, errs := validate(out); !valid || len(errs) > 0 {
			return fmt.Errorf("invalid config: %v", joinErrors(errs))
		}
	}
	if valid, errs := validate(c.viper.AllSettings()); !valid || len(errs) > 0 {
		return fmt.Errorf("invalid config: %v", joinErrors(errs))
	}
	return nil
}

func (c *Config) addFlags() {
	c.flags.StringP(configFile, "c", "", "Indicates the location of the configuration file")
	c.flags.Int(hashCacheSize, defaultHashCacheSize, "Specifies the number of argument hashes memoized by the hasher. Zero disables the cache")
	if c.opts.targets {
		c.flags.StringP(targetsFile, "t", "targets.msgpack", "The path of the targets document")
		c.flags.Uint64(aslrMask, defaultASLRMask, "Specifies the mask applied to return address offsets before they are compared")
		c.flags.Bool(strictBufferBounds, false, "Indicates whether buffer comparisons of unknown size are treated as mismatches")
	}
	if c.opts.replay {
		c.flags.String(traceFile, "", "The path of the recorded trace")
		c.flags.Uint64(moduleBase, 0, "Specifies the load address of the instrumented module")
	}
	c.Log.AddFlags(c.flags)
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}
