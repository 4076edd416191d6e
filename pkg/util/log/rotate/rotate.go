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

package rotate

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the configuration for the rotate file hook.
type Config struct {
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Level      logrus.Level
	Formatter  logrus.Formatter
}

func (c Config) validate() error {
	if c.Filename == "" {
		return errors.New("log file name is empty")
	}
	if c.MaxSize < 0 || c.MaxBackups < 0 || c.MaxAge < 0 {
		return fmt.Errorf("invalid rotation limits size=%d backups=%d age=%d", c.MaxSize, c.MaxBackups, c.MaxAge)
	}
	if c.Formatter == nil {
		return errors.New("log formatter is missing")
	}
	return nil
}

// File is the logrus hook writing entries to the size-rotated log file.
// Each entry is annotated with the source location of the log call.
type File struct {
	config Config
	w      io.WriteCloser
	// depth is the maximum number of frames walked to find the caller
	depth        int
	skip         int
	skipPrefixes []string
}

// NewHook builds the rotate file hook.
func NewHook(config Config) (*File, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	hook := &File{
		config:       config,
		depth:        20,
		skip:         5,
		skipPrefixes: []string{"logrus/", "logrus@", "log/logger.go"},
	}
	hook.w = &lumberjack.Logger{
		Filename:   config.Filename,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
	}
	return hook, nil
}

// Levels returns the levels up to the configured one.
func (hook *File) Levels() []logrus.Level {
	return logrus.AllLevels[:hook.config.Level+1]
}

// Fire formats and writes the entry.
func (hook *File) Fire(entry *logrus.Entry) error {
	file, line := hook.findCaller()
	modified := entry.WithField("source", fmt.Sprintf("%s:%d", file, line))
	modified.Level = entry.Level
	modified.Message = entry.Message
	modified.Time = entry.Time
	b, err := hook.config.Formatter.Format(modified)
	if err != nil {
		return err
	}
	_, err = hook.w.Write(b)
	return err
}

// Close closes the current log file.
func (hook *File) Close() error { return hook.w.Close() }

func (hook *File) findCaller() (string, int) {
	var (
		file string
		line int
	)
	for i := 0; i < hook.depth; i++ {
		file, line = caller(hook.skip + i)
		if !hook.skipFile(file) {
			break
		}
	}
	return file, line
}

func (hook *File) skipFile(file string) bool {
	for _, prefix := range hook.skipPrefixes {
		if strings.HasPrefix(file, prefix) {
			return true
		}
	}
	return false
}

// caller returns the file of the frame trimmed to the parent directory.
func caller(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "", 0
	}
	n := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			n++
			if n >= 2 {
				file = file[i+1:]
				break
			}
		}
	}
	return file, line
}
