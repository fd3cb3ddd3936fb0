/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The TrafficEye Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging is a thin wrapper around logrus used throughout the console.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trafficeye/console/core/config"
)

// Fields aliases logrus.Fields
type Fields = logrus.Fields

// Logger is the logging interface handed to every component.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
}

type logger struct {
	entry *logrus.Entry
}

// New creates a logger from the log configuration. The returned closer
// releases the rotating log file, if one was opened.
func New(cfg config.LogConfig) (Logger, io.Closer, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		l.SetOutput(rotating)
		closer = rotating
	} else {
		l.SetOutput(os.Stderr)
	}

	return logger{entry: logrus.NewEntry(l)}, closer, nil
}

// NewWriter creates a logger writing text lines to w at debug level.
func NewWriter(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return logger{entry: logrus.NewEntry(l)}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return NewWriter(io.Discard)
}

func (l logger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// WithField adds a single field to the Entry.
func (l logger) WithField(key string, value interface{}) Logger {
	return logger{entry: l.entry.WithField(key, value)}
}

// WithFields adds a map of fields to the Entry.
func (l logger) WithFields(fields Fields) Logger {
	return logger{entry: l.entry.WithFields(fields)}
}

// WithError adds an error as single field to the Entry.
func (l logger) WithError(err error) Logger {
	return logger{entry: l.entry.WithError(err)}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
