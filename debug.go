// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kfs

import (
	"flag"
	"sync"

	"github.com/sirupsen/logrus"
)

var fEnableDebug = flag.Bool(
	"kfs.debug",
	false,
	"Log NFSv3 request/response traffic at debug level.")

var gLogger *logrus.Logger
var gLoggerOnce sync.Once

func initLogger() {
	gLogger = logrus.StandardLogger()
	gLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if flag.Parsed() && *fEnableDebug {
		level = logrus.DebugLevel
	}
	gLogger.SetLevel(level)
}

// Logger returns the package-wide logrus logger, initializing it on first
// use from the -kfs.debug flag. internal/nfs3 and internal/rpctransport
// both log through this logger so that a single flag controls verbosity
// across the whole mount lifecycle.
func Logger() *logrus.Logger {
	gLoggerOnce.Do(initLogger)
	return gLogger
}
