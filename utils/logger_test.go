/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.TraceLevel, ParseLogLevel("TRACE"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" warning "))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}

func TestLog4jColorFormatter(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "REPOSITORY", NameWidth: 10, DisableColors: true}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "staged insert",
		Data:    logrus.Fields{"id": "a1", "entity": "Account"},
	}

	out, err := f.Format(entry)

	assert.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "2025-01-02 03:04:05.000    INFO")
	assert.Contains(t, s, "REPOSITORY : staged insert entity=Account id=a1\n")
}

func TestLoggerRegistry(t *testing.T) {
	var buf bytes.Buffer
	ConfigureConsoleOutput(&buf)
	defer ConfigureConsoleOutput(nil)

	l := GetLogger("registry-test")
	assert.Same(t, l, GetLogger("registry-test"))

	assert.True(t, SetLoggerLevel("registry-test", "error"))
	assert.False(t, SetLoggerLevel("missing", "error"))

	l.Info("hidden")
	l.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
