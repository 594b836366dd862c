package analyst

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "analyst")
