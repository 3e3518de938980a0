// Package telemetry wraps a package-level structured logger for the
// tree engine and index lifecycle. It never substitutes for the
// command surface's stdout/stderr contract: nothing here is written
// unless --verbose is set, and nothing here is informational output.
package telemetry

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger used by the tree engine and index lifecycle.
// It is silent (warn level) until Configure(true) is called.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Configure raises Log to debug level when verbose is set. It is
// idempotent and safe to call once at command startup.
func Configure(verbose bool) {
	if verbose {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.WarnLevel)
	}
}

// NodeSplit logs a node split event.
func NodeSplit(addr int64, siblingAddr int64, n int) {
	Log.WithFields(logrus.Fields{
		"addr":         addr,
		"sibling_addr": siblingAddr,
		"n":            n,
	}).Debug("node_split")
}

// RootPromotion logs a root promotion event.
func RootPromotion(oldRootAddr int64, newHeight int32) {
	Log.WithFields(logrus.Fields{
		"old_root_addr": oldRootAddr,
		"new_height":    newHeight,
	}).Debug("root_promotion")
}

// IndexOpen logs an index being opened.
func IndexOpen(path string, keySize int, height int32, id string) {
	Log.WithFields(logrus.Fields{
		"path":     path,
		"key_size": keySize,
		"height":   height,
		"id":       id,
	}).Debug("index_open")
}

// IndexCreate logs an index being created.
func IndexCreate(path string, dataPath string, keySize int, id string) {
	Log.WithFields(logrus.Fields{
		"path":      path,
		"data_path": dataPath,
		"key_size":  keySize,
		"id":        id,
	}).Debug("index_create")
}
