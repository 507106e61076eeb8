package log_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/log"
)

// TestInitWritesStructuredFields checks that Init wires the global logger to
// the requested file and that Infow/Warnw land their key-value pairs in it.
func TestInitWritesStructuredFields(t *testing.T) {
	c := qt.New(t)

	logPath := filepath.Join(t.TempDir(), "mercat.log")
	log.Init(log.LogLevelInfo, logPath, nil)

	log.Infow("sender account created", "accountID", 1)
	log.Warnw("mediator rejected transfer", "cap", 10)

	contents, err := os.ReadFile(logPath)
	c.Assert(err, qt.IsNil)
	c.Assert(string(contents), qt.Contains, "sender account created")
	c.Assert(string(contents), qt.Contains, "mediator rejected transfer")
}
