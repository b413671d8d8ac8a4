package infrastructure

import (
	"testing"
)

func TestInitSetsLogger(t *testing.T) {
	Init()
	if Logger == nil {
		t.Fatal("Init left Logger nil")
	}
	Logger.Debug("logger usable after Init")
}
