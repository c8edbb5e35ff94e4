package buildinfo

import (
	"strings"
	"testing"
)

func TestGenerator(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	if got := Generator(); got != "wordstree/v1.2.3" {
		t.Errorf("Generator() = %q", got)
	}

	Version = "dev"
	if got := Generator(); !strings.HasPrefix(got, "wordstree/") {
		t.Errorf("Generator() = %q, want wordstree/ prefix", got)
	}
}

func TestString(t *testing.T) {
	if s := String(); !strings.Contains(s, "version: "+Version) {
		t.Errorf("String() = %q", s)
	}
}
