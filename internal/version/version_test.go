package version

import (
	"strings"
	"testing"
)

func TestInfoMatchesAccessors(t *testing.T) {
	v, c, d := Info()

	if v != GetVersion() {
		t.Errorf("Info version %q disagrees with GetVersion %q", v, GetVersion())
	}
	if c != GetCommit() {
		t.Errorf("Info commit %q disagrees with GetCommit %q", c, GetCommit())
	}
	if d != GetDate() {
		t.Errorf("Info date %q disagrees with GetDate %q", d, GetDate())
	}
}

func TestDefaultsAreNonEmpty(t *testing.T) {
	// Без -ldflags поля держат дефолты, но никогда не пустые строки.
	for name, value := range map[string]string{
		"version": GetVersion(),
		"commit":  GetCommit(),
		"date":    GetDate(),
	} {
		if value == "" {
			t.Errorf("%s must not be empty", name)
		}
	}
}

func TestStringFormat(t *testing.T) {
	s := String()
	for _, field := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, field) {
			t.Errorf("String() = %q, missing %q", s, field)
		}
	}
}
