package version

import "testing"

func TestString(t *testing.T) {
	Version, GitSHA, BuildTime = "1.2.0", "abc1234", "2025-04-16T09:30:00Z"
	t.Cleanup(func() { Version, GitSHA, BuildTime = "dev", "unknown", "unknown" })

	want := "ltr-process 1.2.0 (commit abc1234, built 2025-04-16T09:30:00Z)"
	if got := String("ltr-process"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
