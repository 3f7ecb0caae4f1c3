package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, built string, bi *debug.BuildInfo) {
	t.Helper()
	oldVersion, oldCommit, oldTime, oldRead := Version, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = oldVersion, oldCommit, oldTime, oldRead
	})
	Version, GitCommit, BuildTime = version, commit, built
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestGetBuildInfoFromLdflags(t *testing.T) {
	withBuild(t, "v1.2.0", "abcdef0123456", "2026-01-02T03:04:05Z", nil)

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "abcdef0", info.ShortCommit())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), info.BuildTime)
	assert.True(t, info.IsRelease())
	assert.Equal(t, "sigil v1.2.0 (abcdef0)", info.String())
}

func TestGetBuildInfoFromVCSSettings(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abc"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := GetBuildInfo()
	assert.Equal(t, "dev-1234567", info.Version)
	assert.Equal(t, "1234567890abc", info.GitCommit)
	assert.True(t, info.Dirty)
	assert.False(t, info.IsRelease())
	assert.Equal(t, "sigil dev-1234567 (dirty)", info.String())
}

func TestGetBuildInfoModuleVersion(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
	})

	info := GetBuildInfo()
	assert.Equal(t, "v0.3.1", info.Version)
	assert.Empty(t, info.ShortCommit())
	assert.True(t, info.BuildTime.IsZero())
	assert.Equal(t, "sigil v0.3.1", info.String())
}
