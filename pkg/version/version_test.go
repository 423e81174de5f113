package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_IsDevOrSemver(t *testing.T) {
	// Given: a build with or without ldflags
	// When: reading Version
	// Then: it is "dev" or a semver string
	if Version == "dev" {
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got %s", Version)
}

func TestString_IncludesBuildFields(t *testing.T) {
	// When: formatting the build summary
	str := String()

	// Then: program name, version, commit and platform are present
	assert.Contains(t, str, Name)
	assert.Contains(t, str, Version)
	assert.Contains(t, str, "commit: "+Commit)
	assert.Contains(t, str, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestShortAndUserAgent(t *testing.T) {
	assert.Equal(t, Version, Short())
	assert.Equal(t, "evidencemcp/"+Version, UserAgent())
}

func TestGetInfo_JSONFields(t *testing.T) {
	// Given: the structured build info
	info := GetInfo()
	assert.Equal(t, runtime.Version(), info.GoVersion)

	// When: serializing it
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: every documented key is present
	var parsed map[string]string
	require.NoError(t, json.Unmarshal(data, &parsed))
	for _, key := range []string{"name", "version", "commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, parsed, key)
	}
	assert.Equal(t, "evidencemcp", parsed["name"])
}
