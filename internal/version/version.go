package version

// Set at build time via -ldflags "-X github.com/hamed0406/statuswatch/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the release metadata reported by the self-health endpoint.
type Info struct {
	Version   string `json:"version"`
	ReleaseID string `json:"releaseId"`
}

// Get returns the build metadata. releaseID overrides the commit when set,
// which lets a deploy pipeline stamp its own release identifier.
func Get(releaseID string) Info {
	if releaseID == "" {
		releaseID = ShortCommit()
	}
	return Info{Version: Version, ReleaseID: releaseID}
}

// ShortCommit returns the first 7 characters of the commit hash.
func ShortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
